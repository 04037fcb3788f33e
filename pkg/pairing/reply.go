package pairing

import (
	"errors"
	"strconv"

	"code.linkpair.org/golang/pkg/adv"
	"code.linkpair.org/golang/pkg/jid"
	"code.linkpair.org/golang/pkg/stanza"
)

const (
	codeNotAuthorized = 401
	codeInternalError = 500
)

// ErrorReply returns the iq error acknowledgment of the pair-success stanza having id.
// HMAC failure is reported as not-authorized, any other failure as internal-error.
// The returned Node is not sent, caller decides if it is.
func ErrorReply(id string, err error) *stanza.Node {
	code, text := codeInternalError, "internal-error"
	if errors.Is(err, adv.ErrAccountHmacInvalid) {
		code, text = codeNotAuthorized, "not-authorized"
	}

	return &stanza.Node{
		Tag: "iq",
		Attrs: stanza.Attrs{
			"to":   jid.ServerJID.String(),
			"type": "error",
			"id":   id,
		},
		Content: []stanza.Node{{
			Tag:   "error",
			Attrs: stanza.Attrs{"code": strconv.Itoa(code), "text": text},
		}},
	}
}
