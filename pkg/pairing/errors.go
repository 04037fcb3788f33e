package pairing

import (
	"fmt"

	"code.linkpair.org/golang/internal/utils"
	"code.linkpair.org/golang/pkg/stanza"
)

// errorFlag is a private error type that allows declaring error constants.
type errorFlag string

const (
	// All package errors are wrapping Error
	Error = errorFlag("pairing: error")

	// ErrMalformedStanza signals a pair-success stanza lacking a required node or attribute.
	// Errors having this flag can be inspected with errors.As(err, **MalformedStanzaError).
	ErrMalformedStanza = errorFlag("pairing: malformed stanza")

	// ErrVerificationFailed signals that the pairing record did not verify.
	// The adv error flag that caused the failure is preserved, errors.Is(err, adv.ErrAccountHmacInvalid) works.
	ErrVerificationFailed = errorFlag("pairing: verification failed")

	ErrStore      = errorFlag("pairing: store error")
	ErrValidation = errorFlag("pairing: validation error")
	noError       = errorFlag("")
)

// Error implements the error interface.
func (self errorFlag) Error() string {
	return string(self)
}

func (self errorFlag) Unwrap() error {
	if Error == self || noError == self {
		return nil
	} else {
		return Error
	}
}

// MalformedStanzaError carries the offending stanza for diagnostics.
type MalformedStanzaError struct {
	Node    stanza.Node
	Missing string
}

func (self *MalformedStanzaError) Error() string {
	return fmt.Sprintf("pairing: malformed stanza, missing %s", self.Missing)
}

func (self *MalformedStanzaError) Unwrap() error {
	return ErrMalformedStanza
}

// newError returns a utils.RaisedErr{} that contains file & line of where it was called.
func newError(msg string, args ...any) error {
	return utils.NewError(1, Error, msg, args...)
}

// wrapError returns a utils.RaisedErr{} that contains file & line of where it was called.
func wrapError(cause error, msg string, args ...any) error {
	return utils.WrapError(cause, 1, Error, msg, args...)
}

// flagError is like wrapError but classifies the returned error with flag.
func flagError(flag errorFlag, cause error, msg string, args ...any) error {
	return utils.WrapError(cause, 1, flag, msg, args...)
}
