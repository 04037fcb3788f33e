package credentials

import (
	"crypto/rand"
	"encoding/binary"

	"code.linkpair.org/golang/pkg/adv"
	"code.linkpair.org/golang/pkg/jid"
	"code.linkpair.org/golang/pkg/keys"
)

// NewTestDelta returns a valid Delta for dev, as produced by pairing dev with a random account.
// The resulting Identity is linked to lid.
func NewTestDelta(dev Device, id string, lid string) (Delta, error) {
	account, err := keys.GenerateKeyPair()
	if nil != err {
		return Delta{}, wrapError(err, "failed generating account key")
	}
	me := Me{Name: "Test Business"}
	me.ID, err = jid.Parse(id)
	if nil != err {
		return Delta{}, wrapError(err, "invalid id")
	}
	me.LinkedId, err = jid.Parse(lid)
	if nil != err {
		return Delta{}, wrapError(err, "invalid lid")
	}

	var rawId [4]byte
	rand.Read(rawId[:])
	body := adv.DeviceIdentityBody{
		RawId:     binary.BigEndian.Uint32(rawId[:]),
		Timestamp: 1_700_000_000,
		KeyIndex:  1,
	}
	issuer := adv.Issuer{AccountKey: account, PairingSecret: dev.PairingSecret}
	rec, err := issuer.Issue(body, dev.IdentityKey.Pub)
	if nil != err {
		return Delta{}, wrapError(err, "failed issuing pairing record")
	}
	ci, err := adv.VerifyAndCosign(rec, dev.LocalIdentity())
	if nil != err {
		return Delta{}, wrapError(err, "failed adv.VerifyAndCosign")
	}

	linked := Identity{LinkedId: me.LinkedId.ToNonAD(), SigningKey: ci.LinkedIdentityKey}

	return Delta{
		Account:            ci.Record,
		Me:                 me,
		AppendedIdentities: MergeIdentities(dev.Identities, linked),
		Platform:           "smba",
	}, nil
}
