package credentials

import (
	"github.com/fxamacker/cbor/v2"

	"code.linkpair.org/golang/pkg/adv"
	"code.linkpair.org/golang/pkg/jid"
	"code.linkpair.org/golang/pkg/keys"
)

// deviceRecord is the storage representation of a Device, Identities excluded.
type deviceRecord struct {
	IdentityKey   []byte `cbor:"1,keyasint"` // private key, the public key is derived on load
	PairingSecret []byte `cbor:"2,keyasint"`
	Account       []byte `cbor:"3,keyasint,omitempty"` // adv.ForPersistence serialization
	MeId          string `cbor:"4,keyasint,omitempty"`
	MeName        string `cbor:"5,keyasint,omitempty"`
	MeLinkedId    string `cbor:"6,keyasint,omitempty"`
	Platform      string `cbor:"7,keyasint,omitempty"`
}

// identityRecord is the storage representation of an Identity.
type identityRecord struct {
	LinkedId   string `cbor:"1,keyasint"`
	SigningKey []byte `cbor:"2,keyasint"`
}

// MarshalDevice serializes dev, dev.Identities excluded.
func MarshalDevice(dev Device) ([]byte, error) {
	err := dev.Check()
	if nil != err {
		return nil, wrapError(err, "invalid Device")
	}
	rec := deviceRecord{
		IdentityKey:   dev.IdentityKey.Priv[:],
		PairingSecret: dev.PairingSecret,
		Platform:      dev.Platform,
		MeName:        dev.Me.Name,
		MeId:          formatJID(dev.Me.ID),
		MeLinkedId:    formatJID(dev.Me.LinkedId),
	}
	if nil != dev.Account {
		rec.Account, err = adv.MarshalSignedIdentity(*dev.Account, adv.ForPersistence)
		if nil != err {
			return nil, wrapError(err, "failed serializing Account")
		}
	}
	srz, err := cbor.Marshal(rec)

	return srz, wrapError(err, "failed cbor.Marshal(deviceRecord)") // nil if err is nil
}

// UnmarshalDevice deserializes a Device saved by MarshalDevice.
func UnmarshalDevice(data []byte) (Device, error) {
	var rec deviceRecord
	err := cbor.Unmarshal(data, &rec)
	if nil != err {
		return Device{}, wrapError(err, "failed cbor.Unmarshal(deviceRecord)")
	}
	kp, err := keys.NewKeyPair(rec.IdentityKey)
	if nil != err {
		return Device{}, wrapError(err, "invalid identity key")
	}
	dev := Device{IdentityKey: kp, PairingSecret: rec.PairingSecret, Platform: rec.Platform}
	dev.Me.Name = rec.MeName
	dev.Me.ID, err = parseJID(rec.MeId)
	if nil != err {
		return Device{}, wrapError(err, "invalid Me.ID")
	}
	dev.Me.LinkedId, err = parseJID(rec.MeLinkedId)
	if nil != err {
		return Device{}, wrapError(err, "invalid Me.LinkedId")
	}
	if len(rec.Account) > 0 {
		account, err := adv.UnmarshalSignedIdentity(rec.Account)
		if nil != err {
			return Device{}, wrapError(err, "invalid Account")
		}
		dev.Account = &account
	}

	return dev, nil
}

// MarshalIdentity serializes id.
func MarshalIdentity(id Identity) ([]byte, error) {
	srz, err := cbor.Marshal(identityRecord{LinkedId: id.LinkedId.String(), SigningKey: id.SigningKey[:]})
	return srz, wrapError(err, "failed cbor.Marshal(identityRecord)") // nil if err is nil
}

// UnmarshalIdentity deserializes an Identity saved by MarshalIdentity.
func UnmarshalIdentity(data []byte) (Identity, error) {
	var rec identityRecord
	err := cbor.Unmarshal(data, &rec)
	if nil != err {
		return Identity{}, wrapError(err, "failed cbor.Unmarshal(identityRecord)")
	}
	return NewIdentity(rec.LinkedId, rec.SigningKey)
}

// NewIdentity returns the Identity of linkedId & signingKey textual/binary forms.
func NewIdentity(linkedId string, signingKey []byte) (Identity, error) {
	var rv Identity
	var err error
	rv.LinkedId, err = jid.Parse(linkedId)
	if nil != err {
		return Identity{}, wrapError(err, "invalid LinkedId")
	}
	rv.SigningKey, err = keys.PublicKey(signingKey)
	if nil != err {
		return Identity{}, wrapError(err, "invalid SigningKey")
	}
	return rv, nil
}

func formatJID(j jid.JID) string {
	if j.IsEmpty() {
		return ""
	}
	return j.String()
}

func parseJID(s string) (jid.JID, error) {
	if "" == s {
		return jid.JID{}, nil
	}
	return jid.Parse(s)
}
