// Package credentials holds the durable credentials of a companion device
// and the stores that persist them.
package credentials

import (
	"bytes"
	"crypto/rand"
	"slices"

	"code.linkpair.org/golang/pkg/adv"
	"code.linkpair.org/golang/pkg/jid"
	"code.linkpair.org/golang/pkg/keys"
)

// Identity binds a linked account address to its signing key.
type Identity struct {
	LinkedId   jid.JID
	SigningKey [keys.KeySize]byte
}

// Address returns the signal protocol address that keys self in an identity set.
func (self Identity) Address() string {
	return self.LinkedId.SignalAddress().String()
}

// Me holds the account addresses of this device.
type Me struct {
	ID       jid.JID
	Name     string
	LinkedId jid.JID
}

// Delta is the credential update produced by a successful pairing.
// It is applied in a single store operation.
type Delta struct {
	// Account is the co-signed record, with its account signature key.
	Account adv.SignedIdentityRecord

	Me Me

	// AppendedIdentities is the complete identity set after pairing.
	AppendedIdentities []Identity

	Platform string
}

// Check returns an error if the Delta is invalid.
func (self Delta) Check() error {
	if !self.Account.IsCosigned() {
		return wrapError(ErrValidation, "Account is not co-signed")
	}
	if keys.KeySize != len(self.Account.AccountSignatureKey) {
		return wrapError(ErrValidation, "Account has no account signature key")
	}
	if self.Me.ID.IsEmpty() {
		return wrapError(ErrValidation, "empty Me.ID")
	}
	if self.Me.LinkedId.IsEmpty() {
		return wrapError(ErrValidation, "empty Me.LinkedId")
	}

	return nil
}

// Device holds the credentials of this companion device.
// Account is nil until pairing completes.
type Device struct {
	IdentityKey   keys.KeyPair
	PairingSecret []byte
	Account       *adv.SignedIdentityRecord
	Me            Me
	Identities    []Identity
	Platform      string
}

// NewDevice returns an unpaired Device with random identity key & pairing secret.
// The pairing secret is later shared with the primary device through the pairing QR code.
func NewDevice() (Device, error) {
	kp, err := keys.GenerateKeyPair()
	if nil != err {
		return Device{}, wrapError(err, "failed generating identity key")
	}
	secret := make([]byte, keys.KeySize)
	rand.Read(secret)

	return Device{IdentityKey: kp, PairingSecret: secret}, nil
}

// Check returns an error if the Device is invalid.
func (self Device) Check() error {
	err := self.LocalIdentity().Check()
	if nil != err {
		return wrapError(ErrValidation, "invalid local identity, %v", err)
	}
	if nil != self.Account && !self.Account.IsCosigned() {
		return wrapError(ErrValidation, "Account is not co-signed")
	}

	return nil
}

// CheckReplacement returns an error if current can not be replaced by next in a DeviceStore.
// The identity key of a paired Device is bound to its Account, it can not change.
func CheckReplacement(current Device, next Device) error {
	if current.IsPaired() && current.IdentityKey != next.IdentityKey {
		return wrapError(ErrIdentityClash, "stored Device is paired")
	}
	return nil
}

// IsPaired returns true if self completed pairing.
func (self Device) IsPaired() bool {
	return nil != self.Account
}

// LocalIdentity returns the keys used to verify a pairing record.
func (self Device) LocalIdentity() adv.LocalIdentity {
	return adv.LocalIdentity{IdentityKey: self.IdentityKey, PairingSecret: bytes.Clone(self.PairingSecret)}
}

// Apply returns a copy of self updated with delta. self is not modified.
func (self Device) Apply(delta Delta) Device {
	rv := self.Clone()
	account := delta.Account.Clone()
	rv.Account = &account
	rv.Me = delta.Me
	rv.Identities = MergeIdentities(rv.Identities, delta.AppendedIdentities...)
	rv.Platform = delta.Platform

	return rv
}

// Clone returns a deep copy of self.
func (self Device) Clone() Device {
	rv := self
	rv.PairingSecret = bytes.Clone(self.PairingSecret)
	if nil != self.Account {
		account := self.Account.Clone()
		rv.Account = &account
	}
	rv.Identities = slices.Clone(self.Identities)

	return rv
}

// MergeIdentities returns a new identity set containing current and added.
// An added Identity replaces a current one having the same Address.
func MergeIdentities(current []Identity, added ...Identity) []Identity {
	rv := make([]Identity, 0, len(current)+len(added))
	index := make(map[string]int, len(current)+len(added))
	for _, ids := range [][]Identity{current, added} {
		for _, id := range ids {
			addr := id.Address()
			if pos, found := index[addr]; found {
				rv[pos] = id
				continue
			}
			index[addr] = len(rv)
			rv = append(rv, id)
		}
	}

	return rv
}
