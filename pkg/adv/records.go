package adv

import (
	"bytes"
	"fmt"
	"log/slog"

	"code.linkpair.org/golang/pkg/keys"
)

// AccountType selects the HMAC domain separation prefix of a PairingRecordHMAC.
type AccountType int

const (
	AccountDefault = AccountType(0)
	AccountHosted  = AccountType(1)
)

// Check returns an error if self is not a known AccountType.
func (self AccountType) Check() error {
	if AccountDefault != self && AccountHosted != self {
		return newError("unknown AccountType %d", int(self))
	}
	return nil
}

func (self AccountType) String() string {
	switch self {
	case AccountDefault:
		return "DEFAULT"
	case AccountHosted:
		return "HOSTED"
	default:
		return fmt.Sprintf("AccountType(%d)", int(self))
	}
}

// DeviceType selects the account signature prefix of a DeviceIdentityBody.
// It is read from the decoded body and may differ from the outer AccountType.
type DeviceType int

const (
	DeviceDefault = DeviceType(0)
	DeviceHosted  = DeviceType(1)
)

// Check returns an error if self is not a known DeviceType.
func (self DeviceType) Check() error {
	if DeviceDefault != self && DeviceHosted != self {
		return newError("unknown DeviceType %d", int(self))
	}
	return nil
}

func (self DeviceType) String() string {
	switch self {
	case DeviceDefault:
		return "DEFAULT"
	case DeviceHosted:
		return "HOSTED"
	default:
		return fmt.Sprintf("DeviceType(%d)", int(self))
	}
}

// PairingRecordHMAC is received from the server inside the pair-success stanza.
// Details holds a serialized SignedIdentityRecord, authenticated by HMAC.
type PairingRecordHMAC struct {
	Details     []byte      `json:"details" cbor:"1,keyasint"`
	HMAC        []byte      `json:"hmac" cbor:"2,keyasint"`
	AccountType AccountType `json:"account_type,omitempty" cbor:"3,keyasint,omitempty"`
}

// Check returns an error if the PairingRecordHMAC is invalid.
func (self PairingRecordHMAC) Check() error {
	if 0 == len(self.Details) {
		return newError("empty Details")
	}
	if keys.HMACSize != len(self.HMAC) {
		return newError("invalid HMAC size, %d != %d", len(self.HMAC), keys.HMACSize)
	}
	return wrapError(self.AccountType.Check(), "invalid AccountType") // nil if valid
}

// SignedIdentityRecord holds a DeviceIdentityBody and the signatures attesting it.
//
// AccountSignature is produced by the primary device, DeviceSignature by this device.
// SignedIdentityRecord is handled as a value: methods that change a field return a new record
// and never share byte slices with the receiver.
type SignedIdentityRecord struct {
	Details             []byte `json:"details" cbor:"1,keyasint"`
	AccountSignatureKey []byte `json:"account_signature_key,omitempty" cbor:"2,keyasint,omitempty"`
	AccountSignature    []byte `json:"account_signature" cbor:"3,keyasint"`
	DeviceSignature     []byte `json:"device_signature,omitempty" cbor:"4,keyasint,omitempty"`
}

// Clone returns a deep copy of self.
func (self SignedIdentityRecord) Clone() SignedIdentityRecord {
	return SignedIdentityRecord{
		Details:             bytes.Clone(self.Details),
		AccountSignatureKey: bytes.Clone(self.AccountSignatureKey),
		AccountSignature:    bytes.Clone(self.AccountSignature),
		DeviceSignature:     bytes.Clone(self.DeviceSignature),
	}
}

// WithDeviceSignature returns a copy of self with DeviceSignature set to sig.
func (self SignedIdentityRecord) WithDeviceSignature(sig [keys.SignatureSize]byte) SignedIdentityRecord {
	rv := self.Clone()
	rv.DeviceSignature = sig[:]
	return rv
}

// WithoutAccountSignatureKey returns a copy of self with AccountSignatureKey cleared.
func (self SignedIdentityRecord) WithoutAccountSignatureKey() SignedIdentityRecord {
	rv := self.Clone()
	rv.AccountSignatureKey = nil
	return rv
}

// IsCosigned returns true if self carries a DeviceSignature.
// A co-signed record is ready to transmit.
func (self SignedIdentityRecord) IsCosigned() bool {
	return len(self.DeviceSignature) > 0
}

// Equal returns true if self and other have the same fields, empty & nil slices being equal.
func (self SignedIdentityRecord) Equal(other SignedIdentityRecord) bool {
	return bytes.Equal(self.Details, other.Details) &&
		bytes.Equal(self.AccountSignatureKey, other.AccountSignatureKey) &&
		bytes.Equal(self.AccountSignature, other.AccountSignature) &&
		bytes.Equal(self.DeviceSignature, other.DeviceSignature)
}

// DeviceIdentityBody is the account attested description of a companion device.
// It is serialized in SignedIdentityRecord.Details.
type DeviceIdentityBody struct {
	RawId      uint32     `json:"raw_id" cbor:"1,keyasint"`
	Timestamp  uint64     `json:"timestamp" cbor:"2,keyasint"`
	KeyIndex   uint32     `json:"key_index" cbor:"3,keyasint"`
	DeviceType DeviceType `json:"device_type,omitempty" cbor:"4,keyasint,omitempty"`
}

// Check returns an error if the DeviceIdentityBody is invalid.
func (self DeviceIdentityBody) Check() error {
	return wrapError(self.DeviceType.Check(), "invalid DeviceType") // nil if valid
}

// LocalIdentity holds the long term keys of this device.
// PairingSecret is the symmetric secret shared with the primary device when the pairing QR code was scanned.
type LocalIdentity struct {
	IdentityKey   keys.KeyPair
	PairingSecret []byte
}

// Check returns an error if the LocalIdentity is unusable for pairing.
func (self LocalIdentity) Check() error {
	if keys.KeySize != len(self.PairingSecret) {
		return newError("invalid PairingSecret size, %d != %d", len(self.PairingSecret), keys.KeySize)
	}
	var zero [keys.KeySize]byte
	if zero == self.IdentityKey.Pub {
		return newError("empty IdentityKey")
	}
	return nil
}

// LogValue implements slog.LogValuer, only the public key is logged.
func (self LocalIdentity) LogValue() slog.Value {
	return slog.GroupValue(slog.String("pub", fmt.Sprintf("%x", self.IdentityKey.Pub)))
}

var _ slog.LogValuer = LocalIdentity{}
