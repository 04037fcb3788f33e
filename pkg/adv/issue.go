package adv

import (
	"code.linkpair.org/golang/pkg/keys"
)

// Issuer is the primary device side of pairing.
// It produces the PairingRecordHMAC that a companion device receives in pair-success.
type Issuer struct {
	AccountKey    keys.KeyPair
	PairingSecret []byte
	AccountType   AccountType
}

// Check returns an error if the Issuer is invalid.
func (self Issuer) Check() error {
	if keys.KeySize != len(self.PairingSecret) {
		return newError("invalid PairingSecret size, %d != %d", len(self.PairingSecret), keys.KeySize)
	}
	return wrapError(self.AccountType.Check(), "invalid AccountType") // nil if valid
}

// Issue attests body for the companion device having devicePub identity key.
func (self Issuer) Issue(body DeviceIdentityBody, devicePub [keys.KeySize]byte) (PairingRecordHMAC, error) {
	err := self.Check()
	if nil != err {
		return PairingRecordHMAC{}, wrapError(err, "invalid Issuer")
	}

	details, err := MarshalDeviceIdentity(body)
	if nil != err {
		return PairingRecordHMAC{}, wrapError(err, "failed serializing DeviceIdentityBody")
	}
	sig, err := self.AccountKey.Sign(AccountSignatureMessage(details, devicePub[:], body.DeviceType))
	if nil != err {
		return PairingRecordHMAC{}, wrapError(err, "failed account signature")
	}
	signed := SignedIdentityRecord{
		Details:             details,
		AccountSignatureKey: self.AccountKey.Pub[:],
		AccountSignature:    sig[:],
	}
	srzsigned, err := MarshalSignedIdentity(signed, ForPersistence)
	if nil != err {
		return PairingRecordHMAC{}, wrapError(err, "failed serializing SignedIdentityRecord")
	}

	return PairingRecordHMAC{
		Details:     srzsigned,
		HMAC:        keys.HMACSHA256(self.PairingSecret, HMACMessage(srzsigned, self.AccountType)),
		AccountType: self.AccountType,
	}, nil
}
