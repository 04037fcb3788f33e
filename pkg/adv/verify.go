package adv

import (
	"code.linkpair.org/golang/pkg/keys"
)

// CosignedIdentity is the result of a successful VerifyAndCosign.
type CosignedIdentity struct {
	// Record is the verified SignedIdentityRecord with DeviceSignature set.
	Record SignedIdentityRecord

	// Body is Record.Details decoded.
	Body DeviceIdentityBody

	// LinkedIdentityKey is the primary account signature key, registered as the identity of the linked account.
	LinkedIdentityKey [keys.KeySize]byte
}

// verification holds the state threaded through the VerifyAndCosign steps.
type verification struct {
	rec        PairingRecordHMAC
	local      LocalIdentity
	signed     SignedIdentityRecord
	body       DeviceIdentityBody
	accountKey [keys.KeySize]byte
}

// verificationStep is one fallible step of VerifyAndCosign.
type verificationStep func(*verification) error

// verificationChain lists VerifyAndCosign steps, in execution order.
// The account signature must verify before this device co-signs anything.
var verificationChain = []verificationStep{
	(*verification).checkHMAC,
	(*verification).decode,
	(*verification).checkAccountSignature,
	(*verification).cosign,
}

// VerifyAndCosign authenticates a PairingRecordHMAC received from the primary device and co-signs it.
//
// Execution stops at the first failing step, the returned error wraps one of
// ErrInvalidLocalIdentity, ErrAccountHmacInvalid, ErrStructuralDecode,
// ErrAccountSignatureInvalid or ErrDeviceSigningFailure.
// rec and local are not modified.
func VerifyAndCosign(rec PairingRecordHMAC, local LocalIdentity) (CosignedIdentity, error) {
	err := local.Check()
	if nil != err {
		return CosignedIdentity{}, wrapError(ErrInvalidLocalIdentity, "%v", err)
	}

	v := verification{rec: rec, local: local}
	for _, step := range verificationChain {
		err = step(&v)
		if nil != err {
			return CosignedIdentity{}, err
		}
	}

	return CosignedIdentity{Record: v.signed, Body: v.body, LinkedIdentityKey: v.accountKey}, nil
}

// checkHMAC authenticates rec.Details with the pairing secret.
func (self *verification) checkHMAC() error {
	mac := keys.HMACSHA256(self.local.PairingSecret, HMACMessage(self.rec.Details, self.rec.AccountType))
	if !keys.HMACEqual(mac, self.rec.HMAC) {
		return wrapError(ErrAccountHmacInvalid, "HMAC mismatch for %s account", self.rec.AccountType)
	}
	return nil
}

// decode reads the SignedIdentityRecord in rec.Details and its nested DeviceIdentityBody.
func (self *verification) decode() error {
	signed, err := UnmarshalSignedIdentity(self.rec.Details)
	if nil != err {
		return wrapError(err, "failed decoding pairing record details")
	}
	if signed.IsCosigned() {
		return wrapError(ErrStructuralDecode, "inbound record already carries a device signature")
	}
	body, err := UnmarshalDeviceIdentity(signed.Details)
	if nil != err {
		return wrapError(err, "failed decoding device identity body")
	}
	self.signed = signed
	self.body = body

	return nil
}

// checkAccountSignature verifies the primary device signature over the body and this device public key.
// The prefix is selected by the body DeviceType, independently of the outer AccountType.
func (self *verification) checkAccountSignature() error {
	accountKey, err := keys.PublicKey(self.signed.AccountSignatureKey)
	if nil != err {
		return wrapError(ErrAccountSignatureInvalid, "invalid account signature key, %v", err)
	}
	sig, err := keys.Signature(self.signed.AccountSignature)
	if nil != err {
		return wrapError(ErrAccountSignatureInvalid, "invalid account signature, %v", err)
	}

	msg := AccountSignatureMessage(self.signed.Details, self.local.IdentityKey.Pub[:], self.body.DeviceType)
	if !keys.Verify(accountKey, msg, sig) {
		return wrapError(ErrAccountSignatureInvalid, "account signature does not verify for %s device", self.body.DeviceType)
	}
	self.accountKey = accountKey

	return nil
}

// cosign signs the body, this device public key and the account key with this device private key.
func (self *verification) cosign() error {
	msg := DeviceSignatureMessage(self.signed.Details, self.local.IdentityKey.Pub[:], self.accountKey[:])
	sig, err := self.local.IdentityKey.Sign(msg)
	if nil != err {
		return wrapError(ErrDeviceSigningFailure, "%v", err)
	}
	if !keys.Verify(self.local.IdentityKey.Pub, msg, sig) {
		return wrapError(ErrDeviceSigningFailure, "device signature does not verify with local public key")
	}
	self.signed = self.signed.WithDeviceSignature(sig)

	return nil
}

// VerifyDeviceSignature re-verifies a persisted co-signed record against devicePub.
// rec must keep its account signature key, see ForPersistence.
func VerifyDeviceSignature(rec SignedIdentityRecord, devicePub [keys.KeySize]byte) error {
	body, err := UnmarshalDeviceIdentity(rec.Details)
	if nil != err {
		return wrapError(err, "failed decoding device identity body")
	}
	accountKey, err := keys.PublicKey(rec.AccountSignatureKey)
	if nil != err {
		return wrapError(ErrAccountSignatureInvalid, "invalid account signature key, %v", err)
	}
	accountSig, err := keys.Signature(rec.AccountSignature)
	if nil != err {
		return wrapError(ErrAccountSignatureInvalid, "invalid account signature, %v", err)
	}
	if !keys.Verify(accountKey, AccountSignatureMessage(rec.Details, devicePub[:], body.DeviceType), accountSig) {
		return wrapError(ErrAccountSignatureInvalid, "account signature does not verify")
	}
	deviceSig, err := keys.Signature(rec.DeviceSignature)
	if nil != err {
		return wrapError(ErrDeviceSignatureInvalid, "invalid device signature, %v", err)
	}
	if !keys.Verify(devicePub, DeviceSignatureMessage(rec.Details, devicePub[:], accountKey[:]), deviceSig) {
		return wrapError(ErrDeviceSignatureInvalid, "device signature does not verify")
	}

	return nil
}
