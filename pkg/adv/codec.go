package adv

import (
	"github.com/fxamacker/cbor/v2"
)

// Visibility tells MarshalSignedIdentity whether the account signature key is kept.
type Visibility int

const (
	// ForTransmission omits the account signature key, the peer already has it.
	ForTransmission = Visibility(iota)

	// ForPersistence keeps the account signature key for later re-verification.
	ForPersistence
)

func (self Visibility) String() string {
	switch self {
	case ForTransmission:
		return "ForTransmission"
	case ForPersistence:
		return "ForPersistence"
	default:
		return "Visibility(?)"
	}
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if nil != err {
		panic(wrapError(err, "failed cbor EncMode initialization"))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if nil != err {
		panic(wrapError(err, "failed cbor DecMode initialization"))
	}
}

// MarshalSignedIdentity serializes rec.
// The account signature key is omitted when v is ForTransmission or when it is empty.
// rec is never modified.
func MarshalSignedIdentity(rec SignedIdentityRecord, v Visibility) ([]byte, error) {
	var out SignedIdentityRecord
	switch v {
	case ForTransmission:
		out = rec.WithoutAccountSignatureKey()
	case ForPersistence:
		out = rec.Clone()
	default:
		return nil, wrapError(ErrValidation, "unknown Visibility %d", int(v))
	}
	if 0 == len(out.AccountSignatureKey) {
		out.AccountSignatureKey = nil
	}

	srz, err := encMode.Marshal(out)
	return srz, wrapError(err, "failed cbor Marshal of SignedIdentityRecord") // nil if err is nil
}

// UnmarshalSignedIdentity deserializes a SignedIdentityRecord.
func UnmarshalSignedIdentity(data []byte) (SignedIdentityRecord, error) {
	var rv SignedIdentityRecord
	err := decMode.Unmarshal(data, &rv)
	if nil != err {
		return SignedIdentityRecord{}, wrapError(ErrStructuralDecode, "failed decoding SignedIdentityRecord, %v", err)
	}
	return rv, nil
}

// MarshalPairingRecord serializes rec.
func MarshalPairingRecord(rec PairingRecordHMAC) ([]byte, error) {
	err := rec.Check()
	if nil != err {
		return nil, wrapError(ErrValidation, "invalid PairingRecordHMAC, %v", err)
	}
	srz, err := encMode.Marshal(rec)
	return srz, wrapError(err, "failed cbor Marshal of PairingRecordHMAC") // nil if err is nil
}

// UnmarshalPairingRecord deserializes & validates a PairingRecordHMAC.
func UnmarshalPairingRecord(data []byte) (PairingRecordHMAC, error) {
	var rv PairingRecordHMAC
	err := decMode.Unmarshal(data, &rv)
	if nil != err {
		return PairingRecordHMAC{}, wrapError(ErrStructuralDecode, "failed decoding PairingRecordHMAC, %v", err)
	}
	err = rv.Check()
	if nil != err {
		return PairingRecordHMAC{}, wrapError(ErrStructuralDecode, "invalid PairingRecordHMAC, %v", err)
	}
	return rv, nil
}

// MarshalDeviceIdentity serializes body.
func MarshalDeviceIdentity(body DeviceIdentityBody) ([]byte, error) {
	err := body.Check()
	if nil != err {
		return nil, wrapError(ErrValidation, "invalid DeviceIdentityBody, %v", err)
	}
	srz, err := encMode.Marshal(body)
	return srz, wrapError(err, "failed cbor Marshal of DeviceIdentityBody") // nil if err is nil
}

// UnmarshalDeviceIdentity deserializes & validates a DeviceIdentityBody.
func UnmarshalDeviceIdentity(data []byte) (DeviceIdentityBody, error) {
	var rv DeviceIdentityBody
	err := decMode.Unmarshal(data, &rv)
	if nil != err {
		return DeviceIdentityBody{}, wrapError(ErrStructuralDecode, "failed decoding DeviceIdentityBody, %v", err)
	}
	err = rv.Check()
	if nil != err {
		return DeviceIdentityBody{}, wrapError(ErrStructuralDecode, "invalid DeviceIdentityBody, %v", err)
	}
	return rv, nil
}
