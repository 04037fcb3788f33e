package adv

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"os"

	"code.linkpair.org/golang/internal/utils"
	"code.linkpair.org/golang/pkg/keys"
)

// TestVector holds pairing test vector fields.
// DevicePrivateKey & PairingSecret are companion secrets, Record is the serialized PairingRecordHMAC.
type TestVector struct {
	Name             string          `json:"name"`
	AccountType      AccountType     `json:"account_type"`
	DeviceType       DeviceType      `json:"device_type"`
	KeyIndex         uint32          `json:"key_index"`
	AccountPublicKey utils.HexBinary `json:"account_public_key"`
	DevicePrivateKey utils.HexBinary `json:"device_private_key"`
	DevicePublicKey  utils.HexBinary `json:"device_public_key"`
	PairingSecret    utils.HexBinary `json:"pairing_secret"`
	Record           utils.HexBinary `json:"record"`
}

// NewTestVector fills a TestVector by running a random Issuer against a random companion device.
func NewTestVector(name string, accountType AccountType, body DeviceIdentityBody) (TestVector, error) {
	account, err := keys.GenerateKeyPair()
	if nil != err {
		return TestVector{}, wrapError(err, "failed generating account key")
	}
	device, err := keys.GenerateKeyPair()
	if nil != err {
		return TestVector{}, wrapError(err, "failed generating device key")
	}
	secret := make([]byte, keys.KeySize)
	rand.Read(secret)
	issuer := Issuer{AccountKey: account, PairingSecret: secret, AccountType: accountType}
	rec, err := issuer.Issue(body, device.Pub)
	if nil != err {
		return TestVector{}, wrapError(err, "failed issuing pairing record")
	}
	srzrec, err := MarshalPairingRecord(rec)
	if nil != err {
		return TestVector{}, wrapError(err, "failed serializing pairing record")
	}

	return TestVector{
		Name:             name,
		AccountType:      accountType,
		DeviceType:       body.DeviceType,
		KeyIndex:         body.KeyIndex,
		AccountPublicKey: account.Pub[:],
		DevicePrivateKey: device.Priv[:],
		DevicePublicKey:  device.Pub[:],
		PairingSecret:    secret,
		Record:           srzrec,
	}, nil
}

// Verify runs VerifyAndCosign on self and controls the result.
func (self TestVector) Verify() (CosignedIdentity, error) {
	kp, err := keys.NewKeyPair(self.DevicePrivateKey)
	if nil != err {
		return CosignedIdentity{}, wrapError(err, "invalid device private key")
	}
	rec, err := UnmarshalPairingRecord(self.Record)
	if nil != err {
		return CosignedIdentity{}, wrapError(err, "invalid record")
	}
	ci, err := VerifyAndCosign(rec, LocalIdentity{IdentityKey: kp, PairingSecret: self.PairingSecret})
	if nil != err {
		return CosignedIdentity{}, wrapError(err, "failed VerifyAndCosign")
	}
	if !bytes.Equal(ci.LinkedIdentityKey[:], self.AccountPublicKey) {
		return CosignedIdentity{}, newError("linked identity key mismatch")
	}
	if ci.Body.KeyIndex != self.KeyIndex || ci.Body.DeviceType != self.DeviceType {
		return CosignedIdentity{}, newError("device identity body mismatch")
	}

	return ci, nil
}

// LoadTestVectors loads test vectors from json file at srcpath.
func LoadTestVectors(srcpath string) ([]TestVector, error) {
	src, err := os.Open(srcpath)
	if nil != err {
		return nil, wrapError(err, "failed opening file %s", srcpath)
	}
	defer src.Close()
	dec := json.NewDecoder(src)
	rv := []TestVector{}
	err = dec.Decode(&rv)
	return rv, wrapError(err, "failed decoding json test vectors")
}
