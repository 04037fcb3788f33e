// Package keys provides the Curve25519 identity keys of a device and the primitives
// used to authenticate pairing records: XEdDSA signatures and HMAC-SHA256.
package keys

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"go.mau.fi/libsignal/ecc"
	"golang.org/x/crypto/curve25519"
)

const (
	KeySize       = 32
	SignatureSize = 64
	HMACSize      = sha256.Size
)

// KeyPair is a Curve25519 key pair usable for XEdDSA signatures.
type KeyPair struct {
	Pub  [KeySize]byte
	Priv [KeySize]byte
}

// GenerateKeyPair returns a new random KeyPair.
func GenerateKeyPair() (KeyPair, error) {
	return generateKeyPair(rand.Reader)
}

func generateKeyPair(rnd io.Reader) (KeyPair, error) {
	var priv [KeySize]byte
	_, err := io.ReadFull(rnd, priv[:])
	if nil != err {
		return KeyPair{}, wrapError(ErrRandomness, "failed reading %d random bytes", KeySize)
	}

	return NewKeyPair(priv[:])
}

// NewKeyPair returns the KeyPair that has priv as private key.
// priv is clamped before use, the returned KeyPair holds the clamped value.
// It errors if priv is not 32 bytes.
func NewKeyPair(priv []byte) (KeyPair, error) {
	var rv KeyPair
	if KeySize != len(priv) {
		return rv, wrapError(ErrKeySize, "private key length %d != %d", len(priv), KeySize)
	}
	copy(rv.Priv[:], priv)
	rv.Priv[0] &= 248
	rv.Priv[31] &= 127
	rv.Priv[31] |= 64

	pub, err := curve25519.X25519(rv.Priv[:], curve25519.Basepoint)
	if nil != err {
		return KeyPair{}, wrapError(err, "failed deriving public key")
	}
	copy(rv.Pub[:], pub)

	return rv, nil
}

// Sign returns the XEdDSA signature of message using self private key.
func (self KeyPair) Sign(message []byte) ([SignatureSize]byte, error) {
	return Sign(self.Priv, message)
}

// Sign returns the XEdDSA signature of message using priv.
// XEdDSA signatures are randomized, signing twice the same message gives different signatures.
// It errors if the signing primitive fails.
func Sign(priv [KeySize]byte, message []byte) (sig [SignatureSize]byte, err error) {
	defer func() {
		if r := recover(); nil != r {
			err = wrapError(ErrSigning, "signing primitive panicked, %v", r)
		}
	}()
	sig = ecc.CalculateSignature(ecc.NewDjbECPrivateKey(priv), message)

	return sig, nil
}

// Verify returns true if sig is a valid XEdDSA signature of message for pub.
func Verify(pub [KeySize]byte, message []byte, sig [SignatureSize]byte) bool {
	return ecc.VerifySignature(ecc.NewDjbECPublicKey(pub), message, sig)
}

// PublicKey converts b to a public key array.
// It errors if b is not 32 bytes.
func PublicKey(b []byte) ([KeySize]byte, error) {
	var rv [KeySize]byte
	if KeySize != len(b) {
		return rv, wrapError(ErrKeySize, "public key length %d != %d", len(b), KeySize)
	}
	copy(rv[:], b)

	return rv, nil
}

// Signature converts b to a signature array.
// It errors if b is not 64 bytes.
func Signature(b []byte) ([SignatureSize]byte, error) {
	var rv [SignatureSize]byte
	if SignatureSize != len(b) {
		return rv, wrapError(ErrKeySize, "signature length %d != %d", len(b), SignatureSize)
	}
	copy(rv[:], b)

	return rv, nil
}

// HMACSHA256 returns the HMAC-SHA256 of data keyed by key.
func HMACSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// HMACEqual compares 2 MACs in constant time.
func HMACEqual(mac1, mac2 []byte) bool {
	return hmac.Equal(mac1, mac2)
}
