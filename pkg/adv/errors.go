package adv

import (
	"code.linkpair.org/golang/internal/utils"
)

// errorFlag is a private error type that allows declaring error constants.
type errorFlag string

const (
	// All package errors are wrapping Error
	Error = errorFlag("adv: error")

	// ErrAccountHmacInvalid signals that the transported record was not authenticated by the pairing secret.
	// It may reveal tampering and must not be silently retried.
	ErrAccountHmacInvalid = errorFlag("adv: account hmac invalid")

	// ErrStructuralDecode signals a binary record that does not decode to its expected shape.
	ErrStructuralDecode = errorFlag("adv: structural decode error")

	// ErrAccountSignatureInvalid signals that the primary device attestation did not verify.
	ErrAccountSignatureInvalid = errorFlag("adv: account signature invalid")

	// ErrDeviceSigningFailure signals a local signing fault, not a remote one.
	ErrDeviceSigningFailure = errorFlag("adv: device signing failure")

	// ErrDeviceSignatureInvalid signals a persisted record whose device signature does not verify.
	ErrDeviceSignatureInvalid = errorFlag("adv: device signature invalid")

	ErrInvalidLocalIdentity = errorFlag("adv: invalid local identity")
	ErrValidation           = errorFlag("adv: validation error")
	noError                 = errorFlag("")
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

// newError returns a utils.RaisedErr{} that contains file & line of where it was called.
func newError(msg string, args ...any) error {
	return utils.NewError(1, Error, msg, args...)
}

// wrapError returns a utils.RaisedErr{} that contains file & line of where it was called.
func wrapError(cause error, msg string, args ...any) error {
	return utils.WrapError(cause, 1, Error, msg, args...)
}
