package utils

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestNewErrorFlag(t *testing.T) {
	err := rejectRecord()
	t.Logf("err -> %v", err)
	if !errors.Is(err, ErrRecord) {
		t.Error("err is not ErrRecord")
	}
	if !errors.Is(err, PkgBaseError) {
		t.Error("err is not PkgBaseError")
	}
	raised, ok := err.(RaisedErr)
	if !ok {
		t.Fatal("can not cast err to RaisedErr")
	}
	if !strings.HasSuffix(raised.Filename, "errors_test.go") {
		t.Errorf("unexpected Filename %s", raised.Filename)
	}
	if raised.Line <= 0 {
		t.Errorf("unexpected Line %d", raised.Line)
	}
}

func TestWrapErrorCause(t *testing.T) {
	err := readRecord()
	t.Logf("err -> %v", err)
	if !errors.Is(err, PkgBaseError) {
		t.Error("err is not PkgBaseError")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("err is not an io.ErrUnexpectedEOF")
	}
	if errors.Is(err, ErrRecord) {
		t.Error("err must not be ErrRecord")
	}
}

func TestWrapErrorNil(t *testing.T) {
	err := WrapError(nil, 0, PkgBaseError, "never raised")
	if nil != err {
		t.Errorf("WrapError(nil) returned %v", err)
	}
}

func TestErrorFormatting(t *testing.T) {
	errs := []error{
		newError("record #%d is invalid", 3),
		wrapError(io.EOF, "can not read %s", "record.cbor"),
	}
	wants := []string{"record #3 is invalid", "can not read record.cbor"}
	for pos, err := range errs {
		if !strings.Contains(err.Error(), wants[pos]) {
			t.Errorf("#%d: %q does not contain %q", pos, err.Error(), wants[pos])
		}
	}
}

// ---
// Below definitions show how RaisedErr is intended to be used in a package.

type errorFlag string

const (
	PkgBaseError = errorFlag("utils: error")
	ErrRecord    = errorFlag("utils: invalid record")
	noError      = errorFlag("")
)

func (self errorFlag) Error() string {
	return string(self)
}

func (self errorFlag) Unwrap() error {
	if noError == self || PkgBaseError == self {
		return nil
	}
	return PkgBaseError
}

func newError(msg string, args ...any) error {
	return NewError(1, PkgBaseError, msg, args...)
}

func wrapError(cause error, msg string, args ...any) error {
	return WrapError(cause, 1, PkgBaseError, msg, args...)
}

func rejectRecord() error {
	return NewError(0, ErrRecord, "record has no details")
}

func readRecord() error {
	return wrapError(io.ErrUnexpectedEOF, "truncated record")
}
