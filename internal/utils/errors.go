package utils

import (
	"fmt"
	"path"
	"runtime"
)

// RaisedErr is an error that records where it was raised.
// Errors returned by linkpair packages are RaisedErr values.
//
// A package declares a private flag error type and a few constant flags of that type.
// The Flag of a RaisedErr lets callers classify it with errors.Is, whatever its Cause.
type RaisedErr struct {
	// Flag classifies the error.
	Flag error

	// Cause is the underlying error, if any.
	Cause error

	// Msg describes what failed.
	Msg string

	// Filename is the package directory & source file that raised the error.
	Filename string

	// Line is the line in Filename that raised the error.
	Line int
}

// Error implements the error interface.
func (self RaisedErr) Error() string {
	if nil == self.Cause {
		return fmt.Sprintf("%s: %s\n  file: %s line: %d", path.Dir(self.Filename), self.Msg, self.Filename, self.Line)
	}
	return fmt.Sprintf("%s: %s\n  file: %s line: %d\n%v", path.Dir(self.Filename), self.Msg, self.Filename, self.Line, self.Cause)
}

// Unwrap returns Flag & Cause, skipping nil values.
func (self RaisedErr) Unwrap() []error {
	rv := make([]error, 0, 2)
	if nil != self.Flag {
		rv = append(rv, self.Flag)
	}
	if nil != self.Cause {
		rv = append(rv, self.Cause)
	}
	return rv
}

// NewError returns a RaisedErr{} that contains file & line of where it was called.
//
// skip controls Caller frame resolution: set it to 0 when calling NewError directly,
// to 1 when calling it from a package level newError helper...
func NewError(skip int, flag error, msg string, args ...any) error {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	err := RaisedErr{Flag: flag, Msg: msg}
	addCallerFileLine(skip, &err)
	return err
}

// WrapError returns a RaisedErr{} with cause that contains file & line of where it was called.
// If cause is nil, WrapError returns nil.
//
// skip has the same meaning as for NewError.
func WrapError(cause error, skip int, flag error, msg string, args ...any) error {
	if nil == cause {
		return nil
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	err := RaisedErr{Flag: flag, Cause: cause, Msg: msg}
	addCallerFileLine(skip, &err)
	return err
}

func addCallerFileLine(skip int, err *RaisedErr) {
	_, filename, line, ok := runtime.Caller(2 + skip)
	dirname, filename := path.Split(filename)
	if ok {
		err.Filename = path.Join(path.Base(dirname), filename)
		err.Line = line
	}
}
