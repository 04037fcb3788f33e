package boltdb

import (
	"code.linkpair.org/golang/internal/utils"
)

type errorFlag string

const (
	Error = errorFlag("boltdb: error")
)

func (self errorFlag) Error() string {
	return string(self)
}

func newError(msg string, args ...any) error {
	return utils.NewError(1, Error, msg, args...)
}

func wrapError(cause error, msg string, args ...any) error {
	return utils.WrapError(cause, 1, Error, msg, args...)
}
