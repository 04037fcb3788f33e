package replay

import (
	"code.linkpair.org/golang/internal/utils"
)

type errorFlag string

const (
	Error       = errorFlag("replay: error")
	ErrReplayed = errorFlag("replay: id already seen")
	noError     = errorFlag("")
)

func (self errorFlag) Error() string {
	return string(self)
}

func (self errorFlag) Unwrap() error {
	if Error == self || noError == self {
		return nil
	}
	return Error
}

func newError(msg string, args ...any) error {
	return utils.NewError(1, Error, msg, args...)
}

func flagError(flag errorFlag, msg string, args ...any) error {
	return utils.NewError(1, flag, msg, args...)
}
