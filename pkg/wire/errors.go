package wire

import (
	"code.rereg.org/golang/internal/utils"
)

type errorFlag string

const (
	Error      = errorFlag("wire: error")
	ErrFraming = errorFlag("wire: malformed frame")
	noError    = errorFlag("")
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
	return utils.NewError(1, ErrFraming, msg, args...)
}

func wrapError(cause error, msg string, args ...any) error {
	return utils.WrapError(cause, 1, ErrFraming, msg, args...)
}
