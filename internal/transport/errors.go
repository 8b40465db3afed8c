package transport

import (
	"code.rereg.org/golang/internal/utils"
)

type errorFlag string

const (
	Error         = errorFlag("transport: error")
	ErrClosed     = errorFlag("transport: connection closed")
	ErrDial       = errorFlag("transport: dial failed")
	ErrReadLimit  = errorFlag("transport: read limit reached")
	ErrWriteLimit = errorFlag("transport: write limit reached")
	noError       = errorFlag("")
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

func newError(flag errorFlag, msg string, args ...any) error {
	return utils.NewError(1, flag, msg, args...)
}

func wrapError(cause error, msg string, args ...any) error {
	return utils.WrapError(cause, 1, noError, msg, args...)
}

func wrapFlag(cause error, flag errorFlag, msg string, args ...any) error {
	return utils.WrapError(cause, 1, flag, msg, args...)
}
