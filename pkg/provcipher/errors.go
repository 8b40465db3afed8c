package provcipher

import (
	"code.rereg.org/golang/internal/utils"
)

type errorFlag string

const (
	Error         = errorFlag("provcipher: error")
	ErrDecryption = errorFlag("provcipher: decryption failed")
	ErrInvalidKey = errorFlag("provcipher: invalid key")
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

func wrapError(cause error, flag errorFlag, msg string, args ...any) error {
	return utils.WrapError(cause, 1, flag, msg, args...)
}
