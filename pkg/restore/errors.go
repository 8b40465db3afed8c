package restore

import (
	"fmt"
	"time"

	"code.rereg.org/golang/internal/utils"
)

type errorFlag string

const (
	Error             = errorFlag("restore: error")
	ErrInvalidRequest = errorFlag("restore: invalid request")
	ErrNoAnswer       = errorFlag("restore: no restore method chosen yet")
	ErrRateLimited    = errorFlag("restore: rate limited")
	ErrServer         = errorFlag("restore: server error")
	ErrTransport      = errorFlag("restore: transport failure")
	noError           = errorFlag("")
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

// RateLimitError is returned when the server answered 429.
type RateLimitError struct {
	// RetryAfter is the delay requested by the server, 0 if unspecified.
	RetryAfter time.Duration
}

func (self *RateLimitError) Error() string {
	if 0 == self.RetryAfter {
		return string(ErrRateLimited)
	}
	return fmt.Sprintf("%s, retry after %s", ErrRateLimited, self.RetryAfter)
}

// Unwrap returns ErrRateLimited.
func (self *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
