package provisioning

import (
	"context"
	"errors"

	"code.rereg.org/golang/internal/utils"
)

type errorFlag string

const (
	Error              = errorFlag("provisioning: error")
	ErrConfig          = errorFlag("provisioning: invalid configuration")
	ErrTransport       = errorFlag("provisioning: transport failure")
	ErrFraming         = errorFlag("provisioning: framing error")
	ErrTimeout         = errorFlag("provisioning: timeout")
	ErrAddressTimeout  = errorFlag("provisioning: no address received in time")
	ErrLifespanTimeout = errorFlag("provisioning: no registration message received in time")
	ErrDecryption      = errorFlag("provisioning: decryption failure")
	ErrSessionClosed   = errorFlag("provisioning: session closed")
	noError            = errorFlag("")
)

func (self errorFlag) Error() string {
	return string(self)
}

func (self errorFlag) Unwrap() error {
	switch self {
	case Error, noError:
		return nil
	case ErrAddressTimeout, ErrLifespanTimeout:
		return ErrTimeout
	default:
		return Error
	}
}

func newError(flag errorFlag, msg string, args ...any) error {
	return utils.NewError(1, flag, msg, args...)
}

func wrapError(cause error, flag errorFlag, msg string, args ...any) error {
	return utils.WrapError(cause, 1, flag, msg, args...)
}

// Kind classifies the errors that end a Session.
type Kind int

const (
	KindNone Kind = iota
	KindTransport
	KindFraming
	KindTimeout
	KindDecryption
	KindCancelledWithCause
	KindCancelled
)

func (self Kind) String() string {
	switch self {
	case KindNone:
		return "None"
	case KindTransport:
		return "Transport"
	case KindFraming:
		return "Framing"
	case KindTimeout:
		return "Timeout"
	case KindDecryption:
		return "Decryption"
	case KindCancelledWithCause:
		return "CancelledWithCause"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// KindOf returns the Kind of err.
//
// KindNone is returned for a nil err. KindCancelled is returned for clean shutdowns
// (context.Canceled without cause or ErrSessionClosed). Errors that carry no
// provisioning classification, such as a cause given to the parent context or an
// error returned by a Block, are KindCancelledWithCause.
func KindOf(err error) Kind {
	switch {
	case nil == err:
		return KindNone
	case errors.Is(err, ErrDecryption):
		return KindDecryption
	case errors.Is(err, ErrFraming):
		return KindFraming
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, context.Canceled), errors.Is(err, ErrSessionClosed):
		return KindCancelled
	default:
		return KindCancelledWithCause
	}
}

func isClean(err error) bool {
	return KindCancelled == KindOf(err)
}
