package provisioning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"code.rereg.org/golang/pkg/provcipher"
	"code.rereg.org/golang/pkg/wire"
)

func TestKindOf(t *testing.T) {
	_, framingErr := wire.Decode(nil)

	testcases := []struct {
		name string
		err  error
		kind Kind
	}{
		{name: "nil", err: nil, kind: KindNone},
		{name: "transport", err: wrapError(io.EOF, ErrTransport, "read"), kind: KindTransport},
		{name: "framing", err: wrapError(framingErr, ErrFraming, "decode"), kind: KindFraming},
		{name: "address timeout", err: newError(ErrAddressTimeout, "10s"), kind: KindTimeout},
		{name: "lifespan timeout", err: newError(ErrLifespanTimeout, "90s"), kind: KindTimeout},
		{name: "decryption", err: wrapError(provcipher.ErrDecryption, ErrDecryption, "decrypt"), kind: KindDecryption},
		{name: "canceled", err: context.Canceled, kind: KindCancelled},
		{name: "session closed", err: wrapError(context.Canceled, ErrSessionClosed, "closed"), kind: KindCancelled},
		{name: "deadline", err: context.DeadlineExceeded, kind: KindCancelledWithCause},
		{name: "block error", err: errors.New("user declined"), kind: KindCancelledWithCause},
		{name: "wrapped timeout", err: fmt.Errorf("outer: %w", newError(ErrAddressTimeout, "10s")), kind: KindTimeout},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			if kind := KindOf(tc.err); tc.kind != kind {
				t.Errorf("failed KindOf control, %v != %v", kind, tc.kind)
			}
		})
	}
}

func TestTimeoutFlags(t *testing.T) {
	err := newError(ErrAddressTimeout, "no address")
	if !errors.Is(err, ErrTimeout) || !errors.Is(err, Error) {
		t.Error("ErrAddressTimeout does not wrap ErrTimeout")
	}
	if errors.Is(err, ErrLifespanTimeout) {
		t.Error("ErrAddressTimeout matches ErrLifespanTimeout")
	}
	if !errors.Is(newError(ErrLifespanTimeout, "no message"), ErrTimeout) {
		t.Error("ErrLifespanTimeout does not wrap ErrTimeout")
	}
}
