package utils

import (
	"context"
	"errors"
	"io"
	"testing"
)

func TestErrorNew(t *testing.T) {
	err := newError("session %d went wrong", 7)
	t.Logf("err -> %v", err)
	if !errors.Is(err, Error) {
		t.Error("Oops, err is not utils.Error")
	}
	raised, ok := err.(RaisedErr)
	if !ok {
		t.Fatal("Oops, can not cast err to RaisedErr")
	}
	if "session 7 went wrong" != raised.Msg {
		t.Errorf("failed Msg control, got %q", raised.Msg)
	}
	if "utils/errors_test.go" != raised.Filename {
		t.Errorf("failed Filename control, got %q", raised.Filename)
	}
}

func TestErrorWrap(t *testing.T) {
	err := wrapTest(io.EOF, "can not read from %s", "socket")
	t.Logf("err -> %v", err)
	if !errors.Is(err, testFlag) {
		t.Error("Oops, err is not testFlag")
	}
	if !errors.Is(err, Error) {
		t.Error("Oops, err is not utils.Error")
	}
	if !errors.Is(err, io.EOF) {
		t.Error("Oops, err is not an io.EOF")
	}
}

func TestErrorWrapNil(t *testing.T) {
	err := wrapTest(nil, "nothing happened")
	if nil != err {
		t.Errorf("failed WrapError(nil) control, got %v", err)
	}
}

func TestCauseOf(t *testing.T) {
	testcases := []struct {
		name  string
		err   error
		cause error
	}{
		{name: "plain", err: io.EOF, cause: io.EOF},
		{name: "no cause", err: newError("alone"), cause: nil},
		{name: "single", err: wrapTest(io.EOF, "one"), cause: io.EOF},
		{name: "nested", err: wrapTest(wrapTest(context.DeadlineExceeded, "inner"), "outer"), cause: context.DeadlineExceeded},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			cause := CauseOf(tc.err)
			if nil == tc.cause {
				var raised RaisedErr
				if !errors.As(cause, &raised) {
					t.Errorf("failed CauseOf control, expected the RaisedErr itself, got %v", cause)
				}
				return
			}
			if cause != tc.cause {
				t.Errorf("failed CauseOf control, %v != %v", cause, tc.cause)
			}
		})
	}
}

const testFlag = errorFlag("utils: test error")

func wrapTest(cause error, msg string, args ...any) error {
	return WrapError(cause, 1, testFlag, msg, args...)
}
