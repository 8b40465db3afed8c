package session

import (
	"errors"
	"testing"
	"testing/synctest"
	"time"
)

func TestNewTokenFactory(t *testing.T) {
	for _, lifetime := range []time.Duration{-10 * time.Second, 0, 4 * time.Nanosecond} {
		_, err := NewTokenFactory(lifetime)
		if nil == err {
			t.Errorf("could construct TokenFactory with lifetime %s", lifetime)
		}
	}
	tf, err := NewTokenFactory(10 * time.Minute)
	if nil != err || nil == tf {
		t.Errorf("failed NewTokenFactory, got error %v", err)
	}
}

func TestTokenExpires(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		lifetime := 28 * time.Second
		tf, err := NewTokenFactory(lifetime)
		if nil != err {
			t.Fatalf("failed NewTokenFactory, got error %v", err)
		}

		time.Sleep(8500 * time.Hour)
		tok := tf.New()
		t.Logf("tok -> %s", tok)

		time.Sleep(lifetime)
		if err = tf.Check(tok); nil != err {
			t.Fatalf("failed validating tok, got error:\n%v", err)
		}

		time.Sleep(lifetime)
		err = tf.Check(tok)
		if !errors.Is(err, ErrKeyExpired) {
			t.Fatalf("failed to detect tok expiration, got error: %v", err)
		}
	})
}

func TestTokenTamper(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tf, err := NewTokenFactory(14 * time.Second)
		if nil != err {
			t.Fatalf("failed NewTokenFactory, got error %v", err)
		}
		tok := tf.New()
		for _, pos := range []int{0, 12, TokenSize - 1} {
			tampered := tok
			tampered[pos] ^= 0x80
			err = tf.Check(tampered)
			if !errors.Is(err, ErrKeyTampered) {
				t.Errorf("failed to detect tampering at %d, got error: %v", pos, err)
			}
		}

		other, _ := NewTokenFactory(14 * time.Second)
		if err = other.Check(tok); !errors.Is(err, ErrKeyTampered) {
			t.Errorf("failed foreign token control, got error: %v", err)
		}
	})
}

func TestParseToken(t *testing.T) {
	tf, err := NewTokenFactory(time.Minute)
	if nil != err {
		t.Fatalf("failed NewTokenFactory, got error %v", err)
	}
	tok := tf.New()
	parsed, err := ParseToken(tok.String())
	if nil != err {
		t.Fatalf("failed ParseToken, got error %v", err)
	}
	if parsed != tok {
		t.Error("failed ParseToken round trip control")
	}

	for _, s := range []string{"", "tok1", "not base64 !", tok.String()[:20]} {
		if _, err = ParseToken(s); nil == err {
			t.Errorf("ParseToken accepted %q", s)
		}
	}
}
