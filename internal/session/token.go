package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"time"
)

const (
	TokenSize = 32
	macSize   = 8
)

// Token is a random key that carries its creation time & an authentication tag.
//
// layout: T (8 bytes big endian) || random (16 bytes) || tag (8 bytes)
type Token [TokenSize]byte

// T returns the TokenFactory Clock time at which the Token was created.
func (self Token) T() int64 {
	return int64(binary.BigEndian.Uint64(self[:8]))
}

// String returns the url safe base64 encoding of the Token.
func (self Token) String() string {
	return base64.RawURLEncoding.EncodeToString(self[:])
}

// ParseToken decodes a Token from its String form.
func ParseToken(s string) (Token, error) {
	var tok Token
	data, err := base64.RawURLEncoding.DecodeString(s)
	if nil != err {
		return tok, wrapError(err, "invalid token encoding")
	}
	if TokenSize != len(data) {
		return tok, newError(Error, "invalid token size %d", len(data))
	}
	copy(tok[:], data)
	return tok, nil
}

// TokenFactory generates Tokens that remain valid for at least lifetime.
type TokenFactory struct {
	clock Clock
	key   [32]byte
}

// NewTokenFactory returns a TokenFactory with a random authentication key.
// It errors if lifetime is too small.
func NewTokenFactory(lifetime time.Duration) (*TokenFactory, error) {
	// a Token stays valid during numSlot-1 steps, its slot is reused after numSlot steps
	step := lifetime / (numSlot - 2)
	if step <= 0 {
		return nil, newError(Error, "invalid lifetime %s", lifetime)
	}
	tf := &TokenFactory{}
	if err := tf.clock.Init(step); nil != err {
		return nil, err
	}
	rand.Read(tf.key[:])

	return tf, nil
}

// New returns a fresh Token.
func (self *TokenFactory) New() Token {
	var tok Token
	binary.BigEndian.PutUint64(tok[:8], uint64(self.clock.T()))
	rand.Read(tok[8 : TokenSize-macSize])
	copy(tok[TokenSize-macSize:], self.tag(tok))
	return tok
}

// Check returns an error if tok was not generated by self or if it has expired.
func (self *TokenFactory) Check(tok Token) error {
	if !hmac.Equal(self.tag(tok), tok[TokenSize-macSize:]) {
		return newError(ErrKeyTampered, "invalid token tag")
	}
	age := self.clock.T() - tok.T()
	if age < 0 || age >= numSlot-1 {
		return newError(ErrKeyExpired, "token age %d out of range", age)
	}
	return nil
}

func (self *TokenFactory) tag(tok Token) []byte {
	mac := hmac.New(sha256.New, self.key[:])
	mac.Write(tok[:TokenSize-macSize])
	return mac.Sum(nil)[:macSize]
}

var _ KeyFactory[Token] = &TokenFactory{}
var _ Timed = Token{}
