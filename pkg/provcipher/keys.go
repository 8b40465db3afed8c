package provcipher

import (
	"crypto/ecdh"
	"crypto/rand"
	"io"
	"sync"
)

const (
	// DjbType prefixes serialized Curve25519 public keys.
	DjbType = 0x05

	KeySize       = 32
	PublicKeySize = 1 + KeySize
)

// KeyPair holds a X25519 private key and its serialized public key.
type KeyPair struct {
	mut  sync.Mutex
	priv [KeySize]byte
	pub  []byte
	dead bool
}

// GenerateKeyPair returns a new KeyPair using randomness from rand.
func GenerateKeyPair(rand io.Reader) (*KeyPair, error) {
	key, err := ecdh.X25519().GenerateKey(rand)
	if nil != err {
		return nil, wrapError(err, Error, "failed generating X25519 key")
	}
	return newKeyPair(key), nil
}

// GenerateEphemeralKeyPair returns a new KeyPair using crypto/rand.
func GenerateEphemeralKeyPair() (*KeyPair, error) {
	return GenerateKeyPair(rand.Reader)
}

// LoadKeyPair restores a KeyPair from its 32 bytes private key.
func LoadKeyPair(private []byte) (*KeyPair, error) {
	key, err := ecdh.X25519().NewPrivateKey(private)
	if nil != err {
		return nil, wrapError(err, ErrInvalidKey, "invalid X25519 private key")
	}
	return newKeyPair(key), nil
}

func newKeyPair(key *ecdh.PrivateKey) *KeyPair {
	kp := &KeyPair{pub: SerializePublicKey(key.PublicKey().Bytes())}
	copy(kp.priv[:], key.Bytes())
	return kp
}

// PublicKey returns the serialized public key, 0x05 || 32 bytes.
func (self *KeyPair) PublicKey() []byte {
	return append([]byte{}, self.pub...)
}

// PrivateKey returns a copy of the private key bytes.
// It returns nil if the KeyPair was destroyed.
func (self *KeyPair) PrivateKey() []byte {
	self.mut.Lock()
	defer self.mut.Unlock()

	if self.dead {
		return nil
	}
	return append([]byte{}, self.priv[:]...)
}

// Agree returns the X25519 shared secret between the KeyPair and the serialized remote public key.
func (self *KeyPair) Agree(remote []byte) ([]byte, error) {
	self.mut.Lock()
	defer self.mut.Unlock()

	if self.dead {
		return nil, newError(ErrInvalidKey, "key pair was destroyed")
	}
	pub, err := ParsePublicKey(remote)
	if nil != err {
		return nil, err
	}
	key, err := ecdh.X25519().NewPrivateKey(self.priv[:])
	if nil != err {
		return nil, wrapError(err, ErrInvalidKey, "failed loading private key")
	}
	shared, err := key.ECDH(pub)
	if nil != err {
		return nil, wrapError(err, ErrInvalidKey, "failed X25519 agreement")
	}

	return shared, nil
}

// Destroy zeroes the private key. Agree fails after Destroy.
func (self *KeyPair) Destroy() {
	self.mut.Lock()
	defer self.mut.Unlock()

	clear(self.priv[:])
	self.dead = true
}

// Destroyed returns true if Destroy was called.
func (self *KeyPair) Destroyed() bool {
	self.mut.Lock()
	defer self.mut.Unlock()

	return self.dead
}

// IdentityKeyPair is the long term key pair of the primary device.
type IdentityKeyPair struct {
	*KeyPair
}

// GenerateIdentityKeyPair returns a new IdentityKeyPair.
func GenerateIdentityKeyPair(rand io.Reader) (*IdentityKeyPair, error) {
	kp, err := GenerateKeyPair(rand)
	if nil != err {
		return nil, err
	}
	return &IdentityKeyPair{KeyPair: kp}, nil
}

// LoadIdentityKeyPair restores an IdentityKeyPair from its private key.
func LoadIdentityKeyPair(private []byte) (*IdentityKeyPair, error) {
	kp, err := LoadKeyPair(private)
	if nil != err {
		return nil, err
	}
	return &IdentityKeyPair{KeyPair: kp}, nil
}

// SerializePublicKey prefixes a raw 32 bytes X25519 public key with DjbType.
func SerializePublicKey(raw []byte) []byte {
	rv := make([]byte, 0, PublicKeySize)
	rv = append(rv, DjbType)
	return append(rv, raw...)
}

// ParsePublicKey loads a serialized public key.
func ParsePublicKey(serialized []byte) (*ecdh.PublicKey, error) {
	if PublicKeySize != len(serialized) {
		return nil, newError(ErrInvalidKey, "public key has %d bytes, expected %d", len(serialized), PublicKeySize)
	}
	if DjbType != serialized[0] {
		return nil, newError(ErrInvalidKey, "unsupported public key type 0x%02X", serialized[0])
	}
	pub, err := ecdh.X25519().NewPublicKey(serialized[1:])
	if nil != err {
		return nil, wrapError(err, ErrInvalidKey, "invalid X25519 public key")
	}
	return pub, nil
}
