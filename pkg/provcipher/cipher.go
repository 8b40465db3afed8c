// Package provcipher implements the provisioning envelope encryption.
//
// A provisioning envelope carries the sender ephemeral public key and a body:
//
//	body = version(0x01) || iv(16) || AES-256-CBC/PKCS7(message) || HMAC-SHA256(32)
//
// Cipher & MAC keys are derived from the X25519 shared secret using
// HKDF-SHA256 with info "TextSecure Provisioning Message". The MAC covers
// version, iv and ciphertext.
package provcipher

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"

	"code.rereg.org/golang/pkg/wire"
)

const (
	Version = 0x01

	kdfInfo      = "TextSecure Provisioning Message"
	cipherKeyLen = 32
	macKeyLen    = 32
	ivLen        = aes.BlockSize
	macLen       = sha256.Size
	minBodyLen   = 1 + ivLen + aes.BlockSize + macLen
)

// Result is a decrypted provisioning message.
type Result struct {
	// Message is the plaintext registration message, opaque to this package.
	Message []byte

	// SenderKey is the serialized ephemeral public key of the sender.
	SenderKey []byte
}

// Cipher decrypts the envelopes sent to one provisioning session.
type Cipher struct {
	identity  *IdentityKeyPair
	ephemeral *KeyPair
}

// NewCipher returns a Cipher holding a fresh ephemeral key pair.
func NewCipher(identity *IdentityKeyPair) (*Cipher, error) {
	if nil == identity || nil == identity.KeyPair {
		return nil, newError(ErrInvalidKey, "nil identity key pair")
	}
	ephemeral, err := GenerateEphemeralKeyPair()
	if nil != err {
		return nil, err
	}
	return &Cipher{identity: identity, ephemeral: ephemeral}, nil
}

// PublicKey returns the serialized ephemeral public key.
func (self *Cipher) PublicKey() []byte {
	return self.ephemeral.PublicKey()
}

// IdentityKey returns the serialized identity public key.
func (self *Cipher) IdentityKey() []byte {
	return self.identity.PublicKey()
}

// IdentityFingerprint returns the hex encoded first 8 bytes of the SHA-256 of IdentityKey.
func (self *Cipher) IdentityFingerprint() string {
	digest := sha256.Sum256(self.IdentityKey())
	return hex.EncodeToString(digest[:8])
}

// Destroy zeroes the ephemeral private key. Decrypt fails afterward.
func (self *Cipher) Destroy() {
	self.ephemeral.Destroy()
}

// Decrypt authenticates and decrypts env.
// Every failure wraps ErrDecryption.
func (self *Cipher) Decrypt(env wire.ProvisionEnvelope) (*Result, error) {
	body := env.Body
	if len(body) < minBodyLen {
		return nil, newError(ErrDecryption, "envelope body too short, %d bytes", len(body))
	}
	if Version != body[0] {
		return nil, newError(ErrDecryption, "unsupported envelope version 0x%02X", body[0])
	}

	shared, err := self.ephemeral.Agree(env.PublicKey)
	if nil != err {
		return nil, wrapError(err, ErrDecryption, "failed key agreement")
	}
	cipherKey, macKey, err := deriveKeys(shared)
	clear(shared)
	if nil != err {
		return nil, err
	}

	signed := body[:len(body)-macLen]
	mac := body[len(body)-macLen:]
	if !hmac.Equal(mac, computeMAC(macKey, signed)) {
		return nil, newError(ErrDecryption, "bad envelope MAC")
	}

	iv := signed[1 : 1+ivLen]
	ciphertext := signed[1+ivLen:]
	if 0 != len(ciphertext)%aes.BlockSize {
		return nil, newError(ErrDecryption, "ciphertext is not a multiple of the block size")
	}
	block, err := aes.NewCipher(cipherKey)
	if nil != err {
		return nil, wrapError(err, ErrDecryption, "failed loading AES key")
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	message, err := unpad(plaintext)
	if nil != err {
		return nil, err
	}

	return &Result{Message: message, SenderKey: append([]byte{}, env.PublicKey...)}, nil
}

// Encrypt seals plaintext for the holder of recipient public key.
// It is the new device side of the exchange.
func Encrypt(rand io.Reader, recipient []byte, plaintext []byte) (wire.ProvisionEnvelope, error) {
	var env wire.ProvisionEnvelope

	sender, err := GenerateKeyPair(rand)
	if nil != err {
		return env, err
	}
	defer sender.Destroy()

	shared, err := sender.Agree(recipient)
	if nil != err {
		return env, wrapError(err, Error, "failed key agreement")
	}
	cipherKey, macKey, err := deriveKeys(shared)
	clear(shared)
	if nil != err {
		return env, err
	}

	iv := make([]byte, ivLen)
	if _, err = io.ReadFull(rand, iv); nil != err {
		return env, wrapError(err, Error, "failed generating iv")
	}
	block, err := aes.NewCipher(cipherKey)
	if nil != err {
		return env, wrapError(err, Error, "failed loading AES key")
	}
	padded := pad(plaintext)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	body := make([]byte, 0, 1+ivLen+len(ciphertext)+macLen)
	body = append(body, Version)
	body = append(body, iv...)
	body = append(body, ciphertext...)
	body = append(body, computeMAC(macKey, body)...)

	env.PublicKey = sender.PublicKey()
	env.Body = body

	return env, nil
}

func deriveKeys(shared []byte) ([]byte, []byte, error) {
	keys := make([]byte, cipherKeyLen+macKeyLen)
	_, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, []byte(kdfInfo)), keys)
	if nil != err {
		return nil, nil, wrapError(err, ErrDecryption, "failed deriving keys")
	}
	return keys[:cipherKeyLen], keys[cipherKeyLen:], nil
}

func computeMAC(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte) ([]byte, error) {
	if 0 == len(data) {
		return nil, newError(ErrDecryption, "empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, newError(ErrDecryption, "invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if byte(n) != b {
			return nil, newError(ErrDecryption, "invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
