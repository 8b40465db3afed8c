package main

import (
	"crypto/rand"
	"errors"
	"io/fs"
	"os"

	"code.rereg.org/golang/pkg/provcipher"
)

// loadIdentity reads the identity private key from path, a new key is generated and saved if path does not exist.
func loadIdentity(path string) (*provcipher.IdentityKeyPair, error) {
	data, err := os.ReadFile(path)
	if nil == err {
		return provcipher.LoadIdentityKeyPair(data)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	identity, err := provcipher.GenerateIdentityKeyPair(rand.Reader)
	if nil != err {
		return nil, err
	}
	err = os.WriteFile(path, identity.PrivateKey(), 0600)
	if nil != err {
		return nil, err
	}
	return identity, nil
}
