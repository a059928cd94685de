package cache

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// EntitlementProvider reports the scope the current caller is entitled
// to read, or "" for an unscoped/public caller.
type EntitlementProvider interface {
	CurrentScope(ctx context.Context) string
}

// CompositeEntitlementProvider joins several providers' non-empty scopes
// with '|' into one compound scope string, so a cached entry can require
// agreement from more than one source (e.g. tenant AND role) at once.
type CompositeEntitlementProvider struct {
	Providers []EntitlementProvider
}

func (c CompositeEntitlementProvider) CurrentScope(ctx context.Context) string {
	var parts []string
	for _, p := range c.Providers {
		if s := p.CurrentScope(ctx); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "|")
}

var errCiphertextTooShort = errors.New("cache: ciphertext shorter than nonce size")

// deriveSubkey derives a 256-bit AES-GCM key bound to scope, so that two
// entries stored under different scopes never share key material even
// though they share the cache's master key.
func deriveSubkey(masterKey []byte, scope string) ([]byte, error) {
	r := hkdf.New(sha256.New, masterKey, []byte(scope), []byte("sharq-cache-entitlement"))
	subkey := make([]byte, 32)
	if _, err := io.ReadFull(r, subkey); err != nil {
		return nil, err
	}
	return subkey, nil
}

func scopeGCM(masterKey []byte, scope string) (cipher.AEAD, error) {
	subkey, err := deriveSubkey(masterKey, scope)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(subkey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// encryptForScope seals plaintext under a key derived from scope,
// prefixing the nonce onto the returned ciphertext.
func encryptForScope(masterKey []byte, scope string, plaintext []byte) ([]byte, error) {
	gcm, err := scopeGCM(masterKey, scope)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decryptForScope reverses encryptForScope. A scope mismatch or
// tampered ciphertext both surface as an error from gcm.Open.
func decryptForScope(masterKey []byte, scope string, stored []byte) ([]byte, error) {
	gcm, err := scopeGCM(masterKey, scope)
	if err != nil {
		return nil, err
	}
	if len(stored) < gcm.NonceSize() {
		return nil, errCiphertextTooShort
	}
	nonce, ciphertext := stored[:gcm.NonceSize()], stored[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
