// Package secrets wraps the reversible cipher used for credentials stored in
// the app_settings row. Callers only see Encrypt/Decrypt, so the scheme can be
// swapped without touching them.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Box encrypts and decrypts short credential strings with AES-256-GCM. Tokens
// are "nonceHex:cipherHex" so encrypted values are recognizable at rest.
type Box struct {
	aead cipher.AEAD
}

// NewBox derives a 256-bit key from the configured passphrase. An empty
// passphrase is allowed in development; it still produces a working box.
func NewBox(passphrase string) (*Box, error) {
	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Box{aead: aead}, nil
}

// Encrypt seals plain and returns the storable token.
func (b *Box) Encrypt(plain string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := b.aead.Seal(nil, nonce, []byte(plain), nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt. A value that does not look like a
// token, or fails to open, is returned unchanged: settings written before
// encryption was enabled stay readable.
func (b *Box) Decrypt(token string) string {
	plain, err := b.open(token)
	if err != nil {
		return token
	}
	return plain
}

func (b *Box) open(token string) (string, error) {
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 {
		return "", errors.New("not an encrypted token")
	}
	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != b.aead.NonceSize() {
		return "", errors.New("bad nonce")
	}
	sealed, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", errors.New("bad ciphertext")
	}
	plain, err := b.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
