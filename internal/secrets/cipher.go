// Package secrets encrypts and decrypts bot-scoped provider credentials with
// AES-256-GCM under a deployment master key.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned when the master key is not 32 bytes
	ErrInvalidKey = errors.New("master key must be 32 bytes (base64-encoded)")
	// ErrDecryptFailed is returned when ciphertext cannot be authenticated
	ErrDecryptFailed = errors.New("failed to decrypt credential")
)

// Cipher seals and opens credential strings. Ciphertexts are base64 strings
// carrying nonce plus AEAD output; tampering is detected, never returned as
// garbage plaintext.
type Cipher struct {
	aead cipher.AEAD
}

// New creates a Cipher from a base64-encoded 32-byte master key.
func New(masterKeyB64 string) (*Cipher, error) {
	key, err := base64.StdEncoding.DecodeString(masterKeyB64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext and returns a base64 ciphertext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a base64 ciphertext produced by Encrypt.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}

	ns := c.aead.NonceSize()
	if len(raw) < ns {
		return "", ErrDecryptFailed
	}

	plaintext, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}
