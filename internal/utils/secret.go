package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// SecretBox seals short secrets such as bank feed access tokens before they
// are stored.
type SecretBox struct {
	key [32]byte
}

// NewSecretBox builds a box from a hex encoded 32-byte key
func NewSecretBox(hexKey string) (*SecretBox, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(raw))
	}
	b := &SecretBox{}
	copy(b.key[:], raw)
	return b, nil
}

// Seal encrypts and authenticates data, returning hex(nonce || box)
func (b *SecretBox) Seal(data string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("input data is empty")
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(data), &nonce, &b.key)
	return hex.EncodeToString(sealed), nil
}

// Open reverses Seal. Tampered or foreign data fails authentication.
func (b *SecretBox) Open(sealed string) (string, error) {
	if len(sealed) == 0 {
		return "", fmt.Errorf("sealed data is empty")
	}
	data, err := hex.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}
	if len(data) < nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("sealed data too short: %d bytes", len(data))
	}
	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	plain, ok := secretbox.Open(nil, data[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", fmt.Errorf("failed to open sealed data: authentication failed")
	}
	return string(plain), nil
}
