package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	tokenKeyInfo  = "greenbite/device-tokens/v1"
	sealedVersion = "v1."
)

var ErrNotSealed = errors.New("value is not sealed")

// Encryptor seals persisted device tokens with AES-256-GCM. Each value is
// bound to the storage key it was written under.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor derives the sealing key from secret with HKDF-SHA256
func NewEncryptor(secret []byte) (*Encryptor, error) {
	if len(secret) == 0 {
		return nil, errors.New("secret is required")
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, secret, nil, []byte(tokenKeyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Encryptor{aead: aead}, nil
}

func NewEncryptorFromSecret(secret string) (*Encryptor, error) {
	return NewEncryptor([]byte(secret))
}

// Seal encrypts value for storage under key. The output is
// "v1." followed by base64url(nonce || ciphertext).
func (e *Encryptor) Seal(key, value string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := e.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return sealedVersion + base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal. A value sealed under a different key does not open.
func (e *Encryptor) Open(key, sealed string) (string, error) {
	encoded, ok := strings.CutPrefix(sealed, sealedVersion)
	if !ok {
		return "", ErrNotSealed
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed value: %w", err)
	}

	n := e.aead.NonceSize()
	if len(raw) < n+e.aead.Overhead() {
		return "", errors.New("sealed value too short")
	}
	plain, err := e.aead.Open(nil, raw[:n], raw[n:], []byte(key))
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plain), nil
}
