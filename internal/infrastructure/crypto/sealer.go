package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealedPrefix = "sealed:v1:"

// ErrMalformedToken is returned when a sealed token cannot be decoded or authenticated
var ErrMalformedToken = errors.New("malformed sealed token")

// Sealer encrypts session tokens with XChaCha20-Poly1305 under a key derived from a secret
type Sealer struct {
	key []byte
}

// NewSealer derives the sealing key from secret with HKDF-SHA256
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, fmt.Errorf("secret is required")
	}

	h := hkdf.New(sha256.New, []byte(secret), nil, []byte("session-token"))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	return &Sealer{key: key}, nil
}

// Seal returns a printable sealed form of token
func (s *Sealer) Seal(token string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(token)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	out := aead.Seal(nonce, nonce, []byte(token), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Tokens stored before sealing was enabled pass through unchanged.
func (s *Sealer) Open(sealed string) (string, error) {
	if !strings.HasPrefix(sealed, sealedPrefix) {
		return sealed, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", ErrMalformedToken
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrMalformedToken
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrMalformedToken
	}

	return string(plain), nil
}

// PlainSealer stores tokens as-is; used when no secret is configured
type PlainSealer struct{}

func (PlainSealer) Seal(token string) (string, error) { return token, nil }

func (PlainSealer) Open(sealed string) (string, error) {
	if strings.HasPrefix(sealed, sealedPrefix) {
		return "", ErrMalformedToken
	}
	return sealed, nil
}
