package security

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Keys are independent secrets derived from the configured session secret
type Keys struct {
	Session []byte // signs session tokens
	CSRF    []byte // keys CSRF token HMACs
}

// DeriveKeys expands secret into one key per purpose so that a leaked CSRF
// token can never help forge a session token.
func DeriveKeys(secret string) (Keys, error) {
	if secret == "" {
		return Keys{}, fmt.Errorf("session secret is required")
	}

	session, err := deriveKey(secret, "eslworksheets session v1")
	if err != nil {
		return Keys{}, err
	}
	csrf, err := deriveKey(secret, "eslworksheets csrf v1")
	if err != nil {
		return Keys{}, err
	}
	return Keys{Session: session, CSRF: csrf}, nil
}

func deriveKey(secret, info string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}
