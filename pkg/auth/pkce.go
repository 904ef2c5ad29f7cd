package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCE is a code verifier and its derived challenge for the OAuth
// authorization code flow (RFC 7636).
type PKCE struct {
	// Verifier is the secret the client presents at the exchange step.
	Verifier string

	// Challenge is the S256 hash of the verifier, sent in the
	// authorization URL.
	Challenge string
}

// GeneratePKCE creates a fresh verifier from 32 random bytes and derives
// its challenge. Both values are base64url encoded without padding, so
// the verifier is 43 characters, inside the 43-128 range RFC 7636
// requires.
func GeneratePKCE() (PKCE, error) {
	verifier, err := randomToken()
	if err != nil {
		return PKCE{}, fmt.Errorf("failed to generate verifier: %w", err)
	}

	sum := sha256.Sum256([]byte(verifier))
	return PKCE{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(sum[:]),
	}, nil
}

// randomToken returns 32 bytes from crypto/rand, base64url encoded
// without padding. Used for PKCE verifiers and CSRF state values.
func randomToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
