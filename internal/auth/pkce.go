package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// pkceVerifierBytes is the number of random bytes for the PKCE code verifier.
	// 32 bytes provides 256 bits of entropy, which is recommended for security.
	pkceVerifierBytes = 32

	// stateTokenBytes is the number of random bytes for the OAuth state
	// parameter. 32 bytes encodes to 43 base64url characters, satisfying
	// servers that require a minimum of 32 characters.
	stateTokenBytes = 32
)

// PKCEChallenge represents a PKCE (Proof Key for Code Exchange) challenge.
// PKCE binds the authorization code to this client, preventing code
// interception attacks (RFC 7636).
type PKCEChallenge struct {
	// Verifier is the cryptographically random string, base64url-encoded.
	// It is kept secret and only sent during the code exchange.
	Verifier string

	// Challenge is the SHA256 hash of the verifier (base64url-encoded),
	// sent in the authorization request.
	Challenge string

	// Method is always "S256"; plain is not allowed.
	Method string
}

// GeneratePKCE generates a new PKCE code verifier and challenge.
// The code verifier is 32 random bytes (256 bits), base64url-encoded.
// The code challenge is the S256 (SHA256) hash of the verifier.
func GeneratePKCE() (*PKCEChallenge, error) {
	verifierBytes := make([]byte, pkceVerifierBytes)
	if _, err := rand.Read(verifierBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes for PKCE: %w", err)
	}

	verifier := base64.RawURLEncoding.EncodeToString(verifierBytes)

	hash := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(hash[:])

	return &PKCEChallenge{
		Verifier:  verifier,
		Challenge: challenge,
		Method:    "S256",
	}, nil
}

// GenerateState generates a random state parameter for OAuth.
// The state links the authorization response back to this login attempt and
// defends against CSRF.
func GenerateState() (string, error) {
	stateBytes := make([]byte, stateTokenBytes)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(stateBytes), nil
}
