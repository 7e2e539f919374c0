package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

const (
	// pkceVerifierBytes is the number of random bytes for the PKCE code verifier.
	// 32 bytes encode to 43 base64url characters, the RFC 7636 minimum, and
	// carry 256 bits of entropy.
	pkceVerifierBytes = 32

	// stateBytes is the number of random bytes for the OAuth state parameter.
	// 32 bytes is well above the 128-bit minimum needed to make the state
	// unguessable.
	stateBytes = 32
)

// PKCEChallenge holds the verifier/challenge pair for a single authorization
// attempt. The pair is generated fresh per attempt and discarded once the
// token exchange completes or fails.
type PKCEChallenge struct {
	// CodeVerifier is the random secret kept locally and sent only in the
	// token exchange.
	CodeVerifier string

	// CodeChallenge is the S256 hash of the verifier, sent in the
	// authorization request.
	CodeChallenge string

	// CodeChallengeMethod is always "S256"; plain is never used.
	CodeChallengeMethod string
}

// GeneratePKCE generates a new PKCE code verifier and challenge from
// crypto/rand. Failure to read from the entropy source is surfaced as an
// error and never retried.
func GeneratePKCE() (*PKCEChallenge, error) {
	return GeneratePKCEFrom(rand.Reader)
}

// GeneratePKCEFrom generates a PKCE pair from an explicit entropy source.
// Production callers use GeneratePKCE; tests may pass a deterministic reader.
func GeneratePKCEFrom(entropy io.Reader) (*PKCEChallenge, error) {
	verifierBytes := make([]byte, pkceVerifierBytes)
	if _, err := io.ReadFull(entropy, verifierBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes for PKCE: %w", err)
	}

	verifier := base64.RawURLEncoding.EncodeToString(verifierBytes)

	hash := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(hash[:])

	return &PKCEChallenge{
		CodeVerifier:        verifier,
		CodeChallenge:       challenge,
		CodeChallengeMethod: "S256",
	}, nil
}

// GenerateState generates a random state parameter used to bind the
// authorization redirect back to this attempt and to detect CSRF.
func GenerateState() (string, error) {
	return GenerateStateFrom(rand.Reader)
}

// GenerateStateFrom generates a state parameter from an explicit entropy
// source.
func GenerateStateFrom(entropy io.Reader) (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := io.ReadFull(entropy, buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
