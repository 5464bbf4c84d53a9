// Package crypto provides key generation utilities for CodeLinker Admin.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// SigningSecretBytes is the entropy of a generated token signing
// secret. 32 bytes matches the HS256 block recommendation.
const SigningSecretBytes = 32

// GenerateSigningSecret returns a fresh random secret for JWT_SECRET,
// hex encoded so it pastes cleanly into an env file.
func GenerateSigningSecret() (string, error) {
	key := make([]byte, SigningSecretBytes)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate signing secret: %w", err)
	}
	return hex.EncodeToString(key), nil
}
