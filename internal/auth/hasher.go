package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashRounds is the bcrypt cost used when none is configured.
const DefaultHashRounds = 12

// Hasher derives and verifies salted password digests with bcrypt.
// The cost parameter is fixed at construction.
type Hasher struct {
	rounds int
}

// NewHasher creates a Hasher with the given bcrypt cost. Costs outside
// bcrypt's supported range fall back to the default.
func NewHasher(rounds int) *Hasher {
	if rounds < bcrypt.MinCost || rounds > bcrypt.MaxCost {
		rounds = DefaultHashRounds
	}
	return &Hasher{rounds: rounds}
}

// Hash derives a salted digest of the plaintext. Two calls with the
// same plaintext produce distinct digests.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.rounds)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether the plaintext matches the digest. Any parse
// error counts as a mismatch; Verify never fails loudly.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
