package auth

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLength is the longest password bcrypt will accept. Longer
// inputs are rejected at validation time rather than silently truncated.
const MaxPasswordLength = 72

// HashPassword hashes a plaintext password with the configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its stored hash.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// NewDummyHash returns a digest of a random throwaway value at the given
// cost. Comparing a supplied password against it burns the same bcrypt work
// as a real comparison, which keeps the unknown-username login path
// timing-consistent with the wrong-password path.
func NewDummyHash(cost int) (string, error) {
	return HashPassword(uuid.NewString(), cost)
}
