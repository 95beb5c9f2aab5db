package auth

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

// Bcrypt password hasher
// Used as the default one if caller does not provide its own
type BcryptHasher struct{}

func (h BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func (h BcryptHasher) Compare(hashedPassword string, password string) error {
	// bcrypt treats a malformed hash as a mismatch, never panics
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// FingerprintToken digests an opaque refresh token for exact-match lookup.
// Deliberately fast and unsalted: the input is a ≥256-bit random value, the
// digest only keeps the plaintext out of the database. Not for passwords
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
