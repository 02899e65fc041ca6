package hash

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// Hash derives a bcrypt hash of a peer access key. Deployments store the
// hash, never the key itself.
func Hash(key string) (string, error) {
	if len(key) < 8 {
		return "", fmt.Errorf("access key must be at least 8 characters")
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(key), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash access key: %w", err)
	}

	return string(hashedBytes), nil
}

// Compare checks a presented access key against a stored hash.
func Compare(hashedKey, key string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedKey), []byte(key))
}
