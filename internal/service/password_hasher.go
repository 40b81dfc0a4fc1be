package service

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"go-auth-service/internal/model"
)

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

// PasswordHasher produces salted one-way bcrypt digests. Every call to Hash
// draws a fresh salt, so equal plaintexts yield different digests.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", model.NewValidationFailed("password", fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A digest that is not a
// bcrypt hash never matches. Plaintexts over the bcrypt limit never match
// either, since bcrypt would only compare their first 72 bytes.
func (h *PasswordHasher) Verify(plaintext string, digest string) bool {
	if len(plaintext) > maxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
