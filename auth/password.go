package auth

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the bcrypt work factor used for generated hashes.
	DefaultCost = 12
	// MinCost and MaxCost bound the accepted work factor.
	MinCost = 10
	MaxCost = 12
)

// ErrInvalidCost is returned by HashPassword for a work factor outside
// [MinCost, MaxCost].
var ErrInvalidCost = fmt.Errorf("bcrypt cost must be between %d and %d", MinCost, MaxCost)

// HashPassword returns a salted bcrypt hash of plaintext.
func HashPassword(plaintext string, cost int) (string, error) {
	if cost < MinCost || cost > MaxCost {
		return "", ErrInvalidCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether plaintext matches the bcrypt hash. It never
// fails loudly: a malformed hash is logged and treated as a mismatch.
func VerifyPassword(plaintext, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return true
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		slog.Error("password verification failed", slog.String("error", err.Error()))
	}
	return false
}
