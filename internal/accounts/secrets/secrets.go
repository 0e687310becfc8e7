// Package secrets hashes and verifies account passwords with bcrypt.
package secrets

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "eam/pkg/domain-errors"
)

// MinPasswordLength is enforced when hashing new passwords.
const MinPasswordLength = 8

// ErrMismatch is returned by Verify when the password does not match the hash.
var ErrMismatch = errors.New("password mismatch")

func Hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", dErrors.WithFields("invalid input", map[string]string{
			"password": fmt.Sprintf("must be at least %d characters", MinPasswordLength),
		})
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.WithFields("invalid input", map[string]string{"password": "is too long"})
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func Verify(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("verify password: %w", err)
	}
	return nil
}
