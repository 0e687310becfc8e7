// Package models defines the user accounts that sign in to eam.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a local account. PasswordHash is a bcrypt hash and never serialized.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// NormalizeUsername trims and lowercases a username for lookups.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
