package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user account.
// Immutable once created; referenced by messages, tasks, expenses and debts.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Username is the unique display handle used in chat and classification.
	Username string

	// Email is the user's unique email address, used for login.
	Email string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}

// NewUser creates a user with a fresh ID and creation timestamp.
func NewUser(username, email, passwordHash string) *User {
	return &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().Unix(),
	}
}
