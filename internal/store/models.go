// models.go -- Shared domain types for the store package.
// Used by both Postgres (users, accounts) and Redis (sessions, login attempts).
package store

import (
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
)

// ErrAccountExists is returned by CreateUserWithAccount when (provider, provider_account_id)
// is already taken. Callers treat it as a lost race and retry as a lookup.
var ErrAccountExists = errors.New("account already exists")

// ErrCacheMiss is returned by Redis reads when the key is absent or expired.
// Callers use errors.Is to distinguish a true miss from a Redis infrastructure failure.
var ErrCacheMiss = errors.New("cache miss")

// User represents a row in the users table.
// Nullable columns are pointers; nil means SQL NULL.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Account represents a row in the accounts table.
// (Provider, ProviderAccountID) is unique; every account belongs to exactly one user.
type Account struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Provider          string
	ProviderAccountID string
	LastLoginAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LoginAttempt is the JSON shape stored in Redis between /login and the callback.
// Single-use: consumed by TakeLoginAttempt.
type LoginAttempt struct {
	State     string    `json:"state"`
	Verifier  string    `json:"verifier"`
	CreatedAt time.Time `json:"created_at"`
}
