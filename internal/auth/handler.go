// handler.go -- Dependencies shared by the login, callback, and dashboard handlers.
package auth

import (
	"context"
	"time"

	"github.com/MGallo-Code/janus/internal/store"
	"github.com/gofrs/uuid/v5"
)

// SessionStore defines server-side session operations needed by auth handlers.
// Satisfied by *store.RedisSessionStore; declared at the consumer.
// Every method is keyed by the session hash, never the raw cookie token.
type SessionStore interface {
	// SaveLoginAttempt stores the pending state + verifier, replacing any earlier attempt.
	SaveLoginAttempt(ctx context.Context, hash string, attempt store.LoginAttempt, ttl time.Duration) error

	// TakeLoginAttempt atomically reads and deletes the pending attempt.
	// Returns store.ErrCacheMiss if none is pending.
	TakeLoginAttempt(ctx context.Context, hash string) (*store.LoginAttempt, error)

	// SetSessionUser binds userID to the session for ttl.
	SetSessionUser(ctx context.Context, hash string, userID uuid.UUID, ttl time.Duration) error

	// GetSessionUser returns the bound user id, or store.ErrCacheMiss if unauthenticated.
	GetSessionUser(ctx context.Context, hash string) (uuid.UUID, error)

	// DeleteSession removes the session and any pending attempt.
	DeleteSession(ctx context.Context, hash string) error

	// CheckHealth pings the backing store.
	CheckHealth(ctx context.Context) error
}

// AccountStore defines the account-linking operations used by Linker.
// Satisfied by *store.PostgresStore.
type AccountStore interface {
	// GetAccountByProvider returns pgx.ErrNoRows if the identity has never logged in.
	GetAccountByProvider(ctx context.Context, provider, providerAccountID string) (*store.Account, error)

	// TouchAccount re-affirms provider identity and stamps last_login_at.
	TouchAccount(ctx context.Context, accountID uuid.UUID, provider, providerAccountID string) error

	// CreateUserWithAccount inserts both rows atomically.
	// Returns store.ErrAccountExists when the provider identity is already linked.
	CreateUserWithAccount(ctx context.Context, user store.User, account store.Account) error
}

// UserStore defines database operations needed by auth handlers.
// Satisfied by *store.PostgresStore.
type UserStore interface {
	AccountStore

	// GetUserByID returns pgx.ErrNoRows if the user does not exist.
	GetUserByID(ctx context.Context, id uuid.UUID) (*store.User, error)

	// CheckHealth pings the database.
	CheckHealth(ctx context.Context) error
}

// AuthHandler holds dependencies for the OAuth login HTTP handlers and middleware.
// Built once in main.go and shared across requests; holds no per-request state.
type AuthHandler struct {
	Flow     *LoginFlow
	Users    UserStore
	Sessions SessionStore
	Cookies  SessionCookies
}
