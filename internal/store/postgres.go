// Package store handles all database and cache interactions.
//
// postgres.go -- pgxpool connection setup and user/account queries.
// Creates a connection pool at startup, shared across all handlers.
// All queries use parameterized statements (no string concatenation).
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

// accountProviderKey is the name of the UNIQUE (provider, provider_account_id) constraint.
const accountProviderKey = "accounts_provider_account_key"

// The store used by program to connect with Postgres db
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates and returns a verified connection pool
// to PostgreSQL wrapped in a store.
// Call once at startup from main.go...the returned store is safe for concurrent use.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	// Create a pool w/ database url, return if err
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	// Ping db to make sure connection works
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool}, nil
}

// Close shuts down the connection pool and releases all resources.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// CheckHealth pings Postgres.
func (s *PostgresStore) CheckHealth(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetUserByID fetches a user by primary key.
// Returns pgx.ErrNoRows if no such user exists.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		"SELECT id, email, name, created_at, updated_at FROM users WHERE id = $1",
		id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetAccountByProvider fetches the account linked to (provider, providerAccountID).
// Returns pgx.ErrNoRows if the identity has never logged in.
func (s *PostgresStore) GetAccountByProvider(ctx context.Context, provider, providerAccountID string) (*Account, error) {
	var a Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, provider, provider_account_id, last_login_at, created_at, updated_at
		 FROM accounts WHERE provider = $1 AND provider_account_id = $2`,
		provider, providerAccountID,
	).Scan(&a.ID, &a.UserID, &a.Provider, &a.ProviderAccountID, &a.LastLoginAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// TouchAccount re-affirms the account's provider identity and stamps last_login_at.
// User columns are never modified here.
// Returns pgx.ErrNoRows if the account was deleted concurrently.
func (s *PostgresStore) TouchAccount(ctx context.Context, accountID uuid.UUID, provider, providerAccountID string) error {
	var id uuid.UUID
	return s.pool.QueryRow(ctx,
		`UPDATE accounts
		 SET provider = $2, provider_account_id = $3, last_login_at = now(), updated_at = now()
		 WHERE id = $1
		 RETURNING id`,
		accountID, provider, providerAccountID,
	).Scan(&id)
}

// CreateUserWithAccount inserts a user and its first account in one transaction.
// The caller generates both UUID v7s. Either both rows commit or neither does.
// Returns ErrAccountExists if the (provider, provider_account_id) pair is already linked.
func (s *PostgresStore) CreateUserWithAccount(ctx context.Context, user User, account Account) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	// No-op after a successful commit.
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		"INSERT INTO users (id, email, name) VALUES ($1, $2, $3)",
		user.ID, user.Email, user.Name,
	); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO accounts (id, user_id, provider, provider_account_id, last_login_at)
		 VALUES ($1, $2, $3, $4, now())`,
		account.ID, user.ID, account.Provider, account.ProviderAccountID,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == accountProviderKey {
			return ErrAccountExists
		}
		return fmt.Errorf("inserting account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing user and account: %w", err)
	}
	return nil
}
