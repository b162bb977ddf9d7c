// stores.go
//
// Shared mock implementations of auth.UserStore and auth.SessionStore.
// Imported by test files across packages to avoid duplicate mock definitions.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/MGallo-Code/janus/internal/store"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// MockUserStore implements auth.UserStore for tests.

// Always stateful...Users and Accounts are maps, like a real store, and the
// (provider, provider_account_id) pair is unique just like the accounts table.
// Use *Err fields to inject errors for specific operations.
type MockUserStore struct {
	// Error injection...zero value means no error
	GetAccountErr  error
	TouchErr       error
	CreateErr      error
	GetUserErr     error
	CheckHealthErr error

	// BeforeCreate runs at the start of CreateUserWithAccount, outside the lock.
	// Tests use it to simulate a concurrent first login winning the insert.
	BeforeCreate func()

	Users    map[uuid.UUID]*store.User
	Accounts map[string]*store.Account // keyed by accountKey(provider, subject)

	// Call counters for assertions.
	CreateCalls int
	TouchCalls  int

	mu sync.Mutex
}

func accountKey(provider, subject string) string {
	return provider + "\x00" + subject
}

// NewMockUserStore returns an empty MockUserStore.
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{
		Users:    make(map[uuid.UUID]*store.User),
		Accounts: make(map[string]*store.Account),
	}
}

// Seed inserts a user and a linked account directly, bypassing error injection.
func (m *MockUserStore) Seed(user store.User, account store.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account.UserID = user.ID
	m.Users[user.ID] = &user
	m.Accounts[accountKey(account.Provider, account.ProviderAccountID)] = &account
}

// DeleteUser removes a user and cascades to its accounts, like ON DELETE CASCADE.
func (m *MockUserStore) DeleteUser(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Users, id)
	for k, a := range m.Accounts {
		if a.UserID == id {
			delete(m.Accounts, k)
		}
	}
}

// UserCount returns the number of stored users.
func (m *MockUserStore) UserCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Users)
}

func (m *MockUserStore) GetAccountByProvider(_ context.Context, provider, providerAccountID string) (*store.Account, error) {
	if m.GetAccountErr != nil {
		return nil, m.GetAccountErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Accounts[accountKey(provider, providerAccountID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *MockUserStore) TouchAccount(_ context.Context, accountID uuid.UUID, provider, providerAccountID string) error {
	if m.TouchErr != nil {
		return m.TouchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TouchCalls++
	a, ok := m.Accounts[accountKey(provider, providerAccountID)]
	if !ok || a.ID != accountID {
		return pgx.ErrNoRows
	}
	now := time.Now()
	a.LastLoginAt = &now
	a.UpdatedAt = now
	return nil
}

func (m *MockUserStore) CreateUserWithAccount(_ context.Context, user store.User, account store.Account) error {
	if m.BeforeCreate != nil {
		m.BeforeCreate()
	}
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	key := accountKey(account.Provider, account.ProviderAccountID)
	if _, exists := m.Accounts[key]; exists {
		return store.ErrAccountExists
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	account.UserID = user.ID
	account.LastLoginAt = &now
	account.CreatedAt, account.UpdatedAt = now, now
	m.Users[user.ID] = &user
	m.Accounts[key] = &account
	return nil
}

func (m *MockUserStore) GetUserByID(_ context.Context, id uuid.UUID) (*store.User, error) {
	if m.GetUserErr != nil {
		return nil, m.GetUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserStore) CheckHealth(_ context.Context) error {
	return m.CheckHealthErr
}

// MockSessionStore implements auth.SessionStore for tests.

// Stateful: pending attempts and authenticated sessions are maps keyed by session hash.
// TTLs are recorded but not enforced; use miniredis-backed store tests for expiry.
type MockSessionStore struct {
	// Error injection...zero value means no error
	SaveAttemptErr   error
	TakeAttemptErr   error
	SetSessionErr    error
	GetSessionErr    error
	DeleteSessionErr error
	CheckHealthErr   error

	Attempts map[string]store.LoginAttempt
	Sessions map[string]uuid.UUID

	// Last TTLs passed in, for assertions.
	AttemptTTL time.Duration
	SessionTTL time.Duration

	mu sync.Mutex
}

// NewMockSessionStore returns an empty MockSessionStore.
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		Attempts: make(map[string]store.LoginAttempt),
		Sessions: make(map[string]uuid.UUID),
	}
}

// Attempt returns the pending attempt for hash, if any, without consuming it.
func (m *MockSessionStore) Attempt(hash string) (store.LoginAttempt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Attempts[hash]
	return a, ok
}

// SessionUser returns the user bound to hash, if any.
func (m *MockSessionStore) SessionUser(hash string) (uuid.UUID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.Sessions[hash]
	return id, ok
}

func (m *MockSessionStore) SaveLoginAttempt(_ context.Context, hash string, attempt store.LoginAttempt, ttl time.Duration) error {
	if m.SaveAttemptErr != nil {
		return m.SaveAttemptErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attempts[hash] = attempt
	m.AttemptTTL = ttl
	return nil
}

func (m *MockSessionStore) TakeLoginAttempt(_ context.Context, hash string) (*store.LoginAttempt, error) {
	if m.TakeAttemptErr != nil {
		return nil, m.TakeAttemptErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Attempts[hash]
	if !ok {
		return nil, store.ErrCacheMiss
	}
	delete(m.Attempts, hash)
	return &a, nil
}

func (m *MockSessionStore) SetSessionUser(_ context.Context, hash string, userID uuid.UUID, ttl time.Duration) error {
	if m.SetSessionErr != nil {
		return m.SetSessionErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sessions[hash] = userID
	m.SessionTTL = ttl
	return nil
}

func (m *MockSessionStore) GetSessionUser(_ context.Context, hash string) (uuid.UUID, error) {
	if m.GetSessionErr != nil {
		return uuid.Nil, m.GetSessionErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.Sessions[hash]
	if !ok {
		return uuid.Nil, store.ErrCacheMiss
	}
	return id, nil
}

func (m *MockSessionStore) DeleteSession(_ context.Context, hash string) error {
	if m.DeleteSessionErr != nil {
		return m.DeleteSessionErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Sessions, hash)
	delete(m.Attempts, hash)
	return nil
}

func (m *MockSessionStore) CheckHealth(_ context.Context) error {
	return m.CheckHealthErr
}
