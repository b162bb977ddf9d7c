// linker.go -- Maps a provider identity to exactly one local user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MGallo-Code/janus/internal/oauth"
	"github.com/MGallo-Code/janus/internal/store"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// LinkResult is the outcome of Linker.Link.
type LinkResult struct {
	UserID  uuid.UUID
	Created bool // true on first-ever login for this provider identity
}

// Linker resolves (provider, subject) to a local user, creating one on first login.
// Returning users keep their stored email and name; profile claims only seed new users.
type Linker struct {
	Accounts AccountStore
}

// Link looks up the account by exact (provider, subject). A hit re-affirms the account
// and returns its owner. A miss creates user + account atomically. A lost creation race
// (store.ErrAccountExists) is resolved by looking up the winner's account.
func (l *Linker) Link(ctx context.Context, provider string, profile *oauth.Profile) (LinkResult, error) {
	if err := profile.Validate(); err != nil {
		return LinkResult{}, err
	}

	// Returning user -- already has this provider identity.
	account, err := l.Accounts.GetAccountByProvider(ctx, provider, profile.Subject)
	if err == nil {
		return l.reaffirm(ctx, account)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return LinkResult{}, fmt.Errorf("looking up account: %w", err)
	}

	// New user.
	userID, err := uuid.NewV7()
	if err != nil {
		return LinkResult{}, fmt.Errorf("generating user id: %w", err)
	}
	accountID, err := uuid.NewV7()
	if err != nil {
		return LinkResult{}, fmt.Errorf("generating account id: %w", err)
	}

	user := store.User{ID: userID, Email: profile.Email}
	if profile.Name != "" {
		name := profile.Name
		user.Name = &name
	}

	err = l.Accounts.CreateUserWithAccount(ctx, user, store.Account{
		ID:                accountID,
		UserID:            userID,
		Provider:          provider,
		ProviderAccountID: profile.Subject,
	})
	if err == nil {
		slog.InfoContext(ctx, "oauth user created", "user_id", userID, "provider", provider)
		return LinkResult{UserID: userID, Created: true}, nil
	}
	if !errors.Is(err, store.ErrAccountExists) {
		return LinkResult{}, fmt.Errorf("creating user and account: %w", err)
	}

	// A concurrent first login won the insert; resolve to its user.
	slog.InfoContext(ctx, "oauth link conflict, retrying as lookup", "provider", provider)
	account, err = l.Accounts.GetAccountByProvider(ctx, provider, profile.Subject)
	if err != nil {
		return LinkResult{}, fmt.Errorf("looking up account after conflict: %w", err)
	}
	return l.reaffirm(ctx, account)
}

// reaffirm stamps the existing account and returns its owner.
func (l *Linker) reaffirm(ctx context.Context, account *store.Account) (LinkResult, error) {
	if err := l.Accounts.TouchAccount(ctx, account.ID, account.Provider, account.ProviderAccountID); err != nil {
		return LinkResult{}, fmt.Errorf("updating account: %w", err)
	}
	return LinkResult{UserID: account.UserID}, nil
}
