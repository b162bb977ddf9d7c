// flow.go -- Authorization code + PKCE login flow, independent of HTTP.
//
// Begin stores a fresh state + verifier against the browser session, Complete
// verifies the callback and resolves the local user, Authenticate rotates the
// session and binds it to that user.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MGallo-Code/janus/internal/oauth"
	"github.com/MGallo-Code/janus/internal/store"
	"github.com/gofrs/uuid/v5"
)

// LoginFlow wires one provider to the session store and the identity linker.
type LoginFlow struct {
	Provider   oauth.Provider
	Sessions   SessionStore
	Linker     *Linker
	AttemptTTL time.Duration
	SessionTTL time.Duration
}

// Begin generates a new state + verifier, saves them under sessionHash (replacing any
// earlier pending attempt), and returns the provider authorization URL.
func (f *LoginFlow) Begin(ctx context.Context, sessionHash string) (string, error) {
	state, verifier := oauth.NewStateAndVerifier()
	attempt := store.LoginAttempt{
		State:     state,
		Verifier:  verifier,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.Sessions.SaveLoginAttempt(ctx, sessionHash, attempt, f.AttemptTTL); err != nil {
		return "", fmt.Errorf("saving login attempt: %w", err)
	}
	return f.Provider.AuthCodeURL(state, verifier), nil
}

// Complete verifies a callback and returns the linked local user.
// The pending attempt is consumed before comparison, so a mismatch or a replayed
// callback leaves nothing to retry against.
func (f *LoginFlow) Complete(ctx context.Context, sessionHash, code, state string) (LinkResult, error) {
	if code == "" || state == "" {
		return LinkResult{}, ErrMissingParameter
	}
	if sessionHash == "" {
		return LinkResult{}, fmt.Errorf("%w: no session", ErrStateMismatch)
	}

	attempt, err := f.Sessions.TakeLoginAttempt(ctx, sessionHash)
	if errors.Is(err, store.ErrCacheMiss) {
		return LinkResult{}, fmt.Errorf("%w: no pending attempt", ErrStateMismatch)
	}
	if err != nil {
		return LinkResult{}, fmt.Errorf("taking login attempt: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(attempt.State), []byte(state)) != 1 {
		return LinkResult{}, ErrStateMismatch
	}

	token, err := f.Provider.Exchange(ctx, code, attempt.Verifier)
	if err != nil {
		return LinkResult{}, fmt.Errorf("%w: %w", ErrTokenExchangeFailed, err)
	}
	profile, err := f.Provider.FetchProfile(ctx, token)
	if err != nil {
		return LinkResult{}, fmt.Errorf("%w: %w", ErrProfileFetchFailed, err)
	}

	return f.Linker.Link(ctx, f.Provider.Name(), profile)
}

// Authenticate issues a new session token bound to userID and drops the pre-login
// session. Returns the raw token for the cookie.
func (f *LoginFlow) Authenticate(ctx context.Context, oldHash string, userID uuid.UUID) ([32]byte, error) {
	token := GenerateToken()
	if err := f.Sessions.SetSessionUser(ctx, SessionHash(token), userID, f.SessionTTL); err != nil {
		return [32]byte{}, fmt.Errorf("binding session: %w", err)
	}
	if oldHash != "" {
		// Non-fatal: the new session is already live and the old one expires on its own.
		if err := f.Sessions.DeleteSession(ctx, oldHash); err != nil {
			slog.WarnContext(ctx, "failed to delete pre-login session", "error", err)
		}
	}
	return token, nil
}
