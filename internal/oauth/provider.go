// provider.go -- OAuth provider interface and shared types.
package oauth

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// ErrInvalidProfile is returned when a provider profile is missing a required claim.
var ErrInvalidProfile = errors.New("invalid provider profile")

// Profile holds the identity claims returned by the provider's userinfo endpoint.
// Subject is the only trustworthy correlation key; Email and Name seed new users only.
type Profile struct {
	Subject       string // provider-scoped stable user ID (Google "sub")
	Email         string
	EmailVerified bool
	Name          string // optional, empty means not provided
}

// Validate rejects profiles missing sub or email.
// A profile without an email cannot seed a user, so it is treated as malformed.
func (p *Profile) Validate() error {
	if p == nil {
		return ErrInvalidProfile
	}
	if p.Subject == "" {
		return errors.Join(ErrInvalidProfile, errors.New("missing sub claim"))
	}
	if p.Email == "" {
		return errors.Join(ErrInvalidProfile, errors.New("missing email claim"))
	}
	return nil
}

// Provider is an OAuth2 identity provider.
// PKCE (RFC 7636) is required: the same verifier passed to AuthCodeURL must be
// passed to Exchange.
type Provider interface {
	// Name returns the provider identifier stored on Account rows (e.g. "google").
	Name() string

	// AuthCodeURL returns the consent page URL with state and the S256 challenge
	// derived from verifier. Pure: nothing is stored.
	AuthCodeURL(state, verifier string) string

	// Exchange trades an authorization code plus the PKCE verifier for tokens.
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)

	// FetchProfile retrieves and validates the user's identity claims.
	FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error)
}
