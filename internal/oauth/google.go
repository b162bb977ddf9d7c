// google.go -- Google OAuth2 + OIDC provider implementation.
package oauth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// GoogleIssuer is Google's OIDC issuer; discovery is fetched from it at startup.
const GoogleIssuer = "https://accounts.google.com"

// GoogleProvider implements Provider using OIDC discovery + the OAuth2 code flow.
// Uses PKCE (S256) for all authorization requests.
type GoogleProvider struct {
	config *oauth2.Config
	oidc   *oidc.Provider
}

// NewGoogleProvider creates a GoogleProvider by fetching the issuer's discovery document.
// Makes an outbound HTTP request at startup; returns an error if unreachable.
// issuer is GoogleIssuer in production and a fake IdP in tests.
func NewGoogleProvider(ctx context.Context, issuer, clientID, clientSecret, redirectURL string) (*GoogleProvider, error) {
	p, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("google oidc discovery: %w", err)
	}
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     p.Endpoint(),
			// openid asserts identity, email discloses the address used to seed new users.
			Scopes: []string{oidc.ScopeOpenID, "email", "profile"},
		},
		oidc: p,
	}, nil
}

// Name returns "google".
func (p *GoogleProvider) Name() string { return "google" }

// AuthCodeURL builds the Google consent page URL with state and PKCE S256 challenge embedded.
func (p *GoogleProvider) AuthCodeURL(state, verifier string) string {
	return p.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades an authorization code and its PKCE verifier for an access token.
func (p *GoogleProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("no access_token in token response")
	}
	return token, nil
}

// FetchProfile calls the discovered userinfo endpoint with the access token.
// Non-2xx responses, malformed JSON, and missing sub/email all return an error.
func (p *GoogleProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	info, err := p.oidc.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, fmt.Errorf("fetching userinfo: %w", err)
	}

	var c struct {
		Name string `json:"name"`
	}
	if err := info.Claims(&c); err != nil {
		return nil, fmt.Errorf("extracting userinfo claims: %w", err)
	}

	profile := &Profile{
		Subject:       info.Subject,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		Name:          c.Name,
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}
