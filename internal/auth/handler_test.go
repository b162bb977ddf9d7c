// handler_test.go

// shared helpers and fakes for auth package tests.

package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/MGallo-Code/janus/internal/oauth"
	"github.com/MGallo-Code/janus/internal/testutil"
	"golang.org/x/oauth2"
)

// --- Helper Functions ---

// assertJSONMessage checks status, Content-Type, and the exact {"message":...} body.
func assertJSONMessage(t *testing.T, w *httptest.ResponseRecorder, status int, expectedMsg string) {
	t.Helper()
	if w.Code != status {
		t.Errorf("status: expected %d, got %d", status, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: expected application/json, got %q", ct)
	}
	body, _ := io.ReadAll(w.Body)
	expected := fmt.Sprintf(`{"message":"%s"}`, expectedMsg)
	if string(body) != expected {
		t.Errorf("body: expected %q, got %q", expected, string(body))
	}
}

// assertBadRequest checks response is 400 JSON with expected message.
func assertBadRequest(t *testing.T, w *httptest.ResponseRecorder, expectedMsg string) {
	t.Helper()
	assertJSONMessage(t, w, http.StatusBadRequest, expectedMsg)
}

// assertBadGateway checks response is 502 JSON with the generic provider failure message.
func assertBadGateway(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	assertJSONMessage(t, w, http.StatusBadGateway, "oauth authentication failed")
}

// assertInternalServerError checks response is 500 JSON with generic error.
func assertInternalServerError(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	assertJSONMessage(t, w, http.StatusInternalServerError, "internal server error")
}

// assertRedirect checks response is a 302 to the given location.
func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	if w.Code != http.StatusFound {
		t.Errorf("status: expected 302, got %d", w.Code)
	}
	if got := w.Header().Get("Location"); got != location {
		t.Errorf("Location: expected %q, got %q", location, got)
	}
}

// --- Fakes ---

// mockProvider implements oauth.Provider for tests.
// Hands out one token per Exchange and serves a fixed profile.
type mockProvider struct {
	name        string
	authBase    string
	profile     *oauth.Profile
	exchangeErr error
	profileErr  error

	exchangeCalls int
	gotCode       string
	gotVerifier   string
}

func newMockProvider(profile *oauth.Profile) *mockProvider {
	return &mockProvider{name: "google", authBase: "https://idp.example/auth", profile: profile}
}

func (m *mockProvider) Name() string { return m.name }

// AuthCodeURL exposes state and verifier as query params so tests can read them back.
func (m *mockProvider) AuthCodeURL(state, verifier string) string {
	return m.authBase + "?" + url.Values{"state": {state}, "verifier": {verifier}}.Encode()
}

func (m *mockProvider) Exchange(_ context.Context, code, verifier string) (*oauth2.Token, error) {
	m.exchangeCalls++
	m.gotCode, m.gotVerifier = code, verifier
	if m.exchangeErr != nil {
		return nil, m.exchangeErr
	}
	return &oauth2.Token{AccessToken: "at-" + code, TokenType: "Bearer"}, nil
}

func (m *mockProvider) FetchProfile(_ context.Context, _ *oauth2.Token) (*oauth.Profile, error) {
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	cp := *m.profile
	return &cp, nil
}

// testSecret is a 32-byte cookie signing key used across tests.
var testSecret = []byte("0123456789abcdef0123456789abcdef")

// newTestHandler wires an AuthHandler over the given mocks, like main.go does.
func newTestHandler(us *testutil.MockUserStore, ss *testutil.MockSessionStore, p oauth.Provider) *AuthHandler {
	return &AuthHandler{
		Flow: &LoginFlow{
			Provider:   p,
			Sessions:   ss,
			Linker:     &Linker{Accounts: us},
			AttemptTTL: 10 * time.Minute,
			SessionTTL: 24 * time.Hour,
		},
		Users:    us,
		Sessions: ss,
		Cookies:  SessionCookies{Secret: testSecret, Secure: true, TTL: 24 * time.Hour},
	}
}

// findCookie returns the named cookie from a response, or nil.
func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// stateFromLocation extracts the state param from a login redirect.
func stateFromLocation(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	u, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parsing Location: %v", err)
	}
	state := u.Query().Get("state")
	if state == "" {
		t.Fatal("Location has no state param")
	}
	return state
}
