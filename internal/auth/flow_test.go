package auth

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/MGallo-Code/janus/internal/oauth"
	"github.com/MGallo-Code/janus/internal/testutil"
	"github.com/gofrs/uuid/v5"
)

// newTestFlow returns a LoginFlow over fresh mocks and the given provider.
func newTestFlow(p *mockProvider) (*LoginFlow, *testutil.MockUserStore, *testutil.MockSessionStore) {
	us := testutil.NewMockUserStore()
	ss := testutil.NewMockSessionStore()
	return &LoginFlow{
		Provider:   p,
		Sessions:   ss,
		Linker:     &Linker{Accounts: us},
		AttemptTTL: 10 * time.Minute,
		SessionTTL: 24 * time.Hour,
	}, us, ss
}

// beginState runs Begin for hash and returns the state embedded in the redirect.
func beginState(t *testing.T, f *LoginFlow, hash string) string {
	t.Helper()
	authURL, err := f.Begin(context.Background(), hash)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("parsing auth url: %v", err)
	}
	return u.Query().Get("state")
}

// --- Begin ---

func TestLoginFlowBegin(t *testing.T) {
	ctx := context.Background()

	t.Run("stores attempt matching redirect", func(t *testing.T) {
		f, _, ss := newTestFlow(newMockProvider(nil))
		authURL, err := f.Begin(ctx, "sess")
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		u, _ := url.Parse(authURL)

		a, ok := ss.Attempt("sess")
		if !ok {
			t.Fatal("no attempt stored")
		}
		if a.State != u.Query().Get("state") || a.Verifier != u.Query().Get("verifier") {
			t.Error("stored attempt does not match redirect params")
		}
		if a.CreatedAt.IsZero() {
			t.Error("CreatedAt: expected set")
		}
		if ss.AttemptTTL != 10*time.Minute {
			t.Errorf("AttemptTTL: expected 10m, got %v", ss.AttemptTTL)
		}
	})

	t.Run("each attempt gets a fresh state and replaces the last", func(t *testing.T) {
		f, _, ss := newTestFlow(newMockProvider(nil))
		first := beginState(t, f, "sess")
		second := beginState(t, f, "sess")
		if first == second {
			t.Error("expected distinct state per attempt")
		}
		if a, _ := ss.Attempt("sess"); a.State != second {
			t.Error("expected newest attempt to win")
		}
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		f, _, ss := newTestFlow(newMockProvider(nil))
		ss.SaveAttemptErr = errors.New("redis down")
		if _, err := f.Begin(ctx, "sess"); err == nil {
			t.Error("expected error")
		}
	})
}

// --- Complete ---

func TestLoginFlowComplete(t *testing.T) {
	ctx := context.Background()
	profile := &oauth.Profile{Subject: "g-100", Email: "a@x.com", Name: "Ada"}

	t.Run("valid callback links user and passes verifier", func(t *testing.T) {
		p := newMockProvider(profile)
		f, _, ss := newTestFlow(p)
		state := beginState(t, f, "sess")
		a, _ := ss.Attempt("sess")

		res, err := f.Complete(ctx, "sess", "code-1", state)
		if err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
		if !res.Created || res.UserID == uuid.Nil {
			t.Errorf("expected new user, got %+v", res)
		}
		if p.gotCode != "code-1" || p.gotVerifier != a.Verifier {
			t.Errorf("Exchange got (%q, %q), expected (code-1, %q)", p.gotCode, p.gotVerifier, a.Verifier)
		}
		if _, ok := ss.Attempt("sess"); ok {
			t.Error("attempt should be consumed")
		}
	})

	t.Run("missing code or state leaves attempt intact", func(t *testing.T) {
		for _, tc := range []struct{ code, state string }{{"", "s"}, {"c", ""}, {"", ""}} {
			f, _, ss := newTestFlow(newMockProvider(profile))
			beginState(t, f, "sess")

			_, err := f.Complete(ctx, "sess", tc.code, tc.state)
			if !errors.Is(err, ErrMissingParameter) {
				t.Errorf("(%q,%q): expected ErrMissingParameter, got %v", tc.code, tc.state, err)
			}
			if _, ok := ss.Attempt("sess"); !ok {
				t.Errorf("(%q,%q): attempt should be untouched", tc.code, tc.state)
			}
		}
	})

	t.Run("mismatched state never reaches exchange and invalidates attempt", func(t *testing.T) {
		p := newMockProvider(profile)
		f, _, ss := newTestFlow(p)
		state := beginState(t, f, "sess")

		_, err := f.Complete(ctx, "sess", "code-1", state+"x")
		if !errors.Is(err, ErrStateMismatch) {
			t.Fatalf("expected ErrStateMismatch, got %v", err)
		}
		if p.exchangeCalls != 0 {
			t.Errorf("exchangeCalls: expected 0, got %d", p.exchangeCalls)
		}
		if _, ok := ss.Attempt("sess"); ok {
			t.Error("attempt should be invalidated after mismatch")
		}
		// The real state no longer works either.
		if _, err := f.Complete(ctx, "sess", "code-1", state); !errors.Is(err, ErrStateMismatch) {
			t.Errorf("retry with real state: expected ErrStateMismatch, got %v", err)
		}
	})

	t.Run("replayed callback fails", func(t *testing.T) {
		p := newMockProvider(profile)
		f, _, _ := newTestFlow(p)
		state := beginState(t, f, "sess")

		if _, err := f.Complete(ctx, "sess", "code-1", state); err != nil {
			t.Fatalf("first Complete failed: %v", err)
		}
		if _, err := f.Complete(ctx, "sess", "code-1", state); !errors.Is(err, ErrStateMismatch) {
			t.Errorf("replay: expected ErrStateMismatch, got %v", err)
		}
		if p.exchangeCalls != 1 {
			t.Errorf("exchangeCalls: expected 1, got %d", p.exchangeCalls)
		}
	})

	t.Run("no session or no pending attempt is a mismatch", func(t *testing.T) {
		f, _, _ := newTestFlow(newMockProvider(profile))
		if _, err := f.Complete(ctx, "", "c", "s"); !errors.Is(err, ErrStateMismatch) {
			t.Errorf("no session: expected ErrStateMismatch, got %v", err)
		}
		if _, err := f.Complete(ctx, "never-began", "c", "s"); !errors.Is(err, ErrStateMismatch) {
			t.Errorf("no attempt: expected ErrStateMismatch, got %v", err)
		}
	})

	t.Run("session store failure is not a mismatch", func(t *testing.T) {
		f, _, ss := newTestFlow(newMockProvider(profile))
		ss.TakeAttemptErr = errors.New("redis down")
		_, err := f.Complete(ctx, "sess", "c", "s")
		if err == nil || errors.Is(err, ErrStateMismatch) {
			t.Errorf("expected infrastructure error, got %v", err)
		}
	})

	t.Run("exchange failure wraps cause", func(t *testing.T) {
		cause := errors.New("invalid_grant")
		p := newMockProvider(profile)
		p.exchangeErr = cause
		f, us, _ := newTestFlow(p)
		state := beginState(t, f, "sess")

		_, err := f.Complete(ctx, "sess", "bad", state)
		if !errors.Is(err, ErrTokenExchangeFailed) || !errors.Is(err, cause) {
			t.Errorf("expected ErrTokenExchangeFailed wrapping cause, got %v", err)
		}
		if us.UserCount() != 0 {
			t.Error("no user should be created on exchange failure")
		}
	})

	t.Run("profile failure writes nothing", func(t *testing.T) {
		p := newMockProvider(profile)
		p.profileErr = oauth.ErrInvalidProfile
		f, us, _ := newTestFlow(p)
		state := beginState(t, f, "sess")

		_, err := f.Complete(ctx, "sess", "c", state)
		if !errors.Is(err, ErrProfileFetchFailed) || !errors.Is(err, oauth.ErrInvalidProfile) {
			t.Errorf("expected ErrProfileFetchFailed wrapping cause, got %v", err)
		}
		if us.UserCount() != 0 {
			t.Error("no user should be created on profile failure")
		}
	})
}

// --- Authenticate ---

func TestLoginFlowAuthenticate(t *testing.T) {
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	t.Run("binds new session and drops the old one", func(t *testing.T) {
		f, _, ss := newTestFlow(newMockProvider(nil))
		ss.SetSessionUser(ctx, "old", uuid.Must(uuid.NewV7()), time.Hour)

		token, err := f.Authenticate(ctx, "old", userID)
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if got, ok := ss.SessionUser(SessionHash(token)); !ok || got != userID {
			t.Errorf("new session: expected %v, got %v (ok=%v)", userID, got, ok)
		}
		if _, ok := ss.SessionUser("old"); ok {
			t.Error("old session should be deleted")
		}
		if ss.SessionTTL != 24*time.Hour {
			t.Errorf("SessionTTL: expected 24h, got %v", ss.SessionTTL)
		}
	})

	t.Run("bind failure is an error", func(t *testing.T) {
		f, _, ss := newTestFlow(newMockProvider(nil))
		ss.SetSessionErr = errors.New("redis down")
		if _, err := f.Authenticate(ctx, "old", userID); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("old session delete failure is tolerated", func(t *testing.T) {
		f, _, ss := newTestFlow(newMockProvider(nil))
		ss.DeleteSessionErr = errors.New("redis flaky")
		token, err := f.Authenticate(ctx, "old", userID)
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if _, ok := ss.SessionUser(SessionHash(token)); !ok {
			t.Error("new session should be live")
		}
	})
}
