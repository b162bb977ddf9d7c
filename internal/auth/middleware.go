// middleware.go

// Session authentication middleware.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/MGallo-Code/janus/internal/store"
	"github.com/jackc/pgx/v5"
)

// contextKey is unexported to prevent collisions with other packages using the same context.
type contextKey string

const userKey contextKey = "user"

// UserFromContext retrieves the authenticated user from context.
// Returns nil and false if RequireUser hasn't run.
func UserFromContext(ctx context.Context) (*store.User, bool) {
	u, ok := ctx.Value(userKey).(*store.User)
	return u, ok
}

// RequireUser admits a request only if the session cookie verifies, the session resolves
// to a user id, and that user exists. Anything else redirects to /login; a session whose
// user no longer exists is deleted and its cookie cleared.
func (h *AuthHandler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hash, ok := h.Cookies.Read(r)
		if !ok {
			logDebug(r, "require user failed", "reason", "missing_or_invalid_cookie")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		userID, err := h.Sessions.GetSessionUser(r.Context(), hash)
		if errors.Is(err, store.ErrCacheMiss) {
			logDebug(r, "require user failed", "reason", "session_not_authenticated")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		if err != nil {
			logError(r, "require user failed fetching session", "error", err)
			InternalServerError(w, r, err)
			return
		}

		user, err := h.Users.GetUserByID(r.Context(), userID)
		if errors.Is(err, pgx.ErrNoRows) {
			logWarn(r, "require user failed", "reason", "user_not_found", "user_id", userID)
			if err := h.Sessions.DeleteSession(r.Context(), hash); err != nil {
				logWarn(r, "failed to delete dangling session", "error", err)
			}
			h.Cookies.Clear(w)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		if err != nil {
			logError(r, "require user failed fetching user", "error", err)
			InternalServerError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
