// oauth_handler.go -- Login redirect and callback handlers.
// Provider-specific logic lives in internal/oauth/*.go; flow steps live in flow.go.
package auth

import (
	"errors"
	"net/http"
)

// Login handles GET /login -- ensures the browser has a session, stores a fresh
// state + PKCE verifier against it, and redirects to the provider's consent page.
// Visiting /login again replaces any pending attempt.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	hash, ok := h.Cookies.Read(r)
	if !ok {
		token := GenerateToken()
		h.Cookies.Set(w, token)
		hash = SessionHash(token)
	}

	authURL, err := h.Flow.Begin(r.Context(), hash)
	if err != nil {
		InternalServerError(w, r, err)
		return
	}

	logDebug(r, "login redirect", "provider", h.Flow.Provider.Name())
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles GET on the configured callback path -- verifies state, exchanges the
// code, fetches the profile, links the local user, then rotates the session and
// redirects to /dashboard.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	provider := h.Flow.Provider.Name()

	// Provider-reported failures (e.g. access_denied) arrive without a code.
	if providerErr := q.Get("error"); providerErr != "" {
		logWarn(r, "oauth callback: provider returned error", "provider", provider, "oauth_error", providerErr)
	}

	hash, _ := h.Cookies.Read(r)
	result, err := h.Flow.Complete(r.Context(), hash, q.Get("code"), q.Get("state"))
	switch {
	case err == nil:
	case errors.Is(err, ErrMissingParameter):
		callbackOutcomes.WithLabelValues(provider, outcomeMissingParameter).Inc()
		logWarn(r, "oauth callback failed", "step", "parameters", "provider", provider)
		BadRequest(w, r, "missing code or state")
		return
	case errors.Is(err, ErrStateMismatch):
		callbackOutcomes.WithLabelValues(provider, outcomeStateMismatch).Inc()
		logWarn(r, "oauth callback failed, possible csrf or replay", "step", "state", "provider", provider, "error", err)
		BadRequest(w, r, "invalid state")
		return
	case errors.Is(err, ErrTokenExchangeFailed):
		callbackOutcomes.WithLabelValues(provider, outcomeExchangeFailed).Inc()
		logWarn(r, "oauth callback failed", "step", "exchange", "provider", provider, "error", err)
		BadGateway(w, r, "oauth authentication failed")
		return
	case errors.Is(err, ErrProfileFetchFailed):
		callbackOutcomes.WithLabelValues(provider, outcomeProfileFailed).Inc()
		logWarn(r, "oauth callback failed", "step", "profile", "provider", provider, "error", err)
		BadGateway(w, r, "oauth authentication failed")
		return
	default:
		callbackOutcomes.WithLabelValues(provider, outcomeError).Inc()
		logError(r, "oauth callback failed", "step", "link", "provider", provider)
		InternalServerError(w, r, err)
		return
	}

	token, err := h.Flow.Authenticate(r.Context(), hash, result.UserID)
	if err != nil {
		callbackOutcomes.WithLabelValues(provider, outcomeError).Inc()
		logError(r, "oauth callback failed", "step", "session", "provider", provider)
		InternalServerError(w, r, err)
		return
	}
	h.Cookies.Set(w, token)

	callbackOutcomes.WithLabelValues(provider, outcomeSuccess).Inc()
	if result.Created {
		usersCreated.WithLabelValues(provider).Inc()
	}
	logInfo(r, "oauth login succeeded", "provider", provider, "user_id", result.UserID, "created", result.Created)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}
