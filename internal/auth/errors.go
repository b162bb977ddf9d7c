// errors.go -- Callback failure taxonomy.
//
// LoginFlow.Complete returns one of these (joined with the underlying cause)
// so the callback handler can pick a status without inspecting transport errors.
package auth

import "errors"

var (
	// ErrMissingParameter means the callback arrived without code or state.
	ErrMissingParameter = errors.New("missing code or state")

	// ErrStateMismatch means no pending attempt exists for the session or its state
	// differs from the returned one. Treated as possible CSRF or replay.
	ErrStateMismatch = errors.New("state mismatch")

	// ErrTokenExchangeFailed means the provider rejected the code + verifier.
	ErrTokenExchangeFailed = errors.New("token exchange failed")

	// ErrProfileFetchFailed means the userinfo call failed or returned a malformed profile.
	ErrProfileFetchFailed = errors.New("profile fetch failed")
)
