// pkce.go -- Per-attempt state and PKCE verifier generation.
package oauth

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/oauth2"
)

// NewStateAndVerifier returns a 256-bit state and an independent 256-bit PKCE verifier.
// Both readers panic if the system CSPRNG fails; there is no error to return.
func NewStateAndVerifier() (state, verifier string) {
	var stateBytes [32]byte
	rand.Read(stateBytes[:])
	return base64.RawURLEncoding.EncodeToString(stateBytes[:]), oauth2.GenerateVerifier()
}
