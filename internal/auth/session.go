// session.go

// Session token generation and signed cookie management.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

// Cookie names. The __Host- prefix is only valid on Secure cookies.
const (
	secureSessionCookie   = "__Host-session"
	insecureSessionCookie = "session"
)

// GenerateToken returns a 256-bit random session token.
// crypto/rand.Read panics on CSPRNG failure, so there is no error path.
func GenerateToken() [32]byte {
	var token [32]byte
	rand.Read(token[:])
	return token
}

// SessionHash returns the storage key for a raw token: base64url(SHA-256(token)).
// Token goes in the cookie; hash goes in storage.
func SessionHash(token [32]byte) string {
	sum := sha256.Sum256(token[:])
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// SessionCookies signs, writes, and verifies the session cookie.
// Cookie value is base64url(token) + "." + base64url(HMAC-SHA256(Secret, token)).
type SessionCookies struct {
	Secret []byte
	Secure bool
	TTL    time.Duration
}

// Name returns the cookie name for the configured Secure mode.
func (c SessionCookies) Name() string {
	if c.Secure {
		return secureSessionCookie
	}
	return insecureSessionCookie
}

func (c SessionCookies) sign(token [32]byte) []byte {
	mac := hmac.New(sha256.New, c.Secret)
	mac.Write(token[:])
	return mac.Sum(nil)
}

// Encode returns the signed cookie value for token.
func (c SessionCookies) Encode(token [32]byte) string {
	return base64.RawURLEncoding.EncodeToString(token[:]) + "." + base64.RawURLEncoding.EncodeToString(c.sign(token))
}

// Decode verifies a signed cookie value and returns the raw token.
// Returns false for bad encoding, wrong length, or signature mismatch.
func (c SessionCookies) Decode(value string) ([32]byte, bool) {
	var token [32]byte
	encToken, encSig, found := strings.Cut(value, ".")
	if !found {
		return token, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(encToken)
	if err != nil || len(raw) != len(token) {
		return token, false
	}
	sig, err := base64.RawURLEncoding.DecodeString(encSig)
	if err != nil {
		return token, false
	}
	copy(token[:], raw)
	if !hmac.Equal(sig, c.sign(token)) {
		return [32]byte{}, false
	}
	return token, true
}

// Read returns the session hash from the request cookie.
// Returns false if the cookie is absent or fails verification.
func (c SessionCookies) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.Name())
	if err != nil || cookie.Value == "" {
		return "", false
	}
	token, ok := c.Decode(cookie.Value)
	if !ok {
		return "", false
	}
	return SessionHash(token), true
}

// Set writes the session cookie with HttpOnly, SameSite=Lax, and Max-Age = TTL.
func (c SessionCookies) Set(w http.ResponseWriter, token [32]byte) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name(),
		Value:    c.Encode(token),
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.TTL.Seconds()),
	})
}

// Clear overwrites the session cookie with MaxAge=-1 to trigger browser deletion.
func (c SessionCookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
