// config.go

// Environment variable loading and validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// minSessionSecretLen is the shortest accepted SESSION_SECRET (256-bit HMAC key).
const minSessionSecretLen = 32

// reservedPaths are routes the server mounts itself; the callback cannot reuse them.
var reservedPaths = map[string]bool{"/login": true, "/dashboard": true, "/health": true, "/metrics": true}

// Config holds all env configuration vars for Janus.
// Missing required vars are a fatal startup error, never a request-time one.
type Config struct {
	DatabaseURL string     `env:"DATABASE_URL,required,notEmpty"`
	RedisURL    string     `env:"REDIS_URL,required,notEmpty"`
	Port        string     `env:"PORT" envDefault:"8080"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	// Google OAuth client registered in the Cloud Console.
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID,required,notEmpty"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET,required,notEmpty"`
	// GoogleIssuer is overridable for staging IdPs; discovery runs against it at startup.
	GoogleIssuer string `env:"GOOGLE_ISSUER" envDefault:"https://accounts.google.com"`

	// CallbackURL must match the redirect URI registered with the provider.
	// Its path becomes the callback route (e.g. /callback or /google/callback).
	CallbackURL string `env:"CALLBACK_URL,required,notEmpty"`

	// SessionSecret signs session cookies (HMAC-SHA256).
	SessionSecret string `env:"SESSION_SECRET,required,notEmpty"`

	// CookieSecure sets the Secure attribute. Only disable for plain-HTTP local dev.
	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"true"`

	// Session TTLs. Defaults: 24h session, 10m pending login attempt.
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	LoginAttemptTTL time.Duration `env:"LOGIN_ATTEMPT_TTL" envDefault:"10m"`

	// StartupRetries caps connection attempts per dependency (Postgres, Redis, OIDC discovery)
	// at startup, with exponential backoff between tries.
	StartupRetries uint `env:"STARTUP_RETRIES" envDefault:"5"`
}

// CallbackPath returns the path component of CallbackURL.
// Valid only after LoadConfig has succeeded.
func (c *Config) CallbackPath() string {
	u, err := url.Parse(c.CallbackURL)
	if err != nil {
		return ""
	}
	return u.Path
}

// LoadConfig reads environment variables and returns a validated Config.
func LoadConfig() (*Config, error) {
	return load(env.Options{})
}

// load parses with the given options; tests pass an explicit Environment map.
func load(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate checks cross-field and format constraints env tags can't express.
func (c *Config) validate() error {
	if len(c.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLen)
	}

	u, err := url.Parse(c.CallbackURL)
	if err != nil {
		return fmt.Errorf("CALLBACK_URL is invalid: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("CALLBACK_URL must be an absolute http(s) URL")
	}
	if u.Path == "" || u.Path == "/" {
		return errors.New("CALLBACK_URL must include a callback path")
	}
	if reservedPaths[u.Path] {
		return fmt.Errorf("CALLBACK_URL path %q collides with a built-in route", u.Path)
	}
	// Browsers drop Secure cookies set over plain HTTP.
	if c.CookieSecure && u.Scheme != "https" {
		slog.Warn("COOKIE_SECURE=true with a non-https CALLBACK_URL; session cookies will not survive the callback", "callback_url", c.CallbackURL)
	}

	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.LoginAttemptTTL <= 0 {
		return errors.New("LOGIN_ATTEMPT_TTL must be positive")
	}
	// A pending attempt never outlives the session that holds it.
	if c.LoginAttemptTTL > c.SessionTTL {
		c.LoginAttemptTTL = c.SessionTTL
	}
	return nil
}
