package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MGallo-Code/janus/internal/auth"
	"github.com/MGallo-Code/janus/internal/config"
	"github.com/MGallo-Code/janus/internal/oauth"
	"github.com/MGallo-Code/janus/internal/store"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Embeds the migration files INTO the go bin

//go:embed migrations/*.sql
var migrationsDir embed.FS

// shutdownTimeout bounds how long in-flight requests get after SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

func main() {
	// Load config first so we can set log level
	cfg, err := config.LoadConfig()
	if err != nil {
		// Fallback logger before config is available
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}

	// Include source location in log entries at debug level only.
	addSrc := cfg.LogLevel == slog.LevelDebug

	// Set up slog to output as json with configured level
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: addSrc,
	})))

	// Cancel ctx on SIGINT/SIGTERM; run() shuts down when ctx is done.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run() is a separate func so deferred closes (ps, rdb) always execute before os.Exit.
	if err := run(ctx, cfg, nil); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// run connects to Postgres and Redis, discovers the provider, and serves until ctx is done.
// If ready is non-nil, the server's base URL is sent on it once the listener is bound.
func run(ctx context.Context, cfg *config.Config, ready chan<- string) error {
	ps, err := withStartupRetry(ctx, "postgres", cfg.StartupRetries, func() (*store.PostgresStore, error) {
		return store.NewPostgresStore(ctx, cfg.DatabaseURL)
	})
	if err != nil {
		return fmt.Errorf("failed to set up postgres store: %w", err)
	}
	defer ps.Close()

	migrationsFS, err := fs.Sub(migrationsDir, "migrations")
	if err != nil {
		return fmt.Errorf("failed to access embedded migrations: %w", err)
	}
	if err := ps.Migrate(ctx, migrationsFS); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	rdb, err := withStartupRetry(ctx, "redis", cfg.StartupRetries, func() (*redis.Client, error) {
		return store.NewRedisClient(ctx, cfg.RedisURL)
	})
	if err != nil {
		return fmt.Errorf("failed to set up redis client: %w", err)
	}
	defer rdb.Close()
	sessions := store.NewRedisSessionStore(rdb)

	// OIDC discovery; startup fails if the issuer stays unreachable or is misconfigured.
	google, err := withStartupRetry(ctx, "oidc discovery", cfg.StartupRetries, func() (*oauth.GoogleProvider, error) {
		return oauth.NewGoogleProvider(ctx, cfg.GoogleIssuer, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.CallbackURL)
	})
	if err != nil {
		return fmt.Errorf("failed to set up google provider: %w", err)
	}

	h := newAuthHandler(cfg, google, ps, sessions)

	// Bind listener; ":0" picks a free port (useful in tests).
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	server := &http.Server{
		Handler:           buildRouter(h, cfg.CallbackPath()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("janus listening", "addr", ln.Addr().String(), "callback_path", cfg.CallbackPath())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Either the caller cancelled or Serve failed; both end in shutdown.
		<-gctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	// Signal readiness to caller (used by tests; nil in production).
	if ready != nil {
		ready <- "http://" + ln.Addr().String()
	}

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// withStartupRetry runs connect with exponential backoff, up to tries attempts (min 1).
// Lets the service come up alongside its dependencies in compose or k8s.
func withStartupRetry[T any](ctx context.Context, name string, tries uint, connect func() (T, error)) (T, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 500 * time.Millisecond
	expBackoff.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, connect,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(max(tries, 1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("dependency not ready, retrying", "dependency", name, "error", err, "retry_in", next)
		}),
	)
}

// newAuthHandler wires the login flow, linker, and cookie settings from config.
func newAuthHandler(cfg *config.Config, provider oauth.Provider, users auth.UserStore, sessions auth.SessionStore) *auth.AuthHandler {
	return &auth.AuthHandler{
		Flow: &auth.LoginFlow{
			Provider:   provider,
			Sessions:   sessions,
			Linker:     &auth.Linker{Accounts: users},
			AttemptTTL: cfg.LoginAttemptTTL,
			SessionTTL: cfg.SessionTTL,
		},
		Users:    users,
		Sessions: sessions,
		Cookies: auth.SessionCookies{
			Secret: []byte(cfg.SessionSecret),
			Secure: cfg.CookieSecure,
			TTL:    cfg.SessionTTL,
		},
	}
}

// buildRouter wires all routes and middleware.
// callbackPath is the path component of CALLBACK_URL.
func buildRouter(h *auth.AuthHandler, callbackPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", h.CheckHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/", auth.Root)
	r.Get("/login", h.Login)
	r.Get(callbackPath, h.Callback)

	// Authentication required routes
	r.Group(func(r chi.Router) {
		r.Use(h.RequireUser)
		r.Get("/dashboard", h.Dashboard)
	})

	return r
}
