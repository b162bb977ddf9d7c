// logging.go -- Request-scoped logging helpers.
//
// Every entry carries the chi request id plus client and route fields, and is
// emitted with the request context so cancellation-aware handlers see it.
package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// reqAttrs returns the request fields attached to every handler log line.
func reqAttrs(r *http.Request) []any {
	attrs := []any{
		"ip", r.RemoteAddr,
		"user_agent", r.UserAgent(),
		"method", r.Method,
		"path", r.URL.Path,
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		attrs = append(attrs, "request_id", id)
	}
	return attrs
}

func logAt(r *http.Request, level slog.Level, msg string, args ...any) {
	slog.Log(r.Context(), level, msg, append(reqAttrs(r), args...)...)
}

func logDebug(r *http.Request, msg string, args ...any) { logAt(r, slog.LevelDebug, msg, args...) }

func logInfo(r *http.Request, msg string, args ...any) { logAt(r, slog.LevelInfo, msg, args...) }

func logWarn(r *http.Request, msg string, args ...any) { logAt(r, slog.LevelWarn, msg, args...) }

// logError is for 5xx paths.
func logError(r *http.Request, msg string, args ...any) { logAt(r, slog.LevelError, msg, args...) }
