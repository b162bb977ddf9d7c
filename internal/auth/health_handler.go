// health_handler.go -- Health check handler for GET /health.
package auth

import (
	"net/http"
)

// CheckHealth handles GET /health -- pings Postgres and Redis, returns per-dependency status.
// Returns 200 if both are healthy, 503 if either is down.
func (h *AuthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	redisStatus := "ok"
	postgresStatus := "ok"

	if err := h.Sessions.CheckHealth(r.Context()); err != nil {
		logError(r, "redis health check failed", "error", err)
		redisStatus = "error"
	}
	if err := h.Users.CheckHealth(r.Context()); err != nil {
		logError(r, "postgres health check failed", "error", err)
		postgresStatus = "error"
	}

	status := http.StatusOK
	if redisStatus == "error" || postgresStatus == "error" {
		status = http.StatusServiceUnavailable
	}
	JSON(w, r, status, struct {
		Postgres string `json:"postgres"`
		Redis    string `json:"redis"`
	}{postgresStatus, redisStatus})
}
