// metrics.go -- Prometheus counters for the login flow, served on /metrics.
package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Callback outcome label values.
const (
	outcomeSuccess          = "success"
	outcomeMissingParameter = "missing_parameter"
	outcomeStateMismatch    = "state_mismatch"
	outcomeExchangeFailed   = "exchange_failed"
	outcomeProfileFailed    = "profile_failed"
	outcomeError            = "error"
)

var (
	callbackOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "janus",
		Name:      "oauth_callbacks_total",
		Help:      "OAuth callbacks handled, by provider and outcome.",
	}, []string{"provider", "outcome"})

	usersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "janus",
		Name:      "users_created_total",
		Help:      "Local users created on first login, by provider.",
	}, []string{"provider"})
)
