package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CoordinationCommands counts substitute-request commands by name and outcome
	// (ok|forbidden|invalid_state|not_found|conflict|error).
	CoordinationCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftrelief_coordination_commands_total",
			Help: "Total number of coordination commands processed",
		},
		[]string{"command", "result"},
	)

	// NotificationsPersisted counts in-app notification rows written by event type.
	NotificationsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftrelief_notifications_persisted_total",
			Help: "Total number of in-app notifications persisted",
		},
		[]string{"event"},
	)

	// EmailFailures counts outbound email deliveries that failed. Email is
	// best-effort, so failures are counted rather than surfaced to callers.
	EmailFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shiftrelief_email_failures_total",
			Help: "Total number of failed outbound email deliveries",
		},
	)

	// ExpiredRequests counts requests closed by the expiration sweep.
	ExpiredRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shiftrelief_expired_requests_total",
			Help: "Total number of substitute requests expired by the sweep",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shiftrelief_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
