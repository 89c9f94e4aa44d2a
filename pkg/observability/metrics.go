package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Auth metrics
	AuthAttemptsTotal *prometheus.CounterVec
	AuthDenialsTotal  *prometheus.CounterVec
	ActiveSessions    prometheus.Gauge
	AuthorizedUsers   prometheus.Gauge
	IdleSessionsSwept prometheus.Counter

	// Message pipeline metrics
	MessagesTotal       *prometheus.CounterVec
	HandlerDuration     *prometheus.HistogramVec
	AdminCommandsTotal  *prometheus.CounterVec
	RateLimitedTotal    prometheus.Counter
	DuplicateDropsTotal prometheus.Counter

	// Storage metrics
	StorageOperationsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatsentry_auth_attempts_total",
				Help: "Total number of authentication attempts",
			},
			[]string{"result"},
		),
		AuthDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatsentry_auth_denials_total",
				Help: "Total number of denied messages by reason",
			},
			[]string{"reason"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chatsentry_active_sessions",
				Help: "Number of currently active authenticated sessions",
			},
		),
		AuthorizedUsers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chatsentry_authorized_users",
				Help: "Number of users in the authorized-user directory",
			},
		),
		IdleSessionsSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chatsentry_idle_sessions_swept_total",
				Help: "Total number of sessions evicted by the idle sweep",
			},
		),
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatsentry_messages_total",
				Help: "Total number of inbound messages by outcome",
			},
			[]string{"handler", "outcome"},
		),
		HandlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatsentry_handler_duration_seconds",
				Help:    "Message handler execution time in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler"},
		),
		AdminCommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatsentry_admin_commands_total",
				Help: "Total number of admin commands by name and status",
			},
			[]string{"command", "status"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chatsentry_rate_limited_total",
				Help: "Total number of messages dropped by the rate limiter",
			},
		),
		DuplicateDropsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chatsentry_duplicate_drops_total",
				Help: "Total number of duplicate deliveries dropped by the router",
			},
		),
		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatsentry_storage_operations_total",
				Help: "Total number of directory storage operations",
			},
			[]string{"operation", "status"},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.AuthAttemptsTotal,
			m.AuthDenialsTotal,
			m.ActiveSessions,
			m.AuthorizedUsers,
			m.IdleSessionsSwept,
			m.MessagesTotal,
			m.HandlerDuration,
			m.AdminCommandsTotal,
			m.RateLimitedTotal,
			m.DuplicateDropsTotal,
			m.StorageOperationsTotal,
		)
	}

	return m
}

// NopMetrics returns an unregistered Metrics instance. Collectors still work,
// their values are just never exported. Useful in tests.
func NopMetrics() *Metrics {
	return NewMetrics(nil)
}
