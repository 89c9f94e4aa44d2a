// Package observability provides structured logging, Prometheus metrics,
// and health checking for the bot backend.
//
// # Logging
//
// Logger wraps stdlib slog with a JSON handler:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("user_id", id).Info("user authenticated")
//
// # Metrics
//
// Metrics holds all Prometheus collectors, registered against a dedicated
// registry so tests can create isolated instances:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//
// # Health
//
// HealthChecker exposes liveness and readiness handlers. Readiness pings the
// directory store and, when configured, Redis.
package observability
