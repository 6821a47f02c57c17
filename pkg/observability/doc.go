// Package observability provides structured logging and Prometheus metrics
// for the SAML authorization service.
//
// # Logging
//
// Logger wraps stdlib slog with a JSON handler and a small fluent API
// (WithField, WithFields, WithError). Packages receive a *Logger at
// construction and derive scoped loggers from it.
//
// # Metrics
//
// Metrics registers every Prometheus collector the service emits: login
// decisions, role-set changes, workgroup API traffic, and memoization cache
// hits and misses. A single Metrics value is shared across packages and
// exposed on /metrics.
package observability
