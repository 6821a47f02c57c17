package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

// ConnectivityProbe reports whether an external dependency is reachable.
// The workgroup directory client satisfies this.
type ConnectivityProbe interface {
	ConnectionSuccessful(ctx context.Context) bool
}

// ProbeFunc adapts a function to ConnectivityProbe. Wiring code uses it to
// build a fresh directory client per check; a long-lived client would answer
// every probe from its memoization cache and never notice an outage.
type ProbeFunc func(ctx context.Context) bool

// ConnectionSuccessful implements ConnectivityProbe.
func (f ProbeFunc) ConnectionSuccessful(ctx context.Context) bool { return f(ctx) }

// HealthChecker provides health check functionality
type HealthChecker struct {
	db        *sql.DB
	directory ConnectivityProbe
}

// NewHealthChecker creates a new health checker. Either dependency may be
// nil; its check is skipped.
func NewHealthChecker(db *sql.DB, directory ConnectivityProbe) *HealthChecker {
	return &HealthChecker{
		db:        db,
		directory: directory,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Liveness returns a simple liveness probe (always returns 200 if server is running)
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness returns a readiness probe (checks all dependencies)
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")

	// Return 503 if unhealthy, 200 if healthy or degraded
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(status)
}

// Check performs a comprehensive health check
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.db != nil {
		dbStatus := h.checkDatabase(ctx)
		status.Dependencies["database"] = dbStatus
		if dbStatus.Status == StatusUnhealthy {
			status.Status = StatusUnhealthy
		} else if dbStatus.Status == StatusDegraded && status.Status != StatusUnhealthy {
			status.Status = StatusDegraded
		}
	}

	// The directory is optional: logins fall back to attribute matching
	// when it is unreachable, so a failed probe only degrades.
	if h.directory != nil {
		dirStatus := h.checkDirectory(ctx)
		status.Dependencies["workgroup_api"] = dirStatus
		if dirStatus.Status == StatusUnhealthy && status.Status != StatusUnhealthy {
			status.Status = StatusDegraded
		}
	}

	return status
}

func (h *HealthChecker) checkDatabase(ctx context.Context) DependencyStatus {
	start := time.Now()
	status := DependencyStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}

	err := h.db.PingContext(ctx)
	status.Latency = time.Since(start)

	if err != nil {
		status.Status = StatusUnhealthy
		status.Message = err.Error()
		return status
	}

	var count int
	err = h.db.QueryRowContext(ctx, "SELECT 1").Scan(&count)
	if err != nil {
		status.Status = StatusUnhealthy
		status.Message = "query failed: " + err.Error()
		return status
	}

	stats := h.db.Stats()
	if stats.MaxOpenConnections > 0 && stats.OpenConnections >= stats.MaxOpenConnections {
		status.Status = StatusDegraded
		status.Message = "connection pool exhausted"
	}

	return status
}

func (h *HealthChecker) checkDirectory(ctx context.Context) DependencyStatus {
	start := time.Now()
	status := DependencyStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}

	if !h.directory.ConnectionSuccessful(ctx) {
		status.Status = StatusUnhealthy
		status.Message = "workgroup api unreachable"
	}
	status.Latency = time.Since(start)

	return status
}
