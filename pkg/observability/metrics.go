package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics emitted by the service
type Metrics struct {
	// Login decision metrics
	LoginsTotal      *prometheus.CounterVec
	RoleChangesTotal prometheus.Counter

	// Workgroup API metrics
	WorkgroupRequestsTotal  *prometheus.CounterVec
	WorkgroupRequestSeconds *prometheus.HistogramVec
	WorkgroupErrorsTotal    prometheus.Counter

	// Memoization cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "samlauth_logins_total",
				Help: "Login sync evaluations by outcome (allowed, denied)",
			},
			[]string{"outcome"},
		),
		RoleChangesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "samlauth_role_changes_total",
				Help: "Login syncs that changed the account role set",
			},
		),
		WorkgroupRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "samlauth_workgroup_requests_total",
				Help: "Outbound workgroup API requests by query type and status",
			},
			[]string{"type", "status"},
		),
		WorkgroupRequestSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "samlauth_workgroup_request_duration_seconds",
				Help:    "Workgroup API request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		WorkgroupErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "samlauth_workgroup_errors_total",
				Help: "Workgroup API transport and decode failures",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "samlauth_workgroup_cache_hits_total",
				Help: "Workgroup API responses served from the per-request cache",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "samlauth_workgroup_cache_misses_total",
				Help: "Workgroup API lookups that required a network call",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.LoginsTotal,
		m.RoleChangesTotal,
		m.WorkgroupRequestsTotal,
		m.WorkgroupRequestSeconds,
		m.WorkgroupErrorsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// Handler returns the HTTP handler serving the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
