package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.LoginsTotal.WithLabelValues("allowed").Inc()
	m.LoginsTotal.WithLabelValues("denied").Add(2)
	m.CacheHitsTotal.Inc()

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["samlauth_logins_total"])
	assert.True(t, names["samlauth_workgroup_cache_hits_total"])
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(nil)
	m.WorkgroupRequestsTotal.WithLabelValues("user", "200").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "samlauth_workgroup_requests_total")
}
