package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Recorders(t *testing.T) {
	m := New()

	m.ObserveHTTP("POST", "/api/import", 200, 10*time.Millisecond)
	m.ObserveHTTP("POST", "/api/import", 409, time.Millisecond)
	m.ObserveImport(OutcomeSuccess, time.Second)
	m.AddImportRecords("transactions", 12)
	m.AddImportRecords("transactions", 0)
	m.ObserveAnalysis("member_contribution", "ok")
	m.IncrCacheHit("family")
	m.IncrCacheMiss("family")

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/import", "4xx")); got != 1 {
		t.Errorf("4xx requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.imports.WithLabelValues(OutcomeSuccess)); got != 1 {
		t.Errorf("successful imports = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.importRecords.WithLabelValues("transactions")); got != 12 {
		t.Errorf("imported transactions = %v, want 12", got)
	}
	if got := testutil.ToFloat64(m.analyses.WithLabelValues("member_contribution", "ok")); got != 1 {
		t.Errorf("analyses = %v, want 1", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	m.ObserveImport(OutcomeFailed, time.Second)
	m.AddImportRecords("families", 3)
	m.ObserveAnalysis("savings_optimization", "error")
	m.IncrCacheHit("family")
	m.IncrCacheMiss("family")
	m.TrackRateLimiter(func() (int64, int64) { return 0, 0 })
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveImport(OutcomeSuccess, time.Second)
	if got := testutil.ToFloat64(b.imports.WithLabelValues(OutcomeSuccess)); got != 0 {
		t.Fatalf("registries should not share state, got %v", got)
	}
}

func TestMetrics_TrackRateLimiter(t *testing.T) {
	m := New()
	m.TrackRateLimiter(func() (int64, int64) { return 3, 2 })

	expected := `
# HELP household_rate_limit_clients Client IPs currently tracked by the rate limiter.
# TYPE household_rate_limit_clients gauge
household_rate_limit_clients 2
# HELP household_rate_limited_requests_total Requests rejected by the rate limiter.
# TYPE household_rate_limited_requests_total counter
household_rate_limited_requests_total 3
`
	err := testutil.GatherAndCompare(m.Registry, strings.NewReader(expected),
		"household_rate_limit_clients", "household_rate_limited_requests_total")
	if err != nil {
		t.Error(err)
	}
}
