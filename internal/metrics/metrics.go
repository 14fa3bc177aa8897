// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Import outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeBusy     = "busy"
)

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	// Registry owns the collectors below. Exposed for the /metrics handler.
	Registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	imports        *prometheus.CounterVec
	importRecords  *prometheus.CounterVec
	importDuration prometheus.Histogram
	analyses       *prometheus.CounterVec
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
}

// New registers all collectors in a private registry, so several instances
// can coexist (tests, multiple servers in one process).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "household_http_requests_total",
				Help: "HTTP requests by route and status code.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "household_http_request_duration_seconds",
				Help:    "HTTP request latency by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		imports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "household_imports_total",
				Help: "Spreadsheet imports by outcome.",
			},
			[]string{"outcome"},
		),
		importRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "household_import_records_total",
				Help: "Records handled by imports, by kind.",
			},
			[]string{"kind"},
		),
		importDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "household_import_duration_seconds",
				Help:    "Duration of spreadsheet imports.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		analyses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "household_analyses_total",
				Help: "Analytic computations by kind and outcome.",
			},
			[]string{"analysis", "outcome"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "household_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "household_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveImport records an import attempt with its outcome.
func (m *Metrics) ObserveImport(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess || outcome == OutcomeFailed {
		m.importDuration.Observe(d.Seconds())
	}
}

// AddImportRecords adds n records of the given kind (families, transactions,
// skipped_rows, skipped_families).
func (m *Metrics) AddImportRecords(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.importRecords.WithLabelValues(kind).Add(float64(n))
}

// ObserveAnalysis records an analyzer call.
func (m *Metrics) ObserveAnalysis(analysis, outcome string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(analysis, outcome).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// TrackRateLimiter exposes the rate limiter state, read at scrape time.
// stats returns the total rejected requests and the tracked client count.
func (m *Metrics) TrackRateLimiter(stats func() (rejected, clients int64)) {
	if m == nil {
		return
	}
	m.Registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "household_rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter.",
		}, func() float64 {
			rejected, _ := stats()
			return float64(rejected)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "household_rate_limit_clients",
			Help: "Client IPs currently tracked by the rate limiter.",
		}, func() float64 {
			_, clients := stats()
			return float64(clients)
		}),
	)
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
