// Package metrics provides Prometheus metrics for tier resolution.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes used as label values.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Rewrite targets used as label values.
const (
	TargetTier    = "tier"
	TargetDefault = "default"
)

// Metrics contains all tier cache and resolver metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Cache operation metrics
	CacheHitsTotal      *prometheus.CounterVec // by service
	CacheMissesTotal    *prometheus.CounterVec // by service
	CacheEvictionsTotal prometheus.Counter
	CacheEntries        prometheus.Gauge
	CacheClearsTotal    prometheus.Counter

	// External lookup metrics
	LookupsTotal          *prometheus.CounterVec   // by service, outcome
	LookupDurationSeconds *prometheus.HistogramVec // by outcome

	// Rewrite decisions
	RewritesTotal *prometheus.CounterVec // by service, target
}

// New creates a Metrics instance registered with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheHitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tiergate_cache_hits_total",
			Help: "Total number of tier cache hits by service",
		}, []string{"service"}),

		CacheMissesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tiergate_cache_misses_total",
			Help: "Total number of tier cache misses by service",
		}, []string{"service"}),

		CacheEvictionsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "tiergate_cache_evictions_total",
			Help: "Total number of entries evicted by the capacity policy",
		}),

		CacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Name: "tiergate_cache_entries",
			Help: "Current number of tier configs in cache",
		}),

		CacheClearsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "tiergate_cache_clears_total",
			Help: "Total number of full cache clears",
		}),

		LookupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tiergate_lookups_total",
			Help: "Total number of external tier config lookups by service and outcome",
		}, []string{"service", "outcome"}),

		LookupDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tiergate_lookup_duration_seconds",
			Help:    "Duration of external tier config lookups by outcome",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"outcome"}),

		RewritesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tiergate_rewrites_total",
			Help: "Total number of outbound rewrites by service and target kind",
		}, []string{"service", "target"}),
	}
}

// RecordCacheHit records a cache hit for the given service.
func (m *Metrics) RecordCacheHit(service string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(service).Inc()
}

// RecordCacheMiss records a cache miss for the given service.
func (m *Metrics) RecordCacheMiss(service string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(service).Inc()
}

// RecordEviction records an entry dropped by the capacity policy.
func (m *Metrics) RecordEviction() {
	if m == nil {
		return
	}
	m.CacheEvictionsTotal.Inc()
}

// SetCacheEntries updates the cache size gauge.
func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}

// IncrementClears records a full cache invalidation.
func (m *Metrics) IncrementClears() {
	if m == nil {
		return
	}
	m.CacheClearsTotal.Inc()
}

// ObserveLookup records an external lookup and its duration.
func (m *Metrics) ObserveLookup(service, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(service, outcome).Inc()
	m.LookupDurationSeconds.WithLabelValues(outcome).Observe(durationSeconds)
}

// RecordRewrite records which endpoint kind an outbound request was sent to.
func (m *Metrics) RecordRewrite(service, target string) {
	if m == nil {
		return
	}
	m.RewritesTotal.WithLabelValues(service, target).Inc()
}
