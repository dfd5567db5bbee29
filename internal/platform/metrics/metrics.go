package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP level metrics of the gateway.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec   // by route, code
	RequestDuration *prometheus.HistogramVec // by route
	InFlight        prometheus.Gauge

	// Proxy failures reaching the downstream service
	ProxyErrorsTotal *prometheus.CounterVec // by service
}

// New creates the gateway metrics registered with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tiergate_http_requests_total",
			Help: "Total number of inbound HTTP requests by route and status code",
		}, []string{"route", "code"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tiergate_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "tiergate_http_requests_in_flight",
			Help: "Number of inbound HTTP requests currently being served",
		}),
		ProxyErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tiergate_proxy_errors_total",
			Help: "Total number of failed proxy round trips by service",
		}, []string{"service"}),
	}
}

// ObserveRequest records a completed request.
func (m *Metrics) ObserveRequest(route string, code int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(durationSeconds)
}

// IncInFlight marks a request as started.
func (m *Metrics) IncInFlight() {
	if m == nil {
		return
	}
	m.InFlight.Inc()
}

// DecInFlight marks a request as finished.
func (m *Metrics) DecInFlight() {
	if m == nil {
		return
	}
	m.InFlight.Dec()
}

// RecordProxyError counts a failed round trip to service.
func (m *Metrics) RecordProxyError(service string) {
	if m == nil {
		return
	}
	m.ProxyErrorsTotal.WithLabelValues(service).Inc()
}
