// Package metrics holds the HTTP-level Prometheus metrics. Domain packages
// register their own metrics next to their services.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP aggregates request counts and latencies across the API surface.
type HTTP struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewHTTP creates and registers the HTTP metrics.
func NewHTTP() *HTTP {
	return &HTTP{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scolaris_http_requests_total",
			Help: "Total number of HTTP requests, by method and status",
		}, []string{"method", "status"}),
		Duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scolaris_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method"}),
	}
}

// Observe records one finished request.
func (m *HTTP) Observe(method string, status int, start time.Time) {
	m.Requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.Duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
