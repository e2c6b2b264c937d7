// Package metrics exposes request counters for the venue transport:
//
//	aax_requests_total{method,path,outcome}
//	aax_request_duration_seconds{method,path}
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK        = "ok"
	OutcomeVenue     = "venue_error"
	OutcomeTransport = "transport_error"
)

// Requests records transport activity on its own registry so several clients
// (and tests) can coexist in one process.
type Requests struct {
	registry *prometheus.Registry
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewRequests() *Requests {
	r := &Requests{
		registry: prometheus.NewRegistry(),
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aax_requests_total",
				Help: "Number of venue REST requests by outcome",
			},
			[]string{"method", "path", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aax_request_duration_seconds",
				Help:    "Latency of venue REST requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
	r.registry.MustRegister(r.total, r.duration)
	r.registry.MustRegister(collectors.NewGoCollector())
	return r
}

func (r *Requests) Observe(method, path, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.total.WithLabelValues(method, path, outcome).Inc()
	r.duration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (r *Requests) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
