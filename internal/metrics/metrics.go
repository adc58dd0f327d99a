// Package metrics exposes the gateway's Prometheus metrics on a private
// registry, so repeated construction in tests never collides with the
// global default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RequestDurationBuckets matches the histogram boundaries the gateway
// this was distilled from registered.
var RequestDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0}

// Registry holds every counter and histogram the proxy records against.
type Registry struct {
	reg *prometheus.Registry

	RequestsTotal           prometheus.Counter
	UpstreamSelectedTotal    prometheus.Counter
	UpstreamErrorsTotal      prometheus.Counter
	RequestDuration          prometheus.Histogram
	RateLimitedTotal         prometheus.Counter
	CircuitBreakerOpenTotal  prometheus.Counter
	RetriesTotal             prometheus.Counter
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		RequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "api_proxy_requests_total",
			Help: "Total requests handled by proxy",
		}),
		UpstreamSelectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "api_proxy_upstream_selected_total",
			Help: "Total upstream selections",
		}),
		UpstreamErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "api_proxy_upstream_errors_total",
			Help: "Total upstream selection errors",
		}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "api_proxy_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: RequestDurationBuckets,
		}),
		RateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "api_proxy_rate_limited_total",
			Help: "Total requests rejected by rate limiter",
		}),
		CircuitBreakerOpenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "api_proxy_circuit_breaker_open_total",
			Help: "Total requests rejected by circuit breaker",
		}),
		RetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "api_proxy_retries_total",
			Help: "Total requests whose upstream selection failed after exhausting retries",
		}),
	}

	reg.MustRegister(
		r.RequestsTotal,
		r.UpstreamSelectedTotal,
		r.UpstreamErrorsTotal,
		r.RequestDuration,
		r.RateLimitedTotal,
		r.CircuitBreakerOpenTotal,
		r.RetriesTotal,
	)

	return r
}

// Handler returns an http.Handler serving this registry in Prometheus
// text exposition format, for mounting at /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
