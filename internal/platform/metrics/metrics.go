// Package metrics provides Prometheus metrics collection for the medication
// reference service. It exports HTTP request metrics plus domain counters for
// cache hits/misses, upstream vocabulary API calls, sync outcomes, and cache
// sweeps.
//
// All metrics are automatically registered with the Prometheus default registry
// during package initialization.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxnorm_cache_hits_total",
			Help: "Cache hits per cache table",
		},
		[]string{"cache"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxnorm_cache_misses_total",
			Help: "Cache misses per cache table",
		},
		[]string{"cache"},
	)

	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxnorm_upstream_requests_total",
			Help: "Requests to the drug vocabulary API by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	SyncItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxnorm_sync_items_total",
			Help: "Medications processed by sync runs, by outcome",
		},
		[]string{"outcome"},
	)

	SweepDeletedRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxnorm_sweep_deleted_rows_total",
			Help: "Rows removed from cache tables by the janitor",
		},
		[]string{"cache"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(UpstreamRequests)
	prometheus.MustRegister(SyncItems)
	prometheus.MustRegister(SweepDeletedRows)
}

// Handler returns the HTTP handler serving the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
