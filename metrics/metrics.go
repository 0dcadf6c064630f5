package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrigate_requests_total",
			Help: "Total number of API requests handled",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrigate_upstream_calls_total",
			Help: "Total number of calls to the Lelapa.ai API",
		},
		[]string{"capability", "outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agrigate_upstream_duration_seconds",
			Help:    "Time taken by Lelapa.ai API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"capability"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrigate_circuit_breaker_trips_total",
			Help: "Total number of circuit breaker open transitions",
		},
		[]string{"capability"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agrigate_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agrigate_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrigate_cache_errors_total",
			Help: "Total number of response cache errors",
		},
		[]string{"operation"},
	)

	RateLimitedRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agrigate_rate_limited_requests_total",
			Help: "Total number of requests rejected by rate limiting",
		},
	)
)
