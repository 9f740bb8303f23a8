// Package metrics exposes Prometheus instrumentation for the provider
// request pipeline.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fooddata",
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Attempted provider HTTP calls by provider, endpoint and status code.",
	}, []string{"provider", "endpoint", "status"})

	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fooddata",
		Subsystem: "provider",
		Name:      "cache_hits_total",
		Help:      "Provider responses served from the response cache.",
	}, []string{"provider"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fooddata",
		Subsystem: "provider",
		Name:      "cache_misses_total",
		Help:      "Response cache lookups that fell through to the upstream.",
	}, []string{"provider"})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fooddata",
		Subsystem: "provider",
		Name:      "rate_limited_total",
		Help:      "Requests rejected locally because the monthly budget was exhausted.",
	}, []string{"provider"})

	fusionFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fooddata",
		Subsystem: "fusion",
		Name:      "fallback_records_total",
		Help:      "Fused records synthesized because every provider failed.",
	})
)

func ObserveRequest(provider, endpoint string, status int) {
	requestsTotal.WithLabelValues(provider, endpoint, strconv.Itoa(status)).Inc()
}

func ObserveCacheHit(provider string)  { cacheHits.WithLabelValues(provider).Inc() }
func ObserveCacheMiss(provider string) { cacheMisses.WithLabelValues(provider).Inc() }
func ObserveRateLimited(provider string) {
	rateLimited.WithLabelValues(provider).Inc()
}
func ObserveFusionFallback() { fusionFallbacks.Inc() }
