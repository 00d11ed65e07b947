// Package metrics exposes Prometheus collectors for the compilation
// service: engine-run counts, queue depth, cache hits, rate-limit
// decisions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EngineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "texcompile", Name: "engine_runs_total", Help: "Number of engine invocations by pipeline and outcome."},
		[]string{"pipeline", "outcome"},
	)

	EngineIterations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "texcompile", Name: "engine_iterations", Help: "Engine iterations consumed per toplevel until stable or MAX_LATEX_RUNS.", Buckets: prometheus.LinearBuckets(1, 1, 6)},
		[]string{"pipeline"},
	)

	PreflightDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: "texcompile", Name: "preflight_duration_seconds", Help: "Wall time spent in the preflight orchestrator."},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "texcompile", Name: "request_queue_depth", Help: "Current number of requests waiting for a compile worker."},
	)

	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "texcompile", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "texcompile", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	PreflightCacheHit = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "texcompile", Name: "preflight_cache_total", Help: "Preflight response cache hits/misses."},
		[]string{"result"},
	)
)

// RegisterCollectors registers all collectors on reg. Safe to call once per
// process; repeated registration against the default registerer in tests
// should use a fresh prometheus.Registry.
func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(
		EngineRuns,
		EngineIterations,
		PreflightDuration,
		QueueDepth,
		RateLimitAllowed,
		RateLimitRejected,
		PreflightCacheHit,
	)
}
