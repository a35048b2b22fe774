// Package metrics provides Prometheus metrics for the recipe search service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "recipesearch"

var (
	// CacheHits counts cache region hits.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"region"},
	)

	// CacheMisses counts cache region misses.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"region"},
	)

	// PoolTasks counts pool submissions by outcome (queued, burst, dropped).
	PoolTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_tasks_total",
			Help:      "Total number of tasks submitted to worker pools",
		},
		[]string{"pool", "outcome"},
	)

	// PoolQueueDepth tracks the backlog length of each pool.
	PoolQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_queue_depth",
			Help:      "Number of tasks waiting in the pool backlog",
		},
		[]string{"pool"},
	)

	// GenerationCandidates counts candidates returned by the generator.
	GenerationCandidates = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_candidates_total",
			Help:      "Total number of generated recipe candidates",
		},
	)

	// GenerationOutcomes counts per-candidate persistence outcomes.
	GenerationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_outcomes_total",
			Help:      "Per-candidate outcome of generation persistence",
		},
		[]string{"outcome"},
	)

	// GenerationDuration measures a full generation task.
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of generation tasks in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)

	// BroadcastsTotal counts topic broadcasts by status.
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total number of topic broadcasts",
		},
		[]string{"status"},
	)

	// Subscribers tracks live websocket subscribers.
	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_subscribers",
			Help:      "Number of connected websocket subscribers",
		},
	)

	// MailTotal counts outbound recipe emails by status.
	MailTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_total",
			Help:      "Total number of recipe emails",
		},
		[]string{"status"},
	)
)

// RecordPoolSubmit records the outcome of a pool submission.
func RecordPoolSubmit(pool, outcome string) {
	PoolTasks.WithLabelValues(pool, outcome).Inc()
}

// RecordGenerationOutcome records what happened to one candidate.
func RecordGenerationOutcome(outcome string) {
	GenerationOutcomes.WithLabelValues(outcome).Inc()
}

// RecordBroadcast records a broadcast attempt.
func RecordBroadcast(err error) {
	if err != nil {
		BroadcastsTotal.WithLabelValues("error").Inc()
		return
	}
	BroadcastsTotal.WithLabelValues("ok").Inc()
}
