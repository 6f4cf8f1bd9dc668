package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AppraisalToggles counts appraisal toggles by resulting state.
	AppraisalToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicboard_appraisal_toggles_total",
		Help: "Total number of appraisal toggles by outcome (liked/unliked)",
	}, []string{"outcome"})

	// ModerationTransitions counts committed status transitions by target status.
	ModerationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicboard_moderation_transitions_total",
		Help: "Total number of committed moderation transitions by target status",
	}, []string{"target_status"})

	// TrendingComputations counts trending recomputations by scope and source.
	TrendingComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicboard_trending_computations_total",
		Help: "Total number of trending list computations by scope and source (cache/db)",
	}, []string{"scope", "source"})

	// BansIssued counts bans issued by duration.
	BansIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicboard_bans_issued_total",
		Help: "Total number of bans issued by duration",
	}, []string{"duration"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "civicboard_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
