// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_completed_total",
			Help: "Total number of pipeline stage executions that completed",
		},
		[]string{"stage"},
	)

	StageFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_failed_total",
			Help: "Total number of pipeline stage executions that failed",
		},
		[]string{"stage", "error_code"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_stage_duration_seconds",
			Help: "Duration of pipeline stage execution in seconds",
		},
		[]string{"stage"},
	)

	ReviewPagesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "review_pages_fetched_total",
			Help: "Total number of review pages requested from the provider",
		},
	)

	ScoringFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_fallbacks_total",
			Help: "Reviews whose sentiment came from a fallback instead of the oracle",
		},
		[]string{"reason"},
	)

	ScoringClamped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scoring_clamped_total",
			Help: "Oracle scores clamped to the star-rating plausibility envelope",
		},
	)
)
