// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuestionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_questions_processed_total",
			Help: "Total number of questions processed, by category",
		},
		[]string{"category"},
	)

	QuestionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_questions_failed_total",
			Help: "Total number of questions that failed, by error code",
		},
		[]string{"error_code"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_stage_duration_seconds",
			Help: "Duration of each pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	RetrievalFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_retrieval_fallbacks_total",
			Help: "Times the relaxed retrieval plan was used after an empty primary result",
		},
	)

	AuditRecordsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_audit_records_dropped_total",
			Help: "Audit records dropped because the buffer was full",
		},
	)
)
