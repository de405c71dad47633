package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics counts notification job outcomes per job kind.
type PipelineMetrics struct {
	Processed    *prometheus.CounterVec
	Retried      *prometheus.CounterVec
	DeadLettered *prometheus.CounterVec
}

// NewPipelineMetrics registers pipeline counters on the given registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PipelineMetrics{
		Processed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_jobs_processed_total",
			Help: "Jobs that completed successfully, by kind.",
		}, []string{"kind"}),
		Retried: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_jobs_retried_total",
			Help: "Jobs requeued after a retryable failure, by kind.",
		}, []string{"kind"}),
		DeadLettered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_jobs_dead_lettered_total",
			Help: "Jobs moved to the dead-letter list, by kind.",
		}, []string{"kind"}),
	}
}
