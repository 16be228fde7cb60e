package cronjob

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reputation_oracle",
		Subsystem: "cron",
		Name:      "run_duration_seconds",
		Help:      "Duration of scheduled processing runs.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"job_type"})

	RunsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reputation_oracle",
		Subsystem: "cron",
		Name:      "runs_skipped_total",
		Help:      "Ticks skipped because the previous run was still in progress.",
	}, []string{"job_type"})
)
