package storage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "reputation_oracle",
	Subsystem: "storage",
	Name:      "request_duration_seconds",
	Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
}, []string{"method"})

func ObserveDuration(method string) func() {
	start := time.Now()
	return func() {
		RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}
}
