package escrowcompletion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "reputation_oracle",
	Subsystem: "escrow_completion",
	Name:      "transitions_total",
	Help:      "Number of escrow completions that entered a status.",
}, []string{"status"})
