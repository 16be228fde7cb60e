package webhook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IncomingProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reputation_oracle",
		Subsystem: "webhook",
		Name:      "incoming_processed_total",
		Help:      "Processing attempts of incoming webhooks by resulting status.",
	}, []string{"status"})
	OutgoingDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reputation_oracle",
		Subsystem: "webhook",
		Name:      "outgoing_deliveries_total",
		Help:      "Delivery attempts of outgoing webhooks by resulting status.",
	}, []string{"status"})
)
