package alerts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AlertFailedEscrowCompletions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "alert",
		Subsystem: "reputation_oracle",
		Name:      "failed_escrow_completions",
		Help:      "Shows the number of escrow completions that exhausted their retries.",
	}, []string{"chain_id"})
	AlertFailedIncomingWebhooks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "alert",
		Subsystem: "reputation_oracle",
		Name:      "failed_incoming_webhooks",
		Help:      "Shows the number of incoming webhooks that exhausted their retries.",
	}, []string{"chain_id"})
	AlertFailedOutgoingWebhooks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "alert",
		Subsystem: "reputation_oracle",
		Name:      "failed_outgoing_webhooks",
		Help:      "Shows the number of undelivered outgoing webhooks per receiver.",
	}, []string{"url"})
	AlertStuckAwaitingPayouts = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "alert",
		Subsystem: "reputation_oracle",
		Name:      "stuck_awaiting_payouts",
		Help:      "Shows escrow completions waiting for payouts for too long, valued by age in seconds.",
	}, []string{"chain_id", "escrow_address"})
	AlertStuckPayoutsBatches = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "alert",
		Subsystem: "reputation_oracle",
		Name:      "stuck_payouts_batches",
		Help:      "Shows payouts batches with a submitted but unconfirmed transaction, valued by age in seconds.",
	}, []string{"chain_id", "escrow_address", "batch_id", "tx_nonce"})
)
