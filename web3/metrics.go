package web3

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var TransactionResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "reputation_oracle",
	Subsystem: "web3",
	Name:      "transaction_results_total",
	Help:      "Outcome of transactions submitted by the operator account.",
}, []string{"chain_id", "status"})

func ObserveTransaction(chainID string, err error) {
	switch {
	case err == nil:
		TransactionResults.WithLabelValues(chainID, "mined").Inc()
	case errors.Is(err, ErrNonceConflict):
		TransactionResults.WithLabelValues(chainID, "nonce_conflict").Inc()
	case errors.Is(err, ErrTxFailed):
		TransactionResults.WithLabelValues(chainID, "reverted").Inc()
	case errors.Is(err, ErrConfirmationTimeout):
		TransactionResults.WithLabelValues(chainID, "timeout").Inc()
	default:
		TransactionResults.WithLabelValues(chainID, "error").Inc()
	}
}
