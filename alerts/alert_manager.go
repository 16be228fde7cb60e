package alerts

import (
	"context"

	"github.com/humanprotocol/reputation-oracle/config"
	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/logging"
)

type AlertManager struct {
	logger logging.Logger
	jobs   map[string]*Job
}

func NewAlertManager(logger logging.Logger, db *db.DB, cfg *config.Config) *AlertManager {
	provider := NewDBAlertsProvider(db)
	params := &AlertJobParams{
		ChainIDs:   cfg.ChainIDs(),
		StuckAfter: cfg.Alerts.StuckAfter,
	}
	jobs := map[string]*Job{
		"failed_escrow_completions": {
			Func:   provider.FindFailedEscrowCompletions,
			Metric: AlertFailedEscrowCompletions,
		},
		"failed_incoming_webhooks": {
			Func:   provider.FindFailedIncomingWebhooks,
			Metric: AlertFailedIncomingWebhooks,
		},
		"failed_outgoing_webhooks": {
			Func:   provider.FindFailedOutgoingWebhooks,
			Metric: AlertFailedOutgoingWebhooks,
		},
		"stuck_awaiting_payouts": {
			Func:   provider.FindStuckAwaitingPayouts,
			Metric: AlertStuckAwaitingPayouts,
		},
		"stuck_payouts_batches": {
			Func:   provider.FindStuckPayoutsBatches,
			Metric: AlertStuckPayoutsBatches,
		},
	}
	for name, job := range jobs {
		job.Logger = logger.WithField("alert_job", name)
		job.Interval = cfg.Alerts.Interval
		job.Timeout = cfg.Alerts.Timeout
		job.Params = params
	}

	return &AlertManager{
		logger: logger,
		jobs:   jobs,
	}
}

func (m *AlertManager) Start(ctx context.Context) {
	m.logger.WithField("jobs", len(m.jobs)).Info("starting alert manager jobs")
	for _, job := range m.jobs {
		go job.Start(ctx)
	}
}
