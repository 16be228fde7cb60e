package repository

import (
	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/entity"
	"github.com/humanprotocol/reputation-oracle/repository/memory"
	"github.com/humanprotocol/reputation-oracle/repository/postgres"
)

type Repo struct {
	IncomingWebhooks  entity.IncomingWebhooksRepo
	EscrowCompletions entity.EscrowCompletionsRepo
	PayoutsBatches    entity.PayoutsBatchesRepo
	OutgoingWebhooks  entity.OutgoingWebhooksRepo
	CronJobs          entity.CronJobsRepo
	Reputations       entity.ReputationsRepo
}

func NewRepo(db *db.DB) *Repo {
	return &Repo{
		IncomingWebhooks:  postgres.NewIncomingWebhooksRepo("incoming_webhooks", db),
		EscrowCompletions: postgres.NewEscrowCompletionsRepo("escrow_completions", db),
		PayoutsBatches:    postgres.NewPayoutsBatchesRepo("payouts_batches", db),
		OutgoingWebhooks:  postgres.NewOutgoingWebhooksRepo("outgoing_webhooks", db),
		CronJobs:          postgres.NewCronJobsRepo("cron_jobs", db),
		Reputations:       postgres.NewReputationsRepo("reputations", db),
	}
}

// NewMemoryRepo keeps all state in process memory.
func NewMemoryRepo() *Repo {
	return &Repo{
		IncomingWebhooks:  memory.NewIncomingWebhooksRepo(),
		EscrowCompletions: memory.NewEscrowCompletionsRepo(),
		PayoutsBatches:    memory.NewPayoutsBatchesRepo(),
		OutgoingWebhooks:  memory.NewOutgoingWebhooksRepo(),
		CronJobs:          memory.NewCronJobsRepo(),
		Reputations:       memory.NewReputationsRepo(),
	}
}
