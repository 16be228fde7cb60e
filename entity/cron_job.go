package entity

import (
	"context"
	"time"
)

type CronJobType string

const (
	CronJobTypeProcessPendingIncomingWebhook          CronJobType = "process-pending-incoming-webhook"
	CronJobTypeProcessPendingEscrowCompletionTracking CronJobType = "process-pending-escrow-completion-tracking"
	CronJobTypeProcessAwaitingEscrowPayouts           CronJobType = "process-awaiting-escrow-payouts"
	CronJobTypeProcessPaidEscrowCompletionTracking    CronJobType = "process-paid-escrow-completion-tracking"
	CronJobTypeProcessPendingOutgoingWebhook          CronJobType = "process-pending-outgoing-webhook"
)

type CronJob struct {
	ID          uint        `db:"id"`
	CronJobType CronJobType `db:"cron_job_type"`
	StartedAt   time.Time   `db:"started_at"`
	CompletedAt *time.Time  `db:"completed_at"`
	CreatedAt   *time.Time  `db:"created_at"`
	UpdatedAt   *time.Time  `db:"updated_at"`
}

type CronJobsRepo interface {
	GetByType(ctx context.Context, jobType CronJobType) (*CronJob, error)
	// Start creates the run row or restarts the existing one.
	Start(ctx context.Context, jobType CronJobType, startedAt time.Time) (*CronJob, error)
	Update(ctx context.Context, job *CronJob) error
}
