package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/entity"
)

type cronJobsRepo basePostgresRepo

func NewCronJobsRepo(table string, db *db.DB) entity.CronJobsRepo {
	return (*cronJobsRepo)(newBasePostgresRepo(table, db))
}

func (r *cronJobsRepo) GetByType(ctx context.Context, jobType entity.CronJobType) (*entity.CronJob, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"cron_job_type": jobType}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	job := new(entity.CronJob)
	err = r.db.GetContext(ctx, job, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get cron job: %w", err)
	}
	return job, nil
}

func (r *cronJobsRepo) Start(ctx context.Context, jobType entity.CronJobType, startedAt time.Time) (*entity.CronJob, error) {
	q, args, err := sq.Insert(r.table).
		Columns("cron_job_type", "started_at", "completed_at").
		Values(jobType, startedAt, nil).
		Suffix("ON CONFLICT (cron_job_type) DO UPDATE SET started_at = EXCLUDED.started_at, completed_at = NULL, updated_at = NOW() RETURNING *").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	job := new(entity.CronJob)
	err = r.db.GetContext(ctx, job, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't start cron job: %w", err)
	}
	return job, nil
}

func (r *cronJobsRepo) Update(ctx context.Context, job *entity.CronJob) error {
	q, args, err := sq.Update(r.table).
		Set("started_at", job.StartedAt).
		Set("completed_at", job.CompletedAt).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": job.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't update cron job: %w", err)
	}
	return nil
}
