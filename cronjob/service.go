package cronjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/entity"
	"github.com/humanprotocol/reputation-oracle/logging"
)

var ErrAlreadyCompleted = errors.New("cron job has already been completed")

// completeTimeout bounds marking a run as completed. It is detached from the
// task context so a shutdown mid-run still releases the job.
const completeTimeout = 10 * time.Second

type Task func(ctx context.Context) error

// Service persists run markers so that at most one run per job type is in
// flight, across process restarts as well.
type Service struct {
	logger logging.Logger
	repo   entity.CronJobsRepo
	now    func() time.Time
}

func NewService(logger logging.Logger, repo entity.CronJobsRepo) *Service {
	return &Service{
		logger: logger,
		repo:   repo,
		now:    time.Now,
	}
}

func (s *Service) Start(ctx context.Context, jobType entity.CronJobType) (*entity.CronJob, error) {
	job, err := s.repo.Start(ctx, jobType, s.now())
	if err != nil {
		return nil, fmt.Errorf("can't start %s: %w", jobType, err)
	}
	return job, nil
}

func (s *Service) IsRunning(ctx context.Context, jobType entity.CronJobType) (bool, error) {
	job, err := s.repo.GetByType(ctx, jobType)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return job.CompletedAt == nil, nil
}

func (s *Service) Complete(ctx context.Context, job *entity.CronJob) error {
	if job.CompletedAt != nil {
		return fmt.Errorf("can't complete %s: %w", job.CronJobType, ErrAlreadyCompleted)
	}
	completedAt := s.now()
	job.CompletedAt = &completedAt
	if err := s.repo.Update(ctx, job); err != nil {
		return fmt.Errorf("can't complete %s: %w", job.CronJobType, err)
	}
	return nil
}

// Run executes task unless the previous run of the same job type has not
// completed yet. It reports whether the task was executed. Task errors and
// panics are logged and never prevent the run from being completed.
func (s *Service) Run(ctx context.Context, jobType entity.CronJobType, task Task) (executed bool) {
	logger := s.logger.WithField("job_type", jobType)

	running, err := s.IsRunning(ctx, jobType)
	if err != nil {
		logger.WithError(err).Error("can't check cron job state")
		return false
	}
	if running {
		RunsSkipped.WithLabelValues(string(jobType)).Inc()
		logger.Info("previous run is still in progress, skipping")
		return false
	}

	job, err := s.Start(ctx, jobType)
	if err != nil {
		logger.WithError(err).Error("can't start cron job")
		return false
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("recovered", r).Error("cron job panicked")
		}
		RunDurations.WithLabelValues(string(jobType)).Observe(time.Since(start).Seconds())
		completeCtx, cancel := context.WithTimeout(context.Background(), completeTimeout)
		defer cancel()
		if err2 := s.Complete(completeCtx, job); err2 != nil {
			logger.WithError(err2).Error("can't complete cron job")
		}
	}()

	executed = true
	logger.Debug("starting cron job")
	if err = task(ctx); err != nil {
		logger.WithError(err).Error("cron job failed")
		return true
	}
	logger.WithFields(logrus.Fields{
		"duration": time.Since(start),
	}).Debug("cron job finished")
	return true
}
