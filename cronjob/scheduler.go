package cronjob

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/humanprotocol/reputation-oracle/entity"
	"github.com/humanprotocol/reputation-oracle/logging"
)

type Scheduler struct {
	logger  logging.Logger
	service *Service
	cron    *cron.Cron
	ctx     context.Context
}

func NewScheduler(logger logging.Logger, service *Service) *Scheduler {
	l := cronLogger{logger}
	return &Scheduler{
		logger:  logger,
		service: service,
		cron:    cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l))),
		ctx:     context.Background(),
	}
}

// Register schedules task under jobType with a standard cron expression or a
// descriptor such as "@every 2m".
func (s *Scheduler) Register(spec string, jobType entity.CronJobType, task Task) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.service.Run(s.ctx, jobType, task)
	})
	if err != nil {
		return fmt.Errorf("can't schedule %s with %q: %w", jobType, spec, err)
	}
	s.logger.WithFields(logrus.Fields{
		"job_type": jobType,
		"schedule": spec,
	}).Info("registered cron job")
	return nil
}

// Start runs the scheduler until ctx is cancelled, then waits for in-flight runs.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	go func() {
		<-ctx.Done()
		s.logger.Info("stopping cron scheduler")
		<-s.cron.Stop().Done()
	}()
}

type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(toFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(toFields(keysAndValues)).Error(msg)
}

func toFields(keysAndValues []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
