package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/humanprotocol/reputation-oracle/alerts"
	"github.com/humanprotocol/reputation-oracle/config"
	"github.com/humanprotocol/reputation-oracle/cronjob"
	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/entity"
	"github.com/humanprotocol/reputation-oracle/escrowcompletion"
	"github.com/humanprotocol/reputation-oracle/logging"
	"github.com/humanprotocol/reputation-oracle/payout"
	"github.com/humanprotocol/reputation-oracle/presenter"
	"github.com/humanprotocol/reputation-oracle/repository"
	"github.com/humanprotocol/reputation-oracle/reputation"
	"github.com/humanprotocol/reputation-oracle/storage"
	"github.com/humanprotocol/reputation-oracle/web3"
	"github.com/humanprotocol/reputation-oracle/webhook"
)

var configPath = flag.String("config", "config.yml", "path to the config file")

func main() {
	flag.Parse()

	logger := logging.New()

	cfg, err := config.ReadConfigFromFile(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("can't read config")
	}
	logger.SetLevel(cfg.LogLevel)

	dbConn, err := db.ConnectToDBAndMigrate(cfg.DBConfig)
	if err != nil {
		logger.WithError(err).Fatal("can't connect to database and apply migrations")
	}
	defer dbConn.Close()

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		err := http.ListenAndServe(":2112", nil)
		if err != nil {
			logger.WithError(err).Fatal("can't start listener for prometheus metrics")
		}
	}()

	chain, err := web3.Dial(logger.WithField("service", "web3"), cfg)
	if err != nil {
		logger.WithError(err).Fatal("can't dial chain clients")
	}
	logger.WithField("operator", chain.Address()).Info("loaded operator key")

	repo := repository.NewRepo(dbConn)
	store := storage.NewClient(cfg.Storage)
	outgoing := webhook.NewOutgoingService(logger.WithField("service", "outgoing_webhook"), repo.OutgoingWebhooks, cfg, chain)
	reputations := reputation.NewService(logger.WithField("service", "reputation"), repo.Reputations, chain)
	completions := escrowcompletion.NewService(
		logger.WithField("service", "escrow_completion"),
		repo,
		cfg,
		chain,
		store,
		payout.NewRegistry(store, chain),
		outgoing,
		reputations,
	)
	incoming := webhook.NewIncomingService(logger.WithField("service", "incoming_webhook"), repo.IncomingWebhooks, cfg, completions)

	ctx, cancel := context.WithCancel(context.Background())

	scheduler := cronjob.NewScheduler(logger.WithField("service", "cron"), cronjob.NewService(logger.WithField("service", "cron"), repo.CronJobs))
	for _, job := range []struct {
		spec    string
		jobType entity.CronJobType
		task    cronjob.Task
	}{
		{cfg.Cron.ProcessPendingIncomingWebhook, entity.CronJobTypeProcessPendingIncomingWebhook, incoming.ProcessPending},
		{cfg.Cron.ProcessPendingEscrowCompletionTracking, entity.CronJobTypeProcessPendingEscrowCompletionTracking, completions.ProcessPendingRecords},
		{cfg.Cron.ProcessAwaitingEscrowPayouts, entity.CronJobTypeProcessAwaitingEscrowPayouts, completions.ProcessAwaitingPayouts},
		{cfg.Cron.ProcessPaidEscrowCompletionTracking, entity.CronJobTypeProcessPaidEscrowCompletionTracking, completions.ProcessPaidEscrows},
		{cfg.Cron.ProcessPendingOutgoingWebhook, entity.CronJobTypeProcessPendingOutgoingWebhook, outgoing.ProcessPending},
	} {
		if err = scheduler.Register(job.spec, job.jobType, job.task); err != nil {
			logger.WithError(err).Fatal("can't register cron job")
		}
	}
	scheduler.Start(ctx)

	alerts.NewAlertManager(logger.WithField("service", "alerts"), dbConn, cfg).Start(ctx)

	if cfg.Presenter != nil {
		pr := presenter.NewPresenter(logger.WithField("service", "presenter"), cfg, incoming, completions, reputations)
		go func() {
			err := pr.Serve(ctx, cfg.Presenter.Host)
			if err != nil {
				logger.WithError(err).Fatal("can't serve presenter")
			}
		}()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	for range c {
		cancel()
		logger.Warn("caught termination signal, gracefully terminating")
		return
	}
}
