package main

import (
	"context"
	"flag"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/humanprotocol/reputation-oracle/config"
	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/entity"
	"github.com/humanprotocol/reputation-oracle/logging"
	"github.com/humanprotocol/reputation-oracle/repository"
	"github.com/humanprotocol/reputation-oracle/webhook"
)

var (
	configPath = flag.String("config", "config.yml", "path to the config file")
	chainID    = flag.Int64("chainId", 0, "chain id of the escrow")
	escrow     = flag.String("escrow", "", "escrow address")
)

// trackingDeferred leaves escrow completion tracking to the running service,
// which picks the recorded notification up on its next cron tick.
type trackingDeferred struct{}

func (trackingDeferred) CreateEscrowCompletion(context.Context, int64, common.Address) error {
	return nil
}

func main() {
	flag.Parse()

	logger := logging.New()

	cfg, err := config.ReadConfigFromFile(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("can't read config")
	}
	logger.SetLevel(cfg.LogLevel)

	if *chainID == 0 {
		logger.Fatal("chainId is not specified")
	}
	if !common.IsHexAddress(*escrow) {
		logger.WithField("escrow_address", *escrow).Fatal("escrow address is not valid")
	}

	dbConn, err := db.ConnectToDBAndMigrate(cfg.DBConfig)
	if err != nil {
		logger.WithError(err).Fatal("can't connect to database and apply migrations")
	}
	defer dbConn.Close()

	repo := repository.NewRepo(dbConn)
	incoming := webhook.NewIncomingService(logger, repo.IncomingWebhooks, cfg, trackingDeferred{})

	created, err := incoming.Record(context.Background(), &webhook.IncomingEvent{
		ChainID:       *chainID,
		EscrowAddress: common.HexToAddress(*escrow),
		EventType:     entity.IncomingWebhookEventJobCompleted,
	})
	entry := logger.WithFields(logrus.Fields{
		"chain_id":       *chainID,
		"escrow_address": *escrow,
	})
	if err != nil {
		entry.WithError(err).Fatal("can't record notification")
	}
	if !created {
		entry.Warn("notification has already been recorded")
		return
	}
	entry.Info("recorded notification")
}
