package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/humanprotocol/reputation-oracle/config"
	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/escrowcompletion"
	"github.com/humanprotocol/reputation-oracle/logging"
	"github.com/humanprotocol/reputation-oracle/payout"
	"github.com/humanprotocol/reputation-oracle/repository"
	"github.com/humanprotocol/reputation-oracle/reputation"
	"github.com/humanprotocol/reputation-oracle/storage"
	"github.com/humanprotocol/reputation-oracle/web3"
	"github.com/humanprotocol/reputation-oracle/webhook"
)

var (
	configPath = flag.String("config", "config.yml", "path to the config file")
	chainID    = flag.Int64("chainId", 0, "chain id of the escrows to reprocess")
	escrows    = flag.String("escrows", "", "comma separated escrow addresses, all failed escrows of the chain when empty")
	all        = flag.Bool("all", false, "confirm resetting every failed escrow of the chain")
)

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
	if cfg.GetChainConfig(*chainID) == nil {
		logger.WithField("chain_id", *chainID).Fatal("chain config for given chainId is not found")
	}
	addresses := make([]common.Address, 0, 10)
	if *escrows != "" {
		for _, s := range strings.Split(*escrows, ",") {
			s = strings.TrimSpace(s)
			if !common.IsHexAddress(s) {
				logger.WithField("escrow_address", s).Fatal("invalid escrow address")
			}
			addresses = append(addresses, common.HexToAddress(s))
		}
	}
	if len(addresses) == 0 && !*all {
		logger.Fatal("either --escrows or --all should be specified")
	}

	dbConn, err := db.NewDB(cfg.DBConfig)
	if err != nil {
		logger.WithError(err).Fatal("can't connect to database")
	}
	defer dbConn.Close()

	if err = dbConn.Migrate(); err != nil {
		logger.WithError(err).Fatal("can't run database migrations")
	}

	chain, err := web3.Dial(logger, cfg)
	if err != nil {
		logger.WithError(err).Fatal("can't dial chain clients")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		for range c {
			cancel()
			logger.Warn("caught CTRL-C, gracefully terminating")
			return
		}
	}()

	repo := repository.NewRepo(dbConn)
	store := storage.NewClient(cfg.Storage)
	completions := escrowcompletion.NewService(
		logger,
		repo,
		cfg,
		chain,
		store,
		payout.NewRegistry(store, chain),
		webhook.NewOutgoingService(logger, repo.OutgoingWebhooks, cfg, chain),
		reputation.NewService(logger, repo.Reputations, chain),
	)

	n, err := completions.ResetFailed(ctx, *chainID, addresses)
	entry := logger.WithFields(logrus.Fields{
		"chain_id": *chainID,
		"count":    n,
	})
	if err != nil {
		entry.WithError(err).Fatal("can't reset failed escrow completions")
	}
	entry.Info("reset failed escrow completions to pending")
}
