package reputation

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/humanprotocol/reputation-oracle/entity"
	"github.com/humanprotocol/reputation-oracle/logging"
)

const escrowCompletionPoints = 1

type Chain interface {
	Address() common.Address
	GetJobLauncher(ctx context.Context, chainID int64, address common.Address) (common.Address, error)
	GetExchangeOracle(ctx context.Context, chainID int64, address common.Address) (common.Address, error)
	GetRecordingOracle(ctx context.Context, chainID int64, address common.Address) (common.Address, error)
}

type Service struct {
	logger logging.Logger
	repo   entity.ReputationsRepo
	chain  Chain
}

func NewService(logger logging.Logger, repo entity.ReputationsRepo, chain Chain) *Service {
	return &Service{
		logger: logger,
		repo:   repo,
		chain:  chain,
	}
}

// AssessEscrowParties rewards every party of a completed escrow, this
// operator included.
func (s *Service) AssessEscrowParties(ctx context.Context, chainID int64, escrow common.Address) error {
	launcher, err := s.chain.GetJobLauncher(ctx, chainID, escrow)
	if err != nil {
		return fmt.Errorf("can't get job launcher: %w", err)
	}
	exchangeOracle, err := s.chain.GetExchangeOracle(ctx, chainID, escrow)
	if err != nil {
		return fmt.Errorf("can't get exchange oracle: %w", err)
	}
	recordingOracle, err := s.chain.GetRecordingOracle(ctx, chainID, escrow)
	if err != nil {
		return fmt.Errorf("can't get recording oracle: %w", err)
	}

	parties := []struct {
		address common.Address
		role    entity.ReputationRole
	}{
		{launcher, entity.ReputationRoleJobLauncher},
		{exchangeOracle, entity.ReputationRoleExchangeOracle},
		{recordingOracle, entity.ReputationRoleRecordingOracle},
		{s.chain.Address(), entity.ReputationRoleReputationOracle},
	}
	for _, party := range parties {
		if err = s.repo.Increase(ctx, chainID, party.address, party.role, escrowCompletionPoints); err != nil {
			return fmt.Errorf("can't increase %s reputation: %w", party.role, err)
		}
	}
	s.logger.WithFields(logrus.Fields{
		"chain_id":       chainID,
		"escrow_address": escrow,
	}).Info("assessed reputation of escrow parties")
	return nil
}

func (s *Service) GetReputation(ctx context.Context, chainID int64, address common.Address) ([]*entity.Reputation, error) {
	res, err := s.repo.FindByAddress(ctx, chainID, address)
	if err != nil {
		return nil, fmt.Errorf("can't find reputation: %w", err)
	}
	return res, nil
}
