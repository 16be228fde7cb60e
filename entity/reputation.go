package entity

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type ReputationRole string

const (
	ReputationRoleJobLauncher      ReputationRole = "job_launcher"
	ReputationRoleExchangeOracle   ReputationRole = "exchange_oracle"
	ReputationRoleRecordingOracle  ReputationRole = "recording_oracle"
	ReputationRoleReputationOracle ReputationRole = "reputation_oracle"
)

type Reputation struct {
	ID               uint           `db:"id"`
	ChainID          int64          `db:"chain_id"`
	Address          common.Address `db:"address"`
	Role             ReputationRole `db:"role"`
	ReputationPoints int            `db:"reputation_points"`
	CreatedAt        *time.Time     `db:"created_at"`
	UpdatedAt        *time.Time     `db:"updated_at"`
}

type ReputationsRepo interface {
	Increase(ctx context.Context, chainID int64, address common.Address, role ReputationRole, points int) error
	FindByAddress(ctx context.Context, chainID int64, address common.Address) ([]*Reputation, error)
}
