package entity

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type EscrowCompletionStatus string

const (
	EscrowCompletionStatusPending         EscrowCompletionStatus = "pending"
	EscrowCompletionStatusAwaitingPayouts EscrowCompletionStatus = "awaiting_payouts"
	EscrowCompletionStatusPaid            EscrowCompletionStatus = "paid"
	EscrowCompletionStatusCompleted       EscrowCompletionStatus = "completed"
	EscrowCompletionStatusFailed          EscrowCompletionStatus = "failed"
)

type EscrowCompletion struct {
	ID               uint                   `db:"id"`
	ChainID          int64                  `db:"chain_id"`
	EscrowAddress    common.Address         `db:"escrow_address"`
	Status           EscrowCompletionStatus `db:"status"`
	FinalResultsURL  *string                `db:"final_results_url"`
	FinalResultsHash *string                `db:"final_results_hash"`
	Retry
	CreatedAt *time.Time `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

func (c *EscrowCompletion) HasFinalResults() bool {
	return c.FinalResultsURL != nil && *c.FinalResultsURL != "" && c.FinalResultsHash != nil
}

type EscrowCompletionsRepo interface {
	Create(ctx context.Context, completion *EscrowCompletion) error
	GetByChainIDAndAddress(ctx context.Context, chainID int64, address common.Address) (*EscrowCompletion, error)
	// FindByStatus returns records whose backoff gate is open, oldest first.
	FindByStatus(ctx context.Context, status EscrowCompletionStatus, maxRetryCount int) ([]*EscrowCompletion, error)
	FindAllByStatus(ctx context.Context, chainID int64, status EscrowCompletionStatus) ([]*EscrowCompletion, error)
	Update(ctx context.Context, completion *EscrowCompletion) error
}
