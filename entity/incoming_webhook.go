package entity

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type IncomingWebhookStatus string

const (
	IncomingWebhookStatusPending   IncomingWebhookStatus = "pending"
	IncomingWebhookStatusCompleted IncomingWebhookStatus = "completed"
	IncomingWebhookStatusFailed    IncomingWebhookStatus = "failed"
)

type IncomingWebhookEventType string

const (
	IncomingWebhookEventJobCompleted IncomingWebhookEventType = "job_completed"
)

type IncomingWebhook struct {
	ID            uint                  `db:"id"`
	ChainID       int64                 `db:"chain_id"`
	EscrowAddress common.Address        `db:"escrow_address"`
	Status        IncomingWebhookStatus `db:"status"`
	Retry
	CreatedAt *time.Time `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

type IncomingWebhooksRepo interface {
	Create(ctx context.Context, webhook *IncomingWebhook) error
	GetByChainIDAndAddress(ctx context.Context, chainID int64, address common.Address) (*IncomingWebhook, error)
	FindByStatus(ctx context.Context, status IncomingWebhookStatus, maxRetryCount int) ([]*IncomingWebhook, error)
	Update(ctx context.Context, webhook *IncomingWebhook) error
}
