package entity

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type OutgoingWebhookStatus string

const (
	OutgoingWebhookStatusPending OutgoingWebhookStatus = "pending"
	OutgoingWebhookStatusSent    OutgoingWebhookStatus = "sent"
	OutgoingWebhookStatusFailed  OutgoingWebhookStatus = "failed"
)

type OutgoingWebhookEventType string

const (
	OutgoingWebhookEventEscrowCompleted OutgoingWebhookEventType = "escrow_completed"
	OutgoingWebhookEventEscrowCancelled OutgoingWebhookEventType = "escrow_cancelled"
)

type OutgoingWebhookPayload struct {
	ChainID       int64                    `json:"chainId"`
	EscrowAddress common.Address           `json:"escrowAddress"`
	EventType     OutgoingWebhookEventType `json:"eventType"`
	EventData     map[string]interface{}   `json:"eventData,omitempty"`
}

func (p OutgoingWebhookPayload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *OutgoingWebhookPayload) Scan(src interface{}) error {
	return scanJSON(src, p)
}

type OutgoingWebhook struct {
	ID      uint                   `db:"id"`
	Payload OutgoingWebhookPayload `db:"payload"`
	Hash    string                 `db:"hash"`
	URL     string                 `db:"url"`
	Status  OutgoingWebhookStatus  `db:"status"`
	Retry
	CreatedAt *time.Time `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

type OutgoingWebhooksRepo interface {
	Create(ctx context.Context, webhook *OutgoingWebhook) error
	FindByStatus(ctx context.Context, status OutgoingWebhookStatus, maxRetryCount int) ([]*OutgoingWebhook, error)
	Update(ctx context.Context, webhook *OutgoingWebhook) error
}
