package alerts

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lib/pq"

	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/entity"
)

type DBAlertsProvider struct {
	db  *db.DB
	now func() time.Time
}

func NewDBAlertsProvider(db *db.DB) *DBAlertsProvider {
	return &DBAlertsProvider{
		db:  db,
		now: time.Now,
	}
}

type FailedRecords struct {
	ChainID int64  `db:"chain_id" json:"chain_id,string"`
	Count   uint64 `db:"count" json:"_value,string"`
}

func (p *DBAlertsProvider) findFailed(ctx context.Context, table string, status string, params *AlertJobParams) (interface{}, error) {
	q, args, err := sq.Select("chain_id", "COUNT(*) as count").
		From(table).
		Where(sq.Eq{"status": status}).
		Where(sq.Expr("chain_id = ANY(?)", pq.Array(params.ChainIDs))).
		GroupBy("chain_id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	res := make([]FailedRecords, 0, len(params.ChainIDs))
	err = p.db.SelectContext(ctx, &res, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select alerts: %w", err)
	}
	return res, nil
}

func (p *DBAlertsProvider) FindFailedEscrowCompletions(ctx context.Context, params *AlertJobParams) (interface{}, error) {
	return p.findFailed(ctx, "escrow_completions", string(entity.EscrowCompletionStatusFailed), params)
}

func (p *DBAlertsProvider) FindFailedIncomingWebhooks(ctx context.Context, params *AlertJobParams) (interface{}, error) {
	return p.findFailed(ctx, "incoming_webhooks", string(entity.IncomingWebhookStatusFailed), params)
}

type FailedOutgoingWebhooks struct {
	URL   string `db:"url" json:"url"`
	Count uint64 `db:"count" json:"_value,string"`
}

func (p *DBAlertsProvider) FindFailedOutgoingWebhooks(ctx context.Context, _ *AlertJobParams) (interface{}, error) {
	q, args, err := sq.Select("url", "COUNT(*) as count").
		From("outgoing_webhooks").
		Where(sq.Eq{"status": string(entity.OutgoingWebhookStatusFailed)}).
		GroupBy("url").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	res := make([]FailedOutgoingWebhooks, 0, 5)
	err = p.db.SelectContext(ctx, &res, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select alerts: %w", err)
	}
	return res, nil
}

type StuckEscrowCompletion struct {
	ChainID       int64          `db:"chain_id" json:"chain_id,string"`
	EscrowAddress common.Address `db:"escrow_address" json:"escrow_address"`
	Age           int64          `db:"age" json:"_value,string"`
}

func (p *DBAlertsProvider) FindStuckAwaitingPayouts(ctx context.Context, params *AlertJobParams) (interface{}, error) {
	q, args, err := sq.Select("chain_id", "escrow_address", "EXTRACT(EPOCH FROM now() - updated_at)::int as age").
		From("escrow_completions").
		Where(sq.Eq{"status": string(entity.EscrowCompletionStatusAwaitingPayouts)}).
		Where(sq.Expr("chain_id = ANY(?)", pq.Array(params.ChainIDs))).
		Where(sq.Lt{"updated_at": p.now().Add(-params.StuckAfter)}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	res := make([]StuckEscrowCompletion, 0, 5)
	err = p.db.SelectContext(ctx, &res, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select alerts: %w", err)
	}
	return res, nil
}

type StuckPayoutsBatch struct {
	ChainID       int64          `db:"chain_id" json:"chain_id,string"`
	EscrowAddress common.Address `db:"escrow_address" json:"escrow_address"`
	BatchID       uint           `db:"batch_id" json:"batch_id,string"`
	TxNonce       uint64         `db:"tx_nonce" json:"tx_nonce,string"`
	Age           int64          `db:"age" json:"_value,string"`
}

func (p *DBAlertsProvider) FindStuckPayoutsBatches(ctx context.Context, params *AlertJobParams) (interface{}, error) {
	q, args, err := sq.Select("ec.chain_id", "ec.escrow_address", "pb.id as batch_id", "pb.tx_nonce", "EXTRACT(EPOCH FROM now() - pb.updated_at)::int as age").
		From("payouts_batches pb").
		Join("escrow_completions ec ON ec.id = pb.escrow_completion_id").
		Where(sq.NotEq{"pb.tx_nonce": nil}).
		Where(sq.Expr("ec.chain_id = ANY(?)", pq.Array(params.ChainIDs))).
		Where(sq.Lt{"pb.updated_at": p.now().Add(-params.StuckAfter)}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	res := make([]StuckPayoutsBatch, 0, 5)
	err = p.db.SelectContext(ctx, &res, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select alerts: %w", err)
	}
	return res, nil
}
