package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/ethereum/go-ethereum/common"

	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/entity"
)

type incomingWebhooksRepo basePostgresRepo

func NewIncomingWebhooksRepo(table string, db *db.DB) entity.IncomingWebhooksRepo {
	return (*incomingWebhooksRepo)(newBasePostgresRepo(table, db))
}

func (r *incomingWebhooksRepo) Create(ctx context.Context, webhook *entity.IncomingWebhook) error {
	q, args, err := sq.Insert(r.table).
		Columns("chain_id", "escrow_address", "status", "retries_count", "wait_until").
		Values(webhook.ChainID, webhook.EscrowAddress, webhook.Status, webhook.RetriesCount, webhook.WaitUntil).
		Suffix("RETURNING id, created_at, updated_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	err = r.db.GetContext(ctx, webhook, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert incoming webhook: %w", err)
	}
	return nil
}

func (r *incomingWebhooksRepo) GetByChainIDAndAddress(ctx context.Context, chainID int64, address common.Address) (*entity.IncomingWebhook, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID, "escrow_address": address}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	webhook := new(entity.IncomingWebhook)
	err = r.db.GetContext(ctx, webhook, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get incoming webhook: %w", err)
	}
	return webhook, nil
}

func (r *incomingWebhooksRepo) FindByStatus(ctx context.Context, status entity.IncomingWebhookStatus, maxRetryCount int) ([]*entity.IncomingWebhook, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"status": status}).
		Where(sq.LtOrEq{"retries_count": maxRetryCount}).
		Where("wait_until <= NOW()").
		OrderBy("created_at ASC", "id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	webhooks := make([]*entity.IncomingWebhook, 0, 10)
	err = r.db.SelectContext(ctx, &webhooks, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select incoming webhooks: %w", err)
	}
	return webhooks, nil
}

func (r *incomingWebhooksRepo) Update(ctx context.Context, webhook *entity.IncomingWebhook) error {
	q, args, err := sq.Update(r.table).
		Set("status", webhook.Status).
		Set("retries_count", webhook.RetriesCount).
		Set("wait_until", webhook.WaitUntil).
		Set("failure_detail", webhook.FailureDetail).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": webhook.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't update incoming webhook: %w", err)
	}
	return nil
}
