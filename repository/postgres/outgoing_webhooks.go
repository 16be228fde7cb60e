package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/entity"
)

type outgoingWebhooksRepo basePostgresRepo

func NewOutgoingWebhooksRepo(table string, db *db.DB) entity.OutgoingWebhooksRepo {
	return (*outgoingWebhooksRepo)(newBasePostgresRepo(table, db))
}

func (r *outgoingWebhooksRepo) Create(ctx context.Context, webhook *entity.OutgoingWebhook) error {
	q, args, err := sq.Insert(r.table).
		Columns("payload", "hash", "url", "status", "retries_count", "wait_until").
		Values(webhook.Payload, webhook.Hash, webhook.URL, webhook.Status, webhook.RetriesCount, webhook.WaitUntil).
		Suffix("RETURNING id, created_at, updated_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	err = r.db.GetContext(ctx, webhook, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert outgoing webhook: %w", err)
	}
	return nil
}

func (r *outgoingWebhooksRepo) FindByStatus(ctx context.Context, status entity.OutgoingWebhookStatus, maxRetryCount int) ([]*entity.OutgoingWebhook, error) {
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
	webhooks := make([]*entity.OutgoingWebhook, 0, 10)
	err = r.db.SelectContext(ctx, &webhooks, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select outgoing webhooks: %w", err)
	}
	return webhooks, nil
}

func (r *outgoingWebhooksRepo) Update(ctx context.Context, webhook *entity.OutgoingWebhook) error {
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
		return fmt.Errorf("can't update outgoing webhook: %w", err)
	}
	return nil
}
