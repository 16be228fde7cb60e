package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/entity"
)

type payoutsBatchesRepo basePostgresRepo

func NewPayoutsBatchesRepo(table string, db *db.DB) entity.PayoutsBatchesRepo {
	return (*payoutsBatchesRepo)(newBasePostgresRepo(table, db))
}

func (r *payoutsBatchesRepo) Create(ctx context.Context, batch *entity.PayoutsBatch) error {
	q, args, err := sq.Insert(r.table).
		Columns("escrow_completion_id", "payouts", "payouts_hash", "tx_nonce").
		Values(batch.EscrowCompletionID, batch.Payouts, batch.PayoutsHash, batch.TxNonce).
		Suffix("RETURNING id, created_at, updated_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	err = r.db.GetContext(ctx, batch, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert payouts batch: %w", err)
	}
	return nil
}

func (r *payoutsBatchesRepo) FindByEscrowCompletionID(ctx context.Context, escrowCompletionID uint) ([]*entity.PayoutsBatch, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"escrow_completion_id": escrowCompletionID}).
		OrderBy("id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	batches := make([]*entity.PayoutsBatch, 0, 4)
	err = r.db.SelectContext(ctx, &batches, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select payouts batches: %w", err)
	}
	return batches, nil
}

func (r *payoutsBatchesRepo) Update(ctx context.Context, batch *entity.PayoutsBatch) error {
	q, args, err := sq.Update(r.table).
		Set("tx_nonce", batch.TxNonce).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": batch.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't update payouts batch: %w", err)
	}
	return nil
}

func (r *payoutsBatchesRepo) Delete(ctx context.Context, id uint) error {
	q, args, err := sq.Delete(r.table).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't delete payouts batch: %w", err)
	}
	return nil
}
