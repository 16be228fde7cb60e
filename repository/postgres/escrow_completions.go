package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/ethereum/go-ethereum/common"

	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/entity"
)

type escrowCompletionsRepo basePostgresRepo

func NewEscrowCompletionsRepo(table string, db *db.DB) entity.EscrowCompletionsRepo {
	return (*escrowCompletionsRepo)(newBasePostgresRepo(table, db))
}

func (r *escrowCompletionsRepo) Create(ctx context.Context, completion *entity.EscrowCompletion) error {
	q, args, err := sq.Insert(r.table).
		Columns("chain_id", "escrow_address", "status", "retries_count", "wait_until").
		Values(completion.ChainID, completion.EscrowAddress, completion.Status, completion.RetriesCount, completion.WaitUntil).
		Suffix("RETURNING id, created_at, updated_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	err = r.db.GetContext(ctx, completion, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert escrow completion: %w", err)
	}
	return nil
}

func (r *escrowCompletionsRepo) GetByChainIDAndAddress(ctx context.Context, chainID int64, address common.Address) (*entity.EscrowCompletion, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID, "escrow_address": address}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	completion := new(entity.EscrowCompletion)
	err = r.db.GetContext(ctx, completion, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get escrow completion: %w", err)
	}
	return completion, nil
}

func (r *escrowCompletionsRepo) FindByStatus(ctx context.Context, status entity.EscrowCompletionStatus, maxRetryCount int) ([]*entity.EscrowCompletion, error) {
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
	completions := make([]*entity.EscrowCompletion, 0, 10)
	err = r.db.SelectContext(ctx, &completions, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select escrow completions: %w", err)
	}
	return completions, nil
}

func (r *escrowCompletionsRepo) FindAllByStatus(ctx context.Context, chainID int64, status entity.EscrowCompletionStatus) ([]*entity.EscrowCompletion, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID, "status": status}).
		OrderBy("id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	completions := make([]*entity.EscrowCompletion, 0, 10)
	err = r.db.SelectContext(ctx, &completions, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select escrow completions: %w", err)
	}
	return completions, nil
}

func (r *escrowCompletionsRepo) Update(ctx context.Context, completion *entity.EscrowCompletion) error {
	q, args, err := sq.Update(r.table).
		Set("status", completion.Status).
		Set("final_results_url", completion.FinalResultsURL).
		Set("final_results_hash", completion.FinalResultsHash).
		Set("retries_count", completion.RetriesCount).
		Set("wait_until", completion.WaitUntil).
		Set("failure_detail", completion.FailureDetail).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": completion.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't update escrow completion: %w", err)
	}
	return nil
}
