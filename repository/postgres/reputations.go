package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/ethereum/go-ethereum/common"

	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/entity"
)

type reputationsRepo basePostgresRepo

func NewReputationsRepo(table string, db *db.DB) entity.ReputationsRepo {
	return (*reputationsRepo)(newBasePostgresRepo(table, db))
}

func (r *reputationsRepo) Increase(ctx context.Context, chainID int64, address common.Address, role entity.ReputationRole, points int) error {
	q, args, err := sq.Insert(r.table).
		Columns("chain_id", "address", "role", "reputation_points").
		Values(chainID, address, role, points).
		Suffix(fmt.Sprintf("ON CONFLICT (chain_id, address, role) DO UPDATE SET reputation_points = %s.reputation_points + EXCLUDED.reputation_points, updated_at = NOW()", r.table)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't increase reputation: %w", err)
	}
	return nil
}

func (r *reputationsRepo) FindByAddress(ctx context.Context, chainID int64, address common.Address) ([]*entity.Reputation, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID, "address": address}).
		OrderBy("role ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	reputations := make([]*entity.Reputation, 0, 4)
	err = r.db.SelectContext(ctx, &reputations, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select reputations: %w", err)
	}
	return reputations, nil
}
