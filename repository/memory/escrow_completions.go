package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/entity"
)

type escrowCompletionsRepo struct {
	mu     sync.RWMutex
	lastID uint
	rows   map[uint]*entity.EscrowCompletion
	keys   map[naturalKey]uint
}

func NewEscrowCompletionsRepo() entity.EscrowCompletionsRepo {
	return &escrowCompletionsRepo{
		rows: make(map[uint]*entity.EscrowCompletion),
		keys: make(map[naturalKey]uint),
	}
}

func (r *escrowCompletionsRepo) Create(_ context.Context, completion *entity.EscrowCompletion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := naturalKey{completion.ChainID, completion.EscrowAddress}
	if _, ok := r.keys[key]; ok {
		return fmt.Errorf("can't insert escrow completion: %w", db.ErrDuplicate)
	}
	r.lastID++
	now := time.Now()
	completion.ID = r.lastID
	completion.CreatedAt = &now
	completion.UpdatedAt = &now
	row := *completion
	r.rows[row.ID] = &row
	r.keys[key] = row.ID
	return nil
}

func (r *escrowCompletionsRepo) GetByChainIDAndAddress(_ context.Context, chainID int64, address common.Address) (*entity.EscrowCompletion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.keys[naturalKey{chainID, address}]
	if !ok {
		return nil, fmt.Errorf("can't get escrow completion: %w", db.ErrNotFound)
	}
	row := *r.rows[id]
	return &row, nil
}

func (r *escrowCompletionsRepo) FindByStatus(_ context.Context, status entity.EscrowCompletionStatus, maxRetryCount int) ([]*entity.EscrowCompletion, error) {
	now := time.Now()
	return r.filter(func(row *entity.EscrowCompletion) bool {
		return row.Status == status && row.RetriesCount <= maxRetryCount && !row.WaitUntil.After(now)
	}), nil
}

func (r *escrowCompletionsRepo) FindAllByStatus(_ context.Context, chainID int64, status entity.EscrowCompletionStatus) ([]*entity.EscrowCompletion, error) {
	return r.filter(func(row *entity.EscrowCompletion) bool {
		return row.ChainID == chainID && row.Status == status
	}), nil
}

func (r *escrowCompletionsRepo) filter(match func(row *entity.EscrowCompletion) bool) []*entity.EscrowCompletion {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]*entity.EscrowCompletion, 0, len(r.rows))
	for _, row := range r.rows {
		if match(row) {
			cp := *row
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (r *escrowCompletionsRepo) Update(_ context.Context, completion *entity.EscrowCompletion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[completion.ID]; !ok {
		return fmt.Errorf("can't update escrow completion: %w", db.ErrNotFound)
	}
	now := time.Now()
	completion.UpdatedAt = &now
	row := *completion
	r.rows[row.ID] = &row
	return nil
}

type batchKey struct {
	escrowCompletionID uint
	hash               string
}

type payoutsBatchesRepo struct {
	mu     sync.RWMutex
	lastID uint
	rows   map[uint]*entity.PayoutsBatch
	keys   map[batchKey]uint
}

func NewPayoutsBatchesRepo() entity.PayoutsBatchesRepo {
	return &payoutsBatchesRepo{
		rows: make(map[uint]*entity.PayoutsBatch),
		keys: make(map[batchKey]uint),
	}
}

func (r *payoutsBatchesRepo) Create(_ context.Context, batch *entity.PayoutsBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := batchKey{batch.EscrowCompletionID, batch.PayoutsHash}
	if _, ok := r.keys[key]; ok {
		return fmt.Errorf("can't insert payouts batch: %w", db.ErrDuplicate)
	}
	r.lastID++
	now := time.Now()
	batch.ID = r.lastID
	batch.CreatedAt = &now
	batch.UpdatedAt = &now
	r.rows[batch.ID] = copyBatch(batch)
	r.keys[key] = batch.ID
	return nil
}

func (r *payoutsBatchesRepo) FindByEscrowCompletionID(_ context.Context, escrowCompletionID uint) ([]*entity.PayoutsBatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]*entity.PayoutsBatch, 0, 4)
	for _, row := range r.rows {
		if row.EscrowCompletionID == escrowCompletionID {
			res = append(res, copyBatch(row))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *payoutsBatchesRepo) Update(_ context.Context, batch *entity.PayoutsBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[batch.ID]
	if !ok {
		return fmt.Errorf("can't update payouts batch: %w", db.ErrNotFound)
	}
	row.TxNonce = nil
	if batch.TxNonce != nil {
		nonce := *batch.TxNonce
		row.TxNonce = &nonce
	}
	now := time.Now()
	row.UpdatedAt = &now
	return nil
}

func (r *payoutsBatchesRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil
	}
	delete(r.keys, batchKey{row.EscrowCompletionID, row.PayoutsHash})
	delete(r.rows, id)
	return nil
}

func copyBatch(batch *entity.PayoutsBatch) *entity.PayoutsBatch {
	cp := *batch
	cp.Payouts = append(entity.Payouts(nil), batch.Payouts...)
	if batch.TxNonce != nil {
		nonce := *batch.TxNonce
		cp.TxNonce = &nonce
	}
	return &cp
}
