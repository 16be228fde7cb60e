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

type naturalKey struct {
	chainID int64
	address common.Address
}

type incomingWebhooksRepo struct {
	mu     sync.RWMutex
	lastID uint
	rows   map[uint]*entity.IncomingWebhook
	keys   map[naturalKey]uint
}

func NewIncomingWebhooksRepo() entity.IncomingWebhooksRepo {
	return &incomingWebhooksRepo{
		rows: make(map[uint]*entity.IncomingWebhook),
		keys: make(map[naturalKey]uint),
	}
}

func (r *incomingWebhooksRepo) Create(_ context.Context, webhook *entity.IncomingWebhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := naturalKey{webhook.ChainID, webhook.EscrowAddress}
	if _, ok := r.keys[key]; ok {
		return fmt.Errorf("can't insert incoming webhook: %w", db.ErrDuplicate)
	}
	r.lastID++
	now := time.Now()
	webhook.ID = r.lastID
	webhook.CreatedAt = &now
	webhook.UpdatedAt = &now
	row := *webhook
	r.rows[row.ID] = &row
	r.keys[key] = row.ID
	return nil
}

func (r *incomingWebhooksRepo) GetByChainIDAndAddress(_ context.Context, chainID int64, address common.Address) (*entity.IncomingWebhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.keys[naturalKey{chainID, address}]
	if !ok {
		return nil, fmt.Errorf("can't get incoming webhook: %w", db.ErrNotFound)
	}
	row := *r.rows[id]
	return &row, nil
}

func (r *incomingWebhooksRepo) FindByStatus(_ context.Context, status entity.IncomingWebhookStatus, maxRetryCount int) ([]*entity.IncomingWebhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	res := make([]*entity.IncomingWebhook, 0, len(r.rows))
	for _, row := range r.rows {
		if row.Status == status && row.RetriesCount <= maxRetryCount && !row.WaitUntil.After(now) {
			cp := *row
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *incomingWebhooksRepo) Update(_ context.Context, webhook *entity.IncomingWebhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[webhook.ID]; !ok {
		return fmt.Errorf("can't update incoming webhook: %w", db.ErrNotFound)
	}
	now := time.Now()
	webhook.UpdatedAt = &now
	row := *webhook
	r.rows[row.ID] = &row
	return nil
}

type outgoingWebhooksRepo struct {
	mu     sync.RWMutex
	lastID uint
	rows   map[uint]*entity.OutgoingWebhook
	hashes map[string]uint
}

func NewOutgoingWebhooksRepo() entity.OutgoingWebhooksRepo {
	return &outgoingWebhooksRepo{
		rows:   make(map[uint]*entity.OutgoingWebhook),
		hashes: make(map[string]uint),
	}
}

func (r *outgoingWebhooksRepo) Create(_ context.Context, webhook *entity.OutgoingWebhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.hashes[webhook.Hash]; ok {
		return fmt.Errorf("can't insert outgoing webhook: %w", db.ErrDuplicate)
	}
	r.lastID++
	now := time.Now()
	webhook.ID = r.lastID
	webhook.CreatedAt = &now
	webhook.UpdatedAt = &now
	row := *webhook
	r.rows[row.ID] = &row
	r.hashes[row.Hash] = row.ID
	return nil
}

func (r *outgoingWebhooksRepo) FindByStatus(_ context.Context, status entity.OutgoingWebhookStatus, maxRetryCount int) ([]*entity.OutgoingWebhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	res := make([]*entity.OutgoingWebhook, 0, len(r.rows))
	for _, row := range r.rows {
		if row.Status == status && row.RetriesCount <= maxRetryCount && !row.WaitUntil.After(now) {
			cp := *row
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *outgoingWebhooksRepo) Update(_ context.Context, webhook *entity.OutgoingWebhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[webhook.ID]; !ok {
		return fmt.Errorf("can't update outgoing webhook: %w", db.ErrNotFound)
	}
	now := time.Now()
	webhook.UpdatedAt = &now
	row := *webhook
	r.rows[row.ID] = &row
	return nil
}
