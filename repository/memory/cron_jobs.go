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

type cronJobsRepo struct {
	mu     sync.RWMutex
	lastID uint
	rows   map[entity.CronJobType]*entity.CronJob
}

func NewCronJobsRepo() entity.CronJobsRepo {
	return &cronJobsRepo{
		rows: make(map[entity.CronJobType]*entity.CronJob),
	}
}

func (r *cronJobsRepo) GetByType(_ context.Context, jobType entity.CronJobType) (*entity.CronJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[jobType]
	if !ok {
		return nil, fmt.Errorf("can't get cron job: %w", db.ErrNotFound)
	}
	cp := *row
	return &cp, nil
}

func (r *cronJobsRepo) Start(_ context.Context, jobType entity.CronJobType, startedAt time.Time) (*entity.CronJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	row, ok := r.rows[jobType]
	if !ok {
		r.lastID++
		row = &entity.CronJob{
			ID:          r.lastID,
			CronJobType: jobType,
			CreatedAt:   &now,
		}
		r.rows[jobType] = row
	}
	row.StartedAt = startedAt
	row.CompletedAt = nil
	row.UpdatedAt = &now
	cp := *row
	return &cp, nil
}

func (r *cronJobsRepo) Update(_ context.Context, job *entity.CronJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[job.CronJobType]
	if !ok || row.ID != job.ID {
		return fmt.Errorf("can't update cron job: %w", db.ErrNotFound)
	}
	now := time.Now()
	job.UpdatedAt = &now
	cp := *job
	r.rows[job.CronJobType] = &cp
	return nil
}

type reputationKey struct {
	chainID int64
	address common.Address
	role    entity.ReputationRole
}

type reputationsRepo struct {
	mu     sync.RWMutex
	lastID uint
	rows   map[reputationKey]*entity.Reputation
}

func NewReputationsRepo() entity.ReputationsRepo {
	return &reputationsRepo{
		rows: make(map[reputationKey]*entity.Reputation),
	}
}

func (r *reputationsRepo) Increase(_ context.Context, chainID int64, address common.Address, role entity.ReputationRole, points int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	key := reputationKey{chainID, address, role}
	row, ok := r.rows[key]
	if !ok {
		r.lastID++
		row = &entity.Reputation{
			ID:        r.lastID,
			ChainID:   chainID,
			Address:   address,
			Role:      role,
			CreatedAt: &now,
		}
		r.rows[key] = row
	}
	row.ReputationPoints += points
	row.UpdatedAt = &now
	return nil
}

func (r *reputationsRepo) FindByAddress(_ context.Context, chainID int64, address common.Address) ([]*entity.Reputation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]*entity.Reputation, 0, 4)
	for key, row := range r.rows {
		if key.chainID == chainID && key.address == address {
			cp := *row
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Role < res[j].Role })
	return res, nil
}
