package memory_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/entity"
	"github.com/humanprotocol/reputation-oracle/repository/memory"
)

var escrowAddress = common.HexToAddress("0xABC0000000000000000000000000000000000001")

func TestEscrowCompletionsRepo_Create(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewEscrowCompletionsRepo()

	first := &entity.EscrowCompletion{ChainID: 80002, EscrowAddress: escrowAddress, Status: entity.EscrowCompletionStatusPending}
	require.NoError(t, repo.Create(ctx, first))
	require.NotZero(t, first.ID)

	err := repo.Create(ctx, &entity.EscrowCompletion{ChainID: 80002, EscrowAddress: escrowAddress, Status: entity.EscrowCompletionStatusPending})
	require.True(t, db.IsDuplicate(err))

	require.NoError(t, repo.Create(ctx, &entity.EscrowCompletion{ChainID: 1, EscrowAddress: escrowAddress, Status: entity.EscrowCompletionStatusPending}))

	_, err = repo.GetByChainIDAndAddress(ctx, 80002, common.HexToAddress("0x01"))
	require.ErrorIs(t, err, db.ErrNotFound)
}

func TestEscrowCompletionsRepo_FindByStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewEscrowCompletionsRepo()
	now := time.Now()

	ready := &entity.EscrowCompletion{ChainID: 1, EscrowAddress: common.HexToAddress("0x01"), Status: entity.EscrowCompletionStatusPending}
	ready.WaitUntil = now.Add(-time.Second)
	delayed := &entity.EscrowCompletion{ChainID: 1, EscrowAddress: common.HexToAddress("0x02"), Status: entity.EscrowCompletionStatusPending}
	delayed.WaitUntil = now.Add(time.Hour)
	exhausted := &entity.EscrowCompletion{ChainID: 1, EscrowAddress: common.HexToAddress("0x03"), Status: entity.EscrowCompletionStatusPending}
	exhausted.RetriesCount = 6
	other := &entity.EscrowCompletion{ChainID: 1, EscrowAddress: common.HexToAddress("0x04"), Status: entity.EscrowCompletionStatusPaid}
	for _, c := range []*entity.EscrowCompletion{ready, delayed, exhausted, other} {
		require.NoError(t, repo.Create(ctx, c))
	}

	found, err := repo.FindByStatus(ctx, entity.EscrowCompletionStatusPending, 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, ready.ID, found[0].ID)

	all, err := repo.FindAllByStatus(ctx, 1, entity.EscrowCompletionStatusPending)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestPayoutsBatchesRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewPayoutsBatchesRepo()

	batch := &entity.PayoutsBatch{
		EscrowCompletionID: 1,
		Payouts:            entity.Payouts{{Address: common.HexToAddress("0x01"), Amount: big.NewInt(10)}},
		PayoutsHash:        "hash",
	}
	require.NoError(t, repo.Create(ctx, batch))
	require.True(t, db.IsDuplicate(repo.Create(ctx, &entity.PayoutsBatch{EscrowCompletionID: 1, PayoutsHash: "hash"})))
	require.NoError(t, repo.Create(ctx, &entity.PayoutsBatch{EscrowCompletionID: 2, PayoutsHash: "hash"}))

	nonce := uint64(7)
	batch.TxNonce = &nonce
	require.NoError(t, repo.Update(ctx, batch))

	batches, err := repo.FindByEscrowCompletionID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Equal(t, uint64(7), *batches[0].TxNonce)

	require.NoError(t, repo.Delete(ctx, batch.ID))
	batches, err = repo.FindByEscrowCompletionID(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, batches)
}

func TestReputationsRepo_Increase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewReputationsRepo()
	addr := common.HexToAddress("0x01")

	require.NoError(t, repo.Increase(ctx, 1, addr, entity.ReputationRoleJobLauncher, 1))
	require.NoError(t, repo.Increase(ctx, 1, addr, entity.ReputationRoleJobLauncher, 1))
	require.NoError(t, repo.Increase(ctx, 1, addr, entity.ReputationRoleExchangeOracle, 1))

	reputations, err := repo.FindByAddress(ctx, 1, addr)
	require.NoError(t, err)
	require.Len(t, reputations, 2)
	require.Equal(t, entity.ReputationRoleExchangeOracle, reputations[0].Role)
	require.Equal(t, 1, reputations[0].ReputationPoints)
	require.Equal(t, 2, reputations[1].ReputationPoints)
}
