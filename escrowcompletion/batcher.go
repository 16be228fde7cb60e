package escrowcompletion

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/entity"
	"github.com/humanprotocol/reputation-oracle/logging"
	"github.com/humanprotocol/reputation-oracle/web3"
)

type PayoutChain interface {
	CalculateGasPrice(ctx context.Context, chainID int64) (*big.Int, error)
	BuildBulkPayoutTx(ctx context.Context, chainID int64, escrow common.Address, payout *web3.BulkPayout, opts web3.TxOptions) (*types.Transaction, error)
	SendTransaction(ctx context.Context, chainID int64, tx *types.Transaction) (*types.Receipt, error)
}

// Batcher persists payouts in bounded batches and settles every batch with a
// single bulkPayOut transaction. The nonce picked for a batch is stored before
// the transaction is broadcast, so a retried settlement replaces the same
// transaction instead of paying twice.
type Batcher struct {
	logger logging.Logger
	repo   entity.PayoutsBatchesRepo
	chain  PayoutChain
}

func NewBatcher(logger logging.Logger, repo entity.PayoutsBatchesRepo, chain PayoutChain) *Batcher {
	return &Batcher{
		logger: logger,
		repo:   repo,
		chain:  chain,
	}
}

// SortPayouts orders payouts by recipient address, ascending.
func SortPayouts(payouts entity.Payouts) entity.Payouts {
	res := make(entity.Payouts, len(payouts))
	copy(res, payouts)
	sort.SliceStable(res, func(i, j int) bool {
		return bytes.Compare(res[i].Address[:], res[j].Address[:]) < 0
	})
	return res
}

func ChunkPayouts(payouts entity.Payouts, size int) []entity.Payouts {
	if size <= 0 {
		size = len(payouts)
	}
	var chunks []entity.Payouts
	for len(payouts) > 0 {
		n := size
		if n > len(payouts) {
			n = len(payouts)
		}
		chunks = append(chunks, payouts[:n:n])
		payouts = payouts[n:]
	}
	return chunks
}

type canonicalPayout struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// HashPayouts returns the hex sha1 of the canonical JSON form of payouts.
func HashPayouts(payouts entity.Payouts) (string, error) {
	canonical := make([]canonicalPayout, len(payouts))
	for i, p := range payouts {
		canonical[i] = canonicalPayout{
			Address: strings.ToLower(p.Address.Hex()),
			Amount:  p.Amount.String(),
		}
	}
	data, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("can't encode payouts: %w", err)
	}
	sum := sha1.Sum(data) //nolint:gosec
	return hex.EncodeToString(sum[:]), nil
}

func (b *Batcher) CreateBatch(ctx context.Context, escrowCompletionID uint, payouts entity.Payouts) (*entity.PayoutsBatch, error) {
	hash, err := HashPayouts(payouts)
	if err != nil {
		return nil, err
	}
	batch := &entity.PayoutsBatch{
		EscrowCompletionID: escrowCompletionID,
		Payouts:            payouts,
		PayoutsHash:        hash,
	}
	if err = b.repo.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("can't create payouts batch: %w", err)
	}
	return batch, nil
}

// CreateBatches sorts payouts and stores them in chunks of at most maxItems.
// Chunks stored by a previous attempt are skipped. Every chunk is attempted
// before the first failure is returned.
func (b *Batcher) CreateBatches(ctx context.Context, completion *entity.EscrowCompletion, payouts entity.Payouts, maxItems int) error {
	chunks := ChunkPayouts(SortPayouts(payouts), maxItems)
	logger := b.logger.WithFields(logrus.Fields{
		"chain_id":       completion.ChainID,
		"escrow_address": completion.EscrowAddress,
		"payouts":        len(payouts),
		"batches":        len(chunks),
	})

	var failed int32
	var g errgroup.Group
	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			_, err := b.CreateBatch(ctx, completion.ID, chunk)
			if db.IsDuplicate(err) {
				logger.Debug("payouts batch already exists")
				return nil
			}
			if err != nil {
				atomic.AddInt32(&failed, 1)
				logger.WithError(err).Warn("can't create payouts batch")
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%d of %d payouts batches failed: %w", atomic.LoadInt32(&failed), len(chunks), err)
	}
	logger.Info("created payouts batches")
	return nil
}

// SettleBatch pays out a single batch and deletes it once the transaction is
// mined. On a nonce conflict the stored nonce is cleared so that the next
// attempt picks a fresh one.
func (b *Batcher) SettleBatch(ctx context.Context, completion *entity.EscrowCompletion, batch *entity.PayoutsBatch) error {
	logger := b.logger.WithFields(logrus.Fields{
		"chain_id":       completion.ChainID,
		"escrow_address": completion.EscrowAddress,
		"batch_id":       batch.ID,
	})
	if !completion.HasFinalResults() {
		return fmt.Errorf("escrow completion %d has no final results", completion.ID)
	}

	gasPrice, err := b.chain.CalculateGasPrice(ctx, completion.ChainID)
	if err != nil {
		return err
	}
	if batch.TxNonce != nil {
		// A previous attempt may still be pending at this nonce.
		gasPrice = web3.ReplacementGasPrice(gasPrice)
	}
	tx, err := b.chain.BuildBulkPayoutTx(ctx, completion.ChainID, completion.EscrowAddress, &web3.BulkPayout{
		Recipients:       batch.Payouts.Recipients(),
		Amounts:          batch.Payouts.Amounts(),
		ResultsURL:       *completion.FinalResultsURL,
		ResultsHash:      *completion.FinalResultsHash,
		IdempotencyToken: uuid.NewString(),
	}, web3.TxOptions{
		GasPrice: gasPrice,
		Nonce:    batch.TxNonce,
	})
	if err != nil {
		return fmt.Errorf("can't build bulk payout transaction: %w", err)
	}

	if batch.TxNonce == nil {
		nonce := tx.Nonce()
		batch.TxNonce = &nonce
		if err = b.repo.Update(ctx, batch); err != nil {
			return fmt.Errorf("can't persist batch nonce: %w", err)
		}
	}
	logger = logger.WithFields(logrus.Fields{
		"tx_hash": tx.Hash(),
		"nonce":   tx.Nonce(),
	})

	if _, err = b.chain.SendTransaction(ctx, completion.ChainID, tx); err != nil {
		if errors.Is(err, web3.ErrNonceConflict) {
			logger.WithError(err).Warn("nonce conflict, clearing batch nonce")
			batch.TxNonce = nil
			if err2 := b.repo.Update(ctx, batch); err2 != nil {
				logger.WithError(err2).Error("can't clear batch nonce")
			}
		}
		return err
	}

	if err = b.repo.Delete(ctx, batch.ID); err != nil {
		return fmt.Errorf("can't delete settled payouts batch: %w", err)
	}
	logger.Info("settled payouts batch")
	return nil
}
