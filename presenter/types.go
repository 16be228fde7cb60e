package presenter

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/humanprotocol/reputation-oracle/entity"
)

type StatusResult struct {
	Status string `json:"status"`
}

type PayoutInfo struct {
	Address common.Address `json:"address"`
	Amount  *big.Int       `json:"amount"`
}

type PayoutsBatchInfo struct {
	ID          uint          `json:"id"`
	PayoutsHash string        `json:"payouts_hash"`
	TxNonce     *uint64       `json:"tx_nonce"`
	Payouts     []*PayoutInfo `json:"payouts"`
}

type EscrowCompletionInfo struct {
	ChainID          int64                         `json:"chain_id"`
	EscrowAddress    common.Address                `json:"escrow_address"`
	Status           entity.EscrowCompletionStatus `json:"status"`
	RetriesCount     int                           `json:"retries_count"`
	WaitUntil        time.Time                     `json:"wait_until"`
	FailureDetail    *string                       `json:"failure_detail"`
	FinalResultsURL  *string                       `json:"final_results_url"`
	FinalResultsHash *string                       `json:"final_results_hash"`
	PayoutsBatches   []*PayoutsBatchInfo           `json:"payouts_batches"`
	CreatedAt        *time.Time                    `json:"created_at"`
	UpdatedAt        *time.Time                    `json:"updated_at"`
}

type ReputationInfo struct {
	Role             entity.ReputationRole `json:"role"`
	ReputationPoints int                   `json:"reputation_points"`
	UpdatedAt        *time.Time            `json:"updated_at"`
}

type ReputationResult struct {
	ChainID     int64             `json:"chain_id"`
	Address     common.Address    `json:"address"`
	Reputations []*ReputationInfo `json:"reputations"`
}

func escrowCompletionToInfo(completion *entity.EscrowCompletion, batches []*entity.PayoutsBatch) *EscrowCompletionInfo {
	info := &EscrowCompletionInfo{
		ChainID:          completion.ChainID,
		EscrowAddress:    completion.EscrowAddress,
		Status:           completion.Status,
		RetriesCount:     completion.RetriesCount,
		WaitUntil:        completion.WaitUntil,
		FailureDetail:    completion.FailureDetail,
		FinalResultsURL:  completion.FinalResultsURL,
		FinalResultsHash: completion.FinalResultsHash,
		PayoutsBatches:   make([]*PayoutsBatchInfo, len(batches)),
		CreatedAt:        completion.CreatedAt,
		UpdatedAt:        completion.UpdatedAt,
	}
	for i, batch := range batches {
		payouts := make([]*PayoutInfo, len(batch.Payouts))
		for j, p := range batch.Payouts {
			payouts[j] = &PayoutInfo{Address: p.Address, Amount: p.Amount}
		}
		info.PayoutsBatches[i] = &PayoutsBatchInfo{
			ID:          batch.ID,
			PayoutsHash: batch.PayoutsHash,
			TxNonce:     batch.TxNonce,
			Payouts:     payouts,
		}
	}
	return info
}
