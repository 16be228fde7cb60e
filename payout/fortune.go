package payout

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/humanprotocol/reputation-oracle/contract"
	"github.com/humanprotocol/reputation-oracle/entity"
)

var (
	ErrNoIntermediateResults = errors.New("no intermediate results found")
	ErrNotEnoughSolutions    = errors.New("not all required solutions have been sent")
	ErrNoRecipients          = errors.New("no valid recipients")
)

type FortuneResult struct {
	WorkerAddress string      `json:"workerAddress"`
	Solution      string      `json:"solution"`
	Error         interface{} `json:"error,omitempty"`
}

func (r *FortuneResult) Valid() bool {
	return r.Error == nil && common.IsHexAddress(r.WorkerAddress)
}

type fortuneProcessor struct {
	storage Storage
	chain   Chain
}

func (p *fortuneProcessor) StoreResults(ctx context.Context, escrow *Escrow, manifest *Manifest) (*Results, error) {
	url, err := p.chain.GetIntermediateResultsURL(ctx, escrow.ChainID, escrow.Address)
	if err != nil {
		return nil, err
	}
	var results []*FortuneResult
	if err = p.storage.DownloadJSON(ctx, url, &results); err != nil {
		return nil, fmt.Errorf("can't download intermediate results: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoIntermediateResults
	}
	// A job being cancelled is settled with whatever was submitted.
	if escrow.Status != contract.EscrowStatusToCancel {
		valid := 0
		for _, r := range results {
			if r.Valid() {
				valid++
			}
		}
		if valid < manifest.SubmissionsRequired {
			return nil, fmt.Errorf("%d of %d: %w", valid, manifest.SubmissionsRequired, ErrNotEnoughSolutions)
		}
	}

	finalURL, hash, err := p.storage.UploadJSON(ctx, results)
	if err != nil {
		return nil, fmt.Errorf("can't upload final results: %w", err)
	}
	return &Results{URL: finalURL, Hash: hash}, nil
}

func (p *fortuneProcessor) CalculatePayouts(ctx context.Context, _ *Escrow, manifest *Manifest, finalResultsURL string) (entity.Payouts, error) {
	var results []*FortuneResult
	if err := p.storage.DownloadJSON(ctx, finalResultsURL, &results); err != nil {
		return nil, fmt.Errorf("can't download final results: %w", err)
	}
	recipients := make([]common.Address, 0, len(results))
	for _, r := range results {
		if r.Valid() {
			recipients = append(recipients, common.HexToAddress(r.WorkerAddress))
		}
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	fund, err := manifest.FundAmount.Units(tokenDecimals)
	if err != nil {
		return nil, fmt.Errorf("can't parse fund amount: %w", err)
	}
	share := new(big.Int).Div(fund, big.NewInt(int64(len(recipients))))

	payouts := make(entity.Payouts, len(recipients))
	for i, addr := range recipients {
		payouts[i] = entity.Payout{Address: addr, Amount: new(big.Int).Set(share)}
	}
	return payouts, nil
}
