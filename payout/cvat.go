package payout

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/humanprotocol/reputation-oracle/entity"
)

const (
	cvatAnnotationsFile    = "resulting_annotations.zip"
	cvatValidationMetaFile = "validation_meta.json"
)

var ErrNoAnnotationsMeta = errors.New("no annotations meta found")

type CvatAnnotationMeta struct {
	Jobs    []CvatJobMeta    `json:"jobs"`
	Results []CvatResultMeta `json:"results"`
}

type CvatJobMeta struct {
	JobID         int64 `json:"job_id"`
	FinalResultID int64 `json:"final_result_id"`
}

type CvatResultMeta struct {
	ID                     int64   `json:"id"`
	JobID                  int64   `json:"job_id"`
	AnnotatorWalletAddress string  `json:"annotator_wallet_address"`
	AnnotationQuality      float64 `json:"annotation_quality"`
}

type cvatProcessor struct {
	storage Storage
	chain   Chain
}

func (p *cvatProcessor) intermediateURL(ctx context.Context, escrow *Escrow, file string) (string, error) {
	base, err := p.chain.GetIntermediateResultsURL(ctx, escrow.ChainID, escrow.Address)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(base, "/") + "/" + file, nil
}

func (p *cvatProcessor) StoreResults(ctx context.Context, escrow *Escrow, _ *Manifest) (*Results, error) {
	src, err := p.intermediateURL(ctx, escrow, cvatAnnotationsFile)
	if err != nil {
		return nil, err
	}
	url, hash, err := p.storage.CopyFromURL(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("can't copy annotations: %w", err)
	}
	return &Results{URL: url, Hash: hash}, nil
}

func (p *cvatProcessor) CalculatePayouts(ctx context.Context, escrow *Escrow, manifest *Manifest, _ string) (entity.Payouts, error) {
	src, err := p.intermediateURL(ctx, escrow, cvatValidationMetaFile)
	if err != nil {
		return nil, err
	}
	var meta CvatAnnotationMeta
	if err = p.storage.DownloadJSON(ctx, src, &meta); err != nil {
		return nil, fmt.Errorf("can't download validation meta: %w", err)
	}
	if len(meta.Jobs) == 0 && len(meta.Results) == 0 {
		return nil, ErrNoAnnotationsMeta
	}

	bounty, err := manifest.JobBounty.Units(tokenDecimals)
	if err != nil {
		return nil, fmt.Errorf("can't parse job bounty: %w", err)
	}

	results := make(map[int64]*CvatResultMeta, len(meta.Results))
	for i := range meta.Results {
		results[meta.Results[i].ID] = &meta.Results[i]
	}
	totals := make(map[common.Address]*big.Int)
	var order []common.Address
	for _, job := range meta.Jobs {
		res, ok := results[job.FinalResultID]
		if !ok || !common.IsHexAddress(res.AnnotatorWalletAddress) {
			continue
		}
		addr := common.HexToAddress(res.AnnotatorWalletAddress)
		if _, ok = totals[addr]; !ok {
			totals[addr] = new(big.Int)
			order = append(order, addr)
		}
		totals[addr].Add(totals[addr], bounty)
	}

	payouts := make(entity.Payouts, len(order))
	for i, addr := range order {
		payouts[i] = entity.Payout{Address: addr, Amount: totals[addr]}
	}
	return payouts, nil
}
