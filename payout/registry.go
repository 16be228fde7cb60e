package payout

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/humanprotocol/reputation-oracle/contract"
	"github.com/humanprotocol/reputation-oracle/entity"
)

var ErrUnknownJobKind = errors.New("unknown job kind")

const tokenDecimals = 18

type Storage interface {
	DownloadJSON(ctx context.Context, url string, v interface{}) error
	UploadJSON(ctx context.Context, v interface{}) (string, string, error)
	CopyFromURL(ctx context.Context, srcURL string) (string, string, error)
}

type Chain interface {
	GetIntermediateResultsURL(ctx context.Context, chainID int64, address common.Address) (string, error)
}

type Escrow struct {
	ChainID int64
	Address common.Address
	Status  contract.EscrowStatus
}

type Results struct {
	URL  string
	Hash string
}

// Processor stores the final results of a job kind and turns them into payouts.
type Processor interface {
	StoreResults(ctx context.Context, escrow *Escrow, manifest *Manifest) (*Results, error)
	CalculatePayouts(ctx context.Context, escrow *Escrow, manifest *Manifest, finalResultsURL string) (entity.Payouts, error)
}

type Registry struct {
	processors map[JobKind]Processor
}

func NewRegistry(storage Storage, chain Chain) *Registry {
	cvat := &cvatProcessor{storage: storage, chain: chain}
	return &Registry{
		processors: map[JobKind]Processor{
			JobKindFortune:                 &fortuneProcessor{storage: storage, chain: chain},
			JobKindImagePoints:             cvat,
			JobKindImageBoxes:              cvat,
			JobKindImageBoxesFromPoints:    cvat,
			JobKindImageSkeletonsFromBoxes: cvat,
			JobKindImagePolygons:           cvat,
		},
	}
}

func (r *Registry) Resolve(kind JobKind) (Processor, error) {
	p, ok := r.processors[kind]
	if !ok {
		return nil, fmt.Errorf("job kind %q: %w", kind, ErrUnknownJobKind)
	}
	return p, nil
}
