package entity

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Payout struct {
	Address common.Address `json:"address"`
	Amount  *big.Int       `json:"amount"`
}

type Payouts []Payout

func (p Payouts) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *Payouts) Scan(src interface{}) error {
	return scanJSON(src, p)
}

func (p Payouts) Recipients() []common.Address {
	res := make([]common.Address, len(p))
	for i, payout := range p {
		res[i] = payout.Address
	}
	return res
}

func (p Payouts) Amounts() []*big.Int {
	res := make([]*big.Int, len(p))
	for i, payout := range p {
		res[i] = payout.Amount
	}
	return res
}

type PayoutsBatch struct {
	ID                 uint       `db:"id"`
	EscrowCompletionID uint       `db:"escrow_completion_id"`
	Payouts            Payouts    `db:"payouts"`
	PayoutsHash        string     `db:"payouts_hash"`
	TxNonce            *uint64    `db:"tx_nonce"`
	CreatedAt          *time.Time `db:"created_at"`
	UpdatedAt          *time.Time `db:"updated_at"`
}

type PayoutsBatchesRepo interface {
	Create(ctx context.Context, batch *PayoutsBatch) error
	FindByEscrowCompletionID(ctx context.Context, escrowCompletionID uint) ([]*PayoutsBatch, error)
	Update(ctx context.Context, batch *PayoutsBatch) error
	Delete(ctx context.Context, id uint) error
}

func scanJSON(src interface{}, dest interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		return nil
	default:
		return fmt.Errorf("can't scan %T into %T", src, dest)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("can't unmarshal json column: %w", err)
	}
	return nil
}
