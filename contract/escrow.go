package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/humanprotocol/reputation-oracle/contract/abi"
	"github.com/humanprotocol/reputation-oracle/ethclient"
)

type EscrowStatus uint8

// Values follow the on-chain enum order.
const (
	EscrowStatusLaunched EscrowStatus = iota
	EscrowStatusPending
	EscrowStatusPartial
	EscrowStatusPaid
	EscrowStatusComplete
	EscrowStatusCancelled
	EscrowStatusToCancel
)

var escrowStatusNames = [...]string{"Launched", "Pending", "Partial", "Paid", "Complete", "Cancelled", "ToCancel"}

func (s EscrowStatus) String() string {
	if int(s) < len(escrowStatusNames) {
		return escrowStatusNames[s]
	}
	return fmt.Sprintf("EscrowStatus(%d)", uint8(s))
}

type EscrowContract struct {
	*Contract
}

func NewEscrowContract(client ethclient.Client, addr common.Address) *EscrowContract {
	return &EscrowContract{NewContract(client, addr, abi.EscrowABI)}
}

func (c *EscrowContract) Status(ctx context.Context) (EscrowStatus, error) {
	res, err := c.Call(ctx, "status")
	if err != nil {
		return 0, err
	}
	status, ok := res.(uint8)
	if !ok {
		return 0, fmt.Errorf("status returned %T instead of uint8: %w", res, abi.ErrUnexpectedOutput)
	}
	return EscrowStatus(status), nil
}

func (c *EscrowContract) ManifestURL(ctx context.Context) (string, error) {
	return c.callString(ctx, "manifestUrl")
}

func (c *EscrowContract) IntermediateResultsURL(ctx context.Context) (string, error) {
	return c.callString(ctx, "intermediateResultsUrl")
}

func (c *EscrowContract) Launcher(ctx context.Context) (common.Address, error) {
	return c.callAddress(ctx, "launcher")
}

func (c *EscrowContract) ExchangeOracle(ctx context.Context) (common.Address, error) {
	return c.callAddress(ctx, "exchangeOracle")
}

func (c *EscrowContract) RecordingOracle(ctx context.Context) (common.Address, error) {
	return c.callAddress(ctx, "recordingOracle")
}

func (c *EscrowContract) PackBulkPayOut(recipients []common.Address, amounts []*big.Int, url, hash, payoutID string) ([]byte, error) {
	return c.Pack("bulkPayOut", recipients, amounts, url, hash, payoutID, false)
}

func (c *EscrowContract) PackComplete() ([]byte, error) {
	return c.Pack("complete")
}

func (c *EscrowContract) PackCancel() ([]byte, error) {
	return c.Pack("cancel")
}
