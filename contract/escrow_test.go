package contract_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/humanprotocol/reputation-oracle/contract"
	"github.com/humanprotocol/reputation-oracle/contract/abi"
)

type callClient struct {
	outputs map[string][]byte
	abi     abi.ABI
	lastTo  *common.Address
}

func (c *callClient) ChainID() int64 { return 1338 }

func (c *callClient) CallContract(_ context.Context, msg ethereum.CallMsg) ([]byte, error) {
	c.lastTo = msg.To
	method, err := c.abi.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	out, ok := c.outputs[method.Name]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

func (c *callClient) PendingNonceAt(context.Context, common.Address) (uint64, error) { return 0, nil }
func (c *callClient) SuggestGasPrice(context.Context) (*big.Int, error)              { return nil, nil }
func (c *callClient) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error)  { return 0, nil }
func (c *callClient) SendTransaction(context.Context, *types.Transaction) error      { return nil }
func (c *callClient) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

func mustPackOutput(t *testing.T, a abi.ABI, method string, values ...interface{}) []byte {
	t.Helper()
	out, err := a.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	return out
}

func TestEscrowContract(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	escrowAddr := common.HexToAddress("0xABC0000000000000000000000000000000000001")
	launcher := common.HexToAddress("0x01")
	client := &callClient{
		abi: abi.EscrowABI,
		outputs: map[string][]byte{
			"status":                 mustPackOutput(t, abi.EscrowABI, "status", uint8(contract.EscrowStatusToCancel)),
			"manifestUrl":            mustPackOutput(t, abi.EscrowABI, "manifestUrl", "http://storage/manifest.json"),
			"intermediateResultsUrl": mustPackOutput(t, abi.EscrowABI, "intermediateResultsUrl", "http://storage/results"),
			"launcher":               mustPackOutput(t, abi.EscrowABI, "launcher", launcher),
		},
	}
	escrow := contract.NewEscrowContract(client, escrowAddr)

	status, err := escrow.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, contract.EscrowStatusToCancel, status)
	require.Equal(t, "ToCancel", status.String())
	require.Equal(t, escrowAddr, *client.lastTo)

	url, err := escrow.ManifestURL(ctx)
	require.NoError(t, err)
	require.Equal(t, "http://storage/manifest.json", url)

	url, err = escrow.IntermediateResultsURL(ctx)
	require.NoError(t, err)
	require.Equal(t, "http://storage/results", url)

	addr, err := escrow.Launcher(ctx)
	require.NoError(t, err)
	require.Equal(t, launcher, addr)

	_, err = escrow.ExchangeOracle(ctx)
	require.Error(t, err)
}

func TestEscrowStatus_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Pending", contract.EscrowStatusPending.String())
	require.Equal(t, "Cancelled", contract.EscrowStatusCancelled.String())
	require.Equal(t, "EscrowStatus(42)", contract.EscrowStatus(42).String())
}

func TestKVStoreContract_Get(t *testing.T) {
	t.Parallel()

	client := &callClient{
		abi: abi.KVStoreABI,
		outputs: map[string][]byte{
			"get": mustPackOutput(t, abi.KVStoreABI, "get", "https://oracle.example/webhook"),
		},
	}
	kvstore := contract.NewKVStoreContract(client, common.HexToAddress("0x02"))

	url, err := kvstore.Get(context.Background(), common.HexToAddress("0x01"), contract.KVStoreKeyWebhookURL)
	require.NoError(t, err)
	require.Equal(t, "https://oracle.example/webhook", url)
}
