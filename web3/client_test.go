package web3_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/humanprotocol/reputation-oracle/config"
	"github.com/humanprotocol/reputation-oracle/contract/abi"
	"github.com/humanprotocol/reputation-oracle/web3"
)

const (
	testChainID = 1338
	testKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

var testAccount = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

type fakeEthClient struct {
	mu            sync.Mutex
	pendingNonce  uint64
	gasPrice      *big.Int
	sendErr       error
	receiptStatus uint64
	notFoundTimes int
	kvstoreValue  string
	sent          []*types.Transaction
}

func (c *fakeEthClient) ChainID() int64 { return testChainID }

func (c *fakeEthClient) CallContract(_ context.Context, msg ethereum.CallMsg) ([]byte, error) {
	method, err := abi.KVStoreABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(c.kvstoreValue)
}

func (c *fakeEthClient) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return c.pendingNonce, nil
}

func (c *fakeEthClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	return c.gasPrice, nil
}

func (c *fakeEthClient) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 100000, nil
}

func (c *fakeEthClient) SendTransaction(_ context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, tx)
	return nil
}

func (c *fakeEthClient) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notFoundTimes > 0 {
		c.notFoundTimes--
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: c.receiptStatus, BlockNumber: big.NewInt(10)}, nil
}

func newTestClient(t *testing.T, eth *fakeEthClient, multiplier float64) *web3.Client {
	t.Helper()
	key, err := web3.ParsePrivateKey(testKey)
	require.NoError(t, err)
	chain := web3.NewChain(&config.ChainConfig{
		Name:                "localhost",
		ChainID:             testChainID,
		KVStoreAddress:      common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		GasPriceMultiplier:  multiplier,
		ConfirmationTimeout: time.Second,
	}, eth)
	client := web3.NewClient(logrus.New(), key, chain)
	client.SetPollInterval(time.Millisecond)
	return client
}

func TestClient_Address(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, &fakeEthClient{}, 1)
	require.Equal(t, testAccount, client.Address())
}

func TestClient_UnknownChain(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, &fakeEthClient{}, 1)
	_, err := client.GetStatus(context.Background(), 1, common.HexToAddress("0x01"))
	require.ErrorIs(t, err, web3.ErrUnknownChain)
}

func TestClient_CalculateGasPrice(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	price, err := newTestClient(t, &fakeEthClient{gasPrice: big.NewInt(1000)}, 1).CalculateGasPrice(ctx, testChainID)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1000), price)

	price, err = newTestClient(t, &fakeEthClient{gasPrice: big.NewInt(1000)}, 1.5).CalculateGasPrice(ctx, testChainID)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1500), price)
}

func TestReplacementGasPrice(t *testing.T) {
	t.Parallel()

	require.Equal(t, big.NewInt(112), web3.ReplacementGasPrice(big.NewInt(100)))
	require.Equal(t, big.NewInt(2), web3.ReplacementGasPrice(big.NewInt(1)))

	price := big.NewInt(30_000_000_000)
	bumped := web3.ReplacementGasPrice(price)
	require.Equal(t, big.NewInt(30_000_000_000), price)
	require.Positive(t, bumped.Cmp(new(big.Int).Div(new(big.Int).Mul(price, big.NewInt(110)), big.NewInt(100))))
}

func TestClient_GetOperator(t *testing.T) {
	t.Parallel()

	operator := common.HexToAddress("0x0000000000000000000000000000000000000abc")
	client := newTestClient(t, &fakeEthClient{kvstoreValue: "https://oracle.example/webhook"}, 1)
	res, err := client.GetOperator(context.Background(), testChainID, operator)
	require.NoError(t, err)
	require.Equal(t, &web3.Operator{Address: operator, WebhookURL: "https://oracle.example/webhook"}, res)
}

func TestClient_BuildBulkPayoutTx(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eth := &fakeEthClient{pendingNonce: 7, gasPrice: big.NewInt(1000)}
	client := newTestClient(t, eth, 1)
	escrow := common.HexToAddress("0x0000000000000000000000000000000000000abc")
	payout := &web3.BulkPayout{
		Recipients:       []common.Address{common.HexToAddress("0x01")},
		Amounts:          []*big.Int{big.NewInt(10)},
		ResultsURL:       "http://storage/results.json",
		ResultsHash:      "hash",
		IdempotencyToken: "2c4a230c-5085-4924-a3e1-25fb4fc5965b",
	}

	tx, err := client.BuildBulkPayoutTx(ctx, testChainID, escrow, payout, web3.TxOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 7, tx.Nonce())
	require.Equal(t, escrow, *tx.To())
	require.EqualValues(t, 120000, tx.Gas())
	require.Equal(t, big.NewInt(1000), tx.GasPrice())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(testChainID)), tx)
	require.NoError(t, err)
	require.Equal(t, testAccount, sender)

	method, err := abi.EscrowABI.MethodById(tx.Data()[:4])
	require.NoError(t, err)
	require.Equal(t, "bulkPayOut", method.Name)

	nonce := uint64(3)
	tx, err = client.BuildBulkPayoutTx(ctx, testChainID, escrow, payout, web3.TxOptions{GasPrice: big.NewInt(5), Nonce: &nonce})
	require.NoError(t, err)
	require.EqualValues(t, 3, tx.Nonce())
	require.Equal(t, big.NewInt(5), tx.GasPrice())
}

func TestClient_SendTransaction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	escrow := common.HexToAddress("0x0000000000000000000000000000000000000abc")
	build := func(t *testing.T, client *web3.Client) *types.Transaction {
		t.Helper()
		tx, err := client.BuildBulkPayoutTx(ctx, testChainID, escrow, &web3.BulkPayout{}, web3.TxOptions{})
		require.NoError(t, err)
		return tx
	}

	t.Run("mined", func(t *testing.T) {
		t.Parallel()
		eth := &fakeEthClient{gasPrice: big.NewInt(1), receiptStatus: types.ReceiptStatusSuccessful, notFoundTimes: 2}
		client := newTestClient(t, eth, 1)
		receipt, err := client.SendTransaction(ctx, testChainID, build(t, client))
		require.NoError(t, err)
		require.Equal(t, big.NewInt(10), receipt.BlockNumber)
		require.Len(t, eth.sent, 1)
	})

	t.Run("reverted", func(t *testing.T) {
		t.Parallel()
		eth := &fakeEthClient{gasPrice: big.NewInt(1), receiptStatus: types.ReceiptStatusFailed}
		client := newTestClient(t, eth, 1)
		_, err := client.SendTransaction(ctx, testChainID, build(t, client))
		require.ErrorIs(t, err, web3.ErrTxFailed)
	})

	for _, msg := range []string{"nonce too low", "NONCE_EXPIRED", "replacement transaction underpriced", "already known"} {
		msg := msg
		t.Run(msg, func(t *testing.T) {
			t.Parallel()
			eth := &fakeEthClient{gasPrice: big.NewInt(1), sendErr: errors.New(msg)}
			client := newTestClient(t, eth, 1)
			_, err := client.SendTransaction(ctx, testChainID, build(t, client))
			require.ErrorIs(t, err, web3.ErrNonceConflict)
		})
	}

	t.Run("other send error", func(t *testing.T) {
		t.Parallel()
		eth := &fakeEthClient{gasPrice: big.NewInt(1), sendErr: errors.New("insufficient funds for gas")}
		client := newTestClient(t, eth, 1)
		_, err := client.SendTransaction(ctx, testChainID, build(t, client))
		require.Error(t, err)
		require.False(t, errors.Is(err, web3.ErrNonceConflict))
	})

	t.Run("confirmation timeout", func(t *testing.T) {
		t.Parallel()
		eth := &fakeEthClient{gasPrice: big.NewInt(1), notFoundTimes: 1 << 30}
		client := newTestClient(t, eth, 1)
		_, err := client.SendTransaction(ctx, testChainID, build(t, client))
		require.ErrorIs(t, err, web3.ErrConfirmationTimeout)
	})
}
