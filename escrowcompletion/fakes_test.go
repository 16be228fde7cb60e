package escrowcompletion_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/humanprotocol/reputation-oracle/config"
	"github.com/humanprotocol/reputation-oracle/contract"
	"github.com/humanprotocol/reputation-oracle/entity"
	"github.com/humanprotocol/reputation-oracle/web3"
)

const (
	testChainID     = 80002
	manifestURL     = "http://storage/manifest.json"
	intermediateURL = "http://storage/intermediate.json"
	finalURL        = "http://storage/final.json"
)

var (
	escrowAddress  = common.HexToAddress("0xABC0000000000000000000000000000000000001")
	operator       = common.HexToAddress("0x0000000000000000000000000000000000000010")
	launcher       = common.HexToAddress("0x0000000000000000000000000000000000000011")
	exchangeOracle = common.HexToAddress("0x0000000000000000000000000000000000000012")
)

func testConfig(maxRetryCount, maxItems int) *config.Config {
	return &config.Config{
		Chains: map[string]*config.ChainConfig{
			"polygon-amoy": {Name: "polygon-amoy", ChainID: testChainID, BulkPayoutMaxItems: maxItems},
		},
		Settlement: &config.SettlementConfig{MaxRetryCount: maxRetryCount},
		Webhook:    &config.WebhookConfig{Timeout: time.Second},
	}
}

type sentPayout struct {
	nonce    uint64
	gasPrice *big.Int
	payout   *web3.BulkPayout
}

// fakeChain keeps escrow state in memory. A mined bulk payout moves the escrow
// to Paid, complete and cancel move it to their terminal states.
type fakeChain struct {
	mu          sync.Mutex
	status      contract.EscrowStatus
	statusErr   error
	webhookURLs map[common.Address]string
	nextNonce   uint64
	sendErrs    []error
	built       []uint64
	sent        []sentPayout
	finalized   []string
}

func newFakeChain(status contract.EscrowStatus) *fakeChain {
	return &fakeChain{
		status: status,
		webhookURLs: map[common.Address]string{
			launcher:       "http://launcher/webhook",
			exchangeOracle: "http://exchange/webhook",
		},
	}
}

func (c *fakeChain) Address() common.Address { return operator }

func (c *fakeChain) GetStatus(context.Context, int64, common.Address) (contract.EscrowStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.statusErr
}

func (c *fakeChain) GetManifestURL(context.Context, int64, common.Address) (string, error) {
	return manifestURL, nil
}

func (c *fakeChain) GetIntermediateResultsURL(context.Context, int64, common.Address) (string, error) {
	return intermediateURL, nil
}

func (c *fakeChain) GetJobLauncher(context.Context, int64, common.Address) (common.Address, error) {
	return launcher, nil
}

func (c *fakeChain) GetExchangeOracle(context.Context, int64, common.Address) (common.Address, error) {
	return exchangeOracle, nil
}

func (c *fakeChain) GetRecordingOracle(context.Context, int64, common.Address) (common.Address, error) {
	return common.HexToAddress("0x13"), nil
}

func (c *fakeChain) GetOperator(_ context.Context, _ int64, address common.Address) (*web3.Operator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &web3.Operator{Address: address, WebhookURL: c.webhookURLs[address]}, nil
}

func (c *fakeChain) CalculateGasPrice(context.Context, int64) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (c *fakeChain) BuildBulkPayoutTx(_ context.Context, _ int64, escrow common.Address, payout *web3.BulkPayout, opts web3.TxOptions) (*types.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	nonce := c.nextNonce
	if opts.Nonce != nil {
		nonce = *opts.Nonce
	} else {
		c.nextNonce++
	}
	c.built = append(c.built, nonce)
	data, err := json.Marshal(payout)
	if err != nil {
		return nil, err
	}
	return types.NewTx(&types.LegacyTx{Nonce: nonce, To: &escrow, GasPrice: opts.GasPrice, Data: data}), nil
}

func (c *fakeChain) SendTransaction(_ context.Context, _ int64, tx *types.Transaction) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sendErrs) > 0 {
		err := c.sendErrs[0]
		c.sendErrs = c.sendErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	var payout web3.BulkPayout
	if err := json.Unmarshal(tx.Data(), &payout); err != nil {
		return nil, err
	}
	c.sent = append(c.sent, sentPayout{nonce: tx.Nonce(), gasPrice: tx.GasPrice(), payout: &payout})
	c.status = contract.EscrowStatusPaid
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func (c *fakeChain) Complete(context.Context, int64, common.Address, *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finalized = append(c.finalized, "complete")
	c.status = contract.EscrowStatusComplete
	return nil
}

func (c *fakeChain) Cancel(context.Context, int64, common.Address, *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finalized = append(c.finalized, "cancel")
	c.status = contract.EscrowStatusCancelled
	return nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]interface{}
}

func newFakeStorage(workers ...common.Address) *fakeStorage {
	results := make([]map[string]interface{}, len(workers))
	for i, w := range workers {
		results[i] = map[string]interface{}{"workerAddress": w.Hex(), "solution": "fortune"}
	}
	return &fakeStorage{objects: map[string]interface{}{
		manifestURL:     map[string]interface{}{"requestType": "fortune", "fundAmount": len(workers), "submissionsRequired": len(workers)},
		intermediateURL: results,
	}}
}

func (s *fakeStorage) DownloadJSON(_ context.Context, url string, v interface{}) error {
	s.mu.Lock()
	obj, ok := s.objects[url]
	s.mu.Unlock()
	if !ok {
		return errors.New("object not found")
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (s *fakeStorage) UploadJSON(_ context.Context, v interface{}) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[finalURL] = v
	return finalURL, "final-hash", nil
}

func (s *fakeStorage) CopyFromURL(context.Context, string) (string, string, error) {
	return "", "", errors.New("not supported")
}

type fakeNotifier struct {
	mu      sync.Mutex
	err     error
	created map[string]entity.OutgoingWebhookPayload
}

func (n *fakeNotifier) CreateOutgoingWebhook(_ context.Context, payload entity.OutgoingWebhookPayload, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	if n.created == nil {
		n.created = make(map[string]entity.OutgoingWebhookPayload)
	}
	n.created[url] = payload
	return nil
}

type fakeAssessor struct {
	calls int
	err   error
}

func (a *fakeAssessor) AssessEscrowParties(context.Context, int64, common.Address) error {
	a.calls++
	return a.err
}

func workers(n int) []common.Address {
	res := make([]common.Address, n)
	for i := range res {
		res[i] = common.BigToAddress(big.NewInt(int64(1000 + n - i)))
	}
	return res
}
