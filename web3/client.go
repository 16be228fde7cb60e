package web3

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/humanprotocol/reputation-oracle/config"
	"github.com/humanprotocol/reputation-oracle/contract"
	"github.com/humanprotocol/reputation-oracle/ethclient"
	"github.com/humanprotocol/reputation-oracle/logging"
	"github.com/humanprotocol/reputation-oracle/utils"
)

var (
	ErrUnknownChain        = errors.New("chain is not configured")
	ErrNonceConflict       = errors.New("nonce conflict")
	ErrTxFailed            = errors.New("transaction execution failed")
	ErrConfirmationTimeout = errors.New("transaction was not mined in time")
)

const (
	defaultPollInterval = 2 * time.Second
	gasLimitHeadroom    = 12 // tenths
	// Nodes only accept a transaction replacing a pending one at the same
	// nonce when its gas price is at least 10% higher.
	replacementBumpPercent = 12
)

// Messages returned by geth, erigon and bor style nodes when a nonce is stale
// or already taken by another pending transaction.
var nonceConflictMessages = []string{
	"nonce too low",
	"nonce has already been used",
	"nonce expired",
	"nonce_expired",
	"invalid nonce",
	"already known",
	"replacement transaction underpriced",
}

type Chain struct {
	cfg     *config.ChainConfig
	client  ethclient.Client
	kvstore *contract.KVStoreContract
}

func NewChain(cfg *config.ChainConfig, client ethclient.Client) *Chain {
	return &Chain{
		cfg:     cfg,
		client:  client,
		kvstore: contract.NewKVStoreContract(client, cfg.KVStoreAddress),
	}
}

type BulkPayout struct {
	Recipients       []common.Address
	Amounts          []*big.Int
	ResultsURL       string
	ResultsHash      string
	IdempotencyToken string
}

type TxOptions struct {
	GasPrice *big.Int
	Nonce    *uint64
}

type Operator struct {
	Address    common.Address
	WebhookURL string
}

// Client is the chain facade used by the settlement pipeline. Every
// transaction is signed by the single operator key.
type Client struct {
	logger       logging.Logger
	key          *ecdsa.PrivateKey
	from         common.Address
	chains       map[int64]*Chain
	pollInterval time.Duration
}

func NewClient(logger logging.Logger, key *ecdsa.PrivateKey, chains ...*Chain) *Client {
	c := &Client{
		logger:       logger,
		key:          key,
		from:         crypto.PubkeyToAddress(key.PublicKey),
		chains:       make(map[int64]*Chain, len(chains)),
		pollInterval: defaultPollInterval,
	}
	for _, chain := range chains {
		c.chains[chain.cfg.ChainID] = chain
	}
	return c
}

// Dial connects to every configured chain.
func Dial(logger logging.Logger, cfg *config.Config) (*Client, error) {
	key, err := ParsePrivateKey(cfg.Web3.PrivateKey)
	if err != nil {
		return nil, err
	}
	chains := make([]*Chain, 0, len(cfg.Chains))
	for _, chainCfg := range cfg.Chains {
		client, err2 := ethclient.NewClient(chainCfg.RPC.Host, chainCfg.RPC.Timeout, chainCfg.ChainID)
		if err2 != nil {
			return nil, fmt.Errorf("can't dial rpc client for chain %s: %w", chainCfg.Name, err2)
		}
		chains = append(chains, NewChain(chainCfg, client))
	}
	return NewClient(logger, key, chains...), nil
}

func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("can't parse private key: %w", err)
	}
	return key, nil
}

func (c *Client) Address() common.Address {
	return c.from
}

func (c *Client) SignMessage(data []byte) (string, error) {
	return utils.SignMessage(data, c.key)
}

func (c *Client) chain(chainID int64) (*Chain, error) {
	chain, ok := c.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("chain %d: %w", chainID, ErrUnknownChain)
	}
	return chain, nil
}

func (c *Client) escrow(chainID int64, address common.Address) (*contract.EscrowContract, error) {
	chain, err := c.chain(chainID)
	if err != nil {
		return nil, err
	}
	return contract.NewEscrowContract(chain.client, address), nil
}

func (c *Client) GetStatus(ctx context.Context, chainID int64, address common.Address) (contract.EscrowStatus, error) {
	escrow, err := c.escrow(chainID, address)
	if err != nil {
		return 0, err
	}
	status, err := escrow.Status(ctx)
	if err != nil {
		return 0, fmt.Errorf("can't get escrow status: %w", err)
	}
	return status, nil
}

func (c *Client) GetManifestURL(ctx context.Context, chainID int64, address common.Address) (string, error) {
	escrow, err := c.escrow(chainID, address)
	if err != nil {
		return "", err
	}
	url, err := escrow.ManifestURL(ctx)
	if err != nil {
		return "", fmt.Errorf("can't get escrow manifest url: %w", err)
	}
	return url, nil
}

func (c *Client) GetIntermediateResultsURL(ctx context.Context, chainID int64, address common.Address) (string, error) {
	escrow, err := c.escrow(chainID, address)
	if err != nil {
		return "", err
	}
	url, err := escrow.IntermediateResultsURL(ctx)
	if err != nil {
		return "", fmt.Errorf("can't get escrow intermediate results url: %w", err)
	}
	return url, nil
}

func (c *Client) GetJobLauncher(ctx context.Context, chainID int64, address common.Address) (common.Address, error) {
	escrow, err := c.escrow(chainID, address)
	if err != nil {
		return common.Address{}, err
	}
	return escrow.Launcher(ctx)
}

func (c *Client) GetExchangeOracle(ctx context.Context, chainID int64, address common.Address) (common.Address, error) {
	escrow, err := c.escrow(chainID, address)
	if err != nil {
		return common.Address{}, err
	}
	return escrow.ExchangeOracle(ctx)
}

func (c *Client) GetRecordingOracle(ctx context.Context, chainID int64, address common.Address) (common.Address, error) {
	escrow, err := c.escrow(chainID, address)
	if err != nil {
		return common.Address{}, err
	}
	return escrow.RecordingOracle(ctx)
}

// GetOperator reads the operator's registered webhook URL from the KV store.
func (c *Client) GetOperator(ctx context.Context, chainID int64, address common.Address) (*Operator, error) {
	chain, err := c.chain(chainID)
	if err != nil {
		return nil, err
	}
	url, err := chain.kvstore.Get(ctx, address, contract.KVStoreKeyWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("can't get operator webhook url: %w", err)
	}
	return &Operator{Address: address, WebhookURL: url}, nil
}

func (c *Client) CalculateGasPrice(ctx context.Context, chainID int64) (*big.Int, error) {
	chain, err := c.chain(chainID)
	if err != nil {
		return nil, err
	}
	suggested, err := chain.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't get gas price: %w", err)
	}
	if chain.cfg.GasPriceMultiplier == 1 {
		return suggested, nil
	}
	price := new(big.Float).SetInt(suggested)
	price.Mul(price, big.NewFloat(chain.cfg.GasPriceMultiplier))
	res, _ := price.Int(nil)
	return res, nil
}

// ReplacementGasPrice raises price enough for a transaction to replace a
// pending one sent with the same nonce.
func ReplacementGasPrice(price *big.Int) *big.Int {
	bump := new(big.Int).Mul(price, big.NewInt(replacementBumpPercent))
	bump.Div(bump, big.NewInt(100))
	if bump.Sign() == 0 {
		bump.SetInt64(1)
	}
	return bump.Add(bump, price)
}

// BuildBulkPayoutTx returns a signed bulkPayOut transaction. A pending nonce is
// requested from the node only when opts.Nonce is nil.
func (c *Client) BuildBulkPayoutTx(ctx context.Context, chainID int64, address common.Address, payout *BulkPayout, opts TxOptions) (*types.Transaction, error) {
	escrow, err := c.escrow(chainID, address)
	if err != nil {
		return nil, err
	}
	data, err := escrow.PackBulkPayOut(payout.Recipients, payout.Amounts, payout.ResultsURL, payout.ResultsHash, payout.IdempotencyToken)
	if err != nil {
		return nil, err
	}
	return c.buildTx(ctx, chainID, address, data, opts)
}

func (c *Client) Complete(ctx context.Context, chainID int64, address common.Address, gasPrice *big.Int) error {
	escrow, err := c.escrow(chainID, address)
	if err != nil {
		return err
	}
	data, err := escrow.PackComplete()
	if err != nil {
		return err
	}
	return c.buildAndSend(ctx, chainID, address, data, gasPrice, "complete")
}

func (c *Client) Cancel(ctx context.Context, chainID int64, address common.Address, gasPrice *big.Int) error {
	escrow, err := c.escrow(chainID, address)
	if err != nil {
		return err
	}
	data, err := escrow.PackCancel()
	if err != nil {
		return err
	}
	return c.buildAndSend(ctx, chainID, address, data, gasPrice, "cancel")
}

func (c *Client) buildAndSend(ctx context.Context, chainID int64, to common.Address, data []byte, gasPrice *big.Int, method string) error {
	tx, err := c.buildTx(ctx, chainID, to, data, TxOptions{GasPrice: gasPrice})
	if err != nil {
		return err
	}
	if _, err = c.SendTransaction(ctx, chainID, tx); err != nil {
		return fmt.Errorf("can't %s escrow: %w", method, err)
	}
	return nil
}

func (c *Client) buildTx(ctx context.Context, chainID int64, to common.Address, data []byte, opts TxOptions) (*types.Transaction, error) {
	chain, err := c.chain(chainID)
	if err != nil {
		return nil, err
	}
	gasPrice := opts.GasPrice
	if gasPrice == nil {
		if gasPrice, err = c.CalculateGasPrice(ctx, chainID); err != nil {
			return nil, err
		}
	}
	var nonce uint64
	if opts.Nonce != nil {
		nonce = *opts.Nonce
	} else {
		nonce, err = chain.client.PendingNonceAt(ctx, c.from)
		if err != nil {
			return nil, fmt.Errorf("can't get pending nonce: %w", err)
		}
	}
	gas, err := chain.client.EstimateGas(ctx, ethereum.CallMsg{
		From:     c.from,
		To:       &to,
		GasPrice: gasPrice,
		Data:     data,
	})
	if err != nil {
		return nil, fmt.Errorf("can't estimate gas: %w", classifySendError(err))
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas * gasLimitHeadroom / 10,
		To:       &to,
		Value:    big.NewInt(0),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(chainID)), c.key)
	if err != nil {
		return nil, fmt.Errorf("can't sign transaction: %w", err)
	}
	return signed, nil
}

// SendTransaction broadcasts tx and waits until it is mined. Stale or taken
// nonces are reported as ErrNonceConflict and reverted transactions as ErrTxFailed.
func (c *Client) SendTransaction(ctx context.Context, chainID int64, tx *types.Transaction) (*types.Receipt, error) {
	chain, err := c.chain(chainID)
	if err != nil {
		return nil, err
	}
	label := strconv.FormatInt(chainID, 10)
	logger := c.logger.WithFields(logrus.Fields{
		"chain_id": chainID,
		"tx_hash":  tx.Hash(),
		"nonce":    tx.Nonce(),
	})

	if err = chain.client.SendTransaction(ctx, tx); err != nil {
		err = classifySendError(err)
		ObserveTransaction(label, err)
		return nil, fmt.Errorf("can't send transaction: %w", err)
	}
	logger.Info("sent transaction, waiting for receipt")

	receipt, err := c.waitMined(ctx, chain, tx.Hash())
	ObserveTransaction(label, err)
	if err != nil {
		return nil, err
	}
	logger.WithField("block_number", receipt.BlockNumber).Info("transaction mined")
	return receipt, nil
}

func (c *Client) waitMined(ctx context.Context, chain *Chain, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, chain.cfg.ConfirmationTimeout)
	defer cancel()

	for {
		receipt, err := chain.client.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return nil, fmt.Errorf("transaction %s: %w", hash, ErrTxFailed)
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("can't get transaction receipt: %w", err)
		}
		if utils.ContextSleep(ctx, c.pollInterval) == nil {
			return nil, fmt.Errorf("transaction %s: %w", hash, ErrConfirmationTimeout)
		}
	}
}

func classifySendError(err error) error {
	msg := strings.ToLower(err.Error())
	for _, m := range nonceConflictMessages {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %s", ErrNonceConflict, err.Error())
		}
	}
	return err
}
