package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/humanprotocol/reputation-oracle/config"
)

const testCfg = `
chains:
  polygon-amoy:
    rpc:
      host: https://polygon-amoy.infura.io/v3/${INFURA_PROJECT_KEY}
      timeout: 20s
    chain_id: 80002
    kvstore_address: 0x724AeFC243EdacCA27EAB86D3ec5a76Af4436Fc7
    bulk_payout_max_items: 50
  localhost:
    rpc:
      host: http://127.0.0.1:8545
    chain_id: 1338
    kvstore_address: 0x5FbDB2315678afecb367f032d93F642f64180aa3
    gas_price_multiplier: 1.5
postgres:
  user: test_user
  password: test_password
  host: test_host
  port: 5432
  database: test_db
log_level: debug
settlement:
  backoff_interval: 30s
cron:
  process_awaiting_escrow_payouts: "*/5 * * * *"
web3:
  private_key: ${WEB3_PRIVATE_KEY}
storage:
  endpoint: http://minio:9000
  bucket: reputation
presenter:
  host: 0.0.0.0:5001
`

//nolint:paralleltest
func TestReadConfigWithEnv(t *testing.T) {
	t.Setenv("INFURA_PROJECT_KEY", "12345678")
	t.Setenv("WEB3_PRIVATE_KEY", "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	cfg, err := config.ReadConfigWithEnv([]byte(testCfg))
	require.NoError(t, err)
	require.Equal(t, &config.Config{
		Chains: map[string]*config.ChainConfig{
			"polygon-amoy": {
				Name: "polygon-amoy",
				RPC: &config.RPCConfig{
					Host:    "https://polygon-amoy.infura.io/v3/12345678",
					Timeout: 20 * time.Second,
				},
				ChainID:             80002,
				KVStoreAddress:      common.HexToAddress("0x724AeFC243EdacCA27EAB86D3ec5a76Af4436Fc7"),
				BulkPayoutMaxItems:  50,
				GasPriceMultiplier:  1,
				ConfirmationTimeout: 2 * time.Minute,
			},
			"localhost": {
				Name: "localhost",
				RPC: &config.RPCConfig{
					Host:    "http://127.0.0.1:8545",
					Timeout: 30 * time.Second,
				},
				ChainID:             1338,
				KVStoreAddress:      common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
				BulkPayoutMaxItems:  99,
				GasPriceMultiplier:  1.5,
				ConfirmationTimeout: 2 * time.Minute,
			},
		},
		DBConfig: &config.DBConfig{
			User:     "test_user",
			Password: "test_password",
			Host:     "test_host",
			Port:     5432,
			DB:       "test_db",
		},
		LogLevel: logrus.DebugLevel,
		Settlement: &config.SettlementConfig{
			MaxRetryCount:   5,
			BackoffInterval: 30 * time.Second,
		},
		Cron: &config.CronConfig{
			ProcessPendingIncomingWebhook:          "@every 2m",
			ProcessPendingEscrowCompletionTracking: "@every 2m",
			ProcessAwaitingEscrowPayouts:           "*/5 * * * *",
			ProcessPaidEscrowCompletionTracking:    "@every 2m",
			ProcessPendingOutgoingWebhook:          "@every 2m",
		},
		Web3: &config.Web3Config{
			PrivateKey: "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
		},
		Webhook: &config.WebhookConfig{
			Timeout: 10 * time.Second,
		},
		Storage: &config.StorageConfig{
			Endpoint: "http://minio:9000",
			Bucket:   "reputation",
			Timeout:  30 * time.Second,
		},
		Alerts: &config.AlertsConfig{
			Interval:   time.Minute,
			Timeout:    10 * time.Second,
			StuckAfter: time.Hour,
		},
		Presenter: &config.PresenterConfig{
			Host: "0.0.0.0:5001",
		},
	}, cfg)

	require.Equal(t, "localhost", cfg.GetChainConfig(1338).Name)
	require.Nil(t, cfg.GetChainConfig(1))
	require.ElementsMatch(t, []int64{80002, 1338}, cfg.ChainIDs())
}

func TestReadConfig_Invalid(t *testing.T) {
	t.Parallel()

	for name, blob := range map[string]string{
		"no chains": `
web3:
  private_key: abc
`,
		"no private key": `
chains:
  localhost:
    rpc:
      host: http://127.0.0.1:8545
    chain_id: 1338
`,
		"bad cron": `
chains:
  localhost:
    rpc:
      host: http://127.0.0.1:8545
    chain_id: 1338
web3:
  private_key: abc
cron:
  process_pending_outgoing_webhook: every two minutes
`,
		"duplicate chain id": `
chains:
  a:
    rpc:
      host: http://127.0.0.1:8545
    chain_id: 1338
  b:
    rpc:
      host: http://127.0.0.1:8546
    chain_id: 1338
web3:
  private_key: abc
`,
	} {
		blob := blob
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := config.ReadConfig([]byte(blob))
			require.Error(t, err)
			require.True(t, errors.Is(err, config.ErrInvalidConfig))
		})
	}
}

func TestReadConfig_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := config.ReadConfig([]byte(`
chains:
  localhost:
    rpc:
      host: http://127.0.0.1:8545
    chain_id: 1338
    start_block: 10
web3:
  private_key: abc
`))
	require.Error(t, err)
}
