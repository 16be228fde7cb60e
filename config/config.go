package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	defaultMaxRetryCount       = 5
	defaultBackoffInterval     = 2 * time.Minute
	defaultBulkPayoutMaxItems  = 99
	defaultGasPriceMultiplier  = 1
	defaultRPCTimeout          = 30 * time.Second
	defaultConfirmationTimeout = 2 * time.Minute
	defaultWebhookTimeout      = 10 * time.Second
	defaultStorageTimeout      = 30 * time.Second
	defaultCronSchedule        = "@every 2m"
	defaultAlertsInterval      = time.Minute
	defaultAlertsTimeout       = 10 * time.Second
	defaultAlertsStuckAfter    = time.Hour
)

type RPCConfig struct {
	Host    string        `yaml:"host"`
	Timeout time.Duration `yaml:"timeout"`
}

type ChainConfig struct {
	Name                string         `yaml:"-"`
	RPC                 *RPCConfig     `yaml:"rpc"`
	ChainID             int64          `yaml:"chain_id"`
	KVStoreAddress      common.Address `yaml:"kvstore_address"`
	BulkPayoutMaxItems  int            `yaml:"bulk_payout_max_items"`
	GasPriceMultiplier  float64        `yaml:"gas_price_multiplier"`
	ConfirmationTimeout time.Duration  `yaml:"confirmation_timeout"`
}

type DBConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       string `yaml:"database"`
}

type SettlementConfig struct {
	MaxRetryCount   int           `yaml:"max_retry_count"`
	BackoffInterval time.Duration `yaml:"backoff_interval"`
}

type CronConfig struct {
	ProcessPendingIncomingWebhook          string `yaml:"process_pending_incoming_webhook"`
	ProcessPendingEscrowCompletionTracking string `yaml:"process_pending_escrow_completion_tracking"`
	ProcessAwaitingEscrowPayouts           string `yaml:"process_awaiting_escrow_payouts"`
	ProcessPaidEscrowCompletionTracking    string `yaml:"process_paid_escrow_completion_tracking"`
	ProcessPendingOutgoingWebhook          string `yaml:"process_pending_outgoing_webhook"`
}

type Web3Config struct {
	PrivateKey string `yaml:"private_key"`
}

type WebhookConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Bucket   string        `yaml:"bucket"`
	Timeout  time.Duration `yaml:"timeout"`
}

type AlertsConfig struct {
	Interval   time.Duration `yaml:"interval"`
	Timeout    time.Duration `yaml:"timeout"`
	StuckAfter time.Duration `yaml:"stuck_after"`
}

type PresenterConfig struct {
	Host string `yaml:"host"`
}

type Config struct {
	Chains     map[string]*ChainConfig `yaml:"chains"`
	DBConfig   *DBConfig               `yaml:"postgres"`
	LogLevel   logrus.Level            `yaml:"log_level"`
	Settlement *SettlementConfig       `yaml:"settlement"`
	Cron       *CronConfig             `yaml:"cron"`
	Web3       *Web3Config             `yaml:"web3"`
	Webhook    *WebhookConfig          `yaml:"webhook"`
	Storage    *StorageConfig          `yaml:"storage"`
	Alerts     *AlertsConfig           `yaml:"alerts"`
	Presenter  *PresenterConfig        `yaml:"presenter"`
}

func (cfg *Config) GetChainConfig(chainID int64) *ChainConfig {
	for _, chainCfg := range cfg.Chains {
		if chainCfg.ChainID == chainID {
			return chainCfg
		}
	}
	return nil
}

func (cfg *Config) ChainIDs() []int64 {
	ids := make([]int64, 0, len(cfg.Chains))
	for _, chainCfg := range cfg.Chains {
		ids = append(ids, chainCfg.ChainID)
	}
	return ids
}

func (c *CronConfig) specs() map[string]string {
	return map[string]string{
		"process_pending_incoming_webhook":           c.ProcessPendingIncomingWebhook,
		"process_pending_escrow_completion_tracking": c.ProcessPendingEscrowCompletionTracking,
		"process_awaiting_escrow_payouts":            c.ProcessAwaitingEscrowPayouts,
		"process_paid_escrow_completion_tracking":    c.ProcessPaidEscrowCompletionTracking,
		"process_pending_outgoing_webhook":           c.ProcessPendingOutgoingWebhook,
	}
}

func ReadConfigFromFile(path string) (*Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't access config file: %w", err)
	}
	return ReadConfigWithEnv(f)
}

func ReadConfigWithEnv(blob []byte) (*Config, error) {
	return ReadConfig([]byte(os.ExpandEnv(string(blob))))
}

func ReadConfig(blob []byte) (*Config, error) {
	cfg := new(Config)
	if err := parseYaml(cfg, blob); err != nil {
		return nil, err
	}
	setDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	for name, chainCfg := range cfg.Chains {
		chainCfg.Name = name
		if chainCfg.RPC == nil {
			chainCfg.RPC = new(RPCConfig)
		}
		if chainCfg.RPC.Timeout == 0 {
			chainCfg.RPC.Timeout = defaultRPCTimeout
		}
		if chainCfg.BulkPayoutMaxItems == 0 {
			chainCfg.BulkPayoutMaxItems = defaultBulkPayoutMaxItems
		}
		if chainCfg.GasPriceMultiplier == 0 {
			chainCfg.GasPriceMultiplier = defaultGasPriceMultiplier
		}
		if chainCfg.ConfirmationTimeout == 0 {
			chainCfg.ConfirmationTimeout = defaultConfirmationTimeout
		}
	}
	if cfg.Settlement == nil {
		cfg.Settlement = new(SettlementConfig)
	}
	if cfg.Settlement.MaxRetryCount == 0 {
		cfg.Settlement.MaxRetryCount = defaultMaxRetryCount
	}
	if cfg.Settlement.BackoffInterval == 0 {
		cfg.Settlement.BackoffInterval = defaultBackoffInterval
	}
	if cfg.Cron == nil {
		cfg.Cron = new(CronConfig)
	}
	for _, spec := range []*string{
		&cfg.Cron.ProcessPendingIncomingWebhook,
		&cfg.Cron.ProcessPendingEscrowCompletionTracking,
		&cfg.Cron.ProcessAwaitingEscrowPayouts,
		&cfg.Cron.ProcessPaidEscrowCompletionTracking,
		&cfg.Cron.ProcessPendingOutgoingWebhook,
	} {
		if *spec == "" {
			*spec = defaultCronSchedule
		}
	}
	if cfg.Webhook == nil {
		cfg.Webhook = new(WebhookConfig)
	}
	if cfg.Webhook.Timeout == 0 {
		cfg.Webhook.Timeout = defaultWebhookTimeout
	}
	if cfg.Storage == nil {
		cfg.Storage = new(StorageConfig)
	}
	if cfg.Storage.Timeout == 0 {
		cfg.Storage.Timeout = defaultStorageTimeout
	}
	if cfg.Alerts == nil {
		cfg.Alerts = new(AlertsConfig)
	}
	if cfg.Alerts.Interval == 0 {
		cfg.Alerts.Interval = defaultAlertsInterval
	}
	if cfg.Alerts.Timeout == 0 {
		cfg.Alerts.Timeout = defaultAlertsTimeout
	}
	if cfg.Alerts.StuckAfter == 0 {
		cfg.Alerts.StuckAfter = defaultAlertsStuckAfter
	}
}

func validate(cfg *Config) error {
	if len(cfg.Chains) == 0 {
		return fmt.Errorf("at least one chain should be configured: %w", ErrInvalidConfig)
	}
	seen := make(map[int64]string, len(cfg.Chains))
	for name, chainCfg := range cfg.Chains {
		if chainCfg.RPC.Host == "" {
			return fmt.Errorf("rpc host for chain %s is empty: %w", name, ErrInvalidConfig)
		}
		if other, ok := seen[chainCfg.ChainID]; ok {
			return fmt.Errorf("chains %s and %s share chain_id %d: %w", other, name, chainCfg.ChainID, ErrInvalidConfig)
		}
		seen[chainCfg.ChainID] = name
		if chainCfg.BulkPayoutMaxItems < 0 {
			return fmt.Errorf("bulk_payout_max_items for chain %s should be positive: %w", name, ErrInvalidConfig)
		}
	}
	if cfg.Web3 == nil || cfg.Web3.PrivateKey == "" {
		return fmt.Errorf("web3 private key is not set: %w", ErrInvalidConfig)
	}
	if cfg.Settlement.MaxRetryCount < 0 {
		return fmt.Errorf("max_retry_count should not be negative: %w", ErrInvalidConfig)
	}
	for name, spec := range cfg.Cron.specs() {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("can't parse cron.%s %q: %v: %w", name, spec, err, ErrInvalidConfig)
		}
	}
	return nil
}
