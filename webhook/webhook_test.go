package webhook_test

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/humanprotocol/reputation-oracle/config"
)

const testChainID = 80002

var escrowAddress = common.HexToAddress("0xABC0000000000000000000000000000000000001")

func testConfig(maxRetryCount int) *config.Config {
	return &config.Config{
		Chains: map[string]*config.ChainConfig{
			"polygon-amoy": {Name: "polygon-amoy", ChainID: testChainID, BulkPayoutMaxItems: 99},
		},
		Settlement: &config.SettlementConfig{MaxRetryCount: maxRetryCount},
		Webhook:    &config.WebhookConfig{Timeout: time.Second},
	}
}
