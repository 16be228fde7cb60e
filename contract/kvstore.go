package contract

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/humanprotocol/reputation-oracle/contract/abi"
	"github.com/humanprotocol/reputation-oracle/ethclient"
)

const KVStoreKeyWebhookURL = "webhook_url"

type KVStoreContract struct {
	*Contract
}

func NewKVStoreContract(client ethclient.Client, addr common.Address) *KVStoreContract {
	return &KVStoreContract{NewContract(client, addr, abi.KVStoreABI)}
}

func (c *KVStoreContract) Get(ctx context.Context, account common.Address, key string) (string, error) {
	return c.callString(ctx, "get", account, key)
}
