package contract

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/humanprotocol/reputation-oracle/contract/abi"
	"github.com/humanprotocol/reputation-oracle/ethclient"
)

type Contract struct {
	Address common.Address
	client  ethclient.Client
	abi     abi.ABI
}

func NewContract(client ethclient.Client, addr common.Address, abi abi.ABI) *Contract {
	return &Contract{addr, client, abi}
}

func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot encode abi calldata: %w", err)
	}
	res, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.Address,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot call %s(...): %w", method, err)
	}
	return c.abi.UnpackOne(method, res)
}

func (c *Contract) Pack(method string, args ...interface{}) ([]byte, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot encode %s calldata: %w", method, err)
	}
	return data, nil
}

func (c *Contract) callString(ctx context.Context, method string, args ...interface{}) (string, error) {
	res, err := c.Call(ctx, method, args...)
	if err != nil {
		return "", err
	}
	s, ok := res.(string)
	if !ok {
		return "", fmt.Errorf("%s returned %T instead of string: %w", method, res, abi.ErrUnexpectedOutput)
	}
	return s, nil
}

func (c *Contract) callAddress(ctx context.Context, method string) (common.Address, error) {
	res, err := c.Call(ctx, method)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := res.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s returned %T instead of address: %w", method, res, abi.ErrUnexpectedOutput)
	}
	return addr, nil
}
