package abi_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/humanprotocol/reputation-oracle/contract/abi"
)

const testJSONABI = `[
  {"type":"function","name":"pair","stateMutability":"view","inputs":[],"outputs":[{"name":"a","type":"uint256"},{"name":"b","type":"uint256"}]},
  {"type":"function","name":"single","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]}
]`

func TestABI_EscrowMethods(t *testing.T) {
	t.Parallel()

	data, err := abi.EscrowABI.Pack("bulkPayOut",
		[]common.Address{common.HexToAddress("0x01")},
		[]*big.Int{big.NewInt(10)},
		"https://results", "hash", "payout-id", false,
	)
	require.NoError(t, err)
	selector := crypto.Keccak256([]byte("bulkPayOut(address[],uint256[],string,string,string,bool)"))[:4]
	require.Equal(t, selector, data[:4])

	data, err = abi.KVStoreABI.Pack("get", common.HexToAddress("0x01"), "webhook_url")
	require.NoError(t, err)
	require.Equal(t, crypto.Keccak256([]byte("get(address,string)"))[:4], data[:4])
}

func TestABI_UnpackOne(t *testing.T) {
	t.Parallel()

	testABI := abi.MustReadABI(testJSONABI)

	out, err := testABI.Methods["single"].Outputs.Pack("hello")
	require.NoError(t, err)
	value, err := testABI.UnpackOne("single", out)
	require.NoError(t, err)
	require.Equal(t, "hello", value)

	out, err = testABI.Methods["pair"].Outputs.Pack(big.NewInt(1), big.NewInt(2))
	require.NoError(t, err)
	_, err = testABI.UnpackOne("pair", out)
	require.ErrorIs(t, err, abi.ErrUnexpectedOutput)
}

func TestMustReadABI_Panics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		abi.MustReadABI("not a json")
	})
}
