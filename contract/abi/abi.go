package abi

//nolint:golint
import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed escrow.json
var escrowJSONABI string

//go:embed kvstore.json
var kvStoreJSONABI string

var ErrUnexpectedOutput = errors.New("unexpected number of output values")

var (
	EscrowABI  = MustReadABI(escrowJSONABI)
	KVStoreABI = MustReadABI(kvStoreJSONABI)
)

type ABI struct {
	abi.ABI
}

func MustReadABI(rawJSON string) ABI {
	res, err := abi.JSON(strings.NewReader(rawJSON))
	if err != nil {
		panic(err)
	}
	return ABI{res}
}

// UnpackOne decodes the return data of a method with exactly one output.
func (a ABI) UnpackOne(method string, data []byte) (interface{}, error) {
	values, err := a.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("can't unpack %s output: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s returned %d values: %w", method, len(values), ErrUnexpectedOutput)
	}
	return values[0], nil
}
