package utils

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignMessage produces an EIP-191 personal_sign signature with v in {27, 28}.
func SignMessage(data []byte, key *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash(data), key)
	if err != nil {
		return "", fmt.Errorf("can't sign message: %w", err)
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

func RestoreSignerAddress(data, sig []byte) (common.Address, error) {
	if len(sig) >= 65 && sig[64] >= 27 {
		sig[64] -= 27
	}
	pk, err := crypto.SigToPub(accounts.TextHash(data), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("can't recover ecdsa signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pk), nil
}
