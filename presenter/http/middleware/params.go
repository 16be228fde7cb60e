package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/humanprotocol/reputation-oracle/config"
	"github.com/humanprotocol/reputation-oracle/presenter/http/render"
)

type ctxKey int

const (
	chainCfgCtxKey ctxKey = iota
	addressCtxKey
)

var (
	ErrInvalidChainID = errors.New("invalid chain id parameter")
	ErrInvalidAddress = errors.New("invalid address parameter")
)

func GetChainConfigMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			chainIDStr := chi.URLParam(r, "chainID")

			chainID, err := strconv.ParseInt(chainIDStr, 10, 64)
			if err != nil {
				render.Error(w, r, http.StatusBadRequest, fmt.Errorf("%q: %w", chainIDStr, ErrInvalidChainID))
				return
			}
			chainCfg := cfg.GetChainConfig(chainID)
			if chainCfg == nil {
				render.Error(w, r, http.StatusNotFound, fmt.Errorf("chain with id %d not found", chainID))
				return
			}

			ctx := context.WithValue(r.Context(), chainCfgCtxKey, chainCfg)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ChainConfig(ctx context.Context) *config.ChainConfig {
	if cfg, ok := ctx.Value(chainCfgCtxKey).(*config.ChainConfig); ok {
		return cfg
	}
	return new(config.ChainConfig)
}

// GetAddressMiddleware parses the hex address stored in the given URL parameter.
func GetAddressMiddleware(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			address := chi.URLParam(r, param)

			if !common.IsHexAddress(address) {
				render.Error(w, r, http.StatusBadRequest, fmt.Errorf("%q: %w", address, ErrInvalidAddress))
				return
			}

			ctx := context.WithValue(r.Context(), addressCtxKey, common.HexToAddress(address))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Address(ctx context.Context) common.Address {
	if address, ok := ctx.Value(addressCtxKey).(common.Address); ok {
		return address
	}
	return common.Address{}
}
