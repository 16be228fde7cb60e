package presenter_test

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/humanprotocol/reputation-oracle/config"
	"github.com/humanprotocol/reputation-oracle/entity"
	"github.com/humanprotocol/reputation-oracle/presenter"
	"github.com/humanprotocol/reputation-oracle/repository"
	"github.com/humanprotocol/reputation-oracle/reputation"
	"github.com/humanprotocol/reputation-oracle/webhook"
)

const testChainID = 80002

var escrowAddress = common.HexToAddress("0xABC0000000000000000000000000000000000001")

type noopTracker struct{}

func (noopTracker) CreateEscrowCompletion(context.Context, int64, common.Address) error {
	return nil
}

type completionsReader struct {
	repo *repository.Repo
}

func (c *completionsReader) Get(ctx context.Context, chainID int64, address common.Address) (*entity.EscrowCompletion, []*entity.PayoutsBatch, error) {
	completion, err := c.repo.EscrowCompletions.GetByChainIDAndAddress(ctx, chainID, address)
	if err != nil {
		return nil, nil, err
	}
	batches, err := c.repo.PayoutsBatches.FindByEscrowCompletionID(ctx, completion.ID)
	return completion, batches, err
}

func newTestServer(t *testing.T) (*httptest.Server, *repository.Repo) {
	t.Helper()

	cfg := &config.Config{
		Chains: map[string]*config.ChainConfig{
			"polygon-amoy": {Name: "polygon-amoy", ChainID: testChainID},
		},
		Settlement: &config.SettlementConfig{MaxRetryCount: 5},
	}
	logger := logrus.New()
	repo := repository.NewMemoryRepo()
	p := presenter.NewPresenter(
		logger,
		cfg,
		webhook.NewIncomingService(logger, repo.IncomingWebhooks, cfg, noopTracker{}),
		&completionsReader{repo: repo},
		reputation.NewService(logger, repo.Reputations, nil),
	)
	srv := httptest.NewServer(p.Handler())
	t.Cleanup(srv.Close)
	return srv, repo
}

func TestPresenter_Health(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res presenter.StatusResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	require.Equal(t, "ok", res.Status)
}

func TestPresenter_RecordWebhook(t *testing.T) {
	t.Parallel()

	srv, repo := newTestServer(t)
	post := func(body string) int {
		resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	valid := `{"chain_id":80002,"escrow_address":"0xabc0000000000000000000000000000000000001","event_type":"job_completed"}`
	require.Equal(t, http.StatusCreated, post(valid))
	require.Equal(t, http.StatusOK, post(valid))

	for name, body := range map[string]string{
		"malformed":         `{"chain_id":`,
		"missing address":   `{"chain_id":80002,"event_type":"job_completed"}`,
		"unknown event":     `{"chain_id":80002,"escrow_address":"0xabc0000000000000000000000000000000000002","event_type":"job_launched"}`,
		"unsupported chain": `{"chain_id":1,"escrow_address":"0xabc0000000000000000000000000000000000002","event_type":"job_completed"}`,
	} {
		require.Equal(t, http.StatusBadRequest, post(body), name)
	}

	pending, err := repo.IncomingWebhooks.FindByStatus(context.Background(), entity.IncomingWebhookStatusPending, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, escrowAddress, pending[0].EscrowAddress)
}

func TestPresenter_GetEscrowCompletion(t *testing.T) {
	t.Parallel()

	srv, repo := newTestServer(t)
	ctx := context.Background()
	url := srv.URL + "/escrow-completions/80002/" + escrowAddress.Hex()

	resp, err := http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	finalURL := "http://storage/final.json"
	completion := &entity.EscrowCompletion{
		ChainID:         testChainID,
		EscrowAddress:   escrowAddress,
		Status:          entity.EscrowCompletionStatusAwaitingPayouts,
		FinalResultsURL: &finalURL,
		Retry:           entity.Retry{WaitUntil: time.Now()},
	}
	require.NoError(t, repo.EscrowCompletions.Create(ctx, completion))
	require.NoError(t, repo.PayoutsBatches.Create(ctx, &entity.PayoutsBatch{
		EscrowCompletionID: completion.ID,
		Payouts:            entity.Payouts{{Address: common.HexToAddress("0x01"), Amount: big.NewInt(100)}},
		PayoutsHash:        "hash",
	}))

	resp, err = http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info presenter.EscrowCompletionInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	require.Equal(t, entity.EscrowCompletionStatusAwaitingPayouts, info.Status)
	require.Equal(t, &finalURL, info.FinalResultsURL)
	require.Len(t, info.PayoutsBatches, 1)
	require.Equal(t, "hash", info.PayoutsBatches[0].PayoutsHash)
	require.Equal(t, "100", info.PayoutsBatches[0].Payouts[0].Amount.String())
}

func TestPresenter_GetReputation(t *testing.T) {
	t.Parallel()

	srv, repo := newTestServer(t)
	address := common.HexToAddress("0x0000000000000000000000000000000000000011")
	require.NoError(t, repo.Reputations.Increase(context.Background(), testChainID, address, entity.ReputationRoleJobLauncher, 1))
	require.NoError(t, repo.Reputations.Increase(context.Background(), testChainID, address, entity.ReputationRoleJobLauncher, 1))

	resp, err := http.Get(srv.URL + "/reputation/80002/" + address.Hex())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res presenter.ReputationResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	require.Equal(t, address, res.Address)
	require.Len(t, res.Reputations, 1)
	require.Equal(t, entity.ReputationRoleJobLauncher, res.Reputations[0].Role)
	require.Equal(t, 2, res.Reputations[0].ReputationPoints)
}

func TestPresenter_InvalidParams(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	for path, status := range map[string]int{
		"/reputation/80002/not-an-address":                 http.StatusBadRequest,
		"/reputation/1/" + escrowAddress.Hex():             http.StatusNotFound,
		"/escrow-completions/1/" + escrowAddress.Hex():     http.StatusNotFound,
		"/escrow-completions/80002/0x1234":                 http.StatusBadRequest,
		"/escrow-completions/80002/" + escrowAddress.Hex(): http.StatusNotFound,
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, status, resp.StatusCode, path)
	}
}
