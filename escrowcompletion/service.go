package escrowcompletion

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/humanprotocol/reputation-oracle/config"
	"github.com/humanprotocol/reputation-oracle/contract"
	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/entity"
	"github.com/humanprotocol/reputation-oracle/logging"
	"github.com/humanprotocol/reputation-oracle/payout"
	"github.com/humanprotocol/reputation-oracle/repository"
	"github.com/humanprotocol/reputation-oracle/web3"
)

var (
	ErrMissingWebhookURL = errors.New("operator has no webhook url")
	ErrMissingManifest   = errors.New("escrow has no manifest url")
)

type Chain interface {
	PayoutChain
	GetStatus(ctx context.Context, chainID int64, address common.Address) (contract.EscrowStatus, error)
	GetManifestURL(ctx context.Context, chainID int64, address common.Address) (string, error)
	GetJobLauncher(ctx context.Context, chainID int64, address common.Address) (common.Address, error)
	GetExchangeOracle(ctx context.Context, chainID int64, address common.Address) (common.Address, error)
	GetOperator(ctx context.Context, chainID int64, address common.Address) (*web3.Operator, error)
	Complete(ctx context.Context, chainID int64, address common.Address, gasPrice *big.Int) error
	Cancel(ctx context.Context, chainID int64, address common.Address, gasPrice *big.Int) error
}

type Storage interface {
	DownloadJSON(ctx context.Context, url string, v interface{}) error
}

type Processors interface {
	Resolve(kind payout.JobKind) (payout.Processor, error)
}

// Notifier creates outgoing webhooks. Creating the same payload for the same
// url twice reports db.ErrDuplicate.
type Notifier interface {
	CreateOutgoingWebhook(ctx context.Context, payload entity.OutgoingWebhookPayload, url string) error
}

type Assessor interface {
	AssessEscrowParties(ctx context.Context, chainID int64, address common.Address) error
}

// Service drives escrow completions from PENDING to COMPLETED.
type Service struct {
	logger     logging.Logger
	repo       entity.EscrowCompletionsRepo
	batches    entity.PayoutsBatchesRepo
	cfg        *config.Config
	policy     entity.RetryPolicy
	chain      Chain
	storage    Storage
	processors Processors
	notifier   Notifier
	assessor   Assessor
	batcher    *Batcher
	now        func() time.Time
}

func NewService(
	logger logging.Logger,
	repo *repository.Repo,
	cfg *config.Config,
	chain Chain,
	storage Storage,
	processors Processors,
	notifier Notifier,
	assessor Assessor,
) *Service {
	return &Service{
		logger:     logger,
		repo:       repo.EscrowCompletions,
		batches:    repo.PayoutsBatches,
		cfg:        cfg,
		policy:     entity.RetryPolicy{MaxRetryCount: cfg.Settlement.MaxRetryCount, BackoffInterval: cfg.Settlement.BackoffInterval},
		chain:      chain,
		storage:    storage,
		processors: processors,
		notifier:   notifier,
		assessor:   assessor,
		batcher:    NewBatcher(logger, repo.PayoutsBatches, chain),
		now:        time.Now,
	}
}

// CreateEscrowCompletion starts tracking an escrow. An escrow that is already
// tracked is reported with db.ErrDuplicate.
func (s *Service) CreateEscrowCompletion(ctx context.Context, chainID int64, address common.Address) error {
	if s.cfg.GetChainConfig(chainID) == nil {
		return fmt.Errorf("chain %d: %w", chainID, web3.ErrUnknownChain)
	}
	completion := &entity.EscrowCompletion{
		ChainID:       chainID,
		EscrowAddress: address,
		Status:        entity.EscrowCompletionStatusPending,
		Retry:         entity.Retry{WaitUntil: s.now()},
	}
	if err := s.repo.Create(ctx, completion); err != nil {
		return fmt.Errorf("can't create escrow completion: %w", err)
	}
	Transitions.WithLabelValues(string(entity.EscrowCompletionStatusPending)).Inc()
	s.recordLogger(completion).Info("tracking escrow completion")
	return nil
}

func (s *Service) Get(ctx context.Context, chainID int64, address common.Address) (*entity.EscrowCompletion, []*entity.PayoutsBatch, error) {
	completion, err := s.repo.GetByChainIDAndAddress(ctx, chainID, address)
	if err != nil {
		return nil, nil, err
	}
	batches, err := s.batches.FindByEscrowCompletionID(ctx, completion.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("can't find payouts batches: %w", err)
	}
	return completion, batches, nil
}

// ProcessPendingRecords moves PENDING records to AWAITING_PAYOUTS, or to PAID
// when the escrow was cancelled on chain.
func (s *Service) ProcessPendingRecords(ctx context.Context) error {
	records, err := s.repo.FindByStatus(ctx, entity.EscrowCompletionStatusPending, s.policy.MaxRetryCount)
	if err != nil {
		return fmt.Errorf("can't find pending escrow completions: %w", err)
	}
	for _, record := range records {
		if err = s.processPendingRecord(ctx, record); err != nil {
			s.handleError(ctx, record, err)
		}
	}
	return nil
}

func (s *Service) processPendingRecord(ctx context.Context, record *entity.EscrowCompletion) error {
	status, err := s.chain.GetStatus(ctx, record.ChainID, record.EscrowAddress)
	if err != nil {
		return err
	}

	switch status {
	case contract.EscrowStatusPending, contract.EscrowStatusToCancel:
		if err = s.preparePayouts(ctx, record, status); err != nil {
			return err
		}
		return s.transition(ctx, record, entity.EscrowCompletionStatusAwaitingPayouts)
	case contract.EscrowStatusCancelled:
		return s.transition(ctx, record, entity.EscrowCompletionStatusPaid)
	default:
		return s.transition(ctx, record, entity.EscrowCompletionStatusAwaitingPayouts)
	}
}

func (s *Service) preparePayouts(ctx context.Context, record *entity.EscrowCompletion, status contract.EscrowStatus) error {
	manifestURL, err := s.chain.GetManifestURL(ctx, record.ChainID, record.EscrowAddress)
	if err != nil {
		return err
	}
	if manifestURL == "" {
		return ErrMissingManifest
	}
	var manifest payout.Manifest
	if err = s.storage.DownloadJSON(ctx, manifestURL, &manifest); err != nil {
		return fmt.Errorf("can't download manifest: %w", err)
	}
	processor, err := s.processors.Resolve(manifest.Kind())
	if err != nil {
		return err
	}

	escrow := &payout.Escrow{
		ChainID: record.ChainID,
		Address: record.EscrowAddress,
		Status:  status,
	}
	if !record.HasFinalResults() {
		results, err2 := processor.StoreResults(ctx, escrow, &manifest)
		if err2 != nil {
			return fmt.Errorf("can't store final results: %w", err2)
		}
		record.FinalResultsURL = &results.URL
		record.FinalResultsHash = &results.Hash
		if err2 = s.repo.Update(ctx, record); err2 != nil {
			return fmt.Errorf("can't persist final results: %w", err2)
		}
	}

	payouts, err := processor.CalculatePayouts(ctx, escrow, &manifest, *record.FinalResultsURL)
	if err != nil {
		return fmt.Errorf("can't calculate payouts: %w", err)
	}
	return s.batcher.CreateBatches(ctx, record, payouts, s.maxItems(record.ChainID))
}

func (s *Service) maxItems(chainID int64) int {
	if cfg := s.cfg.GetChainConfig(chainID); cfg != nil {
		return cfg.BulkPayoutMaxItems
	}
	return 0
}

// ProcessAwaitingPayouts settles every stored batch. A record becomes PAID
// once none of its batches are left.
func (s *Service) ProcessAwaitingPayouts(ctx context.Context) error {
	records, err := s.repo.FindByStatus(ctx, entity.EscrowCompletionStatusAwaitingPayouts, s.policy.MaxRetryCount)
	if err != nil {
		return fmt.Errorf("can't find escrow completions awaiting payouts: %w", err)
	}
	for _, record := range records {
		if err = s.processAwaitingRecord(ctx, record); err != nil {
			s.handleError(ctx, record, err)
		}
	}
	return nil
}

func (s *Service) processAwaitingRecord(ctx context.Context, record *entity.EscrowCompletion) error {
	batches, err := s.batches.FindByEscrowCompletionID(ctx, record.ID)
	if err != nil {
		return fmt.Errorf("can't find payouts batches: %w", err)
	}

	var firstErr error
	failed := 0
	for _, batch := range batches {
		if err = s.batcher.SettleBatch(ctx, record, batch); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			s.recordLogger(record).WithError(err).WithField("batch_id", batch.ID).Warn("can't settle payouts batch")
		}
	}
	if firstErr != nil {
		return fmt.Errorf("%d of %d payouts batches not settled: %w", failed, len(batches), firstErr)
	}
	return s.transition(ctx, record, entity.EscrowCompletionStatusPaid)
}

// ProcessPaidEscrows finalizes paid escrows on chain and notifies the job
// launcher and the exchange oracle.
func (s *Service) ProcessPaidEscrows(ctx context.Context) error {
	records, err := s.repo.FindByStatus(ctx, entity.EscrowCompletionStatusPaid, s.policy.MaxRetryCount)
	if err != nil {
		return fmt.Errorf("can't find paid escrow completions: %w", err)
	}
	for _, record := range records {
		if err = s.processPaidRecord(ctx, record); err != nil {
			s.handleError(ctx, record, err)
		}
	}
	return nil
}

func (s *Service) processPaidRecord(ctx context.Context, record *entity.EscrowCompletion) error {
	logger := s.recordLogger(record)

	status, err := s.chain.GetStatus(ctx, record.ChainID, record.EscrowAddress)
	if err != nil {
		return err
	}
	switch status {
	case contract.EscrowStatusPartial, contract.EscrowStatusPaid, contract.EscrowStatusToCancel:
		if err = s.finalize(ctx, record, status); err != nil {
			return err
		}
		// Reputation is assessed at most once, failures are only logged.
		if err = s.assessor.AssessEscrowParties(ctx, record.ChainID, record.EscrowAddress); err != nil {
			logger.WithError(err).Error("can't assess reputation of escrow parties")
		}
	}

	eventType := entity.OutgoingWebhookEventEscrowCompleted
	if status == contract.EscrowStatusToCancel || status == contract.EscrowStatusCancelled {
		eventType = entity.OutgoingWebhookEventEscrowCancelled
	}
	payload := entity.OutgoingWebhookPayload{
		ChainID:       record.ChainID,
		EscrowAddress: record.EscrowAddress,
		EventType:     eventType,
	}

	parties := []func(context.Context, int64, common.Address) (common.Address, error){
		s.chain.GetJobLauncher,
		s.chain.GetExchangeOracle,
	}
	for _, getParty := range parties {
		if err = s.notifyParty(ctx, record, payload, getParty); err != nil {
			return err
		}
	}
	return s.transition(ctx, record, entity.EscrowCompletionStatusCompleted)
}

func (s *Service) finalize(ctx context.Context, record *entity.EscrowCompletion, status contract.EscrowStatus) error {
	gasPrice, err := s.chain.CalculateGasPrice(ctx, record.ChainID)
	if err != nil {
		return err
	}
	if status == contract.EscrowStatusToCancel {
		return s.chain.Cancel(ctx, record.ChainID, record.EscrowAddress, gasPrice)
	}
	return s.chain.Complete(ctx, record.ChainID, record.EscrowAddress, gasPrice)
}

func (s *Service) notifyParty(
	ctx context.Context,
	record *entity.EscrowCompletion,
	payload entity.OutgoingWebhookPayload,
	getParty func(context.Context, int64, common.Address) (common.Address, error),
) error {
	party, err := getParty(ctx, record.ChainID, record.EscrowAddress)
	if err != nil {
		return err
	}
	operator, err := s.chain.GetOperator(ctx, record.ChainID, party)
	if err != nil {
		return err
	}
	if operator.WebhookURL == "" {
		return fmt.Errorf("operator %s: %w", party, ErrMissingWebhookURL)
	}
	err = s.notifier.CreateOutgoingWebhook(ctx, payload, operator.WebhookURL)
	if db.IsDuplicate(err) {
		s.recordLogger(record).WithField("operator", party).Debug("outgoing webhook already exists")
		return nil
	}
	return err
}

// ResetFailed moves FAILED records back to PENDING with a fresh retry budget.
// All failed records of the chain are reset when addresses is empty.
func (s *Service) ResetFailed(ctx context.Context, chainID int64, addresses []common.Address) (int, error) {
	var records []*entity.EscrowCompletion
	if len(addresses) == 0 {
		var err error
		records, err = s.repo.FindAllByStatus(ctx, chainID, entity.EscrowCompletionStatusFailed)
		if err != nil {
			return 0, fmt.Errorf("can't find failed escrow completions: %w", err)
		}
	} else {
		for _, address := range addresses {
			record, err := s.repo.GetByChainIDAndAddress(ctx, chainID, address)
			if err != nil {
				return 0, err
			}
			if record.Status != entity.EscrowCompletionStatusFailed {
				s.recordLogger(record).WithField("status", record.Status).Warn("escrow completion is not failed, skipping")
				continue
			}
			records = append(records, record)
		}
	}

	for i, record := range records {
		record.Reset(s.now())
		if err := s.transition(ctx, record, entity.EscrowCompletionStatusPending); err != nil {
			return i, err
		}
	}
	return len(records), nil
}

func (s *Service) transition(ctx context.Context, record *entity.EscrowCompletion, status entity.EscrowCompletionStatus) error {
	prev := record.Status
	record.Status = status
	if err := s.repo.Update(ctx, record); err != nil {
		record.Status = prev
		return fmt.Errorf("can't update escrow completion status: %w", err)
	}
	Transitions.WithLabelValues(string(status)).Inc()
	s.recordLogger(record).WithField("previous_status", prev).Info("escrow completion status changed")
	return nil
}

func (s *Service) handleError(ctx context.Context, record *entity.EscrowCompletion, cause error) {
	logger := s.recordLogger(record).WithError(cause)
	if record.Fail(cause, s.now(), s.policy) {
		record.Status = entity.EscrowCompletionStatusFailed
		Transitions.WithLabelValues(string(entity.EscrowCompletionStatusFailed)).Inc()
		logger.Error("escrow completion failed, retries exhausted")
	} else {
		logger.WithFields(logrus.Fields{
			"retries_count": record.RetriesCount,
			"wait_until":    record.WaitUntil,
		}).Warn("can't process escrow completion, will retry")
	}
	if err := s.repo.Update(ctx, record); err != nil {
		logger.WithError(err).Error("can't update escrow completion")
	}
}

func (s *Service) recordLogger(record *entity.EscrowCompletion) logging.Logger {
	return s.logger.WithFields(logrus.Fields{
		"escrow_completion_id": record.ID,
		"chain_id":             record.ChainID,
		"escrow_address":       record.EscrowAddress,
		"status":               record.Status,
	})
}
