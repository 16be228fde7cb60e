package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/humanprotocol/reputation-oracle/config"
	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/entity"
	"github.com/humanprotocol/reputation-oracle/logging"
)

var (
	ErrInvalidEventType = errors.New("invalid event type")
	ErrUnsupportedChain = errors.New("unsupported chain")
)

// Tracker starts escrow completion tracking. An escrow that is already
// tracked is reported with db.ErrDuplicate.
type Tracker interface {
	CreateEscrowCompletion(ctx context.Context, chainID int64, address common.Address) error
}

type IncomingEvent struct {
	ChainID       int64                           `json:"chain_id"`
	EscrowAddress common.Address                  `json:"escrow_address"`
	EventType     entity.IncomingWebhookEventType `json:"event_type"`
	EventData     map[string]interface{}          `json:"event_data,omitempty"`
}

type IncomingService struct {
	logger  logging.Logger
	repo    entity.IncomingWebhooksRepo
	cfg     *config.Config
	policy  entity.RetryPolicy
	tracker Tracker
	now     func() time.Time
}

func NewIncomingService(logger logging.Logger, repo entity.IncomingWebhooksRepo, cfg *config.Config, tracker Tracker) *IncomingService {
	return &IncomingService{
		logger:  logger,
		repo:    repo,
		cfg:     cfg,
		policy:  retryPolicy(cfg),
		tracker: tracker,
		now:     time.Now,
	}
}

func retryPolicy(cfg *config.Config) entity.RetryPolicy {
	return entity.RetryPolicy{
		MaxRetryCount:   cfg.Settlement.MaxRetryCount,
		BackoffInterval: cfg.Settlement.BackoffInterval,
	}
}

// Record stores an incoming notification. It reports false when the
// notification for the escrow has already been recorded.
func (s *IncomingService) Record(ctx context.Context, event *IncomingEvent) (bool, error) {
	if event.EventType != entity.IncomingWebhookEventJobCompleted {
		return false, fmt.Errorf("%q: %w", event.EventType, ErrInvalidEventType)
	}
	if s.cfg.GetChainConfig(event.ChainID) == nil {
		return false, fmt.Errorf("chain %d: %w", event.ChainID, ErrUnsupportedChain)
	}

	webhook := &entity.IncomingWebhook{
		ChainID:       event.ChainID,
		EscrowAddress: event.EscrowAddress,
		Status:        entity.IncomingWebhookStatusPending,
		Retry:         entity.Retry{WaitUntil: s.now()},
	}
	logger := s.logger.WithFields(logrus.Fields{
		"chain_id":       event.ChainID,
		"escrow_address": event.EscrowAddress,
	})
	err := s.repo.Create(ctx, webhook)
	if db.IsDuplicate(err) {
		logger.Debug("incoming webhook already recorded")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("can't record incoming webhook: %w", err)
	}
	logger.WithField("webhook_id", webhook.ID).Info("recorded incoming webhook")
	return true, nil
}

// ProcessPending starts escrow completion tracking for every pending
// notification whose backoff gate is open.
func (s *IncomingService) ProcessPending(ctx context.Context) error {
	webhooks, err := s.repo.FindByStatus(ctx, entity.IncomingWebhookStatusPending, s.policy.MaxRetryCount)
	if err != nil {
		return fmt.Errorf("can't find pending incoming webhooks: %w", err)
	}
	for _, webhook := range webhooks {
		logger := s.logger.WithFields(logrus.Fields{
			"webhook_id":     webhook.ID,
			"chain_id":       webhook.ChainID,
			"escrow_address": webhook.EscrowAddress,
		})

		err = s.tracker.CreateEscrowCompletion(ctx, webhook.ChainID, webhook.EscrowAddress)
		switch {
		case err == nil:
			webhook.Status = entity.IncomingWebhookStatusCompleted
		case db.IsDuplicate(err):
			logger.Debug("escrow completion is already tracked")
			webhook.Status = entity.IncomingWebhookStatusCompleted
		case webhook.Fail(err, s.now(), s.policy):
			webhook.Status = entity.IncomingWebhookStatusFailed
			logger.WithError(err).Error("incoming webhook failed, retries exhausted")
		default:
			logger.WithError(err).WithField("retries_count", webhook.RetriesCount).Warn("can't process incoming webhook, will retry")
		}
		IncomingProcessed.WithLabelValues(string(webhook.Status)).Inc()

		if err = s.repo.Update(ctx, webhook); err != nil {
			logger.WithError(err).Error("can't update incoming webhook")
		}
	}
	return nil
}
