package webhook

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/humanprotocol/reputation-oracle/config"
	"github.com/humanprotocol/reputation-oracle/entity"
	"github.com/humanprotocol/reputation-oracle/logging"
)

const SignatureHeader = "human-signature"

var ErrNotSent = errors.New("webhook was not sent")

type Signer interface {
	SignMessage(data []byte) (string, error)
}

// Body is the document POSTed to webhook receivers.
type Body struct {
	ChainID       int64                           `json:"chain_id"`
	EscrowAddress string                          `json:"escrow_address"`
	EventType     entity.OutgoingWebhookEventType `json:"event_type"`
	EventData     map[string]interface{}          `json:"event_data,omitempty"`
}

func NewBody(payload *entity.OutgoingWebhookPayload) *Body {
	return &Body{
		ChainID:       payload.ChainID,
		EscrowAddress: payload.EscrowAddress.Hex(),
		EventType:     payload.EventType,
		EventData:     payload.EventData,
	}
}

type OutgoingService struct {
	logger logging.Logger
	repo   entity.OutgoingWebhooksRepo
	signer Signer
	client *http.Client
	policy entity.RetryPolicy
	now    func() time.Time
}

func NewOutgoingService(logger logging.Logger, repo entity.OutgoingWebhooksRepo, cfg *config.Config, signer Signer) *OutgoingService {
	return &OutgoingService{
		logger: logger,
		repo:   repo,
		signer: signer,
		client: &http.Client{Timeout: cfg.Webhook.Timeout},
		policy: retryPolicy(cfg),
		now:    time.Now,
	}
}

// HashOutgoing returns the hex sha1 of the canonical JSON of payload and url.
// Object keys are sorted, so equal payloads always hash the same.
func HashOutgoing(payload *entity.OutgoingWebhookPayload, url string) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("can't encode payload: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic map[string]interface{}
	if err = dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("can't decode payload: %w", err)
	}
	canonical, err := json.Marshal(map[string]interface{}{
		"payload": generic,
		"url":     url,
	})
	if err != nil {
		return "", fmt.Errorf("can't encode payload: %w", err)
	}
	sum := sha1.Sum(canonical) //nolint:gosec
	return hex.EncodeToString(sum[:]), nil
}

// CreateOutgoingWebhook schedules delivery of payload to url. Scheduling the
// same payload for the same url again reports db.ErrDuplicate.
func (s *OutgoingService) CreateOutgoingWebhook(ctx context.Context, payload entity.OutgoingWebhookPayload, url string) error {
	hash, err := HashOutgoing(&payload, url)
	if err != nil {
		return err
	}
	webhook := &entity.OutgoingWebhook{
		Payload: payload,
		Hash:    hash,
		URL:     url,
		Status:  entity.OutgoingWebhookStatusPending,
		Retry:   entity.Retry{WaitUntil: s.now()},
	}
	if err = s.repo.Create(ctx, webhook); err != nil {
		return fmt.Errorf("can't create outgoing webhook: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"webhook_id":     webhook.ID,
		"chain_id":       payload.ChainID,
		"escrow_address": payload.EscrowAddress,
		"event_type":     payload.EventType,
		"url":            url,
	}).Info("created outgoing webhook")
	return nil
}

// Send signs the wire body and POSTs it to the webhook url. Transport errors
// and non 2xx responses are reported as ErrNotSent.
func (s *OutgoingService) Send(ctx context.Context, webhook *entity.OutgoingWebhook) error {
	body, err := json.Marshal(NewBody(&webhook.Payload))
	if err != nil {
		return fmt.Errorf("can't encode webhook body: %w", err)
	}
	signature, err := s.signer.SignMessage(body)
	if err != nil {
		return fmt.Errorf("can't sign webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotSent, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotSent, err.Error())
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: receiver responded with %d", ErrNotSent, resp.StatusCode)
	}
	return nil
}

// ProcessPending delivers every pending webhook whose backoff gate is open.
func (s *OutgoingService) ProcessPending(ctx context.Context) error {
	webhooks, err := s.repo.FindByStatus(ctx, entity.OutgoingWebhookStatusPending, s.policy.MaxRetryCount)
	if err != nil {
		return fmt.Errorf("can't find pending outgoing webhooks: %w", err)
	}
	for _, webhook := range webhooks {
		logger := s.logger.WithFields(logrus.Fields{
			"webhook_id":     webhook.ID,
			"chain_id":       webhook.Payload.ChainID,
			"escrow_address": webhook.Payload.EscrowAddress,
			"url":            webhook.URL,
		})

		err = s.Send(ctx, webhook)
		switch {
		case err == nil:
			webhook.Status = entity.OutgoingWebhookStatusSent
			logger.Info("sent outgoing webhook")
		case webhook.Fail(err, s.now(), s.policy):
			webhook.Status = entity.OutgoingWebhookStatusFailed
			logger.WithError(err).Error("outgoing webhook failed, retries exhausted")
		default:
			logger.WithError(err).WithField("retries_count", webhook.RetriesCount).Warn("can't send outgoing webhook, will retry")
		}
		OutgoingDeliveries.WithLabelValues(string(webhook.Status)).Inc()

		if err = s.repo.Update(ctx, webhook); err != nil {
			logger.WithError(err).Error("can't update outgoing webhook")
		}
	}
	return nil
}
