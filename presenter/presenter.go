package presenter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/humanprotocol/reputation-oracle/config"
	"github.com/humanprotocol/reputation-oracle/db"
	"github.com/humanprotocol/reputation-oracle/entity"
	"github.com/humanprotocol/reputation-oracle/logging"
	"github.com/humanprotocol/reputation-oracle/presenter/http/middleware"
	"github.com/humanprotocol/reputation-oracle/presenter/http/render"
	"github.com/humanprotocol/reputation-oracle/webhook"
)

const maxBodySize = 1 << 20

type WebhookRecorder interface {
	Record(ctx context.Context, event *webhook.IncomingEvent) (bool, error)
}

type EscrowCompletions interface {
	Get(ctx context.Context, chainID int64, address common.Address) (*entity.EscrowCompletion, []*entity.PayoutsBatch, error)
}

type Reputations interface {
	GetReputation(ctx context.Context, chainID int64, address common.Address) ([]*entity.Reputation, error)
}

type Presenter struct {
	logger      logging.Logger
	cfg         *config.Config
	webhooks    WebhookRecorder
	completions EscrowCompletions
	reputations Reputations
	root        chi.Router
}

func NewPresenter(logger logging.Logger, cfg *config.Config, webhooks WebhookRecorder, completions EscrowCompletions, reputations Reputations) *Presenter {
	p := &Presenter{
		logger:      logger,
		cfg:         cfg,
		webhooks:    webhooks,
		completions: completions,
		reputations: reputations,
		root:        chi.NewMux(),
	}
	p.registerRoutes()
	return p
}

func (p *Presenter) registerRoutes() {
	p.root.Use(chimiddleware.Throttle(20))
	p.root.Use(chimiddleware.RequestID)
	p.root.Use(middleware.NewLoggerMiddleware(p.logger))
	p.root.Use(middleware.Recoverer)

	p.root.Get("/health", p.Health)
	p.root.Post("/webhook", p.RecordWebhook)
	p.root.Route("/escrow-completions/{chainID:[0-9]+}/{escrowAddress}", func(r chi.Router) {
		r.Use(middleware.GetChainConfigMiddleware(p.cfg))
		r.Use(middleware.GetAddressMiddleware("escrowAddress"))
		r.Get("/", p.GetEscrowCompletion)
	})
	p.root.Route("/reputation/{chainID:[0-9]+}/{address}", func(r chi.Router) {
		r.Use(middleware.GetChainConfigMiddleware(p.cfg))
		r.Use(middleware.GetAddressMiddleware("address"))
		r.Get("/", p.GetReputation)
	})
}

func (p *Presenter) Handler() http.Handler {
	return p.root
}

// Serve blocks until ctx is cancelled, then shuts the server down.
func (p *Presenter) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           p.root,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			p.logger.WithError(err).Error("can't shutdown presenter server")
		}
	}()

	p.logger.WithField("addr", addr).Info("starting presenter service")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("can't serve presenter: %w", err)
	}
	return nil
}

func (p *Presenter) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, http.StatusOK, &StatusResult{Status: "ok"})
}

func (p *Presenter) RecordWebhook(w http.ResponseWriter, r *http.Request) {
	event := new(webhook.IncomingEvent)
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(event); err != nil {
		render.Error(w, r, http.StatusBadRequest, fmt.Errorf("can't decode webhook body: %w", err))
		return
	}
	if event.ChainID == 0 || event.EscrowAddress == (common.Address{}) {
		render.Error(w, r, http.StatusBadRequest, errors.New("chain_id and escrow_address are required"))
		return
	}

	created, err := p.webhooks.Record(r.Context(), event)
	switch {
	case errors.Is(err, webhook.ErrInvalidEventType), errors.Is(err, webhook.ErrUnsupportedChain):
		render.Error(w, r, http.StatusBadRequest, err)
	case err != nil:
		render.Error(w, r, http.StatusInternalServerError, err)
	case created:
		render.JSON(w, r, http.StatusCreated, &StatusResult{Status: "created"})
	default:
		render.JSON(w, r, http.StatusOK, &StatusResult{Status: "already_exists"})
	}
}

func (p *Presenter) GetEscrowCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chainCfg := middleware.ChainConfig(ctx)
	address := middleware.Address(ctx)

	completion, batches, err := p.completions.Get(ctx, chainCfg.ChainID, address)
	if errors.Is(err, db.ErrNotFound) {
		render.Error(w, r, http.StatusNotFound, fmt.Errorf("escrow completion for %s not found", address))
		return
	}
	if err != nil {
		render.Error(w, r, http.StatusInternalServerError, fmt.Errorf("can't get escrow completion: %w", err))
		return
	}

	render.JSON(w, r, http.StatusOK, escrowCompletionToInfo(completion, batches))
}

func (p *Presenter) GetReputation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chainCfg := middleware.ChainConfig(ctx)
	address := middleware.Address(ctx)

	reputations, err := p.reputations.GetReputation(ctx, chainCfg.ChainID, address)
	if err != nil {
		render.Error(w, r, http.StatusInternalServerError, fmt.Errorf("can't get reputation: %w", err))
		return
	}

	res := &ReputationResult{
		ChainID:     chainCfg.ChainID,
		Address:     address,
		Reputations: make([]*ReputationInfo, len(reputations)),
	}
	for i, rep := range reputations {
		res.Reputations[i] = &ReputationInfo{
			Role:             rep.Role,
			ReputationPoints: rep.ReputationPoints,
			UpdatedAt:        rep.UpdatedAt,
		}
	}
	render.JSON(w, r, http.StatusOK, res)
}
