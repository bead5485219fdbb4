package httpapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/sourcegraph/conc/pool"

	"github.com/carolinespringscc/cricket-agent/internal/config"
	"github.com/carolinespringscc/cricket-agent/internal/observability"
	"github.com/carolinespringscc/cricket-agent/internal/platform/logging"
	"github.com/carolinespringscc/cricket-agent/internal/usecase"
	"github.com/carolinespringscc/cricket-agent/internal/vectorstore"
)

const maxWebhookBody = 1 << 20

const componentCheckTimeout = 3 * time.Second

// HandlerConfig carries the slice of runtime configuration the HTTP layer
// needs. Mode gates the webhook surface: private deployments receive PlayHQ
// webhooks and must have the HMAC secret resolved.
type HandlerConfig struct {
	Env                string
	Mode               string
	RAGEnabled         bool
	WebhookSecret      string
	InternalToken      string
	LLMConfigured      bool
	UpstreamConfigured bool
}

type Handler struct {
	askService     *usecase.AskService
	syncService    *usecase.SyncService
	webhookService *usecase.WebhookService
	store          vectorstore.Store
	metrics        *observability.Metrics
	logger         *logging.Logger
	validator      *validator.Validate
	cfg            HandlerConfig
}

func NewHandler(
	askService *usecase.AskService,
	syncService *usecase.SyncService,
	webhookService *usecase.WebhookService,
	store vectorstore.Store,
	metrics *observability.Metrics,
	logger *logging.Logger,
	cfg HandlerConfig,
) (*Handler, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Mode == config.ModePrivate && strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, fmt.Errorf("webhook HMAC secret is required in private mode")
	}

	return &Handler{
		askService:     askService,
		syncService:    syncService,
		webhookService: webhookService,
		store:          store,
		metrics:        metrics,
		logger:         logger,
		validator:      validator.New(),
		cfg:            cfg,
	}, nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeJSON(ctx, w, http.StatusOK, map[string]any{
		"ok":        true,
		"env":       h.cfg.Env,
		"mode":      h.cfg.Mode,
		"rag":       h.cfg.RAGEnabled,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type componentStatus struct {
	OK         bool   `json:"ok"`
	Configured bool   `json:"configured"`
	Documents  int    `json:"documents,omitempty"`
	Error      string `json:"error,omitempty"`
}

// HealthzDetailed probes live dependencies concurrently. A degraded
// component flips the top-level ok flag but the endpoint itself still
// answers 200; orchestrators use the shallow /healthz for liveness.
func (h *Handler) HealthzDetailed(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.HealthzDetailed")
	defer span.End()

	checkCtx, cancel := context.WithTimeout(ctx, componentCheckTimeout)
	defer cancel()

	var storeStatus, upstreamStatus, llmStatus componentStatus

	checks := pool.New().WithContext(checkCtx)
	checks.Go(func(ctx context.Context) error {
		storeStatus = h.checkStore(ctx)
		return nil
	})
	checks.Go(func(context.Context) error {
		upstreamStatus = componentStatus{OK: h.cfg.UpstreamConfigured, Configured: h.cfg.UpstreamConfigured}
		if !h.cfg.UpstreamConfigured {
			upstreamStatus.Error = "provider credentials not configured"
		}
		return nil
	})
	checks.Go(func(context.Context) error {
		llmStatus = componentStatus{OK: true, Configured: h.cfg.LLMConfigured}
		return nil
	})
	_ = checks.Wait()

	writeJSON(ctx, w, http.StatusOK, map[string]any{
		"ok":   storeStatus.OK && upstreamStatus.OK,
		"env":  h.cfg.Env,
		"mode": h.cfg.Mode,
		"rag":  h.cfg.RAGEnabled,
		"components": map[string]componentStatus{
			"vector_store": storeStatus,
			"playhq":       upstreamStatus,
			"llm":          llmStatus,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) checkStore(ctx context.Context) componentStatus {
	status := componentStatus{Configured: h.store != nil}
	if h.store == nil {
		status.Error = "vector store not configured"
		return status
	}

	if err := h.store.HealthCheck(ctx); err != nil {
		status.Error = err.Error()
		return status
	}
	status.OK = true
	if stats, err := h.store.GetStats(ctx); err == nil {
		status.Documents = stats.Documents
	}
	return status
}

type askRequest struct {
	Text     string `json:"text" validate:"required"`
	Source   string `json:"source"`
	TeamHint string `json:"team_hint"`
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Ask")
	defer span.End()

	var req askRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.askService.Answer(ctx, usecase.AskInput{
		Text:     req.Text,
		Source:   req.Source,
		TeamHint: req.TeamHint,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "ask failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, result)
}

type refreshRequest struct {
	Scope string `json:"scope" validate:"required"`
	ID    string `json:"id"`
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Refresh")
	defer span.End()

	var req refreshRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	scope, err := usecase.ParseSyncScope(req.Scope)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	stats, err := h.syncService.Run(ctx, usecase.SyncInput{Scope: scope, ID: req.ID})
	if err != nil {
		h.logger.ErrorContext(ctx, "refresh failed", "scope", req.Scope, "id", req.ID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, stats)
}

// Sync is the unauthenticated bootstrap twin of Refresh. It always runs a
// full refresh, so a fresh deployment can seed its store before the
// internal token is distributed.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Sync")
	defer span.End()

	stats, err := h.syncService.Run(ctx, usecase.SyncInput{Scope: usecase.SyncScopeAll})
	if err != nil {
		h.logger.ErrorContext(ctx, "bootstrap sync failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, stats)
}

func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Webhook")
	defer span.End()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: read webhook body: %v", usecase.ErrInvalidInput, err))
		return
	}

	signature := strings.TrimSpace(r.Header.Get("X-PlayHQ-Signature"))
	if signature == "" {
		writeError(ctx, w, fmt.Errorf("%w: missing X-PlayHQ-Signature header", usecase.ErrInvalidInput))
		return
	}
	if !verifySignature(h.cfg.WebhookSecret, body, signature) {
		h.logger.WarnContext(ctx, "webhook signature mismatch", "remote_addr", r.RemoteAddr)
		writeError(ctx, w, fmt.Errorf("%w: webhook signature mismatch", usecase.ErrUnauthorized))
		return
	}

	result, err := h.webhookService.Process(ctx, body)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, result)
}

// verifySignature checks a hex-encoded HMAC-SHA256 of the raw request body.
func verifySignature(secret string, body []byte, signature string) bool {
	presented, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(presented, mac.Sum(nil))
}

func decodeJSON(r io.Reader, out any) error {
	body, err := io.ReadAll(io.LimitReader(r, maxWebhookBody))
	if err != nil {
		return fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
