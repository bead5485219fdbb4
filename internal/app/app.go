package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/carolinespringscc/cricket-agent/external/playhq"
	"github.com/carolinespringscc/cricket-agent/internal/blob"
	"github.com/carolinespringscc/cricket-agent/internal/config"
	"github.com/carolinespringscc/cricket-agent/internal/embeddings"
	"github.com/carolinespringscc/cricket-agent/internal/interfaces/httpapi"
	"github.com/carolinespringscc/cricket-agent/internal/llm"
	"github.com/carolinespringscc/cricket-agent/internal/observability"
	"github.com/carolinespringscc/cricket-agent/internal/platform/cache"
	"github.com/carolinespringscc/cricket-agent/internal/platform/logging"
	"github.com/carolinespringscc/cricket-agent/internal/platform/resilience"
	"github.com/carolinespringscc/cricket-agent/internal/usecase"
	"github.com/carolinespringscc/cricket-agent/internal/vectorstore"
)

const defaultEmbeddingDims = 1536

// App is the assembled dependency graph. Both binaries build one: the API
// server serves Router, the sync job drives SyncService directly.
type App struct {
	Config  config.Config
	Logger  *logging.Logger
	Metrics *observability.Metrics

	Store          *vectorstore.Tiered
	SyncService    *usecase.SyncService
	AskService     *usecase.AskService
	WebhookService *usecase.WebhookService
	Router         http.Handler

	closers []func() error
}

// New wires the full graph from resolved configuration. Secrets must already
// be resolved; New only reads cfg.
func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	metrics := observability.NewMetrics()
	a := &App{Config: cfg, Logger: logger, Metrics: metrics}

	var embedder embeddings.Embedder
	if cfg.LLMAPIKey != "" {
		embedder = embeddings.NewOpenAI(cfg.LLMAPIKey, cfg.EmbeddingModel)
	}

	backends, err := a.buildBackends(ctx, cfg, embedder)
	if err != nil {
		a.Close()
		return nil, err
	}

	memory := vectorstore.NewMemory(embedder)
	store := vectorstore.NewTiered(memory, backends, embedder, logger, cfg.VectorStoreTimeout)
	store.Warmup(ctx)
	a.Store = store

	provider := playhq.NewClient(playhq.ClientConfig{
		BaseURL:       cfg.PlayHQBaseURL,
		APIKey:        cfg.PlayHQAPIKey,
		Tenant:        cfg.IDBundle.Tenant,
		PrivateToken:  cfg.PlayHQPrivateToken,
		Timeout:       cfg.PlayHQTimeout,
		MaxRetries:    cfg.PlayHQMaxRetries,
		RatePerSecond: cfg.PlayHQRatePerSecond,
		Logger:        logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.PlayHQCircuitEnabled,
			FailureThreshold: cfg.PlayHQCircuitFailureCount,
			OpenTimeout:      cfg.PlayHQCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.PlayHQCircuitHalfOpenMaxReq,
		},
	})

	mirror, err := a.buildMirror(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	var llmAdapter usecase.LLM
	llmConfigured := false
	if cfg.LLMAPIKey != "" {
		adapter, err := llm.NewOpenAI(cfg.LLMAPIKey, cfg.GenerationModel, cfg.MaxContextTokens, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("build llm adapter: %w", err)
		}
		llmAdapter = adapter
		llmConfigured = true
	}

	a.SyncService = usecase.NewSyncService(provider, store, mirror, cfg.IDBundle, metrics, logger,
		usecase.SyncConfig{
			Workers:        cfg.SyncWorkers,
			ScopeTimeout:   cfg.FullRefreshTimeout,
			IncludeContact: cfg.IsPrivate(),
		})
	a.AskService = usecase.NewAskService(store, llmAdapter, provider, cfg.IDBundle,
		cache.NewBoundedStore(cfg.AskCacheTTL, cfg.AskCacheMaxEntries), metrics, logger,
		usecase.AskConfig{
			TopK:       cfg.AskTopK,
			RAGEnabled: cfg.RAGEnabled && llmConfigured,
		})
	a.WebhookService = usecase.NewWebhookService(store, cfg.IDBundle, metrics, logger,
		usecase.WebhookConfig{IncludeContact: cfg.IsPrivate()})

	handler, err := httpapi.NewHandler(a.AskService, a.SyncService, a.WebhookService, store, metrics, logger,
		httpapi.HandlerConfig{
			Env:                cfg.AppEnv,
			Mode:               cfg.Mode,
			RAGEnabled:         cfg.RAGEnabled && llmConfigured,
			WebhookSecret:      cfg.WebhookSecret,
			InternalToken:      cfg.InternalBearerToken,
			LLMConfigured:      llmConfigured,
			UpstreamConfigured: cfg.PlayHQAPIKey != "",
		})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build http handler: %w", err)
	}
	a.Router = httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins)

	return a, nil
}

func (a *App) buildBackends(ctx context.Context, cfg config.Config, embedder embeddings.Embedder) ([]vectorstore.Backend, error) {
	dims := defaultEmbeddingDims
	if embedder != nil {
		dims = embedder.Dimensions()
	}

	backends := make([]vectorstore.Backend, 0, len(cfg.VectorBackends))
	for _, name := range cfg.VectorBackends {
		switch name {
		case "file":
			backend, err := vectorstore.NewFileBackend(cfg.VectorFilePath)
			if err != nil {
				return nil, fmt.Errorf("build file backend: %w", err)
			}
			backends = append(backends, backend)
		case "redis":
			if cfg.RedisAddr == "" {
				return nil, fmt.Errorf("redis backend requires REDIS_ADDR")
			}
			backend := vectorstore.NewRedisBackend(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			backends = append(backends, backend)
			a.closers = append(a.closers, backend.Close)
		case "postgres":
			if cfg.DocumentDBURL == "" {
				return nil, fmt.Errorf("postgres backend requires DOCUMENT_DB_URL")
			}
			backend, err := vectorstore.NewPostgresBackend(ctx, cfg.DocumentDBURL)
			if err != nil {
				return nil, fmt.Errorf("build postgres backend: %w", err)
			}
			backends = append(backends, backend)
			a.closers = append(a.closers, backend.Close)
		case "qdrant":
			backend, err := vectorstore.NewQdrantBackend(ctx, vectorstore.QdrantConfig{
				Host:       cfg.QdrantHost,
				Port:       cfg.QdrantPort,
				APIKey:     cfg.QdrantAPIKey,
				UseTLS:     cfg.QdrantUseTLS,
				Collection: cfg.QdrantCollection,
				Dimensions: dims,
			})
			if err != nil {
				return nil, fmt.Errorf("build qdrant backend: %w", err)
			}
			backends = append(backends, backend)
			a.closers = append(a.closers, backend.Close)
		default:
			return nil, fmt.Errorf("unknown vector backend %q", name)
		}
	}

	return backends, nil
}

func (a *App) buildMirror(ctx context.Context, cfg config.Config, logger *logging.Logger) (blob.Mirror, error) {
	local, err := blob.NewLocalMirror(cfg.LocalMirrorDir)
	if err != nil {
		return nil, fmt.Errorf("build local mirror: %w", err)
	}
	if cfg.GCSBucket == "" {
		return local, nil
	}

	gcs, err := blob.NewGCSMirror(ctx, cfg.GCSBucket, local, logger)
	if err != nil {
		return nil, fmt.Errorf("build gcs mirror: %w", err)
	}
	a.closers = append(a.closers, gcs.Close)
	return gcs, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close dependency", "error", err)
		}
	}
	a.closers = nil
}

// NewHTTPServer builds the API server around an assembled App.
func NewHTTPServer(a *App) (*http.Server, error) {
	if a.Config.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &http.Server{
		Addr:         a.Config.HTTPAddr,
		Handler:      a.Router,
		ReadTimeout:  a.Config.ReadTimeout,
		WriteTimeout: a.Config.WriteTimeout,
	}, nil
}
