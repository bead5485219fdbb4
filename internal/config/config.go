package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/carolinespringscc/cricket-agent/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	ModePublic  = "public"
	ModePrivate = "private"
)

// Config stores runtime configuration for the service. It is immutable after
// startup; secret references are resolved once via ResolveSecrets.
type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	HTTPAddr           string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	CORSAllowedOrigins []string
	LogLevel           logging.Level

	Mode      string
	ProjectID string
	Region    string

	EmbeddingModel   string
	GenerationModel  string
	LLMTimeout       time.Duration
	MaxContextTokens int

	VectorBackends     []string
	VectorStoreTimeout time.Duration
	VectorFilePath     string
	QdrantHost         string
	QdrantPort         int
	QdrantUseTLS       bool
	QdrantCollection   string
	QdrantAPIKey       string
	DocumentDBURL      string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int

	GCSBucket      string
	LocalMirrorDir string
	MatchDayHints  []string

	PlayHQBaseURL               string
	PlayHQTimeout               time.Duration
	PlayHQMaxRetries            int
	PlayHQRatePerSecond         float64
	PlayHQCircuitEnabled        bool
	PlayHQCircuitFailureCount   int
	PlayHQCircuitOpenTimeout    time.Duration
	PlayHQCircuitHalfOpenMaxReq int

	SyncWorkers        int
	FullRefreshTimeout time.Duration

	AskTopK            int
	AskCacheTTL        time.Duration
	AskCacheMaxEntries int
	RAGEnabled         bool

	// Secret references (raw, unresolved).
	PlayHQAPIKeyRef       string
	IDBundleRef           string
	InternalBearerRef     string
	LLMAPIKeyRef          string
	PlayHQPrivateTokenRef string
	WebhookSecretRef      string

	// Resolved secrets.
	PlayHQAPIKey        string
	InternalBearerToken string
	LLMAPIKey           string
	PlayHQPrivateToken  string
	WebhookSecret       string
	IDBundle            IdentifierBundle
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	mode, err := parseMode(getEnv("APP_MODE", ModePublic))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	llmTimeout, err := time.ParseDuration(getEnv("LLM_TIMEOUT", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LLM_TIMEOUT: %w", err)
	}
	if llmTimeout <= 0 {
		return Config{}, fmt.Errorf("LLM_TIMEOUT must be > 0")
	}
	maxContextTokens, err := getEnvAsInt("LLM_MAX_CONTEXT_TOKENS", 6000)
	if err != nil {
		return Config{}, fmt.Errorf("parse LLM_MAX_CONTEXT_TOKENS: %w", err)
	}
	if maxContextTokens < 256 {
		return Config{}, fmt.Errorf("LLM_MAX_CONTEXT_TOKENS must be >= 256")
	}

	vectorStoreTimeout, err := time.ParseDuration(getEnv("VECTOR_STORE_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse VECTOR_STORE_TIMEOUT: %w", err)
	}
	if vectorStoreTimeout <= 0 {
		return Config{}, fmt.Errorf("VECTOR_STORE_TIMEOUT must be > 0")
	}

	vectorBackends := splitCSV(getEnv("VECTOR_BACKENDS", "file"))
	if len(vectorBackends) == 0 {
		return Config{}, fmt.Errorf("VECTOR_BACKENDS cannot be empty")
	}
	for _, backend := range vectorBackends {
		switch backend {
		case "qdrant", "postgres", "redis", "file":
		default:
			return Config{}, fmt.Errorf("invalid VECTOR_BACKENDS entry %q: valid values are qdrant, postgres, redis, file", backend)
		}
	}

	qdrantPort, err := getEnvAsInt("QDRANT_PORT", 6334)
	if err != nil {
		return Config{}, fmt.Errorf("parse QDRANT_PORT: %w", err)
	}
	qdrantUseTLS, err := strconv.ParseBool(getEnv("QDRANT_USE_TLS", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse QDRANT_USE_TLS: %w", err)
	}
	redisDB, err := getEnvAsInt("REDIS_DB", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse REDIS_DB: %w", err)
	}

	playHQTimeout, err := time.ParseDuration(getEnv("PLAYHQ_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PLAYHQ_TIMEOUT: %w", err)
	}
	if playHQTimeout <= 0 {
		return Config{}, fmt.Errorf("PLAYHQ_TIMEOUT must be > 0")
	}
	playHQMaxRetries, err := getEnvAsInt("PLAYHQ_MAX_RETRIES", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse PLAYHQ_MAX_RETRIES: %w", err)
	}
	if playHQMaxRetries < 0 {
		return Config{}, fmt.Errorf("PLAYHQ_MAX_RETRIES must be >= 0")
	}
	playHQRate, err := getEnvAsFloat("PLAYHQ_RATE_PER_SECOND", 8)
	if err != nil {
		return Config{}, fmt.Errorf("parse PLAYHQ_RATE_PER_SECOND: %w", err)
	}
	if playHQRate <= 0 {
		return Config{}, fmt.Errorf("PLAYHQ_RATE_PER_SECOND must be > 0")
	}
	playHQCircuitEnabled, err := strconv.ParseBool(getEnv("PLAYHQ_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PLAYHQ_CIRCUIT_ENABLED: %w", err)
	}
	playHQCircuitFailureCount, err := getEnvAsInt("PLAYHQ_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse PLAYHQ_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if playHQCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("PLAYHQ_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	playHQCircuitOpenTimeout, err := time.ParseDuration(getEnv("PLAYHQ_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PLAYHQ_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if playHQCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("PLAYHQ_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	playHQCircuitHalfOpenMaxReq, err := getEnvAsInt("PLAYHQ_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse PLAYHQ_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if playHQCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("PLAYHQ_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	syncWorkers, err := getEnvAsInt("SYNC_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_WORKERS: %w", err)
	}
	if syncWorkers < 1 {
		return Config{}, fmt.Errorf("SYNC_WORKERS must be >= 1")
	}
	fullRefreshTimeout, err := time.ParseDuration(getEnv("SYNC_FULL_REFRESH_TIMEOUT", "10m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_FULL_REFRESH_TIMEOUT: %w", err)
	}
	if fullRefreshTimeout <= 0 {
		return Config{}, fmt.Errorf("SYNC_FULL_REFRESH_TIMEOUT must be > 0")
	}

	askTopK, err := getEnvAsInt("ASK_TOP_K", 6)
	if err != nil {
		return Config{}, fmt.Errorf("parse ASK_TOP_K: %w", err)
	}
	if askTopK < 1 {
		return Config{}, fmt.Errorf("ASK_TOP_K must be >= 1")
	}
	askCacheTTL, err := time.ParseDuration(getEnv("ASK_CACHE_TTL", "30m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ASK_CACHE_TTL: %w", err)
	}
	if askCacheTTL <= 0 {
		return Config{}, fmt.Errorf("ASK_CACHE_TTL must be > 0")
	}
	askCacheMaxEntries, err := getEnvAsInt("ASK_CACHE_MAX_ENTRIES", 512)
	if err != nil {
		return Config{}, fmt.Errorf("parse ASK_CACHE_MAX_ENTRIES: %w", err)
	}
	if askCacheMaxEntries < 1 {
		return Config{}, fmt.Errorf("ASK_CACHE_MAX_ENTRIES must be >= 1")
	}
	ragEnabled, err := strconv.ParseBool(getEnv("RAG_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RAG_ENABLED: %w", err)
	}

	cfg := Config{
		AppEnv:             appEnv,
		ServiceName:        getEnv("APP_SERVICE_NAME", "cricket-agent"),
		ServiceVersion:     getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:           getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:           parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),

		Mode:      mode,
		ProjectID: strings.TrimSpace(getEnv("GCP_PROJECT_ID", "")),
		Region:    strings.TrimSpace(getEnv("GCP_REGION", "australia-southeast1")),

		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		GenerationModel:  getEnv("GENERATION_MODEL", "gpt-4o-mini"),
		LLMTimeout:       llmTimeout,
		MaxContextTokens: maxContextTokens,

		VectorBackends:     vectorBackends,
		VectorStoreTimeout: vectorStoreTimeout,
		VectorFilePath:     getEnv("VECTOR_FILE_PATH", "data/vector_store.json"),
		QdrantHost:         strings.TrimSpace(getEnv("QDRANT_HOST", "localhost")),
		QdrantPort:         qdrantPort,
		QdrantUseTLS:       qdrantUseTLS,
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "cricket_documents"),
		QdrantAPIKey:       strings.TrimSpace(getEnv("QDRANT_API_KEY", "")),
		DocumentDBURL:      strings.TrimSpace(getEnv("DOCUMENT_DB_URL", "")),
		RedisAddr:          strings.TrimSpace(getEnv("REDIS_ADDR", "")),
		RedisPassword:      strings.TrimSpace(getEnv("REDIS_PASSWORD", "")),
		RedisDB:            redisDB,

		GCSBucket:      strings.TrimSpace(getEnv("GCS_BUCKET", "")),
		LocalMirrorDir: getEnv("LOCAL_MIRROR_DIR", "data/mirror"),
		MatchDayHints:  splitCSV(getEnv("MATCH_DAY_HINTS", "Friday,Saturday")),

		PlayHQBaseURL:               strings.TrimSpace(getEnv("PLAYHQ_BASE_URL", "https://api.playhq.com/v1")),
		PlayHQTimeout:               playHQTimeout,
		PlayHQMaxRetries:            playHQMaxRetries,
		PlayHQRatePerSecond:         playHQRate,
		PlayHQCircuitEnabled:        playHQCircuitEnabled,
		PlayHQCircuitFailureCount:   playHQCircuitFailureCount,
		PlayHQCircuitOpenTimeout:    playHQCircuitOpenTimeout,
		PlayHQCircuitHalfOpenMaxReq: playHQCircuitHalfOpenMaxReq,

		SyncWorkers:        syncWorkers,
		FullRefreshTimeout: fullRefreshTimeout,

		AskTopK:            askTopK,
		AskCacheTTL:        askCacheTTL,
		AskCacheMaxEntries: askCacheMaxEntries,
		RAGEnabled:         ragEnabled,

		PlayHQAPIKeyRef:       strings.TrimSpace(getEnv("PLAYHQ_API_KEY_REF", "")),
		IDBundleRef:           strings.TrimSpace(getEnv("IDS_BUNDLE_REF", "")),
		InternalBearerRef:     strings.TrimSpace(getEnv("INTERNAL_BEARER_REF", "")),
		LLMAPIKeyRef:          strings.TrimSpace(getEnv("LLM_API_KEY_REF", "")),
		PlayHQPrivateTokenRef: strings.TrimSpace(getEnv("PLAYHQ_PRIVATE_TOKEN_REF", "")),
		WebhookSecretRef:      strings.TrimSpace(getEnv("WEBHOOK_HMAC_SECRET_REF", "")),
	}

	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	if len(cfg.MatchDayHints) == 0 {
		return Config{}, fmt.Errorf("MATCH_DAY_HINTS cannot be empty")
	}

	return cfg, nil
}

func (c Config) IsPrivate() bool {
	return c.Mode == ModePrivate
}

// IsMatchDay reports whether t falls on one of the configured match-day
// weekdays. The scheduled sync job uses it to skip days with no new play.
func (c Config) IsMatchDay(t time.Time) bool {
	weekday := t.Weekday().String()
	for _, hint := range c.MatchDayHints {
		if strings.EqualFold(strings.TrimSpace(hint), weekday) {
			return true
		}
	}
	return false
}

func parseMode(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case ModePublic, ModePrivate:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_MODE %q: valid values are %s, %s", v, ModePublic, ModePrivate)
	}
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}
