package config

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBundle = `{
	"tenant": "ca",
	"org_id": "org-csc",
	"season_id": "season-2025",
	"grade_id": "grade-a",
	"teams": [
		{"name": "Caroline Springs Blue U10", "team_id": "team-blue-u10"},
		{"name": "Caroline Springs White U10", "team_id": "team-white-u10"}
	]
}`

type stubAccessor struct {
	values map[string]string
	err    error
}

func (s *stubAccessor) AccessSecret(_ context.Context, name string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	value, ok := s.values[name]
	if !ok {
		return "", fmt.Errorf("secret %q not found", name)
	}
	return value, nil
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDev, cfg.AppEnv)
	assert.Equal(t, ModePublic, cfg.Mode)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []string{"file"}, cfg.VectorBackends)
	assert.Equal(t, 30*time.Second, cfg.PlayHQTimeout)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 10*time.Second, cfg.VectorStoreTimeout)
	assert.Equal(t, 10*time.Minute, cfg.FullRefreshTimeout)
	assert.Equal(t, 4, cfg.SyncWorkers)
	assert.Equal(t, 30*time.Minute, cfg.AskCacheTTL)
	assert.Equal(t, []string{"Friday", "Saturday"}, cfg.MatchDayHints)
	assert.False(t, cfg.IsPrivate())
}

func TestLoadInvalidMode(t *testing.T) {
	t.Setenv("APP_MODE", "hybrid")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_MODE")
}

func TestLoadInvalidBackend(t *testing.T) {
	t.Setenv("VECTOR_BACKENDS", "qdrant,chroma")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chroma")
}

func TestLoadBackendPriorityOrder(t *testing.T) {
	t.Setenv("VECTOR_BACKENDS", "qdrant, postgres ,file")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"qdrant", "postgres", "file"}, cfg.VectorBackends)
}

func TestIsMatchDay(t *testing.T) {
	t.Parallel()

	cfg := Config{MatchDayHints: []string{"Friday", " saturday "}}

	friday := time.Date(2025, 10, 3, 18, 0, 0, 0, time.UTC)
	saturday := friday.AddDate(0, 0, 1)
	monday := friday.AddDate(0, 0, 3)

	assert.True(t, cfg.IsMatchDay(friday))
	assert.True(t, cfg.IsMatchDay(saturday))
	assert.False(t, cfg.IsMatchDay(monday))
}

func TestParseIdentifierBundle(t *testing.T) {
	t.Parallel()

	bundle, err := ParseIdentifierBundle(sampleBundle)
	require.NoError(t, err)

	assert.Equal(t, "ca", bundle.Tenant)
	assert.Len(t, bundle.Teams, 2)

	ref, ok := bundle.TeamByName("caroline springs blue u10")
	require.True(t, ok)
	assert.Equal(t, "team-blue-u10", ref.TeamID)

	_, ok = bundle.TeamByName("Melton Centrals")
	assert.False(t, ok)

	ref, ok = bundle.TeamByID("team-white-u10")
	require.True(t, ok)
	assert.Equal(t, "Caroline Springs White U10", ref.Name)
}

func TestParseIdentifierBundleInvalid(t *testing.T) {
	t.Parallel()

	_, err := ParseIdentifierBundle(`{"tenant": "ca", "teams": []}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "org_id is required")
	assert.Contains(t, err.Error(), "season_id is required")
	assert.Contains(t, err.Error(), "teams cannot be empty")
}

func TestResolveSecretsLiteral(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Mode:              ModePublic,
		PlayHQAPIKeyRef:   "plain-api-key",
		InternalBearerRef: "plain-bearer",
		LLMAPIKeyRef:      "plain-llm-key",
		IDBundleRef:       sampleBundle,
	}

	require.NoError(t, cfg.ResolveSecrets(context.Background(), nil))
	assert.Equal(t, "plain-api-key", cfg.PlayHQAPIKey)
	assert.Equal(t, "plain-bearer", cfg.InternalBearerToken)
	assert.Equal(t, "plain-llm-key", cfg.LLMAPIKey)
	assert.Equal(t, "org-csc", cfg.IDBundle.OrgID)
}

func TestResolveSecretsLLMKeyOptional(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Mode:              ModePublic,
		PlayHQAPIKeyRef:   "plain-api-key",
		InternalBearerRef: "plain-bearer",
		IDBundleRef:       sampleBundle,
	}

	require.NoError(t, cfg.ResolveSecrets(context.Background(), nil))
	assert.Empty(t, cfg.LLMAPIKey)
}

func TestResolveSecretsManaged(t *testing.T) {
	t.Parallel()

	accessor := &stubAccessor{values: map[string]string{
		"projects/p/secrets/playhq/versions/latest": "managed-key\n",
		"projects/p/secrets/bundle/versions/latest": sampleBundle,
	}}

	cfg := Config{
		Mode:              ModePublic,
		PlayHQAPIKeyRef:   "projects/p/secrets/playhq/versions/latest",
		InternalBearerRef: "plain-bearer",
		LLMAPIKeyRef:      "plain-llm-key",
		IDBundleRef:       "projects/p/secrets/bundle/versions/latest",
	}

	require.NoError(t, cfg.ResolveSecrets(context.Background(), accessor))
	assert.Equal(t, "managed-key", cfg.PlayHQAPIKey)
	assert.Equal(t, "season-2025", cfg.IDBundle.SeasonID)
}

func TestResolveSecretsManagedWithoutAccessor(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Mode:              ModePublic,
		PlayHQAPIKeyRef:   "projects/p/secrets/playhq/versions/latest",
		InternalBearerRef: "plain-bearer",
		LLMAPIKeyRef:      "plain-llm-key",
		IDBundleRef:       sampleBundle,
	}

	err := cfg.ResolveSecrets(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a secret accessor")
}

func TestResolveSecretsPrivateModeRequirements(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Mode:              ModePrivate,
		PlayHQAPIKeyRef:   "plain-api-key",
		InternalBearerRef: "plain-bearer",
		LLMAPIKeyRef:      "plain-llm-key",
		IDBundleRef:       sampleBundle,
	}

	err := cfg.ResolveSecrets(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLAYHQ_PRIVATE_TOKEN_REF is required")
	assert.Contains(t, err.Error(), "WEBHOOK_HMAC_SECRET_REF is required")
}
