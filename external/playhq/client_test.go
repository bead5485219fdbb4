package playhq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carolinespringscc/cricket-agent/internal/platform/logging"
	"github.com/carolinespringscc/cricket-agent/internal/platform/resilience"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL:       server.URL,
		APIKey:        "test-key",
		Tenant:        "ca",
		Timeout:       5 * time.Second,
		MaxRetries:    2,
		RatePerSecond: 1000,
		Logger:        logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          false,
			FailureThreshold: 5,
			OpenTimeout:      time.Second,
			HalfOpenMaxReq:   1,
		},
	})
	return client, server
}

func TestListTeamsFollowsCursors(t *testing.T) {
	t.Parallel()

	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "ca", r.Header.Get("x-phq-tenant"))

		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) == 1 {
			_, _ = w.Write([]byte(`{"data":[{"id":"t1","name":"Blue U10"}],"metadata":{"hasMore":true,"nextCursor":"c2"}}`))
			return
		}
		assert.Equal(t, "c2", r.URL.Query().Get("page.cursor"))
		_, _ = w.Write([]byte(`{"data":[{"id":"t2","name":"White U10"}],"metadata":{"hasMore":false}}`))
	}))

	teams, err := client.ListTeams(context.Background(), "grade-a")
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, "t1", teams[0].ID)
	assert.Equal(t, "t2", teams[1].ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetGameSummaryRetriesTransient(t *testing.T) {
	t.Parallel()

	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"id":"m-100","status":"FINAL","isCompleted":true}}`))
	}))

	summary, raw, err := client.GetGameSummary(context.Background(), "m-100")
	require.NoError(t, err)
	assert.Equal(t, "m-100", summary.ID)
	assert.True(t, summary.IsCompleted)
	assert.Contains(t, string(raw), `"m-100"`)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetRosterPermanentErrorDoesNotRetry(t *testing.T) {
	t.Parallel()

	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"no such team"}`))
	}))

	_, err := client.GetRoster(context.Background(), "team-missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=404")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCircuitBreakerShortCircuits(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL:       server.URL,
		APIKey:        "test-key",
		Tenant:        "ca",
		MaxRetries:    0,
		RatePerSecond: 1000,
		Logger:        logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	_, _, err := client.GetLadder(context.Background(), "grade-a")
	require.Error(t, err)

	_, _, err = client.GetLadder(context.Background(), "grade-a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temporarily unavailable")
}

func TestRetryBackoffDoublesAndCaps(t *testing.T) {
	t.Parallel()

	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		delay := retryBackoff(attempt)
		assert.GreaterOrEqual(t, delay, base, "attempt %d", attempt)
		assert.Less(t, delay, base+500*time.Millisecond, "attempt %d", attempt)
	}
	assert.Less(t, retryBackoff(20), 8*time.Second+500*time.Millisecond)
}

func TestPrivateTokenHeader(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer private-token", r.Header.Get("authorization"))
		_, _ = w.Write([]byte(`{"data":{"team":{"id":"t1","name":"Blue U10"},"players":[]}}`))
	}))
	client.privateToken = "private-token"
	_ = server

	_, err := client.GetRoster(context.Background(), "t1")
	require.NoError(t, err)
}
