package playhq

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/carolinespringscc/cricket-agent/internal/platform/logging"
	"github.com/carolinespringscc/cricket-agent/internal/platform/resilience"
)

// ErrUnavailable marks failures where the provider could not serve at all,
// including an open circuit. Callers degrade instead of propagating it.
var ErrUnavailable = crerr.New("playhq unavailable")

const (
	defaultBaseURL = "https://api.playhq.com/v1"
	maxBodyBytes   = 6 << 20
	pageSize       = 50
)

var apiKeyHeaderRegex = regexp.MustCompile(`(?i)x-api-key:\s*\S+`)
var errPlayHQTransient = crerr.New("playhq transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Tenant         string
	PrivateToken   string
	Timeout        time.Duration
	MaxRetries     int
	RatePerSecond  float64
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client is the single point of contact with the provider. It is pooled,
// rate limited and safe for concurrent use.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	tenant         string
	privateToken   string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
	limiter        *rate.Limiter
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 8
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		tenant:         strings.TrimSpace(cfg.Tenant),
		privateToken:   strings.TrimSpace(cfg.PrivateToken),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg),
		circuitEnabled: breakerCfg.Enabled,
		limiter:        rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1),
	}
}

type pageMetadata struct {
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor"`
}

type seasonsEnvelope struct {
	Data     []Season     `json:"data"`
	Metadata pageMetadata `json:"metadata"`
}

type gradesEnvelope struct {
	Data     []Grade      `json:"data"`
	Metadata pageMetadata `json:"metadata"`
}

type teamsEnvelope struct {
	Data     []TeamSummary `json:"data"`
	Metadata pageMetadata  `json:"metadata"`
}

type gamesEnvelope struct {
	Data     []Game       `json:"data"`
	Metadata pageMetadata `json:"metadata"`
}

type ladderEnvelope struct {
	Data Ladder `json:"data"`
}

type gameSummaryEnvelope struct {
	Data GameSummary `json:"data"`
}

type rosterEnvelope struct {
	Data Roster `json:"data"`
}

// ListSeasons fetches every season for the organization, following cursors.
func (c *Client) ListSeasons(ctx context.Context, orgID string) ([]Season, error) {
	if strings.TrimSpace(orgID) == "" {
		return nil, fmt.Errorf("organization id is required")
	}

	var out []Season
	err := c.fetchAllPages(ctx, fmt.Sprintf("/organisations/%s/seasons", url.PathEscape(orgID)), func(raw []byte) (pageMetadata, error) {
		var envelope seasonsEnvelope
		if err := sonic.Unmarshal(raw, &envelope); err != nil {
			return pageMetadata{}, fmt.Errorf("decode seasons page: %w", err)
		}
		out = append(out, envelope.Data...)
		return envelope.Metadata, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list seasons org_id=%s: %w", orgID, err)
	}

	return out, nil
}

func (c *Client) ListGrades(ctx context.Context, seasonID string) ([]Grade, error) {
	if strings.TrimSpace(seasonID) == "" {
		return nil, fmt.Errorf("season id is required")
	}

	var out []Grade
	err := c.fetchAllPages(ctx, fmt.Sprintf("/seasons/%s/grades", url.PathEscape(seasonID)), func(raw []byte) (pageMetadata, error) {
		var envelope gradesEnvelope
		if err := sonic.Unmarshal(raw, &envelope); err != nil {
			return pageMetadata{}, fmt.Errorf("decode grades page: %w", err)
		}
		out = append(out, envelope.Data...)
		return envelope.Metadata, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list grades season_id=%s: %w", seasonID, err)
	}

	return out, nil
}

func (c *Client) ListTeams(ctx context.Context, gradeID string) ([]TeamSummary, error) {
	if strings.TrimSpace(gradeID) == "" {
		return nil, fmt.Errorf("grade id is required")
	}

	var out []TeamSummary
	err := c.fetchAllPages(ctx, fmt.Sprintf("/grades/%s/teams", url.PathEscape(gradeID)), func(raw []byte) (pageMetadata, error) {
		var envelope teamsEnvelope
		if err := sonic.Unmarshal(raw, &envelope); err != nil {
			return pageMetadata{}, fmt.Errorf("decode teams page: %w", err)
		}
		out = append(out, envelope.Data...)
		return envelope.Metadata, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list teams grade_id=%s: %w", gradeID, err)
	}

	return out, nil
}

func (c *Client) ListTeamFixtures(ctx context.Context, teamID, seasonID string) ([]Game, error) {
	if strings.TrimSpace(teamID) == "" || strings.TrimSpace(seasonID) == "" {
		return nil, fmt.Errorf("team id and season id are required")
	}

	var out []Game
	path := fmt.Sprintf("/teams/%s/fixture?season=%s", url.PathEscape(teamID), url.QueryEscape(seasonID))
	err := c.fetchAllPages(ctx, path, func(raw []byte) (pageMetadata, error) {
		var envelope gamesEnvelope
		if err := sonic.Unmarshal(raw, &envelope); err != nil {
			return pageMetadata{}, fmt.Errorf("decode fixtures page: %w", err)
		}
		out = append(out, envelope.Data...)
		return envelope.Metadata, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list fixtures team_id=%s season_id=%s: %w", teamID, seasonID, err)
	}

	return out, nil
}

// GetLadder also returns the raw payload so the sync engine can mirror it.
func (c *Client) GetLadder(ctx context.Context, gradeID string) (Ladder, []byte, error) {
	if strings.TrimSpace(gradeID) == "" {
		return Ladder{}, nil, fmt.Errorf("grade id is required")
	}

	var envelope ladderEnvelope
	raw, err := c.doJSON(ctx, fmt.Sprintf("/grades/%s/ladder", url.PathEscape(gradeID)), &envelope)
	if err != nil {
		return Ladder{}, nil, fmt.Errorf("fetch ladder grade_id=%s: %w", gradeID, err)
	}

	return envelope.Data, raw, nil
}

// GetGameSummary also returns the raw payload so the sync engine can mirror it.
func (c *Client) GetGameSummary(ctx context.Context, gameID string) (GameSummary, []byte, error) {
	if strings.TrimSpace(gameID) == "" {
		return GameSummary{}, nil, fmt.Errorf("game id is required")
	}

	var envelope gameSummaryEnvelope
	raw, err := c.doJSON(ctx, fmt.Sprintf("/games/%s/summary", url.PathEscape(gameID)), &envelope)
	if err != nil {
		return GameSummary{}, nil, fmt.Errorf("fetch game summary game_id=%s: %w", gameID, err)
	}

	return envelope.Data, raw, nil
}

func (c *Client) GetRoster(ctx context.Context, teamID string) (Roster, error) {
	if strings.TrimSpace(teamID) == "" {
		return Roster{}, fmt.Errorf("team id is required")
	}

	var envelope rosterEnvelope
	_, err := c.doJSON(ctx, fmt.Sprintf("/teams/%s/roster", url.PathEscape(teamID)), &envelope)
	if err != nil {
		return Roster{}, fmt.Errorf("fetch roster team_id=%s: %w", teamID, err)
	}

	return envelope.Data, nil
}

func (c *Client) fetchAllPages(ctx context.Context, path string, consume func(raw []byte) (pageMetadata, error)) error {
	cursor := ""
	for page := 0; ; page++ {
		pagedPath := withPageParams(path, cursor)
		raw, err := c.doJSON(ctx, pagedPath, nil)
		if err != nil {
			return err
		}

		meta, err := consume(raw)
		if err != nil {
			return err
		}
		if !meta.HasMore || meta.NextCursor == "" || meta.NextCursor == cursor {
			return nil
		}
		cursor = meta.NextCursor
	}
}

func withPageParams(path, cursor string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	out := fmt.Sprintf("%s%spage.size=%d", path, sep, pageSize)
	if cursor != "" {
		out += "&page.cursor=" + url.QueryEscape(cursor)
	}
	return out
}

func (c *Client) doJSON(ctx context.Context, path string, target any) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "playhq circuit breaker rejected request", "state", c.breaker.State().String())
			return nil, fmt.Errorf("%w: upstream provider is temporarily unavailable", ErrUnavailable)
		}
	}

	fullURL := c.baseURL + path
	out, err, _ := c.flight.Do(path, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errPlayHQTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}

	if target != nil {
		if err := sonic.Unmarshal(raw, target); err != nil {
			return nil, fmt.Errorf("decode provider payload: %w", err)
		}
	}

	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("x-phq-tenant", c.tenant)
		if c.privateToken != "" {
			req.Header.Set("authorization", "Bearer "+c.privateToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errPlayHQTransient, c.sanitize(err.Error()))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errPlayHQTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errPlayHQTransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(retryBackoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "playhq request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) sanitize(value string) string {
	value = strings.TrimSpace(value)
	if c.apiKey != "" {
		value = strings.ReplaceAll(value, c.apiKey, "REDACTED")
	}
	if c.privateToken != "" {
		value = strings.ReplaceAll(value, c.privateToken, "REDACTED")
	}
	return apiKeyHeaderRegex.ReplaceAllString(value, "x-api-key: REDACTED")
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// retryBackoff doubles per attempt (1s, 2s, 4s), capped at 8s, with up to
// 500ms of jitter.
func retryBackoff(attempt int) time.Duration {
	base := time.Second << uint(attempt)
	if base > 8*time.Second {
		base = 8 * time.Second
	}
	return base + time.Duration(rand.Int63n(int64(500*time.Millisecond)))
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
