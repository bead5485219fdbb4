package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/carolinespringscc/cricket-agent/external/playhq"
	"github.com/carolinespringscc/cricket-agent/internal/config"
	"github.com/carolinespringscc/cricket-agent/internal/domain/document"
	"github.com/carolinespringscc/cricket-agent/internal/observability"
	"github.com/carolinespringscc/cricket-agent/internal/platform/logging"
	"github.com/carolinespringscc/cricket-agent/internal/snippet"
	"github.com/carolinespringscc/cricket-agent/internal/vectorstore"
)

// Provider push events. Signature verification happens in the HTTP layer;
// this service only sees authenticated bodies.
const (
	WebhookFixtureUpdated   = "fixture_updated"
	WebhookScorecardUpdated = "scorecard_updated"
	WebhookLadderUpdated    = "ladder_updated"
	WebhookRosterUpdated    = "roster_updated"
)

type webhookEnvelope struct {
	Events []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type WebhookResult struct {
	ProcessedCount int      `json:"processed_count"`
	Errors         []string `json:"errors"`
}

type WebhookConfig struct {
	IncludeContact bool
}

// WebhookService turns provider push events into store upserts through the
// same normalizers the sync engine uses. Replays are harmless: the content
// hash gate turns a duplicate event into a dedupe hit.
type WebhookService struct {
	store   vectorstore.Store
	bundle  config.IdentifierBundle
	metrics *observability.Metrics
	logger  *logging.Logger
	cfg     WebhookConfig

	now func() time.Time
}

func NewWebhookService(
	store vectorstore.Store,
	bundle config.IdentifierBundle,
	metrics *observability.Metrics,
	logger *logging.Logger,
	cfg WebhookConfig,
) *WebhookService {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookService{
		store:   store,
		bundle:  bundle,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *WebhookService) Process(ctx context.Context, body []byte) (WebhookResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WebhookService.Process")
	defer span.End()

	if s.store == nil {
		return WebhookResult{}, fmt.Errorf("%w: webhook service is not fully configured", ErrDependencyUnavailable)
	}

	var envelope webhookEnvelope
	if err := sonic.Unmarshal(body, &envelope); err != nil {
		return WebhookResult{}, fmt.Errorf("%w: decode webhook payload: %v", ErrInvalidInput, err)
	}
	if len(envelope.Events) == 0 {
		return WebhookResult{}, fmt.Errorf("%w: webhook payload carries no events", ErrInvalidInput)
	}

	result := WebhookResult{Errors: []string{}}
	for i, event := range envelope.Events {
		kind := strings.ToLower(strings.TrimSpace(event.Kind))
		outcome, err := s.processEvent(ctx, kind, event.Data)
		if s.metrics != nil {
			label := kind
			if label == "" {
				label = "unknown"
			}
			s.metrics.WebhookEvents.WithLabelValues(label, outcome).Inc()
		}
		if err != nil {
			s.logger.WarnContext(ctx, "webhook event failed", "kind", kind, "index", i, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("event[%d] %s: %v", i, kind, err))
			continue
		}
		result.ProcessedCount++
	}
	return result, nil
}

// processEvent returns the metrics outcome label alongside any error.
func (s *WebhookService) processEvent(ctx context.Context, kind string, data json.RawMessage) (string, error) {
	switch kind {
	case WebhookFixtureUpdated:
		return s.processFixture(ctx, data)
	case WebhookScorecardUpdated:
		return s.processScorecard(ctx, data)
	case WebhookLadderUpdated:
		return s.processLadder(ctx, data)
	case WebhookRosterUpdated:
		return s.processRoster(ctx, data)
	default:
		return "rejected", fmt.Errorf("unsupported event kind %q", kind)
	}
}

func (s *WebhookService) processFixture(ctx context.Context, data json.RawMessage) (string, error) {
	var game playhq.Game
	if err := sonic.Unmarshal(data, &game); err != nil {
		return "rejected", fmt.Errorf("decode fixture event: %w", err)
	}
	normalized, err := snippet.NormalizeFixture(game)
	if err != nil {
		return "rejected", err
	}

	extra := map[string]string{
		document.MetaGradeID: normalized.GradeID,
		document.MetaDate:    normalized.StartsAt.Format("2006-01-02"),
	}
	if ref, ok := s.bundle.TeamByID(game.HomeTeam.ID); ok {
		extra[document.MetaTeamID] = ref.TeamID
	} else if ref, ok := s.bundle.TeamByID(game.AwayTeam.ID); ok {
		extra[document.MetaTeamID] = ref.TeamID
	}

	docs := stampDocuments(s.bundle.SeasonID, document.KindFixture,
		snippet.Documents(document.KindFixture, normalized.ID, snippet.Fixture(normalized)), extra)
	return s.upsert(ctx, docs)
}

func (s *WebhookService) processScorecard(ctx context.Context, data json.RawMessage) (string, error) {
	var summary playhq.GameSummary
	if err := sonic.Unmarshal(data, &summary); err != nil {
		return "rejected", fmt.Errorf("decode scorecard event: %w", err)
	}
	if !summary.IsCompleted {
		s.logger.DebugContext(ctx, "skipping scorecard event for incomplete game", "game_id", summary.ID)
		return "skipped", nil
	}

	normalized, err := snippet.NormalizeScorecard(summary)
	if err != nil {
		return "rejected", err
	}

	extra := map[string]string{}
	if !normalized.Date.IsZero() {
		extra[document.MetaDate] = normalized.Date.Format("2006-01-02")
	}
	if ref, ok := s.bundle.TeamByID(summary.Home.Team.ID); ok {
		extra[document.MetaTeamID] = ref.TeamID
	} else if ref, ok := s.bundle.TeamByID(summary.Away.Team.ID); ok {
		extra[document.MetaTeamID] = ref.TeamID
	}

	docs := stampDocuments(s.bundle.SeasonID, document.KindScorecard,
		snippet.Documents(document.KindScorecard, normalized.FixtureID, snippet.Scorecard(normalized)), extra)
	return s.upsert(ctx, docs)
}

func (s *WebhookService) processLadder(ctx context.Context, data json.RawMessage) (string, error) {
	var ladder playhq.Ladder
	if err := sonic.Unmarshal(data, &ladder); err != nil {
		return "rejected", fmt.Errorf("decode ladder event: %w", err)
	}
	if ladder.Grade.ID == "" {
		return "rejected", fmt.Errorf("ladder event has no grade id")
	}

	normalized := snippet.NormalizeLadder(ladder, s.bundle.SeasonID)
	docs := stampDocuments(s.bundle.SeasonID, document.KindLadder,
		snippet.Documents(document.KindLadder, ladder.Grade.ID, snippet.Ladder(normalized)), map[string]string{
			document.MetaGradeID: ladder.Grade.ID,
			document.MetaDate:    s.now().UTC().Format("2006-01-02"),
		})
	return s.upsert(ctx, docs)
}

func (s *WebhookService) processRoster(ctx context.Context, data json.RawMessage) (string, error) {
	var roster playhq.Roster
	if err := sonic.Unmarshal(data, &roster); err != nil {
		return "rejected", fmt.Errorf("decode roster event: %w", err)
	}
	if roster.Team.ID == "" {
		return "rejected", fmt.Errorf("roster event has no team id")
	}

	normalized := snippet.NormalizeRoster(roster, s.cfg.IncludeContact, s.now().UTC())
	docs := stampDocuments(s.bundle.SeasonID, document.KindRoster,
		snippet.Documents(document.KindRoster, roster.Team.ID, snippet.Roster(normalized)), map[string]string{
			document.MetaTeamID: roster.Team.ID,
		})
	return s.upsert(ctx, docs)
}

func (s *WebhookService) upsert(ctx context.Context, docs []document.Document) (string, error) {
	result, err := s.store.Upsert(ctx, docs)
	if err != nil {
		return "failed", err
	}
	if len(result.Errors) > 0 {
		return "failed", fmt.Errorf("%d of %d documents rejected by store", len(result.Errors), len(docs))
	}
	if result.Upserted == 0 && len(result.DedupeHits) > 0 {
		return "deduped", nil
	}
	return "processed", nil
}
