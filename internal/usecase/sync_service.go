package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/carolinespringscc/cricket-agent/external/playhq"
	"github.com/carolinespringscc/cricket-agent/internal/blob"
	"github.com/carolinespringscc/cricket-agent/internal/config"
	"github.com/carolinespringscc/cricket-agent/internal/domain/document"
	"github.com/carolinespringscc/cricket-agent/internal/domain/fixture"
	"github.com/carolinespringscc/cricket-agent/internal/observability"
	"github.com/carolinespringscc/cricket-agent/internal/platform/logging"
	"github.com/carolinespringscc/cricket-agent/internal/snippet"
	"github.com/carolinespringscc/cricket-agent/internal/vectorstore"
)

// UpstreamProvider is the slice of the PlayHQ client the sync engine and the
// router's live fallback consume.
type UpstreamProvider interface {
	ListSeasons(ctx context.Context, orgID string) ([]playhq.Season, error)
	ListGrades(ctx context.Context, seasonID string) ([]playhq.Grade, error)
	ListTeams(ctx context.Context, gradeID string) ([]playhq.TeamSummary, error)
	ListTeamFixtures(ctx context.Context, teamID, seasonID string) ([]playhq.Game, error)
	GetLadder(ctx context.Context, gradeID string) (playhq.Ladder, []byte, error)
	GetGameSummary(ctx context.Context, gameID string) (playhq.GameSummary, []byte, error)
	GetRoster(ctx context.Context, teamID string) (playhq.Roster, error)
}

type SyncScope string

const (
	SyncScopeAll    SyncScope = "all"
	SyncScopeTeam   SyncScope = "team"
	SyncScopeMatch  SyncScope = "match"
	SyncScopeLadder SyncScope = "ladder"
)

func ParseSyncScope(v string) (SyncScope, error) {
	switch SyncScope(strings.ToLower(strings.TrimSpace(v))) {
	case SyncScopeAll:
		return SyncScopeAll, nil
	case SyncScopeTeam:
		return SyncScopeTeam, nil
	case SyncScopeMatch:
		return SyncScopeMatch, nil
	case SyncScopeLadder:
		return SyncScopeLadder, nil
	default:
		return "", fmt.Errorf("%w: unknown sync scope %q", ErrInvalidInput, v)
	}
}

type SyncInput struct {
	Scope SyncScope `json:"scope"`
	// ID narrows team, match and ladder scopes: a team id or name, a game
	// id, or a grade id respectively.
	ID string `json:"id,omitempty"`
}

// SyncStats is the fold of every per-entity outcome in a refresh. Errors
// counts absorbed failures; a refresh never aborts on one bad entity.
type SyncStats struct {
	TeamsUpdated      int   `json:"teams_updated"`
	FixturesUpdated   int   `json:"fixtures_updated"`
	LaddersUpdated    int   `json:"ladders_updated"`
	ScorecardsUpdated int   `json:"scorecards_updated"`
	ScorecardsSkipped int   `json:"scorecards_skipped"`
	RostersUpdated    int   `json:"rosters_updated"`
	VectorUpserts     int   `json:"vector_upserts"`
	DedupeHits        int   `json:"dedupe_hits"`
	GCSWrites         int   `json:"gcs_writes"`
	Errors            int   `json:"errors"`
	DurationMs        int64 `json:"duration_ms"`
}

type syncCounters struct {
	teams             atomic.Int64
	fixtures          atomic.Int64
	ladders           atomic.Int64
	scorecards        atomic.Int64
	scorecardsSkipped atomic.Int64
	rosters           atomic.Int64
	upserts           atomic.Int64
	dedupeHits        atomic.Int64
	gcsWrites         atomic.Int64
	errors            atomic.Int64
}

func (c *syncCounters) snapshot() SyncStats {
	return SyncStats{
		TeamsUpdated:      int(c.teams.Load()),
		FixturesUpdated:   int(c.fixtures.Load()),
		LaddersUpdated:    int(c.ladders.Load()),
		ScorecardsUpdated: int(c.scorecards.Load()),
		ScorecardsSkipped: int(c.scorecardsSkipped.Load()),
		RostersUpdated:    int(c.rosters.Load()),
		VectorUpserts:     int(c.upserts.Load()),
		DedupeHits:        int(c.dedupeHits.Load()),
		GCSWrites:         int(c.gcsWrites.Load()),
		Errors:            int(c.errors.Load()),
	}
}

type SyncConfig struct {
	Workers      int
	ScopeTimeout time.Duration
	// IncludeContact keeps roster contact details in private mode.
	IncludeContact bool
}

// SyncService drives ingestion from the provider into the vector store and
// the raw-payload mirror. Scopes compose out of the same per-entity steps,
// so a webhook replay and a nightly refresh converge on identical documents.
type SyncService struct {
	provider UpstreamProvider
	store    vectorstore.Store
	mirror   blob.Mirror
	bundle   config.IdentifierBundle
	metrics  *observability.Metrics
	logger   *logging.Logger
	cfg      SyncConfig

	now func() time.Time
}

func NewSyncService(
	provider UpstreamProvider,
	store vectorstore.Store,
	mirror blob.Mirror,
	bundle config.IdentifierBundle,
	metrics *observability.Metrics,
	logger *logging.Logger,
	cfg SyncConfig,
) *SyncService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.ScopeTimeout <= 0 {
		cfg.ScopeTimeout = 10 * time.Minute
	}

	return &SyncService{
		provider: provider,
		store:    store,
		mirror:   mirror,
		bundle:   bundle,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *SyncService) Run(ctx context.Context, input SyncInput) (SyncStats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncService.Run")
	defer span.End()

	if s.provider == nil || s.store == nil {
		return SyncStats{}, fmt.Errorf("%w: sync service is not fully configured", ErrDependencyUnavailable)
	}
	scope, err := ParseSyncScope(string(input.Scope))
	if err != nil {
		return SyncStats{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ScopeTimeout)
	defer cancel()

	start := s.now()
	counters := &syncCounters{}

	switch scope {
	case SyncScopeAll:
		err = s.runFullRefresh(ctx, counters)
	case SyncScopeTeam:
		err = s.runTeamRefresh(ctx, input.ID, counters)
	case SyncScopeMatch:
		err = s.runMatchRefresh(ctx, input.ID, counters)
	case SyncScopeLadder:
		err = s.runLadderRefresh(ctx, input.ID, counters)
	}

	stats := counters.snapshot()
	stats.DurationMs = time.Since(start).Milliseconds()

	outcome := "success"
	if err != nil {
		outcome = "failed"
	} else if stats.Errors > 0 {
		outcome = "partial"
	}
	if s.metrics != nil {
		s.metrics.SyncRuns.WithLabelValues(string(scope), outcome).Inc()
		s.metrics.SyncUpserts.Add(float64(stats.VectorUpserts))
		s.metrics.SyncDedupeHits.Add(float64(stats.DedupeHits))
		s.metrics.SyncErrors.Add(float64(stats.Errors))
	}
	s.logger.InfoContext(ctx, "sync run finished",
		"scope", string(scope),
		"outcome", outcome,
		"vector_upserts", stats.VectorUpserts,
		"dedupe_hits", stats.DedupeHits,
		"errors", stats.Errors,
		"duration_ms", stats.DurationMs,
	)

	if err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *SyncService) runFullRefresh(ctx context.Context, counters *syncCounters) error {
	seasonName := s.lookupSeasonName(ctx, counters)

	gradeIDs := newGradeSet(s.bundle.GradeID)

	pool, err := ants.NewPool(s.cfg.Workers)
	if err != nil {
		return fmt.Errorf("create sync worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for _, ref := range s.bundle.Teams {
		ref := ref
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			s.syncTeam(ctx, ref, seasonName, counters, gradeIDs)
		}); err != nil {
			workers.Done()
			return fmt.Errorf("submit team sync to worker pool: %w", err)
		}
	}
	workers.Wait()

	// Ladders run after the team fan-out so grades discovered from fixtures
	// are included.
	for _, gradeID := range gradeIDs.items() {
		s.syncLadder(ctx, gradeID, counters)
	}
	return nil
}

func (s *SyncService) runTeamRefresh(ctx context.Context, id string, counters *syncCounters) error {
	ref, err := s.resolveTeam(id)
	if err != nil {
		return err
	}
	seasonName := s.lookupSeasonName(ctx, counters)
	s.syncTeam(ctx, ref, seasonName, counters, newGradeSet(""))
	return nil
}

func (s *SyncService) runMatchRefresh(ctx context.Context, id string, counters *syncCounters) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: match scope requires a game id", ErrInvalidInput)
	}
	s.syncScorecard(ctx, id, "", counters)
	return nil
}

func (s *SyncService) runLadderRefresh(ctx context.Context, id string, counters *syncCounters) error {
	gradeID := strings.TrimSpace(id)
	if gradeID == "" {
		gradeID = s.bundle.GradeID
	}
	if gradeID == "" {
		return fmt.Errorf("%w: ladder scope requires a grade id", ErrInvalidInput)
	}
	s.syncLadder(ctx, gradeID, counters)
	return nil
}

func (s *SyncService) resolveTeam(id string) (config.TeamRef, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return config.TeamRef{}, fmt.Errorf("%w: team scope requires a team id or name", ErrInvalidInput)
	}
	if ref, ok := s.bundle.TeamByID(id); ok {
		return ref, nil
	}
	if ref, ok := ResolveTeam(s.bundle, id); ok {
		return ref, nil
	}
	return config.TeamRef{}, fmt.Errorf("%w: team %q is not in the identifier bundle", ErrNotFound, id)
}

// lookupSeasonName is display-only enrichment; a provider failure here is
// absorbed and the season label stays empty.
func (s *SyncService) lookupSeasonName(ctx context.Context, counters *syncCounters) string {
	seasons, err := s.provider.ListSeasons(ctx, s.bundle.OrgID)
	if err != nil {
		s.logger.WarnContext(ctx, "list seasons failed", "org_id", s.bundle.OrgID, "error", err)
		counters.errors.Add(1)
		return ""
	}
	for _, season := range seasons {
		if season.ID == s.bundle.SeasonID {
			return season.Name
		}
	}
	return ""
}

// syncTeam covers one team end to end: the team document, its fixtures,
// completed-fixture scorecards and the roster. Each step is best-effort.
func (s *SyncService) syncTeam(ctx context.Context, ref config.TeamRef, seasonName string, counters *syncCounters, grades *gradeSet) {
	games, err := s.provider.ListTeamFixtures(ctx, ref.TeamID, s.bundle.SeasonID)
	if err != nil {
		s.logger.ErrorContext(ctx, "list team fixtures failed", "team_id", ref.TeamID, "error", err)
		counters.errors.Add(1)
		games = nil
	}

	gradeName := ""
	for _, game := range games {
		if game.Grade.ID != "" {
			grades.add(game.Grade.ID)
			if gradeName == "" {
				gradeName = game.Grade.Name
			}
		}
	}

	teamRecord := snippet.NormalizeTeam(playhq.TeamSummary{
		ID:        ref.TeamID,
		Name:      ref.Name,
		GradeName: gradeName,
	}, seasonName)
	teamDocs := s.stamp(document.KindTeam, snippet.Documents(document.KindTeam, ref.TeamID, snippet.Team(teamRecord)), map[string]string{
		document.MetaTeamID: ref.TeamID,
	})
	if s.upsert(ctx, teamDocs, counters) {
		counters.teams.Add(1)
	}

	for _, game := range games {
		normalized, err := snippet.NormalizeFixture(game)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping fixture", "game_id", game.ID, "error", err)
			counters.errors.Add(1)
			continue
		}
		docs := s.stamp(document.KindFixture, snippet.Documents(document.KindFixture, normalized.ID, snippet.Fixture(normalized)), map[string]string{
			document.MetaTeamID:  ref.TeamID,
			document.MetaGradeID: normalized.GradeID,
			document.MetaDate:    normalized.StartsAt.Format("2006-01-02"),
		})
		if s.upsert(ctx, docs, counters) {
			counters.fixtures.Add(1)
		}
		if normalized.Status == fixture.StatusCompleted {
			s.syncScorecard(ctx, normalized.ID, ref.Name, counters)
		}
	}

	s.syncRoster(ctx, ref, counters)
}

func (s *SyncService) syncRoster(ctx context.Context, ref config.TeamRef, counters *syncCounters) {
	raw, err := s.provider.GetRoster(ctx, ref.TeamID)
	if err != nil {
		s.logger.ErrorContext(ctx, "get roster failed", "team_id", ref.TeamID, "error", err)
		counters.errors.Add(1)
		return
	}
	if raw.Team.ID == "" {
		raw.Team = playhq.TeamRef{ID: ref.TeamID, Name: ref.Name}
	}

	normalized := snippet.NormalizeRoster(raw, s.cfg.IncludeContact, s.now().UTC())
	docs := s.stamp(document.KindRoster, snippet.Documents(document.KindRoster, ref.TeamID, snippet.Roster(normalized)), map[string]string{
		document.MetaTeamID: ref.TeamID,
	})
	if s.upsert(ctx, docs, counters) {
		counters.rosters.Add(1)
	}
}

// syncScorecard ingests one game summary and mirrors the raw payload.
// teamName may be empty for match-scope refreshes; the slug then comes from
// whichever innings belongs to a configured team.
func (s *SyncService) syncScorecard(ctx context.Context, gameID, teamName string, counters *syncCounters) {
	summary, raw, err := s.provider.GetGameSummary(ctx, gameID)
	if err != nil {
		s.logger.ErrorContext(ctx, "get game summary failed", "game_id", gameID, "error", err)
		counters.errors.Add(1)
		return
	}
	if !summary.IsCompleted {
		// Not an error: only completed fixtures are eligible.
		s.logger.DebugContext(ctx, "skipping scorecard for incomplete game", "game_id", gameID, "status", summary.Status)
		counters.scorecardsSkipped.Add(1)
		return
	}

	normalized, err := snippet.NormalizeScorecard(summary)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping scorecard", "game_id", gameID, "error", err)
		counters.errors.Add(1)
		return
	}

	meta := map[string]string{}
	if !normalized.Date.IsZero() {
		meta[document.MetaDate] = normalized.Date.Format("2006-01-02")
	}
	if ref, ok := s.ownTeamForSummary(summary); ok {
		meta[document.MetaTeamID] = ref.TeamID
		if teamName == "" {
			teamName = ref.Name
		}
	}
	docs := s.stamp(document.KindScorecard, snippet.Documents(document.KindScorecard, normalized.FixtureID, snippet.Scorecard(normalized)), meta)
	if s.upsert(ctx, docs, counters) {
		counters.scorecards.Add(1)
	}

	if teamName == "" {
		teamName = summary.Home.Team.Name
	}
	at := normalized.Date
	if at.IsZero() {
		at = s.now().UTC()
	}
	s.mirrorPayload(ctx, blob.MatchPath(teamName, gameID, at), raw, counters)
}

func (s *SyncService) syncLadder(ctx context.Context, gradeID string, counters *syncCounters) {
	raw, payload, err := s.provider.GetLadder(ctx, gradeID)
	if err != nil {
		s.logger.ErrorContext(ctx, "get ladder failed", "grade_id", gradeID, "error", err)
		counters.errors.Add(1)
		return
	}
	if raw.Grade.ID == "" {
		raw.Grade.ID = gradeID
	}

	normalized := snippet.NormalizeLadder(raw, s.bundle.SeasonID)
	docs := s.stamp(document.KindLadder, snippet.Documents(document.KindLadder, gradeID, snippet.Ladder(normalized)), map[string]string{
		document.MetaGradeID: gradeID,
		document.MetaDate:    s.now().UTC().Format("2006-01-02"),
	})
	if s.upsert(ctx, docs, counters) {
		counters.ladders.Add(1)
	}

	s.mirrorPayload(ctx, blob.LadderPath(gradeID, s.now().UTC()), payload, counters)
}

func (s *SyncService) ownTeamForSummary(summary playhq.GameSummary) (config.TeamRef, bool) {
	if ref, ok := s.bundle.TeamByID(summary.Home.Team.ID); ok {
		return ref, true
	}
	if ref, ok := s.bundle.TeamByID(summary.Away.Team.ID); ok {
		return ref, true
	}
	return config.TeamRef{}, false
}

func (s *SyncService) stamp(kind document.Kind, docs []document.Document, extra map[string]string) []document.Document {
	return stampDocuments(s.bundle.SeasonID, kind, docs, extra)
}

// stampDocuments applies shared metadata to every chunk of an entity. Season
// id and document type are always present; callers add the entity-specific
// keys. Empty values are dropped so filters never match on blanks.
func stampDocuments(seasonID string, kind document.Kind, docs []document.Document, extra map[string]string) []document.Document {
	for i := range docs {
		meta := map[string]string{
			document.MetaSeasonID: seasonID,
			document.MetaType:     string(kind),
		}
		for key, value := range extra {
			if value != "" {
				meta[key] = value
			}
		}
		docs[i].Metadata = meta
	}
	return docs
}

func (s *SyncService) upsert(ctx context.Context, docs []document.Document, counters *syncCounters) bool {
	result, err := s.store.Upsert(ctx, docs)
	if err != nil {
		s.logger.ErrorContext(ctx, "vector upsert failed", "docs", len(docs), "error", err)
		counters.errors.Add(1)
		return false
	}
	counters.upserts.Add(int64(result.Upserted))
	counters.dedupeHits.Add(int64(len(result.DedupeHits)))
	counters.errors.Add(int64(len(result.Errors)))
	return true
}

func (s *SyncService) mirrorPayload(ctx context.Context, path string, payload []byte, counters *syncCounters) {
	if s.mirror == nil || len(payload) == 0 {
		return
	}
	location, err := s.mirror.Write(ctx, path, blob.PrettyJSON(payload))
	if err != nil {
		s.logger.ErrorContext(ctx, "mirror write failed", "path", path, "error", err)
		counters.errors.Add(1)
		return
	}
	counters.gcsWrites.Add(1)
	s.logger.DebugContext(ctx, "mirrored raw payload", "location", location)
}

// gradeSet collects grade ids discovered during the team fan-out.
type gradeSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newGradeSet(seed string) *gradeSet {
	set := &gradeSet{ids: make(map[string]struct{})}
	if seed != "" {
		set.ids[seed] = struct{}{}
	}
	return set
}

func (g *gradeSet) add(id string) {
	g.mu.Lock()
	g.ids[id] = struct{}{}
	g.mu.Unlock()
}

func (g *gradeSet) items() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.ids))
	for id := range g.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
