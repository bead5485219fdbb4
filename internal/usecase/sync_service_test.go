package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"

	sonic "github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carolinespringscc/cricket-agent/external/playhq"
	"github.com/carolinespringscc/cricket-agent/internal/platform/logging"
	"github.com/carolinespringscc/cricket-agent/internal/vectorstore"
)

type stubProvider struct {
	seasons     []playhq.Season
	games       map[string][]playhq.Game
	ladders     map[string]playhq.Ladder
	summaries   map[string]playhq.GameSummary
	rosters     map[string]playhq.Roster
	fixturesErr map[string]error
}

func (p *stubProvider) ListSeasons(context.Context, string) ([]playhq.Season, error) {
	return p.seasons, nil
}

func (p *stubProvider) ListGrades(context.Context, string) ([]playhq.Grade, error) {
	return nil, nil
}

func (p *stubProvider) ListTeams(context.Context, string) ([]playhq.TeamSummary, error) {
	return nil, nil
}

func (p *stubProvider) ListTeamFixtures(_ context.Context, teamID, _ string) ([]playhq.Game, error) {
	if err := p.fixturesErr[teamID]; err != nil {
		return nil, err
	}
	return p.games[teamID], nil
}

func (p *stubProvider) GetLadder(_ context.Context, gradeID string) (playhq.Ladder, []byte, error) {
	ladder, ok := p.ladders[gradeID]
	if !ok {
		return playhq.Ladder{}, nil, fmt.Errorf("no ladder for grade %s", gradeID)
	}
	raw, _ := sonic.Marshal(ladder)
	return ladder, raw, nil
}

func (p *stubProvider) GetGameSummary(_ context.Context, gameID string) (playhq.GameSummary, []byte, error) {
	summary, ok := p.summaries[gameID]
	if !ok {
		return playhq.GameSummary{}, nil, fmt.Errorf("no summary for game %s", gameID)
	}
	raw, _ := sonic.Marshal(summary)
	return summary, raw, nil
}

func (p *stubProvider) GetRoster(_ context.Context, teamID string) (playhq.Roster, error) {
	roster, ok := p.rosters[teamID]
	if !ok {
		return playhq.Roster{}, fmt.Errorf("no roster for team %s", teamID)
	}
	return roster, nil
}

type stubMirror struct {
	mu    sync.Mutex
	paths []string
}

func (m *stubMirror) Write(_ context.Context, path string, _ []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, path)
	return "local://" + path, nil
}

func (m *stubMirror) written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

func newSyncProvider() *stubProvider {
	grade := playhq.Grade{ID: "grade-a", Name: "U10 Mixed Friday"}
	return &stubProvider{
		seasons: []playhq.Season{{ID: "season-2025", Name: "Summer 2025/26", Status: "ACTIVE"}},
		games: map[string][]playhq.Game{
			"team-blue": {
				{
					ID:       "game-1",
					Status:   "FINAL",
					Schedule: playhq.Schedule{Timestamp: "2025-10-04T09:00:00+11:00"},
					Venue:    playhq.Venue{Name: "Town Centre Oval"},
					HomeTeam: playhq.TeamRef{ID: "team-blue", Name: "Caroline Springs Blue U10"},
					AwayTeam: playhq.TeamRef{ID: "team-opp", Name: "Sunbury Strikers"},
					Grade:    grade,
					Result:   "Caroline Springs Blue U10 won by 12 runs",
				},
				{
					ID:       "game-2",
					Status:   "UPCOMING",
					Schedule: playhq.Schedule{Timestamp: "2030-01-10T09:30:00+11:00"},
					Venue:    playhq.Venue{Name: "Springside Reserve"},
					HomeTeam: playhq.TeamRef{ID: "team-blue", Name: "Caroline Springs Blue U10"},
					AwayTeam: playhq.TeamRef{ID: "team-opp2", Name: "Melton Centrals"},
					Grade:    grade,
				},
			},
			"team-white": {
				{
					ID:       "game-3",
					Status:   "UPCOMING",
					Schedule: playhq.Schedule{Timestamp: "2030-01-11T10:00:00+11:00"},
					Venue:    playhq.Venue{Name: "Arnolds Creek Reserve"},
					HomeTeam: playhq.TeamRef{ID: "team-opp3", Name: "Bacchus Marsh"},
					AwayTeam: playhq.TeamRef{ID: "team-white", Name: "Caroline Springs White U10"},
					Grade:    grade,
				},
			},
			"team-gold": {},
		},
		ladders: map[string]playhq.Ladder{
			"grade-a": {
				Grade: playhq.Grade{ID: "grade-a", Name: "U10 Mixed Friday"},
				Standings: []playhq.LadderStanding{
					{Rank: 1, Team: playhq.TeamRef{ID: "team-opp", Name: "Sunbury Strikers"}, Played: 5, Won: 4, Lost: 1, Points: 16},
					{Rank: 2, Team: playhq.TeamRef{ID: "team-blue", Name: "Caroline Springs Blue U10"}, Played: 5, Won: 3, Lost: 2, Points: 12},
				},
			},
		},
		summaries: map[string]playhq.GameSummary{
			"game-1": {
				ID:          "game-1",
				Status:      "FINAL",
				Date:        "2025-10-04",
				Result:      "Caroline Springs Blue U10 won by 12 runs",
				IsCompleted: true,
				Home: playhq.InningsSummary{
					Team:    playhq.TeamRef{ID: "team-blue", Name: "Caroline Springs Blue U10"},
					Runs:    98,
					Wickets: 4,
					Overs:   20,
					Batting: []playhq.BattingEntry{
						{Player: playhq.TeamRef{ID: "p-1", Name: "Oliver Nguyen"}, Runs: 34, BallsFaced: 28, Fours: 4},
					},
				},
				Away: playhq.InningsSummary{
					Team:    playhq.TeamRef{ID: "team-opp", Name: "Sunbury Strikers"},
					Runs:    86,
					Wickets: 7,
					Overs:   20,
				},
			},
		},
		rosters: map[string]playhq.Roster{
			"team-blue": {
				Team: playhq.TeamRef{ID: "team-blue", Name: "Caroline Springs Blue U10"},
				Players: []playhq.RosterPlayer{
					{ID: "p-1", FirstName: "Oliver", LastName: "Nguyen", Role: "Batter", IsCaptain: true},
					{ID: "p-2", FirstName: "Harper", LastName: "Singh", Role: "Bowler"},
				},
			},
			"team-white": {
				Team: playhq.TeamRef{ID: "team-white", Name: "Caroline Springs White U10"},
				Players: []playhq.RosterPlayer{
					{ID: "p-3", FirstName: "Mia", LastName: "Kelleher", Role: "All-rounder"},
				},
			},
			"team-gold": {
				Team: playhq.TeamRef{ID: "team-gold", Name: "Caroline Springs Gold U12"},
				Players: []playhq.RosterPlayer{
					{ID: "p-4", FirstName: "Jack", LastName: "Okafor"},
				},
			},
		},
	}
}

func newSyncService(provider *stubProvider, store *vectorstore.Memory, mirror *stubMirror) *SyncService {
	return NewSyncService(provider, store, mirror, testBundle(), nil, logging.NewNop(), SyncConfig{Workers: 2})
}

func TestFullRefreshCollectsStats(t *testing.T) {
	t.Parallel()

	provider := newSyncProvider()
	store := vectorstore.NewMemory(nil)
	mirror := &stubMirror{}
	svc := newSyncService(provider, store, mirror)

	stats, err := svc.Run(context.Background(), SyncInput{Scope: SyncScopeAll})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TeamsUpdated)
	assert.Equal(t, 3, stats.FixturesUpdated)
	assert.Equal(t, 1, stats.LaddersUpdated)
	assert.Equal(t, 1, stats.ScorecardsUpdated)
	assert.Equal(t, 3, stats.RostersUpdated)
	assert.Equal(t, 0, stats.Errors)
	assert.Greater(t, stats.VectorUpserts, 0)
	assert.Equal(t, 2, stats.GCSWrites)

	paths := mirror.written()
	assert.Contains(t, paths, "cricket/caroline-springs-blue-u10/2025/10/04/match_game-1.json")
}

func TestFullRefreshIsIdempotent(t *testing.T) {
	t.Parallel()

	provider := newSyncProvider()
	store := vectorstore.NewMemory(nil)
	svc := newSyncService(provider, store, &stubMirror{})

	first, err := svc.Run(context.Background(), SyncInput{Scope: SyncScopeAll})
	require.NoError(t, err)
	require.Greater(t, first.VectorUpserts, 0)

	second, err := svc.Run(context.Background(), SyncInput{Scope: SyncScopeAll})
	require.NoError(t, err)
	assert.Equal(t, 0, second.VectorUpserts)
	assert.Greater(t, second.DedupeHits, 0)
	assert.Equal(t, 0, second.Errors)
}

func TestFullRefreshAbsorbsTeamFailure(t *testing.T) {
	t.Parallel()

	provider := newSyncProvider()
	provider.fixturesErr = map[string]error{"team-white": fmt.Errorf("upstream 503")}
	store := vectorstore.NewMemory(nil)
	svc := newSyncService(provider, store, &stubMirror{})

	stats, err := svc.Run(context.Background(), SyncInput{Scope: SyncScopeAll})
	require.NoError(t, err)

	assert.Greater(t, stats.Errors, 0)
	// The failing team still gets its team and roster documents; the other
	// teams are unaffected.
	assert.Equal(t, 3, stats.TeamsUpdated)
	assert.Equal(t, 3, stats.RostersUpdated)
	assert.Equal(t, 2, stats.FixturesUpdated)
}

func TestTeamRefreshResolvesAlias(t *testing.T) {
	t.Parallel()

	provider := newSyncProvider()
	store := vectorstore.NewMemory(nil)
	svc := newSyncService(provider, store, &stubMirror{})

	stats, err := svc.Run(context.Background(), SyncInput{Scope: SyncScopeTeam, ID: "blue 10s"})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TeamsUpdated)
	assert.Equal(t, 2, stats.FixturesUpdated)
	assert.Equal(t, 1, stats.ScorecardsUpdated)
	assert.Equal(t, 1, stats.RostersUpdated)
	assert.Equal(t, 0, stats.LaddersUpdated)
}

func TestTeamRefreshUnknownTeam(t *testing.T) {
	t.Parallel()

	svc := newSyncService(newSyncProvider(), vectorstore.NewMemory(nil), &stubMirror{})
	_, err := svc.Run(context.Background(), SyncInput{Scope: SyncScopeTeam, ID: "red 14s"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMatchRefreshMirrorsRawPayload(t *testing.T) {
	t.Parallel()

	provider := newSyncProvider()
	store := vectorstore.NewMemory(nil)
	mirror := &stubMirror{}
	svc := newSyncService(provider, store, mirror)

	stats, err := svc.Run(context.Background(), SyncInput{Scope: SyncScopeMatch, ID: "game-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.ScorecardsUpdated)
	assert.Equal(t, 1, stats.GCSWrites)
	require.Len(t, mirror.written(), 1)
	assert.Equal(t, "cricket/caroline-springs-blue-u10/2025/10/04/match_game-1.json", mirror.written()[0])
}

func TestMatchRefreshSkipsIncompleteGame(t *testing.T) {
	t.Parallel()

	provider := newSyncProvider()
	provider.summaries["game-5"] = playhq.GameSummary{ID: "game-5", Status: "LIVE", IsCompleted: false}
	store := vectorstore.NewMemory(nil)
	svc := newSyncService(provider, store, &stubMirror{})

	stats, err := svc.Run(context.Background(), SyncInput{Scope: SyncScopeMatch, ID: "game-5"})
	require.NoError(t, err)

	assert.Equal(t, 0, stats.ScorecardsUpdated)
	assert.Equal(t, 1, stats.ScorecardsSkipped)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, 0, stats.GCSWrites)
}

func TestLadderRefreshDefaultsToBundleGrade(t *testing.T) {
	t.Parallel()

	provider := newSyncProvider()
	store := vectorstore.NewMemory(nil)
	mirror := &stubMirror{}
	svc := newSyncService(provider, store, mirror)

	stats, err := svc.Run(context.Background(), SyncInput{Scope: SyncScopeLadder})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.LaddersUpdated)
	assert.Equal(t, 1, stats.GCSWrites)
	require.Len(t, mirror.written(), 1)
	assert.Contains(t, mirror.written()[0], "cricket/ladders/")
	assert.Contains(t, mirror.written()[0], "grade_grade-a.json")
}

func TestRunRejectsUnknownScope(t *testing.T) {
	t.Parallel()

	svc := newSyncService(newSyncProvider(), vectorstore.NewMemory(nil), &stubMirror{})
	_, err := svc.Run(context.Background(), SyncInput{Scope: "everything"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
