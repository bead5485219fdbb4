package snippet

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carolinespringscc/cricket-agent/external/playhq"
	"github.com/carolinespringscc/cricket-agent/internal/domain/document"
	"github.com/carolinespringscc/cricket-agent/internal/domain/fixture"
	"github.com/carolinespringscc/cricket-agent/internal/domain/ladder"
)

func TestNormalizeFixture(t *testing.T) {
	t.Parallel()

	game := playhq.Game{
		ID:       "f2",
		Status:   "UPCOMING",
		Schedule: playhq.Schedule{Timestamp: "2025-03-15T10:00:00+11:00"},
		Venue:    playhq.Venue{Name: "CSCG"},
		HomeTeam: playhq.TeamRef{ID: "team-blue-u10", Name: "Caroline Springs Blue U10"},
		AwayTeam: playhq.TeamRef{ID: "team-melb-u10", Name: "Melbourne CC U10"},
		Grade:    playhq.Grade{ID: "grade-a", Name: "Under 10 A"},
	}

	f, err := NormalizeFixture(game)
	require.NoError(t, err)
	assert.Equal(t, fixture.StatusScheduled, f.Status)
	assert.Equal(t, "CSCG", f.Venue)
	assert.Equal(t, 15, f.StartsAt.Day())
	assert.Equal(t, time.March, f.StartsAt.Month())
}

func TestNormalizeFixtureStatusMapping(t *testing.T) {
	t.Parallel()

	cases := map[string]fixture.Status{
		"FINAL":     fixture.StatusCompleted,
		"LIVE":      fixture.StatusInProgress,
		"ABANDONED": fixture.StatusCancelled,
		"UPCOMING":  fixture.StatusScheduled,
		"SOMETHING": fixture.StatusScheduled,
	}
	for raw, want := range cases {
		game := playhq.Game{
			ID:       "f1",
			Status:   raw,
			Schedule: playhq.Schedule{Timestamp: "2025-03-08T10:00:00+11:00"},
		}
		f, err := NormalizeFixture(game)
		require.NoError(t, err)
		assert.Equal(t, want, f.Status, "status %q", raw)
	}
}

func TestNormalizeFixtureBadTimestamp(t *testing.T) {
	t.Parallel()

	_, err := NormalizeFixture(playhq.Game{ID: "f1", Schedule: playhq.Schedule{Timestamp: "next saturday"}})
	require.Error(t, err)
}

func TestFixtureSnippetShape(t *testing.T) {
	t.Parallel()

	starts, err := time.Parse(time.RFC3339, "2025-03-15T10:00:00+11:00")
	require.NoError(t, err)

	text := Fixture(fixture.Fixture{
		HomeTeamName: "Caroline Springs Blue U10",
		AwayTeamName: "Melbourne CC U10",
		StartsAt:     starts,
		Venue:        "CSCG",
		GradeName:    "Under 10 A",
		Status:       fixture.StatusScheduled,
	})

	lines := strings.Split(text, "\n")
	assert.Equal(t, "Fixture: Caroline Springs Blue U10 vs Melbourne CC U10", lines[0])
	assert.Equal(t, "Date: 2025-03-15 10:00", lines[1])
	assert.Equal(t, "Status: scheduled", lines[2])
	assert.Equal(t, "Venue: CSCG", lines[3])
	assert.Equal(t, "Grade: Under 10 A", lines[4])
	assert.NotContains(t, text, "Result:")
}

func TestLadderSnippetCarriesRecord(t *testing.T) {
	t.Parallel()

	text := Ladder(ladder.Ladder{
		GradeName: "Under 10 A",
		SeasonID:  "season-2025",
		Entries: []ladder.Entry{
			{Position: 3, TeamName: "Caroline Springs Blue U10", Points: 8, Played: 5, Won: 4, Lost: 1},
		},
	})

	assert.Contains(t, text, "Ladder: Under 10 A")
	assert.Contains(t, text, "Teams: 1")
	assert.Contains(t, text, "3. Caroline Springs Blue U10 - 8 points (played 5, won 4, lost 1)")
}

func TestSnippetDeterminism(t *testing.T) {
	t.Parallel()

	entry := ladder.Ladder{GradeName: "Under 10 A", SeasonID: "season-2025", Entries: []ladder.Entry{
		{Position: 1, TeamName: "A", Points: 12, Played: 6, Won: 6},
	}}
	assert.Equal(t, Ladder(entry), Ladder(entry))
}

func TestRosterAndScorecardNormalization(t *testing.T) {
	t.Parallel()

	raw := playhq.Roster{
		Team: playhq.TeamRef{ID: "team-blue-u10", Name: "Caroline Springs Blue U10"},
		Players: []playhq.RosterPlayer{
			{ID: "p1", FirstName: "Harper", LastName: "Nguyen", IsCaptain: true, Email: "harper@example.com"},
			{ID: "p2", FirstName: "Max", LastName: "Riley", IsWicketKeeper: true},
		},
	}

	public := NormalizeRoster(raw, false, time.Now())
	require.Len(t, public.Players, 2)
	assert.Empty(t, public.Players[0].Email)

	private := NormalizeRoster(raw, true, time.Now())
	assert.Equal(t, "harper@example.com", private.Players[0].Email)

	text := Roster(public)
	assert.Contains(t, text, "Roster: Caroline Springs Blue U10")
	assert.Contains(t, text, "Players: 2")
	assert.Contains(t, text, "Captain: Harper Nguyen")
	assert.Contains(t, text, "Wicket-keeper: Max Riley")
	assert.NotContains(t, text, "example.com")
}

func TestScorecardSnippetTotalsAndBatting(t *testing.T) {
	t.Parallel()

	summary := playhq.GameSummary{
		ID:          "m-100",
		Status:      "FINAL",
		Date:        "2025-03-08",
		Result:      "Caroline Springs Blue U10 won by 12 runs",
		IsCompleted: true,
		Home: playhq.InningsSummary{
			Team: playhq.TeamRef{ID: "team-blue-u10", Name: "Caroline Springs Blue U10"},
			Runs: 142, Wickets: 6, Overs: 20, Extras: 9,
			Batting: []playhq.BattingEntry{
				{Player: playhq.TeamRef{ID: "p1", Name: "Harper Nguyen"}, Runs: 44, BallsFaced: 31, Fours: 5},
			},
		},
		Away: playhq.InningsSummary{
			Team: playhq.TeamRef{ID: "team-melb-u10", Name: "Melbourne CC U10"},
			Runs: 130, Wickets: 8, Overs: 20,
		},
	}

	card, err := NormalizeScorecard(summary)
	require.NoError(t, err)

	text := Scorecard(card)
	assert.Contains(t, text, "Scorecard: Caroline Springs Blue U10 vs Melbourne CC U10")
	assert.Contains(t, text, "Date: 2025-03-08")
	assert.Contains(t, text, "Result: Caroline Springs Blue U10 won by 12 runs")
	assert.Contains(t, text, "Caroline Springs Blue U10: 142/6 (20.0 overs, 9 extras)")
	assert.Contains(t, text, "Melbourne CC U10: 130/8 (20.0 overs)")
	assert.Contains(t, text, "- Harper Nguyen: 44 runs (31 balls, 5 fours)")
}

func TestDocumentsSingleWithinBudget(t *testing.T) {
	t.Parallel()

	docs := Documents(document.KindFixture, "f2", "Fixture: A vs B\nStatus: scheduled")
	require.Len(t, docs, 1)
	assert.Equal(t, "fixture-f2", docs[0].ID)
}

func TestDocumentsChunksOnLineBoundaries(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 0; i < 400; i++ {
		fmt.Fprintf(&b, "line %03d with enough text to matter for the budget\n", i)
	}

	docs := Documents(document.KindRoster, "team-big", strings.TrimRight(b.String(), "\n"))
	require.Greater(t, len(docs), 1)

	for i, doc := range docs {
		assert.Equal(t, fmt.Sprintf("roster-team-big-part%d", i+1), doc.ID)
		assert.LessOrEqual(t, EstimateTokens(doc.Text), TokenBudget+16)
		assert.False(t, strings.HasSuffix(doc.Text, "\n"))
	}

	var joined []string
	for _, doc := range docs {
		joined = append(joined, doc.Text)
	}
	assert.Equal(t, strings.TrimRight(b.String(), "\n"), strings.Join(joined, "\n"))
}
