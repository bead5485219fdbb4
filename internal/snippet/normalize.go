package snippet

import (
	"fmt"
	"strings"
	"time"

	"github.com/carolinespringscc/cricket-agent/external/playhq"
	"github.com/carolinespringscc/cricket-agent/internal/domain/fixture"
	"github.com/carolinespringscc/cricket-agent/internal/domain/ladder"
	"github.com/carolinespringscc/cricket-agent/internal/domain/roster"
	"github.com/carolinespringscc/cricket-agent/internal/domain/scorecard"
	"github.com/carolinespringscc/cricket-agent/internal/domain/team"
)

// NormalizeFixture converts a provider game into the domain fixture. Unknown
// provider statuses map to scheduled so a new status value never drops a game.
func NormalizeFixture(g playhq.Game) (fixture.Fixture, error) {
	if g.ID == "" {
		return fixture.Fixture{}, fmt.Errorf("fixture has no id")
	}

	startsAt, err := time.Parse(time.RFC3339, g.Schedule.Timestamp)
	if err != nil {
		return fixture.Fixture{}, fmt.Errorf("parse fixture %s schedule %q: %w", g.ID, g.Schedule.Timestamp, err)
	}

	return fixture.Fixture{
		ID:           g.ID,
		HomeTeamID:   g.HomeTeam.ID,
		HomeTeamName: g.HomeTeam.Name,
		AwayTeamID:   g.AwayTeam.ID,
		AwayTeamName: g.AwayTeam.Name,
		StartsAt:     startsAt,
		Venue:        g.Venue.Name,
		GradeID:      g.Grade.ID,
		GradeName:    g.Grade.Name,
		Status:       normalizeStatus(g.Status),
		Result:       g.Result,
	}, nil
}

func normalizeStatus(s string) fixture.Status {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FINAL", "COMPLETED", "CONFIRMED":
		return fixture.StatusCompleted
	case "LIVE", "IN_PROGRESS":
		return fixture.StatusInProgress
	case "ABANDONED", "CANCELLED", "FORFEIT", "WASHOUT":
		return fixture.StatusCancelled
	default:
		return fixture.StatusScheduled
	}
}

func NormalizeLadder(l playhq.Ladder, seasonID string) ladder.Ladder {
	entries := make([]ladder.Entry, 0, len(l.Standings))
	for _, row := range l.Standings {
		entries = append(entries, ladder.Entry{
			Position:   row.Rank,
			TeamID:     row.Team.ID,
			TeamName:   row.Team.Name,
			Played:     row.Played,
			Won:        row.Won,
			Lost:       row.Lost,
			Drawn:      row.Drawn,
			Tied:       row.Tied,
			Points:     row.Points,
			Percentage: row.Percentage,
		})
	}

	return ladder.Ladder{
		GradeID:   l.Grade.ID,
		GradeName: l.Grade.Name,
		SeasonID:  seasonID,
		Entries:   entries,
	}
}

func NormalizeScorecard(gs playhq.GameSummary) (scorecard.Scorecard, error) {
	if gs.ID == "" {
		return scorecard.Scorecard{}, fmt.Errorf("game summary has no id")
	}

	var date time.Time
	if gs.Date != "" {
		parsed, err := time.Parse(time.RFC3339, gs.Date)
		if err != nil {
			parsed, err = time.Parse("2006-01-02", gs.Date)
			if err != nil {
				return scorecard.Scorecard{}, fmt.Errorf("parse scorecard %s date %q: %w", gs.ID, gs.Date, err)
			}
		}
		date = parsed
	}

	return scorecard.Scorecard{
		FixtureID: gs.ID,
		Date:      date,
		Status:    strings.ToLower(gs.Status),
		Result:    gs.Result,
		Home:      normalizeInnings(gs.Home),
		Away:      normalizeInnings(gs.Away),
	}, nil
}

func normalizeInnings(in playhq.InningsSummary) scorecard.TeamInnings {
	batting := make([]scorecard.BattingLine, 0, len(in.Batting))
	for _, entry := range in.Batting {
		batting = append(batting, scorecard.BattingLine{
			PlayerID:   entry.Player.ID,
			PlayerName: entry.Player.Name,
			Runs:       entry.Runs,
			BallsFaced: entry.BallsFaced,
			Fours:      entry.Fours,
			Sixes:      entry.Sixes,
			HowOut:     entry.Dismissal,
		})
	}

	bowling := make([]scorecard.BowlingLine, 0, len(in.Bowling))
	for _, entry := range in.Bowling {
		bowling = append(bowling, scorecard.BowlingLine{
			PlayerID:   entry.Player.ID,
			PlayerName: entry.Player.Name,
			Overs:      entry.Overs,
			Maidens:    entry.Maidens,
			Runs:       entry.Runs,
			Wickets:    entry.Wickets,
		})
	}

	return scorecard.TeamInnings{
		TeamID:   in.Team.ID,
		TeamName: in.Team.Name,
		Runs:     in.Runs,
		Wickets:  in.Wickets,
		Overs:    in.Overs,
		Extras:   in.Extras,
		Batting:  batting,
		Bowling:  bowling,
	}
}

// NormalizeRoster converts a provider roster. Contact details are stripped
// unless the service runs in private mode.
func NormalizeRoster(r playhq.Roster, includeContact bool, updatedAt time.Time) roster.Roster {
	players := make([]team.Player, 0, len(r.Players))
	for _, p := range r.Players {
		player := team.Player{
			ID:             p.ID,
			Name:           strings.TrimSpace(p.FirstName + " " + p.LastName),
			Role:           p.Role,
			JerseyNumber:   p.JerseyNumber,
			IsCaptain:      p.IsCaptain,
			IsViceCaptain:  p.IsViceCaptain,
			IsWicketKeeper: p.IsWicketKeeper,
			BattingStyle:   p.BattingStyle,
			BowlingStyle:   p.BowlingStyle,
			DateOfBirth:    p.DateOfBirth,
		}
		if includeContact {
			player.Email = p.Email
			player.Phone = p.Phone
		}
		players = append(players, player)
	}

	return roster.Roster{
		TeamID:    r.Team.ID,
		TeamName:  r.Team.Name,
		Players:   players,
		UpdatedAt: updatedAt,
	}
}

func NormalizeTeam(ts playhq.TeamSummary, seasonName string) team.Team {
	return team.Team{
		ID:     ts.ID,
		Name:   ts.Name,
		Grade:  ts.GradeName,
		Season: seasonName,
	}
}
