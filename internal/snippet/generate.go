package snippet

import (
	"fmt"
	"strings"

	"github.com/carolinespringscc/cricket-agent/internal/domain/fixture"
	"github.com/carolinespringscc/cricket-agent/internal/domain/ladder"
	"github.com/carolinespringscc/cricket-agent/internal/domain/roster"
	"github.com/carolinespringscc/cricket-agent/internal/domain/scorecard"
	"github.com/carolinespringscc/cricket-agent/internal/domain/team"
)

// Generators are pure functions from a normalized entity to a line-oriented
// text block. The same entity always produces the same text, which is what
// makes content-hash dedupe sound.

func Fixture(f fixture.Fixture) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fixture: %s vs %s\n", f.HomeTeamName, f.AwayTeamName)
	fmt.Fprintf(&b, "Date: %s\n", f.StartsAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Status: %s\n", f.Status)
	if f.Venue != "" {
		fmt.Fprintf(&b, "Venue: %s\n", f.Venue)
	}
	if f.GradeName != "" {
		fmt.Fprintf(&b, "Grade: %s\n", f.GradeName)
	}
	if f.Result != "" {
		fmt.Fprintf(&b, "Result: %s\n", f.Result)
	}

	return strings.TrimRight(b.String(), "\n")
}

func Ladder(l ladder.Ladder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ladder: %s\n", l.GradeName)
	fmt.Fprintf(&b, "Season: %s\n", l.SeasonID)
	fmt.Fprintf(&b, "Teams: %d\n", len(l.Entries))
	for _, entry := range l.Entries {
		fmt.Fprintf(&b, "%d. %s - %d points (played %d, won %d, lost %d",
			entry.Position, entry.TeamName, entry.Points, entry.Played, entry.Won, entry.Lost)
		if entry.Drawn > 0 {
			fmt.Fprintf(&b, ", drawn %d", entry.Drawn)
		}
		if entry.Tied > 0 {
			fmt.Fprintf(&b, ", tied %d", entry.Tied)
		}
		b.WriteString(")\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func Team(t team.Team) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Team: %s\n", t.Name)
	if t.Grade != "" {
		fmt.Fprintf(&b, "Grade: %s\n", t.Grade)
	}
	if t.Season != "" {
		fmt.Fprintf(&b, "Season: %s\n", t.Season)
	}
	if len(t.Players) > 0 {
		fmt.Fprintf(&b, "Players: %d\n", len(t.Players))
	}

	return strings.TrimRight(b.String(), "\n")
}

func Roster(r roster.Roster) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Roster: %s\n", r.TeamName)
	fmt.Fprintf(&b, "Players: %d\n", len(r.Players))
	if captain, ok := r.Captain(); ok {
		fmt.Fprintf(&b, "Captain: %s\n", captain.Name)
	}
	if vice, ok := r.ViceCaptain(); ok {
		fmt.Fprintf(&b, "Vice-captain: %s\n", vice.Name)
	}
	if keeper, ok := r.WicketKeeper(); ok {
		fmt.Fprintf(&b, "Wicket-keeper: %s\n", keeper.Name)
	}
	for _, p := range r.Players {
		b.WriteString("- ")
		b.WriteString(p.Name)
		if p.Role != "" {
			fmt.Fprintf(&b, " (%s)", p.Role)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func Scorecard(s scorecard.Scorecard) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scorecard: %s vs %s\n", s.Home.TeamName, s.Away.TeamName)
	if !s.Date.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", s.Date.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "Status: %s\n", s.Status)
	if s.Result != "" {
		fmt.Fprintf(&b, "Result: %s\n", s.Result)
	}
	writeInnings(&b, s.Home)
	writeInnings(&b, s.Away)

	return strings.TrimRight(b.String(), "\n")
}

func writeInnings(b *strings.Builder, in scorecard.TeamInnings) {
	fmt.Fprintf(b, "%s: %d/%d (%.1f overs", in.TeamName, in.Runs, in.Wickets, in.Overs)
	if in.Extras > 0 {
		fmt.Fprintf(b, ", %d extras", in.Extras)
	}
	b.WriteString(")\n")
	for _, line := range in.Batting {
		fmt.Fprintf(b, "- %s: %d runs (%d balls", line.PlayerName, line.Runs, line.BallsFaced)
		if line.Fours > 0 {
			fmt.Fprintf(b, ", %d fours", line.Fours)
		}
		if line.Sixes > 0 {
			fmt.Fprintf(b, ", %d sixes", line.Sixes)
		}
		b.WriteString(")")
		if line.HowOut != "" {
			fmt.Fprintf(b, " %s", line.HowOut)
		}
		b.WriteString("\n")
	}
	for _, line := range in.Bowling {
		fmt.Fprintf(b, "- %s bowling: %d/%d (%.1f overs)\n",
			line.PlayerName, line.Wickets, line.Runs, line.Overs)
	}
}
