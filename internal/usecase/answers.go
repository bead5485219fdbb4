package usecase

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/carolinespringscc/cricket-agent/internal/domain/document"
)

// Deterministic answer extraction over snippet text. Snippets are
// line-oriented with stable field labels, so the fast path can answer
// structured questions without the LLM and cite the exact document.

func snippetField(text, label string) string {
	prefix := label + ": "
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}

type fixtureView struct {
	Headline string
	StartsAt time.Time
	Venue    string
	Status   string
}

func parseFixtureSnippet(text string) (fixtureView, bool) {
	headline := snippetField(text, "Fixture")
	rawDate := snippetField(text, "Date")
	if headline == "" || rawDate == "" {
		return fixtureView{}, false
	}
	startsAt, err := time.Parse("2006-01-02 15:04", rawDate)
	if err != nil {
		return fixtureView{}, false
	}
	return fixtureView{
		Headline: headline,
		StartsAt: startsAt,
		Venue:    snippetField(text, "Venue"),
		Status:   snippetField(text, "Status"),
	}, true
}

// answerNextFixture picks the earliest fixture starting at or after now.
func answerNextFixture(docs []document.Document, now time.Time) (string, bool) {
	var best fixtureView
	found := false
	for _, doc := range docs {
		view, ok := parseFixtureSnippet(doc.Text)
		if !ok || view.StartsAt.Before(now) {
			continue
		}
		if !found || view.StartsAt.Before(best.StartsAt) {
			best = view
			found = true
		}
	}
	if !found {
		return "", false
	}

	answer := fmt.Sprintf("The next game is %s on %s", best.Headline, best.StartsAt.Format("Monday 2 January at 3:04 PM"))
	if best.Venue != "" {
		answer += " at " + best.Venue
	}
	return answer + ".", true
}

func answerFixturesList(docs []document.Document, now time.Time, limit int) (string, bool) {
	var upcoming []fixtureView
	for _, doc := range docs {
		view, ok := parseFixtureSnippet(doc.Text)
		if !ok || view.StartsAt.Before(now) {
			continue
		}
		upcoming = append(upcoming, view)
	}
	if len(upcoming) == 0 {
		return "", false
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].StartsAt.Before(upcoming[j].StartsAt) })
	if limit > 0 && len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}

	var b strings.Builder
	b.WriteString("Upcoming fixtures:")
	for _, view := range upcoming {
		fmt.Fprintf(&b, "\n- %s on %s", view.Headline, view.StartsAt.Format("Mon 2 Jan 3:04 PM"))
		if view.Venue != "" {
			b.WriteString(" at " + view.Venue)
		}
	}
	return b.String(), true
}

var ladderRowRegex = regexp.MustCompile(`^(\d+)\. (.+) - (\d+) points \(played (\d+), won (\d+), lost (\d+)`)

// answerLadderPosition scans ladder rows for the team. Substring match
// tolerates the configured short name differing from the provider's label.
func answerLadderPosition(docs []document.Document, teamName string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(teamName))
	if needle == "" {
		return "", false
	}
	for _, doc := range docs {
		for _, line := range strings.Split(doc.Text, "\n") {
			match := ladderRowRegex.FindStringSubmatch(line)
			if match == nil {
				continue
			}
			rowTeam := strings.TrimSpace(match[2])
			if !strings.Contains(strings.ToLower(rowTeam), needle) && !strings.Contains(needle, strings.ToLower(rowTeam)) {
				continue
			}
			position, _ := strconv.Atoi(match[1])
			points, _ := strconv.Atoi(match[3])
			grade := snippetField(doc.Text, "Ladder")
			answer := fmt.Sprintf("%s is %s on the ladder with %d points (played %s, won %s, lost %s)",
				rowTeam, ordinal(position), points, match[4], match[5], match[6])
			if grade != "" {
				answer += " in " + grade
			}
			return answer + ".", true
		}
	}
	return "", false
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

func answerRosterList(docs []document.Document) (string, bool) {
	for _, doc := range docs {
		if snippetField(doc.Text, "Roster") != "" {
			return doc.Text, true
		}
	}
	return "", false
}

// answerPlayerTeam scans roster snippets for the player's line.
func answerPlayerTeam(docs []document.Document, playerName string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(playerName))
	if needle == "" {
		return "", false
	}
	for _, doc := range docs {
		teamName := snippetField(doc.Text, "Roster")
		if teamName == "" {
			continue
		}
		for _, line := range strings.Split(doc.Text, "\n") {
			if !strings.HasPrefix(line, "- ") {
				continue
			}
			if strings.Contains(strings.ToLower(line), needle) {
				player := strings.TrimPrefix(line, "- ")
				if idx := strings.Index(player, " ("); idx > 0 {
					player = player[:idx]
				}
				return fmt.Sprintf("%s plays for %s.", player, teamName), true
			}
		}
	}
	return "", false
}

var battingLineRegex = regexp.MustCompile(`^- (.+?): (\d+) runs`)

// answerPlayerLastRuns walks scorecard snippets newest-first and returns the
// player's batting line from the most recent completed game.
func answerPlayerLastRuns(docs []document.Document, playerName string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(playerName))
	if needle == "" {
		return "", false
	}

	sorted := make([]document.Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Metadata[document.MetaDate] > sorted[j].Metadata[document.MetaDate]
	})

	for _, doc := range sorted {
		if doc.Kind() != document.KindScorecard {
			continue
		}
		for _, line := range strings.Split(doc.Text, "\n") {
			match := battingLineRegex.FindStringSubmatch(line)
			if match == nil || strings.Contains(line, " bowling:") {
				continue
			}
			if !strings.Contains(strings.ToLower(match[1]), needle) {
				continue
			}
			runs, _ := strconv.Atoi(match[2])
			answer := fmt.Sprintf("%s scored %d runs", strings.TrimSpace(match[1]), runs)
			if game := snippetField(doc.Text, "Scorecard"); game != "" {
				answer += " in " + game
			}
			if date := snippetField(doc.Text, "Date"); date != "" {
				answer += " on " + date
			}
			return answer + ".", true
		}
	}
	return "", false
}
