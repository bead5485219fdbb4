package usecase

import (
	"regexp"
	"strings"

	"github.com/carolinespringscc/cricket-agent/internal/config"
)

// Team mentions arrive in club shorthand: "blue 10s", "white u10", "the
// under 12 gold side". Resolution normalizes age-group tokens and matches
// against the configured team list instead of maintaining a hand-kept alias
// table per season.

var underAgeRegex = regexp.MustCompile(`\bunder\s+(\d{1,2})\b`)
var ageTokenRegex = regexp.MustCompile(`^u?(\d{1,2})s?$`)

var teamStopwords = map[string]struct{}{
	"the":  {},
	"team": {},
	"side": {},
	"our":  {},
	"for":  {},
}

// teamTokens reduces a team name or mention to its distinguishing tokens.
// "Caroline Springs Blue U10" and "blue 10s" both contain {blue, u10}.
func teamTokens(name string) map[string]struct{} {
	lowered := underAgeRegex.ReplaceAllString(strings.ToLower(name), "u$1")
	out := make(map[string]struct{})
	for _, field := range strings.Fields(lowered) {
		field = strings.Trim(field, ".,!?'\"")
		if field == "" {
			continue
		}
		if _, skip := teamStopwords[field]; skip {
			continue
		}
		if m := ageTokenRegex.FindStringSubmatch(field); m != nil {
			out["u"+m[1]] = struct{}{}
			continue
		}
		out[field] = struct{}{}
	}
	return out
}

// ResolveTeam matches a free-text team mention against the identifier
// bundle. An exact name match wins; otherwise the first team whose token set
// contains every mention token does. Bundle order breaks ties so resolution
// is deterministic.
func ResolveTeam(bundle config.IdentifierBundle, mention string) (config.TeamRef, bool) {
	mention = strings.TrimSpace(mention)
	if mention == "" {
		return config.TeamRef{}, false
	}
	if ref, ok := bundle.TeamByName(mention); ok {
		return ref, true
	}

	want := teamTokens(mention)
	if len(want) == 0 {
		return config.TeamRef{}, false
	}
	for _, ref := range bundle.Teams {
		have := teamTokens(ref.Name)
		matched := true
		for token := range want {
			if _, ok := have[token]; !ok {
				matched = false
				break
			}
		}
		if matched {
			return ref, true
		}
	}
	return config.TeamRef{}, false
}
