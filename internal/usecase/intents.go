package usecase

import (
	"regexp"
	"strings"
)

// Intent is the closed set of question categories the router handles.
type Intent string

const (
	IntentPlayerTeam     Intent = "player_team"
	IntentPlayerLastRuns Intent = "player_last_runs"
	IntentFixturesList   Intent = "fixtures_list"
	IntentLadderPosition Intent = "ladder_position"
	IntentNextFixture    Intent = "next_fixture"
	IntentRosterList     Intent = "roster_list"
	IntentLLMRAG         Intent = "llm_rag"
	IntentUnknown        Intent = "unknown"
)

// ParseIntent maps free text to the closed set; anything else is unknown.
// The LLM classifier funnels through this so malformed output can never
// introduce a new intent.
func ParseIntent(v string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(v))) {
	case IntentPlayerTeam:
		return IntentPlayerTeam
	case IntentPlayerLastRuns:
		return IntentPlayerLastRuns
	case IntentFixturesList:
		return IntentFixturesList
	case IntentLadderPosition:
		return IntentLadderPosition
	case IntentNextFixture:
		return IntentNextFixture
	case IntentRosterList:
		return IntentRosterList
	default:
		return IntentUnknown
	}
}

// Classification carries a detected intent and its extracted entities
// (player or team names keyed by entity kind).
type Classification struct {
	Intent   Intent            `json:"intent"`
	Entities map[string]string `json:"entities,omitempty"`
}

type intentPattern struct {
	intent  Intent
	pattern *regexp.Regexp
	// entity names, positionally matched to capture groups
	captures []string
}

// Patterns are ordered; the first match wins. More specific phrasings sit
// above the generic ones.
var intentPatterns = []intentPattern{
	{
		intent:   IntentPlayerLastRuns,
		pattern:  regexp.MustCompile(`(?i)how many runs (?:did|has) ([a-z' -]+?) (?:score|scored|get|got|made?)`),
		captures: []string{"player"},
	},
	{
		intent:   IntentPlayerLastRuns,
		pattern:  regexp.MustCompile(`(?i)(?:runs|score) for ([a-z' -]+?)(?:\s+last|\s+this|$)`),
		captures: []string{"player"},
	},
	{
		intent:   IntentPlayerTeam,
		pattern:  regexp.MustCompile(`(?i)(?:which|what) team (?:does|is) ([a-z' -]+?) (?:play for|in|on)`),
		captures: []string{"player"},
	},
	{
		intent:   IntentNextFixture,
		pattern:  regexp.MustCompile(`(?i)(?:next (?:fixture|game|match))(?:\s+(?:for\s+)?([a-z0-9' -]+))?`),
		captures: []string{"team"},
	},
	{
		intent:   IntentNextFixture,
		pattern:  regexp.MustCompile(`(?i)when (?:do|does|is) ([a-z0-9' -]+?) (?:play|playing)(?:\s+next)?`),
		captures: []string{"team"},
	},
	{
		intent:   IntentFixturesList,
		pattern:  regexp.MustCompile(`(?i)(?:fixtures?|games?|matches|schedule)(?:\s+(?:list|for)\s+([a-z0-9' -]+))?`),
		captures: []string{"team"},
	},
	{
		intent:   IntentLadderPosition,
		pattern:  regexp.MustCompile(`(?i)(?:ladder|standings?|position|table)(?:\s+(?:for|of)\s+([a-z0-9' -]+))?`),
		captures: []string{"team"},
	},
	{
		intent:   IntentRosterList,
		pattern:  regexp.MustCompile(`(?i)(?:roster|squad|players?|who(?:'s| is) (?:in|on))(?:\s+(?:the\s+)?(?:list\s+)?(?:for\s+)?([a-z0-9' -]+))?`),
		captures: []string{"team"},
	},
}

// DetectIntent runs the ordered regex patterns over the question. The zero
// Classification (unknown intent) means no pattern matched and the caller
// should fall through to the LLM.
func DetectIntent(text string) Classification {
	normalized := strings.TrimSpace(text)
	for _, candidate := range intentPatterns {
		match := candidate.pattern.FindStringSubmatch(normalized)
		if match == nil {
			continue
		}
		entities := make(map[string]string)
		for i, name := range candidate.captures {
			if i+1 >= len(match) {
				break
			}
			value := strings.TrimSpace(match[i+1])
			if value != "" {
				entities[name] = value
			}
		}
		return Classification{Intent: candidate.intent, Entities: entities}
	}
	return Classification{Intent: IntentUnknown, Entities: map[string]string{}}
}
