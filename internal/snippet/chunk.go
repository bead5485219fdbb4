package snippet

import (
	"fmt"
	"strings"

	"github.com/carolinespringscc/cricket-agent/internal/domain/document"
)

// TokenBudget is the approximate per-document embedding budget. Snippets are
// usually well under it; chunking only matters for very large rosters or
// scorecards.
const TokenBudget = 1000

// EstimateTokens approximates the token count of snippet text. Four bytes per
// token is close enough for a split decision; exact accounting lives in the
// LLM adapter.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// Documents wraps snippet text into store documents. Text within budget maps
// to a single document under the entity's id. Oversized text is split on line
// boundaries into <id>-part<N> documents; callers stamp metadata afterwards,
// and every chunk receives the same copy.
func Documents(kind document.Kind, entityID, text string) []document.Document {
	id := document.ID(kind, entityID)
	if EstimateTokens(text) <= TokenBudget {
		return []document.Document{{ID: id, Text: text}}
	}

	var docs []document.Document
	var current strings.Builder
	part := 1

	flush := func() {
		chunk := strings.TrimRight(current.String(), "\n")
		if chunk == "" {
			return
		}
		docs = append(docs, document.Document{
			ID:   fmt.Sprintf("%s-part%d", id, part),
			Text: chunk,
		})
		part++
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		if current.Len() > 0 && EstimateTokens(current.String())+EstimateTokens(line) > TokenBudget {
			flush()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	flush()

	return docs
}
