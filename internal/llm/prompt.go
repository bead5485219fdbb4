package llm

import (
	"fmt"
	"strings"
)

const classifySystemPrompt = `You classify junior cricket club questions into exactly one intent.
Valid intents: player_team, player_last_runs, fixtures_list, ladder_position, next_fixture, roster_list, unknown.
Respond with JSON only: {"intent": "<intent>", "entities": {"player": "...", "team": "..."}}.
Omit entity keys you cannot extract. Never invent an intent outside the list.`

const summariseSystemPrompt = `You answer questions about a junior cricket club using only the provided context.
Keep answers short and conversational. Quote names, dates and numbers exactly as they appear.
If the context does not contain the answer, say the information is not available right now. Never guess.`

func buildSummariseUserPrompt(snippets []string, question string) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, snippet := range snippets {
		fmt.Fprintf(&b, "[%d]\n%s\n\n", i+1, snippet)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
