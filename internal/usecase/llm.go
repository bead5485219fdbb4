package usecase

import "context"

// LLM is the slice of the language-model adapter the router consumes. The
// production implementation lives in internal/llm; only that package builds
// prompts.
type LLM interface {
	// ClassifyIntent is the fallback when the regex patterns miss. Output
	// is constrained to the closed intent set.
	ClassifyIntent(ctx context.Context, text string) (Classification, error)
	// Summarise generates a grounded answer from retrieved snippets and
	// reports token counts for both directions.
	Summarise(ctx context.Context, snippets []string, question string) (SummariseResult, error)
}

type SummariseResult struct {
	Answer            string
	InputTokens       int
	OutputTokens      int
	TruncatedSnippets int
}
