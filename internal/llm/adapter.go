package llm

import "github.com/carolinespringscc/cricket-agent/internal/usecase"

// The router consumes this package through usecase.LLM. Aliasing the result
// type keeps the adapter's return values assignable to that contract.
type SummariseResult = usecase.SummariseResult

var _ usecase.LLM = (*OpenAIAdapter)(nil)
