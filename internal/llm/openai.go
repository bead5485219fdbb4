package llm

import (
	"context"
	"fmt"
	"strings"

	sonic "github.com/bytedance/sonic"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/pkoukk/tiktoken-go"

	"github.com/carolinespringscc/cricket-agent/internal/platform/logging"
	"github.com/carolinespringscc/cricket-agent/internal/usecase"
)

const fallbackEncoding = "cl100k_base"

type OpenAIAdapter struct {
	client           openai.Client
	model            string
	maxContextTokens int
	encoder          *tiktoken.Tiktoken
	logger           *logging.Logger
}

func NewOpenAI(apiKey, model string, maxContextTokens int, logger *logging.Logger) (*OpenAIAdapter, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if maxContextTokens <= 0 {
		maxContextTokens = 6000
	}

	encoder, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoder, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("load token encoding: %w", err)
		}
	}

	return &OpenAIAdapter{
		client:           openai.NewClient(option.WithAPIKey(apiKey)),
		model:            model,
		maxContextTokens: maxContextTokens,
		encoder:          encoder,
		logger:           logger,
	}, nil
}

func (a *OpenAIAdapter) countTokens(text string) int {
	return len(a.encoder.Encode(text, nil, nil))
}

func (a *OpenAIAdapter) ClassifyIntent(ctx context.Context, text string) (usecase.Classification, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(classifySystemPrompt),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		return usecase.Classification{}, fmt.Errorf("%w: classify intent: %v", usecase.ErrDependencyUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return usecase.Classification{Intent: usecase.IntentUnknown}, nil
	}

	return parseClassification(resp.Choices[0].Message.Content), nil
}

// parseClassification tolerates fenced or chatty model output; anything that
// does not decode into the closed set becomes unknown.
func parseClassification(raw string) usecase.Classification {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var parsed struct {
		Intent   string            `json:"intent"`
		Entities map[string]string `json:"entities"`
	}
	if err := sonic.UnmarshalString(raw, &parsed); err != nil {
		return usecase.Classification{Intent: usecase.IntentUnknown, Entities: map[string]string{}}
	}

	entities := parsed.Entities
	if entities == nil {
		entities = map[string]string{}
	}
	return usecase.Classification{Intent: usecase.ParseIntent(parsed.Intent), Entities: entities}
}

func (a *OpenAIAdapter) Summarise(ctx context.Context, snippets []string, question string) (SummariseResult, error) {
	kept, truncated := a.fitContext(snippets, question)

	userPrompt := buildSummariseUserPrompt(kept, question)
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summariseSystemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		return SummariseResult{}, fmt.Errorf("%w: summarise: %v", usecase.ErrDependencyUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return SummariseResult{}, fmt.Errorf("%w: summarise returned no choices", usecase.ErrDependencyUnavailable)
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	result := SummariseResult{
		Answer:            answer,
		InputTokens:       int(resp.Usage.PromptTokens),
		OutputTokens:      int(resp.Usage.CompletionTokens),
		TruncatedSnippets: truncated,
	}
	if result.InputTokens == 0 {
		result.InputTokens = a.countTokens(summariseSystemPrompt) + a.countTokens(userPrompt)
	}
	if result.OutputTokens == 0 {
		result.OutputTokens = a.countTokens(answer)
	}
	return result, nil
}

// fitContext drops whole snippets from the tail until the prompt fits the
// budget. Retrieval hands snippets most-relevant-first, so the weakest
// context is evicted first.
func (a *OpenAIAdapter) fitContext(snippets []string, question string) ([]string, int) {
	fixed := a.countTokens(summariseSystemPrompt) + a.countTokens(question) + 64

	kept := snippets
	truncated := 0
	for len(kept) > 0 {
		total := fixed
		for _, snippet := range kept {
			total += a.countTokens(snippet)
		}
		if total <= a.maxContextTokens {
			break
		}
		kept = kept[:len(kept)-1]
		truncated++
	}
	if truncated > 0 {
		a.logger.Warn("context truncated for summarise", "dropped_snippets", truncated, "kept", len(kept))
	}
	return kept, truncated
}
