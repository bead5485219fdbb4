package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carolinespringscc/cricket-agent/internal/domain/document"
	"github.com/carolinespringscc/cricket-agent/internal/domain/fixture"
	"github.com/carolinespringscc/cricket-agent/internal/domain/ladder"
	"github.com/carolinespringscc/cricket-agent/internal/domain/scorecard"
	"github.com/carolinespringscc/cricket-agent/internal/platform/cache"
	"github.com/carolinespringscc/cricket-agent/internal/platform/logging"
	"github.com/carolinespringscc/cricket-agent/internal/snippet"
	"github.com/carolinespringscc/cricket-agent/internal/vectorstore"
)

type stubLLM struct {
	classification Classification
	classifyErr    error
	summariseErr   error
	lastSnippets   []string
	lastQuestion   string
}

func (s *stubLLM) ClassifyIntent(context.Context, string) (Classification, error) {
	if s.classifyErr != nil {
		return Classification{}, s.classifyErr
	}
	return s.classification, nil
}

func (s *stubLLM) Summarise(_ context.Context, snippets []string, question string) (SummariseResult, error) {
	if s.summariseErr != nil {
		return SummariseResult{}, s.summariseErr
	}
	s.lastSnippets = snippets
	s.lastQuestion = question
	return SummariseResult{
		Answer:       "Grounded on " + strings.Join(snippets, " | "),
		InputTokens:  42,
		OutputTokens: 7,
	}, nil
}

func seededStore(t *testing.T) *vectorstore.Memory {
	t.Helper()
	store := vectorstore.NewMemory(nil)

	upcoming := fixture.Fixture{
		ID:           "game-2",
		HomeTeamName: "Caroline Springs Blue U10",
		AwayTeamName: "Melton Centrals",
		StartsAt:     time.Date(2030, 1, 10, 9, 30, 0, 0, time.UTC),
		Venue:        "Springside Reserve",
		GradeName:    "U10 Mixed Friday",
		Status:       fixture.StatusScheduled,
	}
	table := ladder.Ladder{
		GradeName: "U10 Mixed Friday",
		SeasonID:  "season-2025",
		Entries: []ladder.Entry{
			{Position: 1, TeamName: "Sunbury Strikers", Played: 5, Won: 4, Lost: 1, Points: 16},
			{Position: 2, TeamName: "Caroline Springs Blue U10", Played: 5, Won: 3, Lost: 2, Points: 12},
		},
	}
	card := scorecard.Scorecard{
		FixtureID: "game-1",
		Date:      time.Date(2025, 10, 4, 0, 0, 0, 0, time.UTC),
		Status:    "final",
		Home: scorecard.TeamInnings{
			TeamName: "Caroline Springs Blue U10",
			Runs:     98,
			Wickets:  4,
			Overs:    20,
			Batting: []scorecard.BattingLine{
				{PlayerName: "Oliver Nguyen", Runs: 34, BallsFaced: 28, Fours: 4},
			},
		},
		Away: scorecard.TeamInnings{TeamName: "Sunbury Strikers", Runs: 86, Wickets: 7, Overs: 20},
	}

	docs := []document.Document{}
	docs = append(docs, stampDocuments("season-2025", document.KindFixture,
		snippet.Documents(document.KindFixture, upcoming.ID, snippet.Fixture(upcoming)),
		map[string]string{document.MetaTeamID: "team-blue", document.MetaDate: "2030-01-10"})...)
	docs = append(docs, stampDocuments("season-2025", document.KindLadder,
		snippet.Documents(document.KindLadder, "grade-a", snippet.Ladder(table)),
		map[string]string{document.MetaGradeID: "grade-a"})...)
	docs = append(docs, stampDocuments("season-2025", document.KindScorecard,
		snippet.Documents(document.KindScorecard, card.FixtureID, snippet.Scorecard(card)),
		map[string]string{document.MetaTeamID: "team-blue", document.MetaDate: "2025-10-04"})...)

	_, err := store.Upsert(context.Background(), docs)
	require.NoError(t, err)
	return store
}

func newAskService(store *vectorstore.Memory, llm LLM, provider UpstreamProvider) *AskService {
	responseCache := cache.NewBoundedStore(30*time.Minute, 128)
	return NewAskService(store, llm, provider, testBundle(), responseCache, nil, logging.NewNop(),
		AskConfig{TopK: 6, RAGEnabled: true})
}

func TestAnswerNextFixtureFromSnippets(t *testing.T) {
	t.Parallel()

	svc := newAskService(seededStore(t), nil, nil)
	result, err := svc.Answer(context.Background(), AskInput{Text: "When does blue 10s play next?"})
	require.NoError(t, err)

	assert.Equal(t, string(IntentNextFixture), result.Meta.Intent)
	assert.Equal(t, SourceSnippet, result.Meta.Source)
	assert.Contains(t, result.Answer, "Melton Centrals")
	assert.Contains(t, result.Answer, "Springside Reserve")
	assert.NotEmpty(t, result.Meta.RequestID)
}

func TestAnswerLadderPosition(t *testing.T) {
	t.Parallel()

	svc := newAskService(seededStore(t), nil, nil)
	result, err := svc.Answer(context.Background(), AskInput{
		Text:     "Where are we on the ladder?",
		TeamHint: "blue 10s",
	})
	require.NoError(t, err)

	assert.Equal(t, string(IntentLadderPosition), result.Meta.Intent)
	assert.Equal(t, SourceSnippet, result.Meta.Source)
	assert.Contains(t, result.Answer, "2nd")
	assert.Contains(t, result.Answer, "12 points")
	// The win-loss record travels with the position.
	assert.Contains(t, result.Answer, "played 5")
	assert.Contains(t, result.Answer, "won 3")
	assert.Contains(t, result.Answer, "lost 2")
}

func TestAnswerPlayerLastRuns(t *testing.T) {
	t.Parallel()

	svc := newAskService(seededStore(t), nil, nil)
	result, err := svc.Answer(context.Background(), AskInput{
		Text: "How many runs did Oliver Nguyen score on Saturday?",
	})
	require.NoError(t, err)

	assert.Equal(t, string(IntentPlayerLastRuns), result.Meta.Intent)
	assert.Equal(t, SourceSnippet, result.Meta.Source)
	assert.Contains(t, result.Answer, "34 runs")
}

func TestAnswerCacheHit(t *testing.T) {
	t.Parallel()

	svc := newAskService(seededStore(t), nil, nil)
	input := AskInput{Text: "When does blue 10s play next?"}

	first, err := svc.Answer(context.Background(), input)
	require.NoError(t, err)
	require.False(t, first.Meta.CacheHit)

	second, err := svc.Answer(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, second.Meta.CacheHit)
	assert.Equal(t, first.Answer, second.Answer)
	assert.NotEqual(t, first.Meta.RequestID, second.Meta.RequestID)
}

func TestAnswerRAGStaysGrounded(t *testing.T) {
	t.Parallel()

	llm := &stubLLM{classification: Classification{Intent: IntentLLMRAG, Entities: map[string]string{}}}
	svc := newAskService(seededStore(t), llm, nil)

	result, err := svc.Answer(context.Background(), AskInput{
		Text: "How did Caroline Springs go at the weekend?",
	})
	require.NoError(t, err)

	assert.Equal(t, SourceLLMRAG, result.Meta.Source)
	require.NotEmpty(t, llm.lastSnippets)
	// Every snippet handed to the model came from the store verbatim.
	for _, handed := range llm.lastSnippets {
		assert.Contains(t, handed, "Caroline Springs")
	}
	assert.True(t, strings.HasPrefix(result.Answer, "Grounded on "))
}

func TestAnswerLLMFailureYieldsApology(t *testing.T) {
	t.Parallel()

	llm := &stubLLM{
		classification: Classification{Intent: IntentLLMRAG, Entities: map[string]string{}},
		summariseErr:   fmt.Errorf("model timeout"),
	}
	svc := newAskService(seededStore(t), llm, nil)

	result, err := svc.Answer(context.Background(), AskInput{
		Text: "How did Caroline Springs go at the weekend?",
	})
	require.NoError(t, err)

	assert.Equal(t, SourceError, result.Meta.Source)
	assert.Equal(t, answerApology, result.Answer)
	assert.NotEmpty(t, result.Meta.Error)
}

func TestAnswerOutOfScopeWithoutRAG(t *testing.T) {
	t.Parallel()

	store := seededStore(t)
	svc := NewAskService(store, nil, nil, testBundle(), nil, nil, logging.NewNop(),
		AskConfig{TopK: 6, RAGEnabled: false})

	result, err := svc.Answer(context.Background(), AskInput{Text: "How was the weather?"})
	require.NoError(t, err)

	assert.Equal(t, answerOutOfScope, result.Answer)
	assert.Equal(t, SourceRouter, result.Meta.Source)
}

func TestAnswerRejectsEmptyText(t *testing.T) {
	t.Parallel()

	svc := newAskService(seededStore(t), nil, nil)
	_, err := svc.Answer(context.Background(), AskInput{Text: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnswerLiveFallbackUsesProvider(t *testing.T) {
	t.Parallel()

	// Empty store forces the snippet scan to miss; the provider supplies
	// the fixtures live.
	provider := newSyncProvider()
	svc := newAskService(vectorstore.NewMemory(nil), nil, provider)

	result, err := svc.Answer(context.Background(), AskInput{Text: "When does blue 10s play next?"})
	require.NoError(t, err)

	assert.Equal(t, SourcePlayHQ, result.Meta.Source)
	assert.Contains(t, result.Answer, "Melton Centrals")
}
