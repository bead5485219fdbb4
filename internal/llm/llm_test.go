package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carolinespringscc/cricket-agent/internal/platform/logging"
	"github.com/carolinespringscc/cricket-agent/internal/usecase"
)

func TestParseClassification(t *testing.T) {
	t.Parallel()

	out := parseClassification(`{"intent": "next_fixture", "entities": {"team": "blue 10s"}}`)
	assert.Equal(t, usecase.IntentNextFixture, out.Intent)
	assert.Equal(t, "blue 10s", out.Entities["team"])
}

func TestParseClassificationFencedOutput(t *testing.T) {
	t.Parallel()

	out := parseClassification("```json\n{\"intent\": \"ladder_position\"}\n```")
	assert.Equal(t, usecase.IntentLadderPosition, out.Intent)
}

func TestParseClassificationMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"the user wants the ladder",
		`{"intent": "buy_tickets"}`,
		``,
	} {
		out := parseClassification(raw)
		assert.Equal(t, usecase.IntentUnknown, out.Intent, "input %q", raw)
		assert.NotNil(t, out.Entities)
	}
}

func TestFitContextDropsWeakestFirst(t *testing.T) {
	t.Parallel()

	adapter, err := NewOpenAI("test-key", "gpt-4o-mini", 300, logging.NewNop())
	require.NoError(t, err)

	long := make([]string, 4)
	for i := range long {
		text := ""
		for j := 0; j < 60; j++ {
			text += "cricket fixture ladder roster "
		}
		long[i] = text
	}

	kept, truncated := adapter.fitContext(long, "ladder for blue 10s")
	assert.Greater(t, truncated, 0)
	assert.Less(t, len(kept), len(long))
	if len(kept) > 0 {
		// Survivors are the highest-ranked snippets from the head.
		assert.Equal(t, long[:len(kept)], kept)
	}
}

func TestFitContextKeepsSmallContext(t *testing.T) {
	t.Parallel()

	adapter, err := NewOpenAI("test-key", "gpt-4o-mini", 6000, logging.NewNop())
	require.NoError(t, err)

	snippets := []string{"Ladder: Under 10 A\n1. Blue U10 - 8 points"}
	kept, truncated := adapter.fitContext(snippets, "ladder for blue 10s")
	assert.Equal(t, snippets, kept)
	assert.Zero(t, truncated)
}
