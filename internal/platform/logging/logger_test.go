package logging

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(LevelDebug)
	return &Logger{core: zap.New(core)}, logs
}

func TestToFieldsPairsKeysAndValues(t *testing.T) {
	t.Parallel()

	fields := toFields([]any{"team_id", "team-blue", "error", fmt.Errorf("boom"), "dangling"})
	require.Len(t, fields, 3)
	assert.Equal(t, "team_id", fields[0].Key)
	assert.Equal(t, "error", fields[1].Key)
	assert.Equal(t, "dangling", fields[2].Key)
}

func TestContextVariantsStampTrace(t *testing.T) {
	t.Parallel()

	logger, logs := newObservedLogger()

	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x01},
		SpanID:  trace.SpanID{0x02},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logger.InfoContext(ctx, "sync run finished", "scope", "all")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "all", fields["scope"])
	assert.Equal(t, spanCtx.TraceID().String(), fields["trace_id"])
	assert.Equal(t, spanCtx.SpanID().String(), fields["span_id"])
}

func TestPlainVariantsOmitTrace(t *testing.T) {
	t.Parallel()

	logger, logs := newObservedLogger()
	logger.Info("startup", "mode", "public")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "public", fields["mode"])
	assert.NotContains(t, fields, "trace_id")
}
