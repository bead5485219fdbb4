package httpapi

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var httpapiTracer = otel.Tracer("cricket-agent/internal/interfaces/httpapi")
var httpapiNoopSpan = trace.SpanFromContext(context.Background())

// startSpan creates a child span only when the request already carries a
// valid trace context; helpers called outside a traced request stay cheap.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if strings.TrimSpace(name) == "" {
		return ctx, httpapiNoopSpan
	}
	parent := trace.SpanFromContext(ctx)
	if !parent.SpanContext().IsValid() {
		return ctx, httpapiNoopSpan
	}
	return httpapiTracer.Start(ctx, name)
}
