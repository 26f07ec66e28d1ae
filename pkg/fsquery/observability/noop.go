package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

func (NoopMetrics) RecordBuild(context.Context, time.Duration, error) {}
func (NoopMetrics) RecordSubject(context.Context, string) {}
func (NoopMetrics) RecordMatch(context.Context, bool) {}
func (NoopMetrics) RecordEvalError(context.Context) {}
func (NoopMetrics) RecordJobRun(context.Context, time.Duration, int) {}
func (NoopMetrics) RecordSnapshot(context.Context, int64, time.Duration) {}

// NoopSpanManager hands out non-recording spans and leaves contexts alone.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

func (NoopSpanManager) StartBuildSpan(ctx context.Context, _ int) (context.Context, trace.Span) {
	return ctx, noop.Span{}
}

func (NoopSpanManager) StartJobSpan(ctx context.Context, _ string, _ int) (context.Context, trace.Span) {
	return ctx, noop.Span{}
}

func (NoopSpanManager) StartSnapshotSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noop.Span{}
}

func (NoopSpanManager) EndSpanWithError(trace.Span, error) {}

func (NoopSpanManager) AddSpanEvent(context.Context, string, ...attribute.KeyValue) {}
