package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer delegates to whatever provider is installed globally, including
// one installed after package init.
var tracer = otel.Tracer("fsquery")

// Span names.
const (
	SpanBuild    = "fsquery.build"
	SpanJobStart = "fsquery.job.start"
	SpanSnapshot = "fsquery.snapshot"
)

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	StartBuildSpan(ctx context.Context, tokens int) (context.Context, trace.Span)
	StartJobSpan(ctx context.Context, jobID string, budget int) (context.Context, trace.Span)
	StartSnapshotSpan(ctx context.Context, root string) (context.Context, trace.Span)

	// EndSpanWithError sets the span status from err and ends it.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the recording span in ctx, if any.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager backed by the global OTel tracer
// provider.
func NewSpanManager() SpanManager {
	return otelSpanManager{}
}

func (otelSpanManager) StartBuildSpan(ctx context.Context, tokens int) (context.Context, trace.Span) {
	return StartBuildSpan(ctx, tokens)
}

func (otelSpanManager) StartJobSpan(ctx context.Context, jobID string, budget int) (context.Context, trace.Span) {
	return StartJobSpan(ctx, jobID, budget)
}

func (otelSpanManager) StartSnapshotSpan(ctx context.Context, root string) (context.Context, trace.Span) {
	return StartSnapshotSpan(ctx, root)
}

func (otelSpanManager) EndSpanWithError(span trace.Span, err error) { EndSpanWithError(span, err) }

func (otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

func start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...), trace.WithSpanKind(trace.SpanKindInternal))
}

// StartBuildSpan starts a span covering one expression compile.
func StartBuildSpan(ctx context.Context, tokens int) (context.Context, trace.Span) {
	return start(ctx, SpanBuild, attribute.Int("build.tokens", tokens))
}

// StartJobSpan starts a span covering one budgeted Job.Start round.
func StartJobSpan(ctx context.Context, jobID string, budget int) (context.Context, trace.Span) {
	return start(ctx, SpanJobStart, attribute.String("job.id", jobID), attribute.Int("job.budget", budget))
}

// StartSnapshotSpan starts a span covering a tree scan.
func StartSnapshotSpan(ctx context.Context, root string) (context.Context, trace.Span) {
	return start(ctx, SpanSnapshot, attribute.String("snapshot.root", root))
}

// EndSpanWithError sets the span status from err and ends it. A nil span is
// ignored.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err == nil {
		span.SetStatus(codes.Ok, "")
		span.End()
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}

// AddSpanEvent adds an event to the recording span in ctx, if any.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}
