package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestNoopMetrics(t *testing.T) {
	var m MetricsRecorder = NoopMetrics{}
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordBuild(ctx, time.Millisecond, nil)
		m.RecordBuild(ctx, 0, errors.New("test"))
		m.RecordSubject(ctx, OutcomeUncertain)
		m.RecordMatch(ctx, true)
		m.RecordEvalError(ctx)
		m.RecordJobRun(ctx, time.Second, 0)
		m.RecordSnapshot(ctx, 0, 0)
	})
}

func TestNoopSpanManager(t *testing.T) {
	var sm SpanManager = NoopSpanManager{}
	ctx := context.Background()

	t.Run("returns context unchanged", func(t *testing.T) {
		got, span := sm.StartBuildSpan(ctx, 1)
		assert.Equal(t, ctx, got)
		assert.NotNil(t, span)
		assert.False(t, span.IsRecording())

		got, _ = sm.StartJobSpan(ctx, "job", 10)
		assert.Equal(t, ctx, got)
		got, _ = sm.StartSnapshotSpan(ctx, "/")
		assert.Equal(t, ctx, got)
	})

	t.Run("end and events do not panic", func(t *testing.T) {
		_, span := sm.StartJobSpan(ctx, "job", 10)
		assert.NotPanics(t, func() {
			sm.AddSpanEvent(ctx, "event", attribute.Int("n", 1))
			sm.EndSpanWithError(span, errors.New("boom"))
			sm.EndSpanWithError(nil, nil)
		})
	})
}
