package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Subject outcomes recorded by RecordSubject.
const (
	OutcomeFalse     = "false"
	OutcomeTrue      = "true"
	OutcomeUncertain = "uncertain"
	OutcomeStashed   = "stashed"
)

// MetricsRecorder records fsquery metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordBuild records an expression build with its duration and error status.
	RecordBuild(ctx context.Context, duration time.Duration, err error)

	// RecordSubject records how one subject was classified by a job.
	RecordSubject(ctx context.Context, outcome string)

	// RecordMatch records a subject delivered to a job callback.
	RecordMatch(ctx context.Context, async bool)

	// RecordEvalError records an evaluation failure.
	RecordEvalError(ctx context.Context)

	// RecordJobRun records one Start call.
	RecordJobRun(ctx context.Context, duration time.Duration, matches int)

	// RecordSnapshot records a snapshot scan.
	RecordSnapshot(ctx context.Context, entries int64, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	builds          metric.Int64Counter
	buildLatency    metric.Float64Histogram
	buildErrors     metric.Int64Counter
	subjects        metric.Int64Counter
	matches         metric.Int64Counter
	evalErrors      metric.Int64Counter
	jobLatency      metric.Float64Histogram
	snapshotEntries metric.Int64Histogram
	snapshotLatency metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily initializes the shared OTel instruments.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("fsquery")
	m := &otelMetrics{}
	var err error

	if m.builds, err = meter.Int64Counter("fsquery.build.count",
		metric.WithDescription("Number of expression builds"),
	); err != nil {
		return nil, err
	}
	if m.buildLatency, err = meter.Float64Histogram("fsquery.build.latency_ms",
		metric.WithDescription("Expression build latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.buildErrors, err = meter.Int64Counter("fsquery.build.errors",
		metric.WithDescription("Number of rejected expressions"),
	); err != nil {
		return nil, err
	}
	if m.subjects, err = meter.Int64Counter("fsquery.job.subjects",
		metric.WithDescription("Subjects classified by jobs, by outcome"),
	); err != nil {
		return nil, err
	}
	if m.matches, err = meter.Int64Counter("fsquery.job.matches",
		metric.WithDescription("Subjects delivered to job callbacks"),
	); err != nil {
		return nil, err
	}
	if m.evalErrors, err = meter.Int64Counter("fsquery.job.eval_errors",
		metric.WithDescription("Evaluation failures"),
	); err != nil {
		return nil, err
	}
	if m.jobLatency, err = meter.Float64Histogram("fsquery.job.latency_ms",
		metric.WithDescription("Job Start latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.snapshotEntries, err = meter.Int64Histogram("fsquery.snapshot.entries",
		metric.WithDescription("Entries captured per snapshot"),
	); err != nil {
		return nil, err
	}
	if m.snapshotLatency, err = meter.Float64Histogram("fsquery.snapshot.latency_ms",
		metric.WithDescription("Snapshot scan latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordBuild records an expression build.
func (m *otelMetrics) RecordBuild(ctx context.Context, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.Bool("success", err == nil))
	m.builds.Add(ctx, 1, attrs)
	m.buildLatency.Record(ctx, msec(duration), attrs)
	if err != nil {
		m.buildErrors.Add(ctx, 1)
	}
}

// RecordSubject records a subject classification.
func (m *otelMetrics) RecordSubject(ctx context.Context, outcome string) {
	m.subjects.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordMatch records a delivered match.
func (m *otelMetrics) RecordMatch(ctx context.Context, async bool) {
	m.matches.Add(ctx, 1, metric.WithAttributes(attribute.Bool("async", async)))
}

// RecordEvalError records an evaluation failure.
func (m *otelMetrics) RecordEvalError(ctx context.Context) {
	m.evalErrors.Add(ctx, 1)
}

// RecordJobRun records one Start call.
func (m *otelMetrics) RecordJobRun(ctx context.Context, duration time.Duration, matches int) {
	m.jobLatency.Record(ctx, msec(duration),
		metric.WithAttributes(attribute.Bool("matched", matches > 0)))
}

// RecordSnapshot records a snapshot scan.
func (m *otelMetrics) RecordSnapshot(ctx context.Context, entries int64, duration time.Duration) {
	m.snapshotEntries.Record(ctx, entries)
	m.snapshotLatency.Record(ctx, msec(duration))
}

func msec(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
