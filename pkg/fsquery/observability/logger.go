// Package observability provides structured logging, metrics, and tracing
// for fsquery builds, jobs, and snapshots.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds the job ID to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "job-123")
//	enriched.Info("scanning") // includes job_id
func EnrichLogger(logger *slog.Logger, jobID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("job_id", jobID))
}

// LogBuild logs a successful expression build.
func LogBuild(logger *slog.Logger, tokens int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("expression built",
		slog.Int("tokens", tokens),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogBuildError logs a rejected expression.
func LogBuildError(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Debug("expression rejected",
		slog.String("error", err.Error()),
	)
}

// LogJobStart logs the start of a job slice.
func LogJobStart(logger *slog.Logger, budget, stashed int) {
	if logger == nil {
		return
	}
	logger.Debug("job starting",
		slog.Int("budget", budget),
		slog.Int("stashed", stashed),
	)
}

// LogJobPaused logs the end of a Start call.
func LogJobPaused(logger *slog.Logger, scanned, matches, deferred int, exhausted bool) {
	if logger == nil {
		return
	}
	logger.Debug("job paused",
		slog.Int("scanned", scanned),
		slog.Int("matches", matches),
		slog.Int("deferred", deferred),
		slog.Bool("exhausted", exhausted),
	)
}

// LogJobCancelled logs job cancellation.
func LogJobCancelled(logger *slog.Logger, inFlight int) {
	if logger == nil {
		return
	}
	logger.Info("job cancelled",
		slog.Int("in_flight", inFlight),
	)
}

// LogQuit logs an early stop requested by a predicate.
func LogQuit(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Debug("quit requested by expression")
}

// LogEvalError logs an evaluation failure.
func LogEvalError(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Error("evaluation failed",
		slog.String("error", err.Error()),
	)
}

// LogTaskPanic logs a recovered panic in a pool task.
func LogTaskPanic(logger *slog.Logger, value any, stack string) {
	if logger == nil {
		return
	}
	logger.Error("pool task panicked",
		slog.Any("panic", value),
		slog.String("stack", stack),
	)
}

// LogSnapshot logs a completed snapshot.
func LogSnapshot(logger *slog.Logger, root string, entries int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("snapshot complete",
		slog.String("root", root),
		slog.Int("entries", entries),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogSnapshotSkip logs a path skipped during a scan (non-fatal).
func LogSnapshotSkip(logger *slog.Logger, path string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("snapshot skipped path",
		slog.String("path", path),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
