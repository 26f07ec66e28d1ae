package fsquery

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/randalmurphal/fsquery/pkg/fsquery/observability"
	"go.opentelemetry.io/otel/attribute"
)

// Pool runs tasks asynchronously. The job never manages pool lifetime.
type Pool interface {
	Submit(task func())
}

// jobConfig holds Job options.
type jobConfig struct {
	id      string
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// JobOption configures a Job.
type JobOption func(*jobConfig)

// WithJobID sets the job identifier. Default: a random UUID.
func WithJobID(id string) JobOption {
	return func(c *jobConfig) {
		if id != "" {
			c.id = id
		}
	}
}

// WithJobLogger sets the logger; it is enriched with job_id.
// Default: slog.Default().
func WithJobLogger(logger *slog.Logger) JobOption {
	return func(c *jobConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithJobMetrics sets the metrics recorder. Default: no-op.
func WithJobMetrics(m observability.MetricsRecorder) JobOption {
	return func(c *jobConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithJobSpans sets the span manager. Default: no-op.
func WithJobSpans(sm observability.SpanManager) JobOption {
	return func(c *jobConfig) {
		if sm != nil {
			c.spans = sm
		}
	}
}

// Job drives a compiled expression over an iterator, evaluating cheap
// outcomes inline and offloading Uncertain subjects to a Pool.
//
// Each Start call carries a result budget. When the budget runs out,
// undecided subjects are stashed instead of evaluated, and the next Start
// resubmits them before reading further from the iterator.
//
// The job borrows both the expression and the iterator: they must stay valid
// until Join (or Close) returns. Callbacks may run on pool goroutines, after
// Start has returned, but never concurrently with each other.
type Job[S, P any] struct {
	expr    Node[S, P]
	it      Iterator[S]
	skipper Skipper[S]

	mu        sync.Mutex
	idle      *sync.Cond
	inFlight  int
	budget    int
	stash     []S
	err       error
	exhausted bool

	cbMu      sync.Mutex
	cancelled atomic.Bool

	id      string
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// NewJob binds expr to it. If expr implements Skipper and prefers it, the
// job advances through Skip instead of Apply.
func NewJob[S, P any](expr Node[S, P], it Iterator[S], opts ...JobOption) *Job[S, P] {
	cfg := jobConfig{
		id:      uuid.New().String(),
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	j := &Job[S, P]{
		expr:    expr,
		it:      it,
		id:      cfg.id,
		logger:  observability.EnrichLogger(cfg.logger, cfg.id),
		metrics: cfg.metrics,
		spans:   cfg.spans,
	}
	j.idle = sync.NewCond(&j.mu)
	if sk, ok := any(expr).(Skipper[S]); ok && sk.PreferSkip() {
		j.skipper = sk
	}
	return j
}

// ID returns the job identifier.
func (j *Job[S, P]) ID() string {
	return j.id
}

// Start delivers up to budget further matches to cb. Stashed subjects are
// resubmitted first, then the iterator is read until it is exhausted, the
// budget is spent, or the job is cancelled.
//
// Synchronous matches reach cb in iterator order before Start returns.
// Asynchronous matches may arrive in any order until Join returns.
// Start is a no-op on a cancelled job. It returns nil when the expression
// requests a quit; it returns ctx.Err() if ctx ends mid-walk.
func (j *Job[S, P]) Start(ctx context.Context, pool Pool, cb func(S), budget int) error {
	if j.cancelled.Load() {
		return nil
	}
	ctx, span := j.spans.StartJobSpan(ctx, j.id, budget)
	done := observability.TimedOperation()

	j.mu.Lock()
	j.budget = budget
	stashed := j.stash
	j.stash = nil
	j.inFlight += len(stashed)
	j.mu.Unlock()

	observability.LogJobStart(j.logger, budget, len(stashed))
	for _, s := range stashed {
		pool.Submit(j.task(ctx, cb, s))
	}

	var scanned, matches, deferred int
	err := j.walk(ctx, pool, cb, &scanned, &matches, &deferred)
	if IsQuit(err) {
		observability.LogQuit(j.logger)
		j.Cancel()
		err = nil
	}

	j.spans.AddSpanEvent(ctx, "fsquery.job.paused",
		attribute.Int("scanned", scanned),
		attribute.Int("matches", matches),
		attribute.Int("deferred", deferred))
	j.spans.EndSpanWithError(span, err)
	j.metrics.RecordJobRun(ctx, time.Duration(done()*float64(time.Millisecond)), matches)
	observability.LogJobPaused(j.logger, scanned, matches, deferred, j.Exhausted())
	return err
}

func (j *Job[S, P]) walk(ctx context.Context, pool Pool, cb func(S), scanned, matches, deferred *int) error {
	for {
		if j.cancelled.Load() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		j.mu.Lock()
		stop := j.budget <= 0 || j.exhausted
		j.mu.Unlock()
		if stop {
			return nil
		}

		s, result, ok, err := j.next()
		if err != nil {
			if !IsQuit(err) {
				j.metrics.RecordEvalError(ctx)
				observability.LogEvalError(j.logger, err)
			}
			return err
		}
		if !ok {
			j.mu.Lock()
			j.exhausted = true
			j.mu.Unlock()
			return nil
		}
		*scanned++

		switch {
		case result == True:
			j.metrics.RecordSubject(ctx, observability.OutcomeTrue)
			if j.deliver(ctx, cb, s, false) {
				*matches++
			}
		case result.IsUncertain():
			j.mu.Lock()
			if j.budget > 0 {
				j.inFlight++
				j.mu.Unlock()
				j.metrics.RecordSubject(ctx, observability.OutcomeUncertain)
				pool.Submit(j.task(ctx, cb, s))
				*deferred++
			} else {
				j.stash = append(j.stash, s)
				j.mu.Unlock()
				j.metrics.RecordSubject(ctx, observability.OutcomeStashed)
			}
		default:
			j.metrics.RecordSubject(ctx, observability.OutcomeFalse)
		}
	}
}

// next reads one subject and its cheap outcome.
func (j *Job[S, P]) next() (S, Tribool, bool, error) {
	if j.skipper != nil {
		return j.skipper.Skip(j.it)
	}
	s, ok := j.it.Next()
	if !ok {
		return s, False, false, nil
	}
	result, err := j.expr.Apply(s)
	return s, result, true, err
}

// task returns the pool closure that evaluates s exactly. The caller has
// already counted it in inFlight.
func (j *Job[S, P]) task(ctx context.Context, cb func(S), s S) func() {
	return func() {
		defer j.release()
		if j.cancelled.Load() {
			return
		}

		j.mu.Lock()
		if j.budget <= 0 {
			j.stash = append(j.stash, s)
			j.mu.Unlock()
			j.metrics.RecordSubject(ctx, observability.OutcomeStashed)
			return
		}
		j.mu.Unlock()

		matched, err := j.expr.ApplyBlocked(s)
		if err != nil {
			if IsQuit(err) {
				observability.LogQuit(j.logger)
				j.Cancel()
				return
			}
			j.fail(ctx, err)
			return
		}
		if matched {
			j.deliver(ctx, cb, s, true)
		}
	}
}

// deliver invokes cb unless the job is cancelled. Callbacks are serialized.
func (j *Job[S, P]) deliver(ctx context.Context, cb func(S), s S, async bool) bool {
	j.cbMu.Lock()
	defer j.cbMu.Unlock()
	if j.cancelled.Load() {
		return false
	}
	j.mu.Lock()
	j.budget--
	j.mu.Unlock()
	cb(s)
	j.metrics.RecordMatch(ctx, async)
	return true
}

// fail records the first worker error and cancels the job.
func (j *Job[S, P]) fail(ctx context.Context, err error) {
	j.metrics.RecordEvalError(ctx)
	observability.LogEvalError(j.logger, err)
	j.mu.Lock()
	if j.err == nil {
		j.err = err
	}
	j.mu.Unlock()
	j.Cancel()
}

func (j *Job[S, P]) release() {
	j.mu.Lock()
	j.inFlight--
	if j.inFlight == 0 {
		j.idle.Broadcast()
	}
	j.mu.Unlock()
}

// Join blocks until no evaluation is in flight and returns the first error
// raised by an asynchronous evaluation, if any.
func (j *Job[S, P]) Join() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for j.inFlight > 0 {
		j.idle.Wait()
	}
	return j.err
}

// Cancel stops the job permanently. Work already handed to the pool drains
// without evaluating or calling back. Cancel is idempotent.
func (j *Job[S, P]) Cancel() {
	if !j.cancelled.CompareAndSwap(false, true) {
		return
	}
	j.mu.Lock()
	inFlight := j.inFlight
	j.mu.Unlock()
	observability.LogJobCancelled(j.logger, inFlight)
}

// Cancelled reports whether Cancel has been called.
func (j *Job[S, P]) Cancelled() bool {
	return j.cancelled.Load()
}

// Close cancels the job and waits for outstanding work, so no worker outlives
// the job or the borrowed expression.
func (j *Job[S, P]) Close() error {
	j.Cancel()
	return j.Join()
}

// Stashed returns the number of subjects waiting for the next Start.
func (j *Job[S, P]) Stashed() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.stash)
}

// Exhausted reports whether the iterator has been read to the end.
func (j *Job[S, P]) Exhausted() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.exhausted
}

// Done reports whether the job has nothing left to do: the iterator is
// exhausted, nothing is stashed and nothing is in flight, or it was cancelled.
func (j *Job[S, P]) Done() bool {
	if j.cancelled.Load() {
		return true
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.exhausted && len(j.stash) == 0 && j.inFlight == 0
}
