package fsquery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/randalmurphal/fsquery/pkg/fsquery/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func always(int) (bool, error) { return true, nil }

func isEven(x int) (bool, error) { return x%2 == 0, nil }

func TestJob_SynchronousMatchesInOrder(t *testing.T) {
	expr := newStub("-even", 1, 0.5, isEven)
	job := NewJob[int, string](expr, NewSliceIterator(seq(10)))
	p := &manualPool{}

	var got []int
	require.NoError(t, job.Start(testCtx(), p, func(x int) { got = append(got, x) }, 100))
	assert.Equal(t, []int{2, 4, 6, 8, 10}, got)
	assert.Zero(t, p.Len(), "nothing uncertain, nothing submitted")
	require.NoError(t, job.Join())
	assert.True(t, job.Done())
	assert.NotEmpty(t, job.ID())
}

func TestJob_BudgetPausesAndResumes(t *testing.T) {
	expr := newStub("-even", 1, 0.5, isEven)
	it := &countingIterator{SliceIterator: NewSliceIterator(seq(10))}
	job := NewJob[int, string](expr, it, WithJobID("resume"))
	p := &manualPool{}
	var got []int
	cb := func(x int) { got = append(got, x) }

	require.NoError(t, job.Start(testCtx(), p, cb, 2))
	assert.Equal(t, []int{2, 4}, got)
	assert.Equal(t, 4, it.nexts, "stops reading once the budget is spent")
	assert.False(t, job.Exhausted())
	assert.False(t, job.Done())

	require.NoError(t, job.Start(testCtx(), p, cb, 2))
	assert.Equal(t, []int{2, 4, 6, 8}, got)

	require.NoError(t, job.Start(testCtx(), p, cb, 5))
	assert.Equal(t, []int{2, 4, 6, 8, 10}, got)
	assert.True(t, job.Exhausted())
	assert.True(t, job.Done())
	assert.Equal(t, "resume", job.ID())
}

func TestJob_StashesUncertainBeyondBudget(t *testing.T) {
	expr := uncertainStub("-slow", always)
	it := &countingIterator{SliceIterator: NewSliceIterator(seq(5))}
	job := NewJob[int, string](expr, it)
	p := &manualPool{}

	var got []int
	cb := func(x int) { got = append(got, x) }

	require.NoError(t, job.Start(testCtx(), p, cb, 2))
	assert.Equal(t, 5, p.Len(), "all uncertain subjects go to the pool")
	assert.True(t, job.Exhausted())

	p.RunAll()
	require.NoError(t, job.Join())
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, 3, job.Stashed())
	assert.EqualValues(t, 2, expr.calls.blocked.Load(), "stashed subjects are not evaluated")
	assert.False(t, job.Done())

	require.NoError(t, job.Start(testCtx(), p, cb, 10))
	assert.Equal(t, 3, p.Len(), "stash is resubmitted")
	assert.Zero(t, job.Stashed())
	p.RunAll()
	require.NoError(t, job.Join())

	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, got)
	assert.Equal(t, 6, it.nexts, "iterator is not read past exhaustion")
	assert.True(t, job.Done())
}

func TestJob_StashWhenBudgetZeroDuringWalk(t *testing.T) {
	// One concrete match spends the budget; later uncertain subjects in the
	// same walk are never read because the walk stops at budget zero.
	expr := newStub("-mixed", 1, 0.5, always)
	expr.cheap = func(x int) (Tribool, error) {
		if x == 1 {
			return True, nil
		}
		return Uncertain, nil
	}
	job := NewJob[int, string](expr, NewSliceIterator(seq(3)))
	p := &manualPool{}

	var got []int
	require.NoError(t, job.Start(testCtx(), p, func(x int) { got = append(got, x) }, 1))
	assert.Equal(t, []int{1}, got)
	assert.Zero(t, p.Len())
	assert.Zero(t, job.Stashed())
	assert.False(t, job.Exhausted())
}

func TestJob_CancelStopsCallbacks(t *testing.T) {
	expr := uncertainStub("-slow", always)
	job := NewJob[int, string](expr, NewSliceIterator(seq(5)))
	p := &manualPool{}

	var got []int
	require.NoError(t, job.Start(testCtx(), p, func(x int) { got = append(got, x) }, 10))
	require.Equal(t, 5, p.Len())

	job.Cancel()
	job.Cancel()
	assert.True(t, job.Cancelled())

	p.RunAll()
	require.NoError(t, job.Join())
	assert.Empty(t, got)
	assert.Zero(t, expr.calls.blocked.Load())

	require.NoError(t, job.Start(testCtx(), p, func(x int) { got = append(got, x) }, 10))
	assert.Zero(t, p.Len(), "start on a cancelled job does nothing")
	assert.True(t, job.Done())
}

func TestJob_CancelFromCallback(t *testing.T) {
	expr := uncertainStub("-slow", always)
	job := NewJob[int, string](expr, NewSliceIterator(seq(5)))
	p := &manualPool{}

	var got []int
	cb := func(x int) {
		got = append(got, x)
		job.Cancel()
	}
	require.NoError(t, job.Start(testCtx(), p, cb, 10))
	p.RunAll()
	require.NoError(t, job.Join())
	assert.Equal(t, []int{1}, got)
}

func TestJob_Quit(t *testing.T) {
	quitAt := func(n int) func(int) (bool, error) {
		return func(x int) (bool, error) {
			if x == n {
				return false, ErrQuit
			}
			return true, nil
		}
	}

	t.Run("synchronous", func(t *testing.T) {
		job := NewJob[int, string](newStub("-q", 1, 0.5, quitAt(3)), NewSliceIterator(seq(5)))
		var got []int
		require.NoError(t, job.Start(testCtx(), &manualPool{}, func(x int) { got = append(got, x) }, 10))
		assert.Equal(t, []int{1, 2}, got)
		assert.True(t, job.Cancelled())
	})
	t.Run("asynchronous", func(t *testing.T) {
		job := NewJob[int, string](uncertainStub("-q", quitAt(1)), NewSliceIterator(seq(5)))
		p := &manualPool{}
		var got []int
		require.NoError(t, job.Start(testCtx(), p, func(x int) { got = append(got, x) }, 10))
		p.RunAll()
		require.NoError(t, job.Join())
		assert.Empty(t, got, "tasks after the quit see a cancelled job")
		assert.True(t, job.Cancelled())
	})
}

func TestJob_Errors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("synchronous error returned from start", func(t *testing.T) {
		bad := newStub("-bad", 1, 0.5, func(int) (bool, error) { return false, boom })
		job := NewJob[int, string](bad, NewSliceIterator(seq(3)))
		err := job.Start(testCtx(), &manualPool{}, func(int) {}, 10)
		assert.ErrorIs(t, err, boom)
	})
	t.Run("worker error cancels and surfaces from join", func(t *testing.T) {
		bad := uncertainStub("-bad", func(x int) (bool, error) {
			if x == 2 {
				return false, boom
			}
			return true, nil
		})
		job := NewJob[int, string](bad, NewSliceIterator(seq(5)))
		p := &manualPool{}
		var got []int
		require.NoError(t, job.Start(testCtx(), p, func(x int) { got = append(got, x) }, 10))
		p.RunAll()

		assert.ErrorIs(t, job.Join(), boom)
		assert.True(t, job.Cancelled())
		assert.Equal(t, []int{1}, got)
	})
	t.Run("context cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(testCtx())
		cancel()
		job := NewJob[int, string](newStub("-even", 1, 0.5, isEven), NewSliceIterator(seq(3)))
		err := job.Start(ctx, &manualPool{}, func(int) {}, 10)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// skipTens is an expression that jumps straight to multiples of ten.
type skipTens struct {
	*stubLeaf
}

func (s skipTens) PreferSkip() bool { return true }

func (s skipTens) Skip(it Iterator[int]) (int, Tribool, bool, error) {
	for {
		x, ok := it.Next()
		if !ok {
			return 0, False, false, nil
		}
		if x%10 == 0 {
			return x, True, true, nil
		}
	}
}

func TestJob_UsesSkipper(t *testing.T) {
	expr := skipTens{constStub("-tens", 1, 0.1, false)}
	job := NewJob[int, string](expr, NewSliceIterator(seq(35)))

	var got []int
	require.NoError(t, job.Start(testCtx(), &manualPool{}, func(x int) { got = append(got, x) }, 10))
	assert.Equal(t, []int{10, 20, 30}, got)
	assert.Zero(t, expr.calls.apply.Load(), "skip replaces apply")
	assert.True(t, job.Exhausted())
}

func TestJob_WithWorkerPool(t *testing.T) {
	p := pool.New(4)
	defer p.Close()

	expr := uncertainStub("-even", isEven)
	job := NewJob[int, string](expr, NewSliceIterator(seq(200)))

	var (
		mu     sync.Mutex
		active atomic.Int32
		seen   []int
	)
	cb := func(x int) {
		assert.Equal(t, int32(1), active.Add(1), "callbacks overlap")
		mu.Lock()
		seen = append(seen, x)
		mu.Unlock()
		active.Add(-1)
	}

	require.NoError(t, job.Start(testCtx(), p, cb, 1000))
	require.NoError(t, job.Join())
	assert.Len(t, seen, 100)
	assert.True(t, job.Done())
	require.NoError(t, job.Close())
}

func TestJob_CloseWaitsForWorkers(t *testing.T) {
	p := pool.New(2)
	defer p.Close()

	release := make(chan struct{})
	var finished atomic.Int32
	expr := uncertainStub("-block", func(int) (bool, error) {
		<-release
		finished.Add(1)
		return true, nil
	})
	job := NewJob[int, string](expr, NewSliceIterator(seq(2)))
	require.NoError(t, job.Start(testCtx(), p, func(int) {}, 10))

	closed := make(chan error)
	go func() { closed <- job.Close() }()
	close(release)

	require.NoError(t, <-closed)
	assert.True(t, job.Cancelled())
	assert.LessOrEqual(t, finished.Load(), int32(2))
}
