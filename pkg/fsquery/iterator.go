package fsquery

import (
	"context"
	"iter"
)

// Iterator is a forward-only stream of subjects. Next returns false once the
// stream is exhausted and keeps returning false afterwards.
type Iterator[S any] interface {
	Next() (S, bool)
}

// SliceIterator iterates over a slice.
type SliceIterator[S any] struct {
	items []S
	pos   int
}

// NewSliceIterator returns an iterator over items. The slice is not copied.
func NewSliceIterator[S any](items []S) *SliceIterator[S] {
	return &SliceIterator[S]{items: items}
}

// Next implements Iterator.
func (it *SliceIterator[S]) Next() (S, bool) {
	if it.pos >= len(it.items) {
		var zero S
		return zero, false
	}
	s := it.items[it.pos]
	it.pos++
	return s, true
}

// SeqIterator adapts a push iterator. Call Stop if the sequence is abandoned
// before it is exhausted.
type SeqIterator[S any] struct {
	next func() (S, bool)
	stop func()
}

// FromSeq returns an Iterator pulling from seq.
func FromSeq[S any](seq iter.Seq[S]) *SeqIterator[S] {
	next, stop := iter.Pull(seq)
	return &SeqIterator[S]{next: next, stop: stop}
}

// Next implements Iterator.
func (it *SeqIterator[S]) Next() (S, bool) {
	return it.next()
}

// Stop releases the underlying sequence.
func (it *SeqIterator[S]) Stop() {
	it.stop()
}

// Skipper is implemented by expressions that can advance an iterator faster
// than one Apply per subject, typically through an index. Jobs use Skip
// instead of Apply when PreferSkip reports true.
type Skipper[S any] interface {
	// PreferSkip reports whether Skip beats per-subject Apply.
	PreferSkip() bool

	// Skip consumes subjects from it until one does not evaluate False and
	// returns it with its True or Uncertain result. ok is false once it is
	// exhausted.
	Skip(it Iterator[S]) (subject S, result Tribool, ok bool, err error)
}

// Walk evaluates expr exactly against every subject from it, calling fn for
// each match in iterator order. ErrQuit from the expression or from fn stops
// the walk without error. Cancelling ctx stops it with ctx.Err().
func Walk[S, P any](ctx context.Context, expr Node[S, P], it Iterator[S], fn func(S) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s, ok := it.Next()
		if !ok {
			return nil
		}
		matched, err := expr.ApplyBlocked(s)
		if err != nil {
			if IsQuit(err) {
				return nil
			}
			return err
		}
		if !matched || fn == nil {
			continue
		}
		if err := fn(s); err != nil {
			if IsQuit(err) {
				return nil
			}
			return err
		}
	}
}
