package fsquery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/fsquery/pkg/fsquery/observability"
	"go.opentelemetry.io/otel/attribute"
)

// Default bridge priorities. Higher binds tighter.
const (
	PriorityOr  = 10
	PriorityXor = 20
	PriorityAnd = 30
)

// depthShift places the nesting depth above any command priority so bridges
// never compare across parenthesis levels.
const depthShift = 16

// Dispatcher maps tokens to nodes. Each method returns nil when the token is
// not a command of that class. The Builder tries Predicate, Modifier and
// Bridge in that order.
type Dispatcher[S, P any] interface {
	// OpenParen reports whether tok opens a group.
	OpenParen(tok P) bool
	// CloseParen reports whether tok closes a group.
	CloseParen(tok P) bool
	// Predicate returns a fresh leaf for tok.
	Predicate(tok P) Node[S, P]
	// Modifier returns a fresh unary prefix node for tok.
	Modifier(tok P) Node[S, P]
	// Bridge returns a fresh combinator for tok and its priority.
	Bridge(tok P) (Node[S, P], int)
}

// Builder compiles token sequences into expression trees.
//
// A Builder holds only configuration; every Build call has its own parse
// state, so one Builder may be shared between goroutines.
type Builder[S, P any] struct {
	dispatch          Dispatcher[S, P]
	fallbackBridge    func() (Node[S, P], int)
	fallbackPredicate func() Node[S, P]
	logger            *slog.Logger
	metrics           observability.MetricsRecorder
	spans             observability.SpanManager
}

// BuilderOption configures a Builder.
type BuilderOption[S, P any] func(*Builder[S, P])

// WithFallbackBridge sets the combinator inserted between adjacent operands.
// The default is an AND at PriorityAnd.
func WithFallbackBridge[S, P any](factory func() (Node[S, P], int)) BuilderOption[S, P] {
	return func(b *Builder[S, P]) {
		b.fallbackBridge = factory
	}
}

// WithoutFallbackBridge makes adjacent operands a MissingBridge error.
func WithoutFallbackBridge[S, P any]() BuilderOption[S, P] {
	return func(b *Builder[S, P]) {
		b.fallbackBridge = nil
	}
}

// WithFallbackPredicate sets the predicate offered any token that no
// dispatcher recognizes. The token is passed to its NextParam; if the
// predicate rejects it the build fails with ErrUnknownNodeName.
func WithFallbackPredicate[S, P any](factory func() Node[S, P]) BuilderOption[S, P] {
	return func(b *Builder[S, P]) {
		b.fallbackPredicate = factory
	}
}

// WithBuilderLogger sets the logger. Default: slog.Default().
func WithBuilderLogger[S, P any](logger *slog.Logger) BuilderOption[S, P] {
	return func(b *Builder[S, P]) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBuilderMetrics sets the metrics recorder. Default: no-op.
func WithBuilderMetrics[S, P any](m observability.MetricsRecorder) BuilderOption[S, P] {
	return func(b *Builder[S, P]) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithBuilderSpans sets the span manager. Default: no-op.
func WithBuilderSpans[S, P any](sm observability.SpanManager) BuilderOption[S, P] {
	return func(b *Builder[S, P]) {
		if sm != nil {
			b.spans = sm
		}
	}
}

// NewBuilder creates a Builder over dispatch.
//
// Panics if dispatch is nil.
func NewBuilder[S, P any](dispatch Dispatcher[S, P], opts ...BuilderOption[S, P]) *Builder[S, P] {
	if dispatch == nil {
		panic("fsquery: dispatcher cannot be nil")
	}
	b := &Builder[S, P]{
		dispatch: dispatch,
		fallbackBridge: func() (Node[S, P], int) {
			return NewCombinator[S, P]("-and", OpAnd), PriorityAnd
		},
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build compiles tokens into a single expression tree. Cost estimates are
// not computed; call UpdateCost on the result, or use Compile.
func (b *Builder[S, P]) Build(ctx context.Context, tokens []P) (Node[S, P], error) {
	done := observability.TimedOperation()
	ctx, span := b.spans.StartBuildSpan(ctx, len(tokens))

	node, err := b.build(tokens)

	durationMs := done()
	b.spans.EndSpanWithError(span, err)
	b.metrics.RecordBuild(ctx, time.Duration(durationMs*float64(time.Millisecond)), err)
	if err != nil {
		observability.LogBuildError(b.logger, err)
		return nil, err
	}
	observability.LogBuild(b.logger, len(tokens), durationMs)
	return node, nil
}

// Compile builds tokens and runs UpdateCost on the result.
func (b *Builder[S, P]) Compile(ctx context.Context, tokens []P) (Node[S, P], error) {
	node, err := b.Build(ctx, tokens)
	if err != nil {
		return nil, err
	}
	node.UpdateCost()
	b.spans.AddSpanEvent(ctx, "fsquery.compiled",
		attribute.Float64("cost", node.Cost()),
		attribute.Float64("success_rate", node.SuccessRate()))
	return node, nil
}

func (b *Builder[S, P]) build(tokens []P) (Node[S, P], error) {
	s := &parseState[S, P]{b: b}
	for i, tok := range tokens {
		s.pos, s.tok, s.atEnd = i, tok, false
		if err := s.feed(tok); err != nil {
			return nil, err
		}
	}
	s.pos, s.atEnd = len(tokens), true
	return s.finish()
}

type pendingModifier[S, P any] struct {
	node  Node[S, P]
	depth int
}

type pendingBridge[S, P any] struct {
	node     Node[S, P]
	priority int
}

// parseState is the operator-precedence parser state for one Build call.
//
// Between tokens: len(bridges) == len(preds) - 1 when expecting, else
// len(bridges) == len(preds).
type parseState[S, P any] struct {
	b *Builder[S, P]

	preds   []Node[S, P]
	mods    []pendingModifier[S, P]
	bridges []pendingBridge[S, P]
	groups  []int // len(preds) at each open paren

	depth     int
	adding    Node[S, P]
	addingMod bool
	expecting bool

	pos   int
	tok   P
	atEnd bool
}

func (s *parseState[S, P]) fail(err error) error {
	pe := &ParseError{Pos: s.pos, Err: err}
	if !s.atEnd {
		pe.Token = fmt.Sprint(s.tok)
	}
	return pe
}

func (s *parseState[S, P]) feed(tok P) error {
	if s.adding != nil {
		ok, err := s.adding.NextParam(tok)
		if err != nil {
			return s.fail(err)
		}
		if ok {
			return nil
		}
	}
	if err := s.finalize(); err != nil {
		return err
	}

	d := s.b.dispatch
	switch {
	case d.OpenParen(tok):
		if err := s.implicitBridge(); err != nil {
			return err
		}
		s.depth++
		s.groups = append(s.groups, len(s.preds))
		return nil
	case d.CloseParen(tok):
		return s.closeGroup()
	}

	if n := d.Predicate(tok); n != nil {
		s.adding, s.addingMod = n, false
		return nil
	}
	if n := d.Modifier(tok); n != nil {
		s.adding, s.addingMod = n, true
		return nil
	}
	if n, prio := d.Bridge(tok); n != nil {
		if !s.expecting {
			return s.fail(ErrMissingPredicate)
		}
		s.placeBridge(n, prio)
		return nil
	}

	if s.b.fallbackPredicate == nil {
		return s.fail(ErrUnknownNodeName)
	}
	n := s.b.fallbackPredicate()
	ok, err := n.NextParam(tok)
	if err != nil {
		return s.fail(err)
	}
	if !ok {
		return s.fail(ErrUnknownNodeName)
	}
	s.adding, s.addingMod = n, false
	return nil
}

// finalize moves the node under construction onto the stacks.
func (s *parseState[S, P]) finalize() error {
	if s.adding == nil {
		return nil
	}
	n, isMod := s.adding, s.addingMod
	s.adding = nil

	// A modifier or predicate directly after an operand implies a bridge.
	if err := s.implicitBridge(); err != nil {
		return err
	}
	if isMod {
		s.mods = append(s.mods, pendingModifier[S, P]{node: n, depth: s.depth})
		return nil
	}

	wrapped, err := s.applyModifiers(n)
	if err != nil {
		return err
	}
	s.preds = append(s.preds, wrapped)
	s.expecting = true
	return nil
}

// implicitBridge inserts the fallback bridge if an operand is waiting for one.
func (s *parseState[S, P]) implicitBridge() error {
	if !s.expecting {
		return nil
	}
	if s.b.fallbackBridge == nil {
		return s.fail(ErrMissingBridge)
	}
	n, prio := s.b.fallbackBridge()
	s.placeBridge(n, prio)
	return nil
}

// placeBridge merges every pending bridge that binds at least as tightly,
// then pushes the new one.
func (s *parseState[S, P]) placeBridge(n Node[S, P], prio int) {
	eff := s.depth<<depthShift | prio
	for len(s.bridges) > 0 && s.bridges[len(s.bridges)-1].priority >= eff {
		s.mergeTop()
	}
	s.bridges = append(s.bridges, pendingBridge[S, P]{node: n, priority: eff})
	s.expecting = false
}

// mergeTop pops one bridge and joins the top two operands with it.
func (s *parseState[S, P]) mergeTop() {
	top := len(s.bridges) - 1
	bridge := s.bridges[top].node
	s.bridges = s.bridges[:top]

	right := s.preds[len(s.preds)-1]
	s.preds = s.preds[:len(s.preds)-1]
	left := s.preds[len(s.preds)-1]

	// SetPrev cannot fail on combinators returned by a Dispatcher.
	_ = bridge.SetPrev(left, true)
	_ = bridge.SetPrev(right, false)
	s.preds[len(s.preds)-1] = bridge
}

// applyModifiers wraps n in every modifier pending at the current depth,
// innermost first.
func (s *parseState[S, P]) applyModifiers(n Node[S, P]) (Node[S, P], error) {
	for len(s.mods) > 0 {
		top := s.mods[len(s.mods)-1]
		if top.depth != s.depth {
			break
		}
		s.mods = s.mods[:len(s.mods)-1]
		if err := top.node.SetPrev(n, true); err != nil {
			return nil, s.fail(err)
		}
		n = top.node
	}
	return n, nil
}

func (s *parseState[S, P]) closeGroup() error {
	if s.depth == 0 {
		// A dangling bridge or modifier is the more precise complaint.
		if !s.expecting && (len(s.bridges) > 0 || len(s.mods) > 0) {
			return s.fail(ErrMissingPredicate)
		}
		return s.fail(ErrParenthesesMismatch)
	}
	start := s.groups[len(s.groups)-1]
	if !s.expecting {
		if len(s.preds) == start && !s.modsAt(s.depth) {
			return s.fail(ErrEmptyParentheses)
		}
		return s.fail(ErrMissingPredicate)
	}

	s.groups = s.groups[:len(s.groups)-1]
	s.depth--
	for len(s.bridges) > 0 && s.bridges[len(s.bridges)-1].priority>>depthShift > s.depth {
		s.mergeTop()
	}

	top := len(s.preds) - 1
	wrapped, err := s.applyModifiers(s.preds[top])
	if err != nil {
		return err
	}
	s.preds[top] = wrapped
	return nil
}

func (s *parseState[S, P]) modsAt(depth int) bool {
	return len(s.mods) > 0 && s.mods[len(s.mods)-1].depth == depth
}

func (s *parseState[S, P]) finish() (Node[S, P], error) {
	if err := s.finalize(); err != nil {
		return nil, err
	}
	if s.depth != 0 {
		return nil, s.fail(ErrParenthesesMismatch)
	}
	if !s.expecting {
		return nil, s.fail(ErrMissingPredicate)
	}
	for len(s.bridges) > 0 {
		s.mergeTop()
	}
	return s.preds[0], nil
}
