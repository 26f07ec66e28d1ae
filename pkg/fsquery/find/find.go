// Package find supplies find(1)-style predicates and actions over snapshot
// entries and assembles them into a Vocabulary for the fsquery engine.
//
//	v := find.NewVocabulary(find.WithOutput(os.Stdout))
//	expr, err := v.NewBuilder(find.Fallback()).Compile(ctx, args)
package find

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/randalmurphal/fsquery/pkg/fsquery"
	"github.com/randalmurphal/fsquery/pkg/fsquery/snapshot"
)

// Node is an engine node over snapshot entries configured by string tokens.
type Node = fsquery.Node[*snapshot.Entry, string]

// Vocabulary is the engine vocabulary over snapshot entries.
type Vocabulary = fsquery.Vocabulary[*snapshot.Entry]

// Static estimates. Metadata checks are cheap, anything that touches the
// file system again is not.
const (
	costMeta    = 0.01
	costPattern = 0.05
	costExpr    = 0.2
	costReadDir = 20
	costContent = 100
	costPrint   = 0.5
)

type options struct {
	out   io.Writer
	color bool
	now   func() time.Time
}

// Option configures NewVocabulary.
type Option func(*options)

// WithOutput sets where -print and -print0 write. Default: os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.out = w
		}
	}
}

// WithColor colours -print output by entry type.
func WithColor(on bool) Option {
	return func(o *options) {
		o.color = on
	}
}

// WithClock sets the time source for -newer-than. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// NewVocabulary returns the engine's built-in commands plus every find
// predicate and action.
func NewVocabulary(opts ...Option) *Vocabulary {
	o := &options{out: os.Stdout, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	v := fsquery.NewVocabulary[*snapshot.Entry]()

	preds := []struct {
		name    string
		factory fsquery.Factory[*snapshot.Entry]
	}{
		{"-name", func() Node { return newName("-name", false) }},
		{"-iname", func() Node { return newName("-iname", true) }},
		{"-path", func() Node { return newPath("-path", false) }},
		{"-ipath", func() Node { return newPath("-ipath", true) }},
		{"-regex", func() Node { return newRegex("-regex", false) }},
		{"-iregex", func() Node { return newRegex("-iregex", true) }},
		{"-type", newType},
		{"-size", newSize},
		{"-empty", newEmpty},
		{"-mindepth", func() Node { return newDepth("-mindepth", false) }},
		{"-maxdepth", func() Node { return newDepth("-maxdepth", true) }},
		{"-newer-than", func() Node { return newNewerThan(o.now) }},
		{"-contains", newContains},
		{"-where", newWhere},
	}
	for _, p := range preds {
		mustRegister(v.RegisterPredicate(p.name, p.factory))
	}

	p := newPrinter(o.out, o.color)
	mustRegister(v.RegisterAction("-print", func() Node { return newPrint(p, '\n') }))
	mustRegister(v.RegisterAction("-print0", func() Node { return newPrint(p, 0) }))
	mustRegister(v.RegisterAction("-quit", newQuit))
	return v
}

func mustRegister(err error) {
	if err != nil {
		panic("find: " + err.Error())
	}
}

// errDeclined from a compile function means the argument is not for this
// predicate; the builder decides what the token is instead.
var errDeclined = errors.New("argument declined")

// matchFunc tests one entry exactly.
type matchFunc func(e *snapshot.Entry) (bool, error)

// predicate is the common leaf behind every find command. A predicate with
// a compile function takes exactly one argument and is unusable until it
// has it.
type predicate struct {
	fsquery.LeafBase[*snapshot.Entry, string]

	compile func(arg string) (matchFunc, error)
	match   matchFunc
	arg     string

	// blocking predicates report Uncertain from Apply and do their work in
	// ApplyBlocked.
	blocking bool
	// quick, when set, lets a blocking predicate decide some entries
	// without blocking. It gets the compiled argument and returns Uncertain
	// for the rest.
	quick func(e *snapshot.Entry, arg string) fsquery.Tribool
}

func newPredicate(name string, cost, success float64, compile func(string) (matchFunc, error)) *predicate {
	p := &predicate{compile: compile}
	p.Command = name
	p.EstCost = cost
	p.EstSuccess = success
	return p
}

// NextParam implements fsquery.Node.
func (p *predicate) NextParam(arg string) (bool, error) {
	if p.compile == nil || p.match != nil {
		return false, nil
	}
	m, err := p.compile(arg)
	if errors.Is(err, errDeclined) {
		return false, nil
	}
	if err != nil {
		return false, &fsquery.ParamError{Node: p.Command, Param: arg, Err: err}
	}
	p.match, p.arg = m, arg
	return true, nil
}

// ApplyBlocked implements fsquery.Node.
func (p *predicate) ApplyBlocked(e *snapshot.Entry) (bool, error) {
	if p.match == nil {
		return false, &fsquery.EvalError{Node: p.Command, Err: fsquery.ErrUninitializedNode}
	}
	ok, err := p.match(e)
	if err != nil {
		return false, &fsquery.EvalError{Node: p.Command, Err: err}
	}
	return ok, nil
}

// Apply implements fsquery.Node.
func (p *predicate) Apply(e *snapshot.Entry) (fsquery.Tribool, error) {
	if p.match == nil {
		return fsquery.Uncertain, &fsquery.EvalError{Node: p.Command, Err: fsquery.ErrUninitializedNode}
	}
	if p.blocking {
		if p.quick != nil {
			return p.quick(e, p.arg), nil
		}
		return fsquery.Uncertain, nil
	}
	ok, err := p.ApplyBlocked(e)
	return fsquery.FromBool(ok), err
}

// Clone implements fsquery.Node. Compiled matchers are immutable and shared.
func (p *predicate) Clone() Node {
	cp := *p
	return &cp
}

// CloneDeep implements fsquery.Node.
func (p *predicate) CloneDeep() Node { return p.Clone() }

// String renders the command with its argument for plans.
func (p *predicate) String() string {
	if p.arg == "" {
		return p.Command
	}
	return p.Command + " " + quote(p.arg)
}

// quote wraps args that would not survive a shell round trip.
func quote(s string) string {
	for _, r := range s {
		switch r {
		case ' ', '*', '?', '[', '(', ')', '$', '\'', '"', '\\', '|', '&', '<', '>', ';':
			return "'" + s + "'"
		}
	}
	return s
}
