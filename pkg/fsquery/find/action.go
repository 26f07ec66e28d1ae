package find

import (
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/randalmurphal/fsquery/pkg/fsquery"
	"github.com/randalmurphal/fsquery/pkg/fsquery/snapshot"
)

// printer serializes writes from concurrent -print evaluations.
type printer struct {
	mu     sync.Mutex
	out    io.Writer
	colors map[byte]*color.Color
	exec   *color.Color
}

func newPrinter(out io.Writer, colored bool) *printer {
	p := &printer{out: out}
	if !colored {
		return p
	}
	p.colors = map[byte]*color.Color{
		'd': color.New(color.FgBlue, color.Bold),
		'l': color.New(color.FgCyan),
		'p': color.New(color.FgYellow),
		's': color.New(color.FgMagenta),
		'c': color.New(color.FgYellow, color.Bold),
		'b': color.New(color.FgYellow, color.Bold),
	}
	p.exec = color.New(color.FgGreen, color.Bold)
	// The caller decided colouring; do not second-guess it from os.Stdout.
	for _, c := range p.colors {
		c.EnableColor()
	}
	p.exec.EnableColor()
	return p
}

func (p *printer) paint(e *snapshot.Entry) string {
	if p.colors == nil {
		return e.Path
	}
	t := e.TypeChar()
	if c, ok := p.colors[t]; ok {
		return c.Sprint(e.Path)
	}
	if t == 'f' && e.Mode&0o111 != 0 {
		return p.exec.Sprint(e.Path)
	}
	return e.Path
}

func (p *printer) print(e *snapshot.Entry, term byte) error {
	s := p.paint(e)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := io.WriteString(p.out, s); err != nil {
		return err
	}
	_, err := p.out.Write([]byte{term})
	return err
}

// action is a leaf with side effects. Apply always defers, so the effect
// happens once, in ApplyBlocked, after everything to its left has matched.
type action struct {
	fsquery.LeafBase[*snapshot.Entry, string]
	run func(e *snapshot.Entry) (bool, error)
}

func newAction(name string, cost float64, run func(*snapshot.Entry) (bool, error)) *action {
	a := &action{run: run}
	a.Command = name
	a.EstCost = cost
	a.EstSuccess = 1
	a.SideEffects = true
	return a
}

// ApplyBlocked implements fsquery.Node.
func (a *action) ApplyBlocked(e *snapshot.Entry) (bool, error) {
	return a.run(e)
}

// Apply implements fsquery.Node.
func (a *action) Apply(*snapshot.Entry) (fsquery.Tribool, error) {
	return fsquery.Uncertain, nil
}

// Clone implements fsquery.Node.
func (a *action) Clone() Node {
	cp := *a
	return &cp
}

// CloneDeep implements fsquery.Node.
func (a *action) CloneDeep() Node { return a.Clone() }

func newPrint(p *printer, term byte) Node {
	name := "-print"
	if term == 0 {
		name = "-print0"
	}
	return newAction(name, costPrint, func(e *snapshot.Entry) (bool, error) {
		if err := p.print(e, term); err != nil {
			return false, &fsquery.EvalError{Node: name, Err: err}
		}
		return true, nil
	})
}

func newQuit() Node {
	a := newAction("-quit", fsquery.LeafCost, func(*snapshot.Entry) (bool, error) {
		return false, fsquery.ErrQuit
	})
	a.EstSuccess = 0
	return a
}
