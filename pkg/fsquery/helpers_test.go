package fsquery

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
)

// calls counts evaluations of a stub leaf. Shared by clones on purpose so
// tests can observe a whole tree.
type calls struct {
	apply   atomic.Int64
	blocked atomic.Int64
}

// stubLeaf is a leaf over int subjects with scripted results.
type stubLeaf struct {
	LeafBase[int, string]
	cheap func(int) (Tribool, error)
	exact func(int) (bool, error)
	calls *calls
}

func newStub(name string, cost, success float64, exact func(int) (bool, error)) *stubLeaf {
	s := &stubLeaf{exact: exact, calls: &calls{}}
	s.Command = name
	s.EstCost = cost
	s.EstSuccess = success
	return s
}

// constStub always returns v; Apply reports it concretely.
func constStub(name string, cost, success float64, v bool) *stubLeaf {
	return newStub(name, cost, success, func(int) (bool, error) { return v, nil })
}

// uncertainStub defers everything to exact.
func uncertainStub(name string, exact func(int) (bool, error)) *stubLeaf {
	s := newStub(name, 10, 0.5, exact)
	s.cheap = func(int) (Tribool, error) { return Uncertain, nil }
	return s
}

func (s *stubLeaf) ApplyBlocked(x int) (bool, error) {
	s.calls.blocked.Add(1)
	return s.exact(x)
}

func (s *stubLeaf) Apply(x int) (Tribool, error) {
	s.calls.apply.Add(1)
	if s.cheap != nil {
		return s.cheap(x)
	}
	ok, err := s.exact(x)
	return FromBool(ok), err
}

func (s *stubLeaf) Clone() Node[int, string] {
	cp := *s
	return &cp
}

func (s *stubLeaf) CloneDeep() Node[int, string] { return s.Clone() }

// gtLeaf is "-gt N": subject > N. It takes exactly one argument.
type gtLeaf struct {
	LeafBase[int, string]
	n   int
	set bool
}

func newGt() Node[int, string] {
	g := &gtLeaf{}
	g.Command = "-gt"
	g.EstCost = 1
	g.EstSuccess = 0.5
	return g
}

func (g *gtLeaf) NextParam(p string) (bool, error) {
	if g.set {
		return false, nil
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return false, &ParamError{Node: g.Command, Param: p, Err: ErrNotANumber}
	}
	g.n, g.set = n, true
	return true, nil
}

func (g *gtLeaf) ApplyBlocked(x int) (bool, error) {
	if !g.set {
		return false, &EvalError{Node: g.Command, Err: ErrUninitializedNode}
	}
	return x > g.n, nil
}

func (g *gtLeaf) Apply(x int) (Tribool, error) {
	ok, err := g.ApplyBlocked(x)
	return FromBool(ok), err
}

func (g *gtLeaf) Clone() Node[int, string] {
	cp := *g
	return &cp
}

func (g *gtLeaf) CloneDeep() Node[int, string] { return g.Clone() }

func (g *gtLeaf) String() string { return "-gt " + strconv.Itoa(g.n) }

// eqLeaf is the fallback predicate: a bare integer matches equal subjects.
type eqLeaf struct {
	gtLeaf
}

func newEq() Node[int, string] {
	e := &eqLeaf{}
	e.Command = "="
	e.EstCost = 1
	e.EstSuccess = 0.1
	return e
}

func (e *eqLeaf) NextParam(p string) (bool, error) {
	if e.set {
		return false, nil
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return false, nil
	}
	e.n, e.set = n, true
	return true, nil
}

func (e *eqLeaf) ApplyBlocked(x int) (bool, error) { return x == e.n, nil }

func (e *eqLeaf) Apply(x int) (Tribool, error) { return FromBool(x == e.n), nil }

func (e *eqLeaf) Clone() Node[int, string] {
	cp := *e
	return &cp
}

func (e *eqLeaf) CloneDeep() Node[int, string] { return e.Clone() }

func (e *eqLeaf) String() string { return "= " + strconv.Itoa(e.n) }

// testVocabulary is the built-in vocabulary plus -even and -gt.
func testVocabulary() *Vocabulary[int] {
	v := NewVocabulary[int]()
	if err := v.RegisterPredicate("-even", func() Node[int, string] {
		return newStub("-even", 1, 0.5, func(x int) (bool, error) { return x%2 == 0, nil })
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterPredicate("-gt", newGt); err != nil {
		panic(err)
	}
	return v
}

// manualPool queues tasks until RunAll, making scheduling deterministic.
type manualPool struct {
	mu    sync.Mutex
	tasks []func()
}

func (p *manualPool) Submit(task func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, task)
}

func (p *manualPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// RunAll runs queued tasks in FIFO order, including any queued meanwhile.
func (p *manualPool) RunAll() {
	for {
		p.mu.Lock()
		if len(p.tasks) == 0 {
			p.mu.Unlock()
			return
		}
		task := p.tasks[0]
		p.tasks = p.tasks[1:]
		p.mu.Unlock()
		task()
	}
}

// countingIterator records how many times Next was called.
type countingIterator struct {
	*SliceIterator[int]
	nexts int
}

func (c *countingIterator) Next() (int, bool) {
	c.nexts++
	return c.SliceIterator.Next()
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func testCtx() context.Context {
	return context.Background()
}
