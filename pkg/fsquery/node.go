package fsquery

// Kind classifies a node by how many children it takes.
type Kind int

const (
	// KindLeaf nodes have no children.
	KindLeaf Kind = iota
	// KindModifier nodes wrap exactly one child.
	KindModifier
	// KindCombinator nodes join exactly two children.
	KindCombinator
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindModifier:
		return "modifier"
	case KindCombinator:
		return "combinator"
	default:
		return "unknown"
	}
}

// Cost model constants.
const (
	// LeafCost is the negligible cost of a constant leaf.
	LeafCost = 1e-3
	// ModifierOverhead is added to a modifier's child cost.
	ModifierOverhead = 1e-3
)

// Node is one evaluable element of a compiled expression.
//
// S is the subject type being tested and P the argument token type the node
// is configured with. The engine never inspects either.
//
// A Node is mutated only while it is being built (NextParam, SetPrev) and by
// UpdateCost. After that it is read concurrently: ApplyBlocked and Apply may be
// called from several goroutines at once on distinct subjects. Any mutable
// cache inside a concrete predicate must be synchronized by that predicate.
type Node[S, P any] interface {
	// Name returns the command name the node was created from (e.g. "-and").
	Name() string

	// Kind reports whether the node is a leaf, modifier or combinator.
	Kind() Kind

	// ApplyBlocked evaluates the node exactly. It may block.
	ApplyBlocked(subject S) (bool, error)

	// Apply evaluates the node cheaply. Uncertain is a hint that exact
	// evaluation is expensive and should be deferred to ApplyBlocked.
	Apply(subject S) (Tribool, error)

	// NextParam offers the next argument token. It returns false once the
	// node is fully configured or does not want the token; the token is then
	// left for the builder.
	NextParam(param P) (bool, error)

	// UpdateCost recomputes Cost and SuccessRate bottom-up.
	UpdateCost()

	// Cost is the expected evaluation time. Valid after UpdateCost.
	Cost() float64

	// SuccessRate is the expected probability of true. Valid after UpdateCost.
	SuccessRate() float64

	// Communicative reports whether the node may be reordered relative to its
	// sibling. Nodes with visible side effects return false.
	Communicative() bool

	// Clone copies the node's own configuration without its children.
	Clone() Node[S, P]

	// CloneDeep copies the node and its whole subtree.
	CloneDeep() Node[S, P]

	// SetPrev attaches a child. Leaves return ErrNoChildren.
	SetPrev(child Node[S, P], isLeft bool) error
}

// Parent is implemented by nodes that own children.
type Parent[S, P any] interface {
	Children() []Node[S, P]
}

// LeafBase supplies the leaf parts of Node for embedding in concrete
// predicates. The embedding type provides Apply, ApplyBlocked, Clone and
// CloneDeep, and overrides NextParam if it takes arguments.
type LeafBase[S, P any] struct {
	// Command is the name returned by Name.
	Command string
	// EstCost is the static cost estimate.
	EstCost float64
	// EstSuccess is the static success-rate estimate.
	EstSuccess float64
	// SideEffects marks the leaf as non-communicative.
	SideEffects bool
}

// Name implements Node.
func (l LeafBase[S, P]) Name() string { return l.Command }

// Kind implements Node.
func (LeafBase[S, P]) Kind() Kind { return KindLeaf }

// NextParam implements Node. Leaves take no arguments by default.
func (LeafBase[S, P]) NextParam(P) (bool, error) { return false, nil }

// UpdateCost implements Node. Leaf estimates are static.
func (LeafBase[S, P]) UpdateCost() {}

// Cost implements Node.
func (l LeafBase[S, P]) Cost() float64 {
	if l.EstCost <= 0 {
		return LeafCost
	}
	return l.EstCost
}

// SuccessRate implements Node.
func (l LeafBase[S, P]) SuccessRate() float64 { return l.EstSuccess }

// Communicative implements Node.
func (l LeafBase[S, P]) Communicative() bool { return !l.SideEffects }

// SetPrev implements Node.
func (LeafBase[S, P]) SetPrev(Node[S, P], bool) error { return ErrNoChildren }

// ModifierBase supplies the single-child parts of Node for embedding in
// modifiers. The embedding type provides Apply, ApplyBlocked, SuccessRate,
// Clone and CloneDeep.
type ModifierBase[S, P any] struct {
	// Command is the name returned by Name.
	Command string

	child Node[S, P]
}

// Name implements Node.
func (m *ModifierBase[S, P]) Name() string { return m.Command }

// Kind implements Node.
func (*ModifierBase[S, P]) Kind() Kind { return KindModifier }

// NextParam implements Node. Modifiers take no arguments by default.
func (*ModifierBase[S, P]) NextParam(P) (bool, error) { return false, nil }

// Child returns the wrapped node, nil before SetPrev.
func (m *ModifierBase[S, P]) Child() Node[S, P] { return m.child }

// Children implements Parent.
func (m *ModifierBase[S, P]) Children() []Node[S, P] {
	if m.child == nil {
		return nil
	}
	return []Node[S, P]{m.child}
}

// SetPrev implements Node. The side flag is ignored.
func (m *ModifierBase[S, P]) SetPrev(child Node[S, P], _ bool) error {
	m.child = child
	return nil
}

// UpdateCost implements Node.
func (m *ModifierBase[S, P]) UpdateCost() {
	if m.child != nil {
		m.child.UpdateCost()
	}
}

// Cost implements Node.
func (m *ModifierBase[S, P]) Cost() float64 {
	if m.child == nil {
		return ModifierOverhead
	}
	return m.child.Cost() + ModifierOverhead
}

// Communicative implements Node.
func (m *ModifierBase[S, P]) Communicative() bool {
	return m.child == nil || m.child.Communicative()
}

// CloneChild deep-copies the child for use in CloneDeep.
func (m *ModifierBase[S, P]) CloneChild() Node[S, P] {
	if m.child == nil {
		return nil
	}
	return m.child.CloneDeep()
}

// Const is a leaf with a fixed result.
type Const[S, P any] struct {
	LeafBase[S, P]
	value bool
}

// NewConst returns "-true" or "-false".
func NewConst[S, P any](value bool) *Const[S, P] {
	c := &Const[S, P]{value: value}
	c.Command = "-false"
	if value {
		c.Command = "-true"
		c.EstSuccess = 1
	}
	c.EstCost = LeafCost
	return c
}

// ApplyBlocked implements Node.
func (c *Const[S, P]) ApplyBlocked(S) (bool, error) { return c.value, nil }

// Apply implements Node.
func (c *Const[S, P]) Apply(S) (Tribool, error) { return FromBool(c.value), nil }

// Clone implements Node.
func (c *Const[S, P]) Clone() Node[S, P] {
	cp := *c
	return &cp
}

// CloneDeep implements Node.
func (c *Const[S, P]) CloneDeep() Node[S, P] { return c.Clone() }

// Not negates its child.
type Not[S, P any] struct {
	ModifierBase[S, P]
}

// NewNot returns an unattached negation named command.
func NewNot[S, P any](command string) *Not[S, P] {
	n := &Not[S, P]{}
	n.Command = command
	return n
}

// ApplyBlocked implements Node.
func (n *Not[S, P]) ApplyBlocked(subject S) (bool, error) {
	if n.child == nil {
		return false, &EvalError{Node: n.Command, Err: ErrUninitializedNode}
	}
	ok, err := n.child.ApplyBlocked(subject)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Apply implements Node.
func (n *Not[S, P]) Apply(subject S) (Tribool, error) {
	if n.child == nil {
		return Uncertain, &EvalError{Node: n.Command, Err: ErrUninitializedNode}
	}
	v, err := n.child.Apply(subject)
	if err != nil {
		return Uncertain, err
	}
	return v.Not(), nil
}

// SuccessRate implements Node.
func (n *Not[S, P]) SuccessRate() float64 {
	if n.child == nil {
		return 0
	}
	return 1 - n.child.SuccessRate()
}

// Clone implements Node.
func (n *Not[S, P]) Clone() Node[S, P] {
	return NewNot[S, P](n.Command)
}

// CloneDeep implements Node.
func (n *Not[S, P]) CloneDeep() Node[S, P] {
	cp := NewNot[S, P](n.Command)
	cp.child = n.CloneChild()
	return cp
}
