package fsquery

import "fmt"

// Op is a binary boolean combinator.
type Op int

const (
	// OpAnd is logical conjunction.
	OpAnd Op = iota
	// OpOr is logical disjunction.
	OpOr
	// OpXor is exclusive or.
	OpXor
	// OpNand is the complement of OpAnd.
	OpNand
	// OpNor is the complement of OpOr.
	OpNor
	// OpXnor is the complement of OpXor.
	OpXnor
)

// String returns the operator name.
func (o Op) String() string {
	switch o {
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	case OpNand:
		return "nand"
	case OpNor:
		return "nor"
	case OpXnor:
		return "xnor"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// negated reports whether the result is complemented after evaluation.
func (o Op) negated() bool {
	return o == OpNand || o == OpNor || o == OpXnor
}

// base strips the complement: Nand->And, Nor->Or, Xnor->Xor.
func (o Op) base() Op {
	switch o {
	case OpNand:
		return OpAnd
	case OpNor:
		return OpOr
	case OpXnor:
		return OpXor
	}
	return o
}

// Combinator joins two children with an Op.
//
// UpdateCost picks the evaluation order that minimizes expected cost, unless
// either child is non-communicative, in which case the order stays
// left-to-right.
type Combinator[S, P any] struct {
	// Command is the name returned by Name.
	Command string
	// Op is the boolean operator.
	Op Op

	left, right Node[S, P]
	r2l         bool
	cost        float64
	success     float64
}

// NewCombinator returns an unattached combinator.
func NewCombinator[S, P any](command string, op Op) *Combinator[S, P] {
	return &Combinator[S, P]{Command: command, Op: op}
}

// Name implements Node.
func (c *Combinator[S, P]) Name() string { return c.Command }

// Kind implements Node.
func (*Combinator[S, P]) Kind() Kind { return KindCombinator }

// NextParam implements Node. Combinators take no arguments.
func (*Combinator[S, P]) NextParam(P) (bool, error) { return false, nil }

// Children implements Parent, left first.
func (c *Combinator[S, P]) Children() []Node[S, P] {
	return []Node[S, P]{c.left, c.right}
}

// RightToLeft reports whether the right child is evaluated first.
func (c *Combinator[S, P]) RightToLeft() bool { return c.r2l }

// SetPrev implements Node.
func (c *Combinator[S, P]) SetPrev(child Node[S, P], isLeft bool) error {
	if isLeft {
		c.left = child
	} else {
		c.right = child
	}
	return nil
}

// Communicative implements Node.
func (c *Combinator[S, P]) Communicative() bool {
	if c.left != nil && !c.left.Communicative() {
		return false
	}
	if c.right != nil && !c.right.Communicative() {
		return false
	}
	return true
}

// Cost implements Node.
func (c *Combinator[S, P]) Cost() float64 { return c.cost }

// SuccessRate implements Node.
func (c *Combinator[S, P]) SuccessRate() float64 { return c.success }

// UpdateCost implements Node.
func (c *Combinator[S, P]) UpdateCost() {
	if c.left == nil || c.right == nil {
		return
	}
	c.left.UpdateCost()
	c.right.UpdateCost()

	lc, ls := c.left.Cost(), c.left.SuccessRate()
	rc, rs := c.right.Cost(), c.right.SuccessRate()

	var l2r, r2l float64
	switch c.Op.base() {
	case OpAnd:
		// The second operand runs only when the first is true.
		l2r = lc + rc*ls
		r2l = rc + lc*rs
		c.success = ls * rs
	case OpOr:
		// The second operand runs only when the first is false.
		l2r = lc + rc*(1-ls)
		r2l = rc + lc*(1-rs)
		c.success = 1 - (1-ls)*(1-rs)
	default:
		l2r = lc + rc
		r2l = l2r
		c.success = ls*(1-rs) + rs*(1-ls)
	}
	if c.Op.negated() {
		c.success = 1 - c.success
	}

	c.r2l = c.Op.base() != OpXor && c.Communicative() && r2l < l2r
	if c.r2l {
		c.cost = r2l
	} else {
		c.cost = l2r
	}
}

// order returns the children in evaluation order.
func (c *Combinator[S, P]) order() (first, second Node[S, P]) {
	if c.r2l {
		return c.right, c.left
	}
	return c.left, c.right
}

// ApplyBlocked implements Node.
func (c *Combinator[S, P]) ApplyBlocked(subject S) (bool, error) {
	first, second := c.order()
	if first == nil || second == nil {
		return false, &EvalError{Node: c.Command, Err: ErrUninitializedNode}
	}
	a, err := first.ApplyBlocked(subject)
	if err != nil {
		return false, err
	}

	var result bool
	switch c.Op.base() {
	case OpAnd:
		if !a {
			return c.Op.negated(), nil
		}
		result, err = second.ApplyBlocked(subject)
	case OpOr:
		if a {
			return !c.Op.negated(), nil
		}
		result, err = second.ApplyBlocked(subject)
	default:
		var b bool
		b, err = second.ApplyBlocked(subject)
		result = a != b
	}
	if err != nil {
		return false, err
	}
	return result != c.Op.negated(), nil
}

// Apply implements Node.
func (c *Combinator[S, P]) Apply(subject S) (Tribool, error) {
	first, second := c.order()
	if first == nil || second == nil {
		return Uncertain, &EvalError{Node: c.Command, Err: ErrUninitializedNode}
	}
	a, err := first.Apply(subject)
	if err != nil {
		return Uncertain, err
	}
	// An undecided side effect must still run, so the whole decision is
	// left to ApplyBlocked.
	if a.IsUncertain() && !c.Communicative() {
		return Uncertain, nil
	}

	var result Tribool
	switch c.Op.base() {
	case OpAnd:
		if a == False {
			result = False
			break
		}
		b, err := second.Apply(subject)
		if err != nil {
			return Uncertain, err
		}
		result = a.And(b)
	case OpOr:
		if a == True {
			result = True
			break
		}
		b, err := second.Apply(subject)
		if err != nil {
			return Uncertain, err
		}
		result = a.Or(b)
	default:
		b, err := second.Apply(subject)
		if err != nil {
			return Uncertain, err
		}
		result = a.Xor(b)
	}
	if c.Op.negated() {
		result = result.Not()
	}
	return result, nil
}

// Clone implements Node. The copy has no children.
func (c *Combinator[S, P]) Clone() Node[S, P] {
	return NewCombinator[S, P](c.Command, c.Op)
}

// CloneDeep implements Node.
func (c *Combinator[S, P]) CloneDeep() Node[S, P] {
	cp := &Combinator[S, P]{
		Command: c.Command,
		Op:      c.Op,
		r2l:     c.r2l,
		cost:    c.cost,
		success: c.success,
	}
	if c.left != nil {
		cp.left = c.left.CloneDeep()
	}
	if c.right != nil {
		cp.right = c.right.CloneDeep()
	}
	return cp
}
