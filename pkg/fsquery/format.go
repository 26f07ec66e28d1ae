package fsquery

import (
	"fmt"
	"strings"
)

// Format renders node as a single-line infix expression in declared order.
// Leaves that implement fmt.Stringer render through String, so predicates can
// show their arguments.
func Format[S, P any](node Node[S, P]) string {
	var b strings.Builder
	formatInline(&b, node)
	return b.String()
}

func formatInline[S, P any](b *strings.Builder, node Node[S, P]) {
	if node == nil {
		b.WriteString("<nil>")
		return
	}
	switch node.Kind() {
	case KindCombinator:
		kids := children(node)
		if len(kids) != 2 {
			b.WriteString(label(node))
			return
		}
		b.WriteString("( ")
		formatInline(b, kids[0])
		b.WriteString(" " + node.Name() + " ")
		formatInline(b, kids[1])
		b.WriteString(" )")
	case KindModifier:
		b.WriteString(node.Name() + " ")
		kids := children(node)
		if len(kids) == 0 {
			b.WriteString("<nil>")
			return
		}
		formatInline(b, kids[0])
	default:
		b.WriteString(label(node))
	}
}

// Explain renders the optimized plan: one node per line, children in
// evaluation order, with cost and success estimates. Run UpdateCost first.
func Explain[S, P any](node Node[S, P]) string {
	var b strings.Builder
	explain(&b, node, 0)
	return b.String()
}

func explain[S, P any](b *strings.Builder, node Node[S, P], depth int) {
	indent := strings.Repeat("  ", depth)
	if node == nil {
		fmt.Fprintf(b, "%s<nil>\n", indent)
		return
	}
	fmt.Fprintf(b, "%s%s  cost=%.4g p=%.3f", indent, label(node), node.Cost(), node.SuccessRate())
	if !node.Communicative() {
		b.WriteString(" ordered")
	}
	kids := children(node)
	if c, ok := node.(*Combinator[S, P]); ok && c.RightToLeft() {
		b.WriteString(" right-first")
		kids = []Node[S, P]{kids[1], kids[0]}
	}
	b.WriteByte('\n')
	for _, k := range kids {
		explain(b, k, depth+1)
	}
}

func label[S, P any](node Node[S, P]) string {
	if node.Kind() == KindLeaf {
		if s, ok := node.(fmt.Stringer); ok {
			return s.String()
		}
	}
	return node.Name()
}

func children[S, P any](node Node[S, P]) []Node[S, P] {
	if p, ok := node.(Parent[S, P]); ok {
		return p.Children()
	}
	return nil
}
