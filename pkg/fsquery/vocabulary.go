package fsquery

import (
	"fmt"

	"github.com/randalmurphal/fsquery/pkg/fsquery/vocab"
)

// Factory creates a fresh node for one occurrence of a command.
type Factory[S any] func() Node[S, string]

// Vocabulary is a Dispatcher over string tokens backed by a command table.
//
// NewVocabulary registers the engine's own commands: -true, -false, the
// -not/! modifier, the six bridges and the parentheses. Concrete predicate
// sets register on top.
type Vocabulary[S any] struct {
	table *vocab.Table[Factory[S]]
	open  map[string]bool
	close map[string]bool
}

var _ Dispatcher[struct{}, string] = (*Vocabulary[struct{}])(nil)

// NewVocabulary returns a vocabulary holding the engine's built-in commands.
func NewVocabulary[S any]() *Vocabulary[S] {
	v := &Vocabulary[S]{
		table: vocab.New[Factory[S]](),
		open:  map[string]bool{"(": true, `\(`: true},
		close: map[string]bool{")": true, `\)`: true},
	}

	v.mustRegister(v.RegisterPredicate("-true", func() Node[S, string] { return NewConst[S, string](true) }))
	v.mustRegister(v.RegisterPredicate("-false", func() Node[S, string] { return NewConst[S, string](false) }))
	v.mustRegister(v.RegisterModifier("-not", func() Node[S, string] { return NewNot[S, string]("-not") }, "!"))

	bridges := []struct {
		name     string
		alias    string
		op       Op
		priority int
	}{
		{"-and", "-a", OpAnd, PriorityAnd},
		{"-or", "-o", OpOr, PriorityOr},
		{"-xor", "", OpXor, PriorityXor},
		{"-nand", "", OpNand, PriorityAnd},
		{"-nor", "", OpNor, PriorityOr},
		{"-xnor", "", OpXnor, PriorityXor},
	}
	for _, b := range bridges {
		name, op := b.name, b.op
		var aliases []string
		if b.alias != "" {
			aliases = append(aliases, b.alias)
		}
		v.mustRegister(v.RegisterBridge(name, b.priority, func() Node[S, string] {
			return NewCombinator[S, string](name, op)
		}, aliases...))
	}
	return v
}

func (v *Vocabulary[S]) mustRegister(err error) {
	if err != nil {
		panic(fmt.Sprintf("fsquery: builtin vocabulary: %v", err))
	}
}

func (v *Vocabulary[S]) register(e vocab.Entry[Factory[S]], aliases []string) error {
	if e.Factory == nil {
		return fmt.Errorf("register %s: nil factory", e.Name)
	}
	if err := v.table.Register(e); err != nil {
		return err
	}
	for _, a := range aliases {
		if err := v.table.Alias(a, e.Name); err != nil {
			return err
		}
	}
	return nil
}

// RegisterPredicate adds a side-effect-free predicate command.
func (v *Vocabulary[S]) RegisterPredicate(name string, f Factory[S], aliases ...string) error {
	return v.register(vocab.Entry[Factory[S]]{Name: name, Class: vocab.ClassPredicate, Factory: f}, aliases)
}

// RegisterAction adds a predicate with side effects (print, exec).
func (v *Vocabulary[S]) RegisterAction(name string, f Factory[S], aliases ...string) error {
	return v.register(vocab.Entry[Factory[S]]{Name: name, Class: vocab.ClassPredicate, Action: true, Factory: f}, aliases)
}

// RegisterModifier adds a unary prefix command.
func (v *Vocabulary[S]) RegisterModifier(name string, f Factory[S], aliases ...string) error {
	return v.register(vocab.Entry[Factory[S]]{Name: name, Class: vocab.ClassModifier, Factory: f}, aliases)
}

// RegisterBridge adds a binary command with the given priority.
func (v *Vocabulary[S]) RegisterBridge(name string, priority int, f Factory[S], aliases ...string) error {
	if priority < 0 || priority >= 1<<depthShift {
		return fmt.Errorf("register %s: priority %d out of range", name, priority)
	}
	return v.register(vocab.Entry[Factory[S]]{Name: name, Class: vocab.ClassBridge, Priority: priority, Factory: f}, aliases)
}

// OpenParen implements Dispatcher.
func (v *Vocabulary[S]) OpenParen(tok string) bool { return v.open[tok] }

// CloseParen implements Dispatcher.
func (v *Vocabulary[S]) CloseParen(tok string) bool { return v.close[tok] }

// Predicate implements Dispatcher.
func (v *Vocabulary[S]) Predicate(tok string) Node[S, string] {
	if e, ok := v.table.LookupClass(tok, vocab.ClassPredicate); ok {
		return e.Factory()
	}
	return nil
}

// Modifier implements Dispatcher.
func (v *Vocabulary[S]) Modifier(tok string) Node[S, string] {
	if e, ok := v.table.LookupClass(tok, vocab.ClassModifier); ok {
		return e.Factory()
	}
	return nil
}

// Bridge implements Dispatcher.
func (v *Vocabulary[S]) Bridge(tok string) (Node[S, string], int) {
	if e, ok := v.table.LookupClass(tok, vocab.ClassBridge); ok {
		return e.Factory(), e.Priority
	}
	return nil, 0
}

// IsAction reports whether tok names an action.
func (v *Vocabulary[S]) IsAction(tok string) bool {
	e, ok := v.table.Lookup(tok)
	return ok && e.Action
}

// HasAction reports whether any token names an action.
func (v *Vocabulary[S]) HasAction(tokens []string) bool {
	for _, t := range tokens {
		if v.IsAction(t) {
			return true
		}
	}
	return false
}

// Entries lists the registered commands ordered by class, then name.
func (v *Vocabulary[S]) Entries() []vocab.Entry[Factory[S]] {
	return v.table.Entries()
}

// AliasesOf returns the aliases registered for name.
func (v *Vocabulary[S]) AliasesOf(name string) []string {
	return v.table.AliasesOf(name)
}

// FallbackBridge returns a builder option using the named bridge as the
// implicit combinator between adjacent operands.
func (v *Vocabulary[S]) FallbackBridge(name string) (BuilderOption[S, string], error) {
	e, ok := v.table.LookupClass(name, vocab.ClassBridge)
	if !ok {
		return nil, fmt.Errorf("fallback bridge %q: %w", name, ErrUnknownNodeName)
	}
	return WithFallbackBridge(func() (Node[S, string], int) {
		return e.Factory(), e.Priority
	}), nil
}

// NewBuilder returns a Builder dispatching through v.
func (v *Vocabulary[S]) NewBuilder(opts ...BuilderOption[S, string]) *Builder[S, string] {
	return NewBuilder[S, string](v, opts...)
}
