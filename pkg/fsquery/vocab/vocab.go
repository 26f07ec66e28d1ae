// Package vocab provides the thread-safe command table behind expression
// vocabularies: names, aliases, command classes and bridge priorities.
package vocab

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Class is the syntactic role of a command.
type Class int

const (
	// ClassPredicate commands produce operands.
	ClassPredicate Class = iota
	// ClassModifier commands are unary prefixes.
	ClassModifier
	// ClassBridge commands join two operands.
	ClassBridge
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassPredicate:
		return "predicate"
	case ClassModifier:
		return "modifier"
	case ClassBridge:
		return "bridge"
	default:
		return "unknown"
	}
}

// Sentinel errors for table registration.
var (
	// ErrDuplicate indicates a name or alias is already registered.
	ErrDuplicate = errors.New("command already registered")

	// ErrNotFound indicates an alias target does not exist.
	ErrNotFound = errors.New("command not found")
)

// Entry describes one command.
type Entry[F any] struct {
	// Name is the canonical command token, e.g. "-name".
	Name string
	// Class is the command's syntactic role.
	Class Class
	// Priority orders bridges; higher binds tighter. Unused otherwise.
	Priority int
	// Action marks predicates with side effects (print, exec).
	Action bool
	// Factory creates a fresh node for each occurrence.
	Factory F
}

// Table maps command tokens to entries.
// It uses sync.RWMutex since lookups vastly outnumber registrations.
type Table[F any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[F]
	aliases map[string]string
}

// New creates an empty table.
func New[F any]() *Table[F] {
	return &Table[F]{
		entries: make(map[string]Entry[F]),
		aliases: make(map[string]string),
	}
}

// Register adds an entry. Names are unique across entries and aliases.
func (t *Table[F]) Register(e Entry[F]) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.taken(e.Name) {
		return fmt.Errorf("%w: %s", ErrDuplicate, e.Name)
	}
	t.entries[e.Name] = e
	return nil
}

// Alias makes alias resolve to the entry registered as name.
func (t *Table[F]) Alias(alias, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if t.taken(alias) {
		return fmt.Errorf("%w: %s", ErrDuplicate, alias)
	}
	t.aliases[alias] = name
	return nil
}

// taken must be called with mu held.
func (t *Table[F]) taken(token string) bool {
	if _, ok := t.entries[token]; ok {
		return true
	}
	_, ok := t.aliases[token]
	return ok
}

// Lookup resolves a token through aliases.
func (t *Table[F]) Lookup(token string) (Entry[F], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if name, ok := t.aliases[token]; ok {
		token = name
	}
	e, ok := t.entries[token]
	return e, ok
}

// LookupClass resolves a token and reports whether it has class c.
func (t *Table[F]) LookupClass(token string, c Class) (Entry[F], bool) {
	e, ok := t.Lookup(token)
	if !ok || e.Class != c {
		var zero Entry[F]
		return zero, false
	}
	return e, true
}

// AliasesOf returns the sorted aliases of name.
func (t *Table[F]) AliasesOf(name string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for alias, target := range t.aliases {
		if target == name {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

// Entries returns a snapshot of all entries ordered by class, then name.
func (t *Table[F]) Entries() []Entry[F] {
	t.mu.RLock()
	out := make([]Entry[F], 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, k int) bool {
		if out[i].Class != out[k].Class {
			return out[i].Class < out[k].Class
		}
		return out[i].Name < out[k].Name
	})
	return out
}

// Len returns the number of entries, not counting aliases.
func (t *Table[F]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
