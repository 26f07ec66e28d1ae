/*
Package fsquery provides the predicate-expression engine behind the fsquery
search tool.

# Overview

An expression is a tree of nodes compiled from a token stream such as

	-name '*.go' -and ( -size +1M -or -newer-than 24h ) -print

The engine knows nothing about files. It is generic over the subject type S
being tested and the argument token type P nodes are configured with. The
find package supplies the concrete predicates for filesystem entries.

# Three-Valued Evaluation

Every node offers two evaluations:

	ApplyBlocked(s) (bool, error)      exact, may block
	Apply(s)        (Tribool, error)   cheap, may return Uncertain

Uncertain means "expensive, decide later". Combinators propagate it with
Kleene logic, so an AND whose cheap side is False never needs the expensive
side at all.

# Cost-Based Reordering

After building, call UpdateCost on the root. Each Combinator compares the
expected cost of evaluating left-first against right-first, using the
children's Cost and SuccessRate, and picks the cheaper order. Nodes with side
effects report Communicative() == false, which pins their combinator to
left-to-right order.

# Building

A Builder compiles tokens with an operator-precedence parser. Tokens are
classified by a Dispatcher; Vocabulary is the string-token implementation.

	v := fsquery.NewVocabulary[int]()
	expr, err := v.NewBuilder().Compile(ctx, []string{"-true", "-and", "(", "-false", "-or", "-true", ")"})

Adjacent operands are joined by the fallback bridge (AND by default).
Unknown tokens can be routed to a fallback predicate.

# Running

Walk evaluates exactly and synchronously. Job evaluates cheaply on the calling
goroutine and hands Uncertain subjects to a Pool:

	job := fsquery.NewJob[S, string](expr, it)
	defer job.Close()
	if err := job.Start(ctx, pool, onMatch, 100); err != nil { ... }
	if err := job.Join(); err != nil { ... }
	// later: job.Start(ctx, pool, onMatch, 100) resumes where it left off

# Quitting

A predicate returns ErrQuit to stop the whole traversal. Walk and Job treat
it as a normal end, never as a failure.

# Thread Safety

Builders and compiled expressions are safe for concurrent use once built.
Concrete predicates must synchronize any internal state themselves.
*/
package fsquery
