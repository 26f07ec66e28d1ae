package fsquery

import (
	"errors"
	"fmt"
)

// Sentinel errors for expression building.
var (
	// ErrUnknownNodeName indicates a token matched no dispatcher and was
	// rejected by the fallback predicate.
	ErrUnknownNodeName = errors.New("unknown node name")

	// ErrMissingBridge indicates two operands are adjacent and no fallback
	// bridge is configured.
	ErrMissingBridge = errors.New("missing bridge between operands")

	// ErrMissingPredicate indicates a bridge or modifier has no operand to
	// apply to.
	ErrMissingPredicate = errors.New("missing predicate")

	// ErrParenthesesMismatch indicates unbalanced parentheses.
	ErrParenthesesMismatch = errors.New("parentheses mismatch")

	// ErrEmptyParentheses indicates a group with nothing inside.
	ErrEmptyParentheses = errors.New("empty parentheses")
)

// Sentinel errors for node configuration and evaluation.
var (
	// ErrNotANumber indicates a numeric argument could not be parsed.
	ErrNotANumber = errors.New("not a number")

	// ErrInvalidParamName indicates an argument is not one the node accepts.
	ErrInvalidParamName = errors.New("invalid parameter")

	// ErrAlreadyInitializedNode indicates a second configuration attempt on
	// a predicate that was already configured.
	ErrAlreadyInitializedNode = errors.New("node already initialized")

	// ErrUninitializedNode indicates evaluation before configuration completed.
	ErrUninitializedNode = errors.New("node not initialized")

	// ErrNoChildren indicates SetPrev was called on a leaf.
	ErrNoChildren = errors.New("node does not take children")
)

// ErrQuit is returned by predicates that want the whole traversal to stop.
// It is a control signal, not a failure: Walk and Job stop iterating and
// report success when they see it.
var ErrQuit = errors.New("quit requested")

// IsQuit reports whether err carries the quit signal.
func IsQuit(err error) bool {
	return errors.Is(err, ErrQuit)
}

// ParseError wraps a build-time error with the offending token.
type ParseError struct {
	// Pos is the zero-based token index; len(tokens) for end of input.
	Pos int
	// Token is the token text, empty at end of input.
	Token string
	// Err is one of the build sentinels.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("parse at end of expression: %v", e.Err)
	}
	return fmt.Sprintf("parse at token %d %q: %v", e.Pos, e.Token, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParamError wraps a configuration error with the node and argument.
type ParamError struct {
	// Node is the command name of the node being configured.
	Node string
	// Param is the rejected argument.
	Param string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParamError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Node, e.Param, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ParamError) Unwrap() error {
	return e.Err
}

// EvalError wraps an evaluation failure with the node that raised it.
type EvalError struct {
	// Node is the command name of the failing node.
	Node string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluate %s: %v", e.Node, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *EvalError) Unwrap() error {
	return e.Err
}
