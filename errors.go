package promql

import (
	"fmt"

	"github.com/go-faster/errors"

	"github.com/go-faster/promql/posrange"
)

// ParseError is a query parsing error. It wraps the underlying cause
// and locates it in the query text.
type ParseError struct {
	Pos   posrange.PositionRange
	Err   error
	Query string
}

// position renders the start of Pos as a "line:column" pair, both
// 1-based. Positions outside the query render as "invalid position".
func (e *ParseError) position() string {
	pos := int(e.Pos.Start)
	if pos < 0 || pos > len(e.Query) {
		return "invalid position"
	}
	line, lastLineBreak := 1, -1
	for i, c := range e.Query[:pos] {
		if c == '\n' {
			lastLineBreak = i
			line++
		}
	}
	return fmt.Sprintf("%d:%d", line, pos-lastLineBreak)
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse error: %s", e.position(), e.Err)
}

// Unwrap implements [errors.Unwrap] interface.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// FormatError implements [errors.Formatter].
func (e *ParseError) FormatError(p errors.Printer) error {
	p.Printf("%s: parse error", e.position())
	return e.Err
}

// SyntaxError reports a token sequence not derivable under the grammar.
type SyntaxError struct {
	Msg string
}

// Error implements error.
func (e *SyntaxError) Error() string { return e.Msg }

// TypeError reports an operand or argument of the wrong value type.
type TypeError struct {
	Msg string
}

// Error implements error.
func (e *TypeError) Error() string { return e.Msg }

// MatchingClauseError reports conflicting or misplaced vector matching
// modifiers.
type MatchingClauseError struct {
	Msg string
}

// Error implements error.
func (e *MatchingClauseError) Error() string { return e.Msg }

// ArityError reports a call or aggregation with the wrong number of
// arguments.
type ArityError struct {
	FuncName string
	Expected int
	Actual   int
	// AtLeast is set when Expected is a lower bound, as in variadic
	// calls.
	AtLeast bool
}

// Error implements error.
func (e *ArityError) Error() string {
	if e.AtLeast {
		return fmt.Sprintf("expected at least %d argument(s) in call to %q, got %d", e.Expected, e.FuncName, e.Actual)
	}
	return fmt.Sprintf("expected %d argument(s) in call to %q, got %d", e.Expected, e.FuncName, e.Actual)
}
