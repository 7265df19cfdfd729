// Package promql implements parsing of PromQL queries into a typed
// expression tree.
package promql

import (
	"github.com/go-faster/errors"

	"github.com/go-faster/promql/labels"
	"github.com/go-faster/promql/lexer"
	"github.com/go-faster/promql/posrange"
)

// Parse parses a PromQL query.
func Parse(input string) (Expr, error) {
	tokens, err := lexer.Tokenize(input)
	if err != nil {
		pos := posrange.PositionRange{Start: 0, End: posrange.Pos(len(input))}
		var lexErr *lexer.Error
		if errors.As(err, &lexErr) {
			pos = lexErr.PositionRange()
		}
		return nil, &ParseError{Pos: pos, Err: err, Query: input}
	}

	p := &parser{input: input, tokens: tokens}
	if t := p.peek(); t.Type == lexer.EOF {
		return nil, p.errSyntax(t.Pos, "no expression found in input")
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.Type != lexer.EOF {
		return nil, p.unexpected(t, "", "")
	}
	return e, nil
}

// ParseMetricSelector parses a vector selector and returns its label
// matchers, including the matcher for the metric name.
func ParseMetricSelector(input string) ([]*labels.Matcher, error) {
	e, err := Parse(input)
	if err != nil {
		return nil, err
	}
	vs, ok := e.(*VectorSelector)
	if !ok || vs.Offset != 0 || vs.Timestamp != nil || vs.StartOrEnd != NoAnchor {
		return nil, errors.Errorf("%q is not a valid metric selector", input)
	}
	return vs.LabelMatchers, nil
}
