package promql

import (
	"time"

	"github.com/go-faster/promql/labels"
	"github.com/go-faster/promql/posrange"
)

// Node is a node of the query syntax tree.
type Node interface {
	// String returns the canonical representation of the node.
	//
	// The representation parses back into an equivalent tree, but
	// not necessarily the original byte sequence.
	String() string

	// PositionRange returns the span of the node in the query.
	PositionRange() posrange.PositionRange
}

// Expr is a typed expression node. All expression types implement it.
type Expr interface {
	Node

	// Type returns the value type the expression evaluates to.
	Type() ValueType

	expr()
}

// Anchor selects the preset timestamp of an @ modifier.
type Anchor int

const (
	// NoAnchor means the @ modifier is absent or carries a literal timestamp.
	NoAnchor Anchor = iota
	// AtStart anchors evaluation at the start of the query range.
	AtStart
	// AtEnd anchors evaluation at the end of the query range.
	AtEnd
)

// String returns "start" or "end", or an empty string for NoAnchor.
func (a Anchor) String() string {
	switch a {
	case AtStart:
		return "start"
	case AtEnd:
		return "end"
	}
	return ""
}

// VectorMatchCardinality describes how series of two vector operands
// relate to each other.
type VectorMatchCardinality int

const (
	// CardOneToOne matches each series on one side with at most one
	// series on the other.
	CardOneToOne VectorMatchCardinality = iota
	// CardManyToOne allows multiple left-hand series per right-hand series.
	CardManyToOne
	// CardOneToMany allows multiple right-hand series per left-hand series.
	CardOneToMany
	// CardManyToMany is used by set operators, which match without
	// cardinality constraints.
	CardManyToMany
)

// String returns the cardinality in "one-to-one" notation.
func (c VectorMatchCardinality) String() string {
	switch c {
	case CardOneToOne:
		return "one-to-one"
	case CardManyToOne:
		return "many-to-one"
	case CardOneToMany:
		return "one-to-many"
	case CardManyToMany:
		return "many-to-many"
	}
	return "unknown"
}

// VectorMatching describes how series of two vector operands are paired
// by a binary operation.
type VectorMatching struct {
	// Card is the cardinality of the pairing.
	Card VectorMatchCardinality
	// MatchingLabels are the labels series are matched on. Their
	// interpretation depends on On.
	MatchingLabels []string
	// On inverts the meaning of MatchingLabels: if set, series match on
	// exactly these labels, otherwise on all labels except these.
	On bool
	// Include are labels copied from the "one" side to the result on
	// many-to-one and one-to-many matches.
	Include []string
}

// NumberLiteral is a floating point number literal.
type NumberLiteral struct {
	Val float64

	PosRange posrange.PositionRange
}

// StringLiteral is a string literal.
type StringLiteral struct {
	Val string

	PosRange posrange.PositionRange
}

// VectorSelector selects an instant vector of series.
type VectorSelector struct {
	// Name is the metric name, or empty for a nameless selector. A
	// non-empty name is also present in LabelMatchers as an equality
	// matcher on labels.MetricName.
	Name string
	// LabelMatchers constrain the selected series. At least one of them
	// matches a non-empty value.
	LabelMatchers []*labels.Matcher

	// Offset shifts the evaluation time into the past, or into the
	// future if negative.
	Offset time.Duration
	// Timestamp fixes the evaluation time in milliseconds since epoch.
	Timestamp *int64
	// StartOrEnd anchors the evaluation time at the query range start
	// or end instead of a literal timestamp.
	StartOrEnd Anchor

	PosRange posrange.PositionRange
}

// MatrixSelector selects a range vector: a window of samples per series.
type MatrixSelector struct {
	// VectorSelector is the underlying selector. It is always a
	// *VectorSelector; the field is an Expr so tree walks descend
	// into it.
	VectorSelector Expr
	// Range is the width of the selected window.
	Range time.Duration

	EndPos posrange.Pos
}

// SubqueryExpr evaluates an instant vector expression over a range at
// a resolution step, producing a range vector.
type SubqueryExpr struct {
	Expr  Expr
	Range time.Duration
	// Step is the resolution step. Zero means the default resolution
	// of the engine.
	Step time.Duration

	Offset     time.Duration
	Timestamp  *int64
	StartOrEnd Anchor

	EndPos posrange.Pos
}

// Call is a function call.
type Call struct {
	Func *Function
	Args []Expr

	PosRange posrange.PositionRange
}

// ParenExpr wraps an expression in parentheses. It is retained so the
// tree prints back with the parentheses in place.
type ParenExpr struct {
	Expr Expr

	PosRange posrange.PositionRange
}

// UnaryExpr is a unary sign applied to a scalar or instant vector.
type UnaryExpr struct {
	Op   BinOp
	Expr Expr

	StartPos posrange.Pos
}

// BinaryExpr is a binary operation between two expressions.
type BinaryExpr struct {
	Op       BinOp
	LHS, RHS Expr

	// VectorMatching is set when both operands are instant vectors,
	// and nil otherwise.
	VectorMatching *VectorMatching
	// ReturnBool turns a comparison into a 0/1 valued filter-free
	// operation.
	ReturnBool bool
}

// AggregateExpr aggregates an instant vector over label dimensions.
type AggregateExpr struct {
	Op AggOp
	// Expr is the vector to aggregate.
	Expr Expr
	// Param is the operator parameter for topk, bottomk, quantile and
	// count_values, and nil for the rest.
	Param Expr
	// Grouping lists the label names of the by or without clause.
	Grouping []string
	// Without inverts Grouping: aggregate over all labels except the
	// listed ones.
	Without bool

	PosRange posrange.PositionRange
}

func (*NumberLiteral) expr()  {}
func (*StringLiteral) expr()  {}
func (*VectorSelector) expr() {}
func (*MatrixSelector) expr() {}
func (*SubqueryExpr) expr()   {}
func (*Call) expr()           {}
func (*ParenExpr) expr()      {}
func (*UnaryExpr) expr()      {}
func (*BinaryExpr) expr()     {}
func (*AggregateExpr) expr()  {}

// Type implements Expr.
func (*NumberLiteral) Type() ValueType { return ValueTypeScalar }

// Type implements Expr.
func (*StringLiteral) Type() ValueType { return ValueTypeString }

// Type implements Expr.
func (*VectorSelector) Type() ValueType { return ValueTypeVector }

// Type implements Expr.
func (*MatrixSelector) Type() ValueType { return ValueTypeMatrix }

// Type implements Expr.
func (*SubqueryExpr) Type() ValueType { return ValueTypeMatrix }

// Type implements Expr.
func (e *Call) Type() ValueType { return e.Func.ReturnType }

// Type implements Expr.
func (e *ParenExpr) Type() ValueType { return e.Expr.Type() }

// Type implements Expr.
func (e *UnaryExpr) Type() ValueType { return e.Expr.Type() }

// Type implements Expr. A binary operation evaluates to a scalar if
// both operands are scalars, and to an instant vector otherwise.
func (e *BinaryExpr) Type() ValueType {
	if e.LHS.Type() == ValueTypeScalar && e.RHS.Type() == ValueTypeScalar {
		return ValueTypeScalar
	}
	return ValueTypeVector
}

// Type implements Expr.
func (*AggregateExpr) Type() ValueType { return ValueTypeVector }

// PositionRange implements Node.
func (e *NumberLiteral) PositionRange() posrange.PositionRange { return e.PosRange }

// PositionRange implements Node.
func (e *StringLiteral) PositionRange() posrange.PositionRange { return e.PosRange }

// PositionRange implements Node.
func (e *VectorSelector) PositionRange() posrange.PositionRange { return e.PosRange }

// PositionRange implements Node.
func (e *MatrixSelector) PositionRange() posrange.PositionRange {
	return posrange.PositionRange{
		Start: e.VectorSelector.PositionRange().Start,
		End:   e.EndPos,
	}
}

// PositionRange implements Node.
func (e *SubqueryExpr) PositionRange() posrange.PositionRange {
	return posrange.PositionRange{
		Start: e.Expr.PositionRange().Start,
		End:   e.EndPos,
	}
}

// PositionRange implements Node.
func (e *Call) PositionRange() posrange.PositionRange { return e.PosRange }

// PositionRange implements Node.
func (e *ParenExpr) PositionRange() posrange.PositionRange { return e.PosRange }

// PositionRange implements Node.
func (e *UnaryExpr) PositionRange() posrange.PositionRange {
	return posrange.PositionRange{
		Start: e.StartPos,
		End:   e.Expr.PositionRange().End,
	}
}

// PositionRange implements Node.
func (e *BinaryExpr) PositionRange() posrange.PositionRange {
	return mergeRanges(e.LHS, e.RHS)
}

// PositionRange implements Node.
func (e *AggregateExpr) PositionRange() posrange.PositionRange { return e.PosRange }

// mergeRanges returns the span from the start of first to the end of last.
func mergeRanges(first, last Node) posrange.PositionRange {
	return posrange.PositionRange{
		Start: first.PositionRange().Start,
		End:   last.PositionRange().End,
	}
}
