package promql

import (
	"fmt"

	"github.com/go-faster/promql/lexer"
)

// BinOp is a binary operator.
type BinOp int

// Binary operators.
const (
	OpAdd BinOp = iota // +
	OpSub              // -
	OpMul              // *
	OpDiv              // /
	OpMod              // %
	OpPow              // ^
	OpAtan2            // atan2

	OpEql // ==
	OpNeq // !=
	OpLte // <=
	OpLss // <
	OpGte // >=
	OpGtr // >

	OpAnd    // and
	OpOr     // or
	OpUnless // unless
)

// String implements fmt.Stringer.
func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpPow:
		return "^"
	case OpAtan2:
		return "atan2"
	case OpEql:
		return "=="
	case OpNeq:
		return "!="
	case OpLte:
		return "<="
	case OpLss:
		return "<"
	case OpGte:
		return ">="
	case OpGtr:
		return ">"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpUnless:
		return "unless"
	}
	return fmt.Sprintf("BinOp(%d)", int(op))
}

// Precedence returns the binding strength of the operator, higher binds
// tighter.
func (op BinOp) Precedence() int {
	switch op {
	case OpOr:
		return 1
	case OpAnd, OpUnless:
		return 2
	case OpEql, OpNeq, OpLte, OpLss, OpGte, OpGtr:
		return 3
	case OpAdd, OpSub:
		return 4
	case OpMul, OpDiv, OpMod, OpAtan2:
		return 5
	case OpPow:
		return 6
	}
	return 0
}

// IsComparisonOperator reports whether op compares its operands.
func (op BinOp) IsComparisonOperator() bool {
	switch op {
	case OpEql, OpNeq, OpLte, OpLss, OpGte, OpGtr:
		return true
	}
	return false
}

// IsSetOperator reports whether op combines vectors by series identity
// rather than by value. Set operations always match many-to-many.
func (op BinOp) IsSetOperator() bool {
	switch op {
	case OpAnd, OpOr, OpUnless:
		return true
	}
	return false
}

// isRightAssociative reports whether chains of op group to the right.
func (op BinOp) isRightAssociative() bool {
	return op == OpPow
}

var tokenBinOps = map[lexer.TokenType]BinOp{
	lexer.Add:    OpAdd,
	lexer.Sub:    OpSub,
	lexer.Mul:    OpMul,
	lexer.Div:    OpDiv,
	lexer.Mod:    OpMod,
	lexer.Pow:    OpPow,
	lexer.Atan2:  OpAtan2,
	lexer.Eql:    OpEql,
	lexer.Neq:    OpNeq,
	lexer.Lte:    OpLte,
	lexer.Lss:    OpLss,
	lexer.Gte:    OpGte,
	lexer.Gtr:    OpGtr,
	lexer.And:    OpAnd,
	lexer.Or:     OpOr,
	lexer.Unless: OpUnless,
}

// binOpFromToken maps a token to the binary operator it begins, if any.
func binOpFromToken(t lexer.TokenType) (BinOp, bool) {
	op, ok := tokenBinOps[t]
	return op, ok
}

// AggOp is an aggregation operator.
type AggOp int

// Aggregation operators.
const (
	AggSum AggOp = iota
	AggAvg
	AggCount
	AggMin
	AggMax
	AggGroup
	AggStddev
	AggStdvar
	AggTopK
	AggBottomK
	AggCountValues
	AggQuantile
)

// String implements fmt.Stringer.
func (op AggOp) String() string {
	switch op {
	case AggSum:
		return "sum"
	case AggAvg:
		return "avg"
	case AggCount:
		return "count"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggGroup:
		return "group"
	case AggStddev:
		return "stddev"
	case AggStdvar:
		return "stdvar"
	case AggTopK:
		return "topk"
	case AggBottomK:
		return "bottomk"
	case AggCountValues:
		return "count_values"
	case AggQuantile:
		return "quantile"
	}
	return fmt.Sprintf("AggOp(%d)", int(op))
}

// hasParam reports whether the operator takes a leading parameter
// argument.
func (op AggOp) hasParam() bool {
	switch op {
	case AggTopK, AggBottomK, AggCountValues, AggQuantile:
		return true
	}
	return false
}

// paramType returns the required type of the parameter argument.
func (op AggOp) paramType() ValueType {
	if op == AggCountValues {
		return ValueTypeString
	}
	return ValueTypeScalar
}

var tokenAggOps = map[lexer.TokenType]AggOp{
	lexer.Sum:         AggSum,
	lexer.Avg:         AggAvg,
	lexer.Count:       AggCount,
	lexer.Min:         AggMin,
	lexer.Max:         AggMax,
	lexer.Group:       AggGroup,
	lexer.Stddev:      AggStddev,
	lexer.Stdvar:      AggStdvar,
	lexer.TopK:        AggTopK,
	lexer.BottomK:     AggBottomK,
	lexer.CountValues: AggCountValues,
	lexer.Quantile:    AggQuantile,
}
