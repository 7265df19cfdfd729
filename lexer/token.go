package lexer

import (
	"fmt"

	"github.com/go-faster/promql/posrange"
)

// TokenType defines the type of a token.
type TokenType int

// Token types.
const (
	EOF TokenType = iota
	Ident
	// MetricIdent is an identifier containing colons, legal only as a
	// metric name.
	MetricIdent
	Number
	String
	Duration

	operatorsStart
	Add      // +
	Sub      // -
	Mul      // *
	Div      // /
	Mod      // %
	Pow      // ^
	Eql      // ==
	Neq      // !=
	Lte      // <=
	Lss      // <
	Gte      // >=
	Gtr      // >
	EqlRegex // =~
	NeqRegex // !~
	Assign   // =
	And
	Or
	Unless
	Atan2
	operatorsEnd

	aggregatorsStart
	Sum
	Avg
	Count
	Min
	Max
	Group
	Stddev
	Stdvar
	TopK
	BottomK
	CountValues
	Quantile
	aggregatorsEnd

	keywordsStart
	Bool
	By
	Without
	On
	Ignoring
	GroupLeft
	GroupRight
	Offset
	keywordsEnd

	LeftParen    // (
	RightParen   // )
	LeftBrace    // {
	RightBrace   // }
	LeftBracket  // [
	RightBracket // ]
	Comma        // ,
	Colon        // :
	At           // @
)

// IsOperator reports whether the token type is an operator, including
// the word-form set and comparison operators.
func (t TokenType) IsOperator() bool { return t > operatorsStart && t < operatorsEnd }

// IsAggregator reports whether the token type is an aggregation operator.
func (t TokenType) IsAggregator() bool { return t > aggregatorsStart && t < aggregatorsEnd }

// IsKeyword reports whether the token type is a non-operator keyword.
func (t TokenType) IsKeyword() bool { return t > keywordsStart && t < keywordsEnd }

// Keywords and word-form operators, looked up lowercased.
var key = map[string]TokenType{
	"and":    And,
	"or":     Or,
	"unless": Unless,
	"atan2":  Atan2,

	"sum":          Sum,
	"avg":          Avg,
	"count":        Count,
	"min":          Min,
	"max":          Max,
	"group":        Group,
	"stddev":       Stddev,
	"stdvar":       Stdvar,
	"topk":         TopK,
	"bottomk":      BottomK,
	"count_values": CountValues,
	"quantile":     Quantile,

	"bool":        Bool,
	"by":          By,
	"without":     Without,
	"on":          On,
	"ignoring":    Ignoring,
	"group_left":  GroupLeft,
	"group_right": GroupRight,
	"offset":      Offset,
}

var typeStr = map[TokenType]string{
	Add:      "+",
	Sub:      "-",
	Mul:      "*",
	Div:      "/",
	Mod:      "%",
	Pow:      "^",
	Eql:      "==",
	Neq:      "!=",
	Lte:      "<=",
	Lss:      "<",
	Gte:      ">=",
	Gtr:      ">",
	EqlRegex: "=~",
	NeqRegex: "!~",
	Assign:   "=",

	LeftParen:    "(",
	RightParen:   ")",
	LeftBrace:    "{",
	RightBrace:   "}",
	LeftBracket:  "[",
	RightBracket: "]",
	Comma:        ",",
	Colon:        ":",
	At:           "@",
}

func init() {
	for s, t := range key {
		typeStr[t] = s
	}
}

// String returns the text form of symbol and keyword token types and a
// class description for the rest.
func (t TokenType) String() string {
	if s, ok := typeStr[t]; ok {
		return s
	}
	switch t {
	case EOF:
		return "end of input"
	case Ident:
		return "identifier"
	case MetricIdent:
		return "metric identifier"
	case Number:
		return "number"
	case String:
		return "string"
	case Duration:
		return "duration"
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a single lexical token of a query.
type Token struct {
	Type TokenType
	// Text is the raw input covered by the token.
	Text string
	Pos  posrange.PositionRange
}

// String returns a descriptive form of the token for error messages.
func (t Token) String() string {
	switch {
	case t.Type == EOF:
		return "end of input"
	case t.Type == Ident:
		return fmt.Sprintf("identifier %q", t.Text)
	case t.Type == MetricIdent:
		return fmt.Sprintf("metric identifier %q", t.Text)
	case t.Type == Number:
		return fmt.Sprintf("number %q", t.Text)
	case t.Type == String:
		return fmt.Sprintf("string %q", t.Text)
	case t.Type == Duration:
		return fmt.Sprintf("duration %q", t.Text)
	case t.Type.IsKeyword() || t.Type.IsAggregator():
		return fmt.Sprintf("<%s>", t.Text)
	case t.Type.IsOperator():
		return fmt.Sprintf("<op:%s>", t.Text)
	}
	return fmt.Sprintf("%q", t.Text)
}
