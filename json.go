package promql

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/go-faster/promql/labels"
)

// MarshalExpr encodes the expression tree as JSON.
func MarshalExpr(expr Expr) []byte {
	e := &jx.Encoder{}
	EncodeExpr(e, expr)
	return e.Bytes()
}

// EncodeExpr encodes the expression tree to e. Every node is an object
// with a "type" discriminant, durations are integer milliseconds.
func EncodeExpr(e *jx.Encoder, expr Expr) {
	switch n := expr.(type) {
	case *NumberLiteral:
		e.Obj(func(e *jx.Encoder) {
			e.Field("type", func(e *jx.Encoder) { e.Str("numberLiteral") })
			e.Field("val", func(e *jx.Encoder) { e.Float64(n.Val) })
		})
	case *StringLiteral:
		e.Obj(func(e *jx.Encoder) {
			e.Field("type", func(e *jx.Encoder) { e.Str("stringLiteral") })
			e.Field("val", func(e *jx.Encoder) { e.Str(n.Val) })
		})
	case *VectorSelector:
		e.Obj(func(e *jx.Encoder) {
			e.Field("type", func(e *jx.Encoder) { e.Str("vectorSelector") })
			e.Field("name", func(e *jx.Encoder) { e.Str(n.Name) })
			e.Field("matchers", func(e *jx.Encoder) { encodeMatchers(e, n.LabelMatchers) })
			e.Field("offset", func(e *jx.Encoder) { encodeDuration(e, n.Offset) })
			e.Field("timestamp", func(e *jx.Encoder) { encodeTimestamp(e, n.Timestamp) })
			e.Field("startOrEnd", func(e *jx.Encoder) { encodeAnchor(e, n.StartOrEnd) })
		})
	case *MatrixSelector:
		e.Obj(func(e *jx.Encoder) {
			e.Field("type", func(e *jx.Encoder) { e.Str("matrixSelector") })
			e.Field("vectorSelector", func(e *jx.Encoder) { EncodeExpr(e, n.VectorSelector) })
			e.Field("range", func(e *jx.Encoder) { encodeDuration(e, n.Range) })
		})
	case *SubqueryExpr:
		e.Obj(func(e *jx.Encoder) {
			e.Field("type", func(e *jx.Encoder) { e.Str("subquery") })
			e.Field("expr", func(e *jx.Encoder) { EncodeExpr(e, n.Expr) })
			e.Field("range", func(e *jx.Encoder) { encodeDuration(e, n.Range) })
			e.Field("step", func(e *jx.Encoder) { encodeDuration(e, n.Step) })
			e.Field("offset", func(e *jx.Encoder) { encodeDuration(e, n.Offset) })
			e.Field("timestamp", func(e *jx.Encoder) { encodeTimestamp(e, n.Timestamp) })
			e.Field("startOrEnd", func(e *jx.Encoder) { encodeAnchor(e, n.StartOrEnd) })
		})
	case *Call:
		e.Obj(func(e *jx.Encoder) {
			e.Field("type", func(e *jx.Encoder) { e.Str("call") })
			e.Field("func", func(e *jx.Encoder) { encodeFunction(e, n.Func) })
			e.Field("args", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, arg := range n.Args {
						EncodeExpr(e, arg)
					}
				})
			})
		})
	case *ParenExpr:
		e.Obj(func(e *jx.Encoder) {
			e.Field("type", func(e *jx.Encoder) { e.Str("parenExpr") })
			e.Field("expr", func(e *jx.Encoder) { EncodeExpr(e, n.Expr) })
		})
	case *UnaryExpr:
		e.Obj(func(e *jx.Encoder) {
			e.Field("type", func(e *jx.Encoder) { e.Str("unaryExpr") })
			e.Field("op", func(e *jx.Encoder) { e.Str(n.Op.String()) })
			e.Field("expr", func(e *jx.Encoder) { EncodeExpr(e, n.Expr) })
		})
	case *BinaryExpr:
		e.Obj(func(e *jx.Encoder) {
			e.Field("type", func(e *jx.Encoder) { e.Str("binaryExpr") })
			e.Field("op", func(e *jx.Encoder) { e.Str(n.Op.String()) })
			e.Field("lhs", func(e *jx.Encoder) { EncodeExpr(e, n.LHS) })
			e.Field("rhs", func(e *jx.Encoder) { EncodeExpr(e, n.RHS) })
			e.Field("matching", func(e *jx.Encoder) { encodeMatching(e, n.VectorMatching) })
			e.Field("bool", func(e *jx.Encoder) { e.Bool(n.ReturnBool) })
		})
	case *AggregateExpr:
		e.Obj(func(e *jx.Encoder) {
			e.Field("type", func(e *jx.Encoder) { e.Str("aggregation") })
			e.Field("op", func(e *jx.Encoder) { e.Str(n.Op.String()) })
			e.Field("expr", func(e *jx.Encoder) { EncodeExpr(e, n.Expr) })
			e.Field("param", func(e *jx.Encoder) {
				if n.Param == nil {
					e.Null()
					return
				}
				EncodeExpr(e, n.Param)
			})
			e.Field("grouping", func(e *jx.Encoder) { encodeStrings(e, n.Grouping) })
			e.Field("without", func(e *jx.Encoder) { e.Bool(n.Without) })
		})
	default:
		panic(errors.Errorf("unhandled node type %T", expr))
	}
}

func encodeDuration(e *jx.Encoder, d time.Duration) {
	e.Int64(int64(d / time.Millisecond))
}

func encodeTimestamp(e *jx.Encoder, ts *int64) {
	if ts == nil {
		e.Null()
		return
	}
	e.Int64(*ts)
}

func encodeAnchor(e *jx.Encoder, a Anchor) {
	if a == NoAnchor {
		e.Null()
		return
	}
	e.Str(a.String())
}

func encodeStrings(e *jx.Encoder, ss []string) {
	e.Arr(func(e *jx.Encoder) {
		for _, s := range ss {
			e.Str(s)
		}
	})
}

func encodeMatchers(e *jx.Encoder, ms []*labels.Matcher) {
	e.Arr(func(e *jx.Encoder) {
		for _, m := range ms {
			e.Obj(func(e *jx.Encoder) {
				e.Field("type", func(e *jx.Encoder) { e.Str(m.Type.String()) })
				e.Field("name", func(e *jx.Encoder) { e.Str(m.Name) })
				e.Field("value", func(e *jx.Encoder) { e.Str(m.Value) })
			})
		}
	})
}

func encodeFunction(e *jx.Encoder, fn *Function) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("name", func(e *jx.Encoder) { e.Str(fn.Name) })
		e.Field("argTypes", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, t := range fn.ArgTypes {
					e.Str(string(t))
				}
			})
		})
		e.Field("returnType", func(e *jx.Encoder) { e.Str(string(fn.ReturnType)) })
		variadic := 0
		if fn.Variadic {
			variadic = 1
		}
		e.Field("variadic", func(e *jx.Encoder) { e.Int(variadic) })
	})
}

func encodeMatching(e *jx.Encoder, vm *VectorMatching) {
	if vm == nil {
		e.Null()
		return
	}
	e.Obj(func(e *jx.Encoder) {
		e.Field("card", func(e *jx.Encoder) { e.Str(vm.Card.String()) })
		e.Field("labels", func(e *jx.Encoder) { encodeStrings(e, vm.MatchingLabels) })
		e.Field("on", func(e *jx.Encoder) { e.Bool(vm.On) })
		e.Field("include", func(e *jx.Encoder) { encodeStrings(e, vm.Include) })
	})
}
