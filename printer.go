package promql

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/promql/labels"
	"github.com/go-faster/promql/literal"
)

func (e *NumberLiteral) String() string { return fmt.Sprint(e.Val) }

func (e *StringLiteral) String() string { return fmt.Sprintf("%q", e.Val) }

func (e *ParenExpr) String() string { return fmt.Sprintf("(%s)", e.Expr) }

func (e *UnaryExpr) String() string { return fmt.Sprintf("%s%s", e.Op, e.Expr) }

// atOffsetString renders the modifier suffix shared by selectors and
// subqueries, @ before offset.
func atOffsetString(ts *int64, anchor Anchor, offset time.Duration) string {
	var b strings.Builder
	switch {
	case ts != nil:
		fmt.Fprintf(&b, " @ %.3f", float64(*ts)/1000)
	case anchor == AtStart:
		b.WriteString(" @ start()")
	case anchor == AtEnd:
		b.WriteString(" @ end()")
	}
	switch {
	case offset > 0:
		fmt.Fprintf(&b, " offset %s", literal.FormatDuration(offset))
	case offset < 0:
		fmt.Fprintf(&b, " offset -%s", literal.FormatDuration(-offset))
	}
	return b.String()
}

func (e *VectorSelector) String() string {
	var matchers []string
	for _, m := range e.LabelMatchers {
		// The matcher added for the metric name is implied by the name
		// itself.
		if m.Name == labels.MetricName && m.Type == labels.MatchEqual && m.Value == e.Name {
			continue
		}
		matchers = append(matchers, m.String())
	}
	tail := atOffsetString(e.Timestamp, e.StartOrEnd, e.Offset)
	if len(matchers) == 0 {
		return e.Name + tail
	}
	sort.Strings(matchers)
	return fmt.Sprintf("%s{%s}%s", e.Name, strings.Join(matchers, ","), tail)
}

func (e *MatrixSelector) String() string {
	// Modifiers apply to the whole selector and print after the range.
	vs := *e.VectorSelector.(*VectorSelector)
	tail := atOffsetString(vs.Timestamp, vs.StartOrEnd, vs.Offset)
	vs.Offset, vs.Timestamp, vs.StartOrEnd = 0, nil, NoAnchor
	return fmt.Sprintf("%s[%s]%s", vs.String(), literal.FormatDuration(e.Range), tail)
}

func (e *SubqueryExpr) String() string {
	step := ""
	if e.Step != 0 {
		step = literal.FormatDuration(e.Step)
	}
	tail := atOffsetString(e.Timestamp, e.StartOrEnd, e.Offset)
	return fmt.Sprintf("%s[%s:%s]%s", e.Expr, literal.FormatDuration(e.Range), step, tail)
}

func (e *Call) String() string {
	args := make([]string, len(e.Args))
	for i, arg := range e.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", e.Func.Name, strings.Join(args, ", "))
}

func (e *AggregateExpr) String() string {
	var b strings.Builder
	b.WriteString(e.Op.String())
	switch {
	case e.Without:
		fmt.Fprintf(&b, " without (%s) ", strings.Join(e.Grouping, ", "))
	case len(e.Grouping) > 0:
		fmt.Fprintf(&b, " by (%s) ", strings.Join(e.Grouping, ", "))
	}
	b.WriteByte('(')
	if e.Param != nil {
		b.WriteString(e.Param.String())
		b.WriteString(", ")
	}
	b.WriteString(e.Expr.String())
	b.WriteByte(')')
	return b.String()
}

func (e *BinaryExpr) String() string {
	returnBool := ""
	if e.ReturnBool {
		returnBool = " bool"
	}
	return fmt.Sprintf("%s %s%s%s %s", e.LHS, e.Op, returnBool, e.matchingString(), e.RHS)
}

// matchingString renders the vector matching clause. Default one-to-one
// matching on the full label set prints as nothing, an empty include
// list still prints its parens so that a parenthesized right hand side
// is not read as the include list.
func (e *BinaryExpr) matchingString() string {
	vm := e.VectorMatching
	if vm == nil || (len(vm.MatchingLabels) == 0 && !vm.On) {
		return ""
	}
	var b strings.Builder
	clause := "ignoring"
	if vm.On {
		clause = "on"
	}
	fmt.Fprintf(&b, " %s (%s)", clause, strings.Join(vm.MatchingLabels, ", "))
	switch vm.Card {
	case CardManyToOne:
		fmt.Fprintf(&b, " group_left (%s)", strings.Join(vm.Include, ", "))
	case CardOneToMany:
		fmt.Fprintf(&b, " group_right (%s)", strings.Join(vm.Include, ", "))
	}
	return b.String()
}
