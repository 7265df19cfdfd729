package promql

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/go-faster/promql/labels"
	"github.com/go-faster/promql/lexer"
	"github.com/go-faster/promql/literal"
	"github.com/go-faster/promql/posrange"
)

func ptrTo[T any](v T) *T { return &v }

// treeOpts compares expression trees ignoring positions. Matchers are
// compared by their visible fields, the compiled regex is derived from
// Value.
var treeOpts = cmp.Options{
	cmpopts.IgnoreTypes(posrange.PositionRange{}, posrange.Pos(0)),
	cmp.Comparer(func(a, b *labels.Matcher) bool {
		if a == nil || b == nil {
			return a == b
		}
		return a.Type == b.Type && a.Name == b.Name && a.Value == b.Value
	}),
}

// vec builds the tree of a bare named selector.
func vec(name string) *VectorSelector {
	return &VectorSelector{
		Name: name,
		LabelMatchers: []*labels.Matcher{
			labels.MustNewMatcher(labels.MatchEqual, labels.MetricName, name),
		},
	}
}

func requireTree(t *testing.T, want, got Expr) {
	t.Helper()
	require.Empty(t, cmp.Diff(want, got, treeOpts))
}

func TestParse(t *testing.T) {
	for i, tt := range []struct {
		input string
		want  Expr
	}{
		// Literals.
		{`1`, &NumberLiteral{Val: 1}},
		{`+Inf`, &NumberLiteral{Val: math.Inf(1)}},
		{`-Inf`, &NumberLiteral{Val: math.Inf(-1)}},
		{`.5`, &NumberLiteral{Val: 0.5}},
		{`5.`, &NumberLiteral{Val: 5}},
		{`123.4567`, &NumberLiteral{Val: 123.4567}},
		{`5e-3`, &NumberLiteral{Val: 0.005}},
		{`0x8f`, &NumberLiteral{Val: 143}},
		{`017`, &NumberLiteral{Val: 15}},
		{`089`, &NumberLiteral{Val: 89}},
		{`-5`, &NumberLiteral{Val: -5}},
		{`"double quoted"`, &StringLiteral{Val: "double quoted"}},
		{`'single\''`, &StringLiteral{Val: "single'"}},
		{"`raw\\n`", &StringLiteral{Val: "raw\\n"}},

		// Scalar arithmetic.
		{`1 + 1`, &BinaryExpr{Op: OpAdd, LHS: &NumberLiteral{Val: 1}, RHS: &NumberLiteral{Val: 1}}},
		{`1 - 2 - 3`, &BinaryExpr{
			Op:  OpSub,
			LHS: &BinaryExpr{Op: OpSub, LHS: &NumberLiteral{Val: 1}, RHS: &NumberLiteral{Val: 2}},
			RHS: &NumberLiteral{Val: 3},
		}},
		{`1 + 2 * 3`, &BinaryExpr{
			Op:  OpAdd,
			LHS: &NumberLiteral{Val: 1},
			RHS: &BinaryExpr{Op: OpMul, LHS: &NumberLiteral{Val: 2}, RHS: &NumberLiteral{Val: 3}},
		}},
		{`2 ^ 3 ^ 2`, &BinaryExpr{
			Op:  OpPow,
			LHS: &NumberLiteral{Val: 2},
			RHS: &BinaryExpr{Op: OpPow, LHS: &NumberLiteral{Val: 3}, RHS: &NumberLiteral{Val: 2}},
		}},
		{`1 atan2 2`, &BinaryExpr{Op: OpAtan2, LHS: &NumberLiteral{Val: 1}, RHS: &NumberLiteral{Val: 2}}},
		{`1 < bool 2`, &BinaryExpr{Op: OpLss, LHS: &NumberLiteral{Val: 1}, RHS: &NumberLiteral{Val: 2}, ReturnBool: true}},
		// The unary sign folds into a number literal but binds looser
		// than power.
		{`-1 * 2`, &BinaryExpr{Op: OpMul, LHS: &NumberLiteral{Val: -1}, RHS: &NumberLiteral{Val: 2}}},
		{`-1 ^ 2`, &UnaryExpr{
			Op:   OpSub,
			Expr: &BinaryExpr{Op: OpPow, LHS: &NumberLiteral{Val: 1}, RHS: &NumberLiteral{Val: 2}},
		}},
		{`1 ^ -2`, &BinaryExpr{Op: OpPow, LHS: &NumberLiteral{Val: 1}, RHS: &NumberLiteral{Val: -2}}},

		// Vector selectors.
		{`foo`, vec("foo")},
		{`min`, vec("min")},
		{`prometheus_tsdb_wal_writes_failed_total`, vec("prometheus_tsdb_wal_writes_failed_total")},
		{`foo offset 5m`, &VectorSelector{
			Name:          "foo",
			Offset:        5 * time.Minute,
			LabelMatchers: vec("foo").LabelMatchers,
		}},
		{`foo offset -7m`, &VectorSelector{
			Name:          "foo",
			Offset:        -7 * time.Minute,
			LabelMatchers: vec("foo").LabelMatchers,
		}},
		{`foo offset +2h`, &VectorSelector{
			Name:          "foo",
			Offset:        2 * time.Hour,
			LabelMatchers: vec("foo").LabelMatchers,
		}},
		{`foo OFFSET 1h30m`, &VectorSelector{
			Name:          "foo",
			Offset:        90 * time.Minute,
			LabelMatchers: vec("foo").LabelMatchers,
		}},
		{`foo @ 1603774568.123`, &VectorSelector{
			Name:          "foo",
			Timestamp:     ptrTo(int64(1603774568123)),
			LabelMatchers: vec("foo").LabelMatchers,
		}},
		{`foo @ -100`, &VectorSelector{
			Name:          "foo",
			Timestamp:     ptrTo(int64(-100000)),
			LabelMatchers: vec("foo").LabelMatchers,
		}},
		{`foo @ start()`, &VectorSelector{
			Name:          "foo",
			StartOrEnd:    AtStart,
			LabelMatchers: vec("foo").LabelMatchers,
		}},
		{`foo @ END()`, &VectorSelector{
			Name:          "foo",
			StartOrEnd:    AtEnd,
			LabelMatchers: vec("foo").LabelMatchers,
		}},
		{`foo @ 100 offset 5m`, &VectorSelector{
			Name:          "foo",
			Timestamp:     ptrTo(int64(100000)),
			Offset:        5 * time.Minute,
			LabelMatchers: vec("foo").LabelMatchers,
		}},
		{`foo offset 5m @ 100`, &VectorSelector{
			Name:          "foo",
			Timestamp:     ptrTo(int64(100000)),
			Offset:        5 * time.Minute,
			LabelMatchers: vec("foo").LabelMatchers,
		}},
		{`foo{a="b", foo!="bar", test=~"test", bar!~"baz"}`, &VectorSelector{
			Name: "foo",
			LabelMatchers: []*labels.Matcher{
				labels.MustNewMatcher(labels.MatchEqual, "a", "b"),
				labels.MustNewMatcher(labels.MatchNotEqual, "foo", "bar"),
				labels.MustNewMatcher(labels.MatchRegexp, "test", "test"),
				labels.MustNewMatcher(labels.MatchNotRegexp, "bar", "baz"),
				labels.MustNewMatcher(labels.MatchEqual, labels.MetricName, "foo"),
			},
		}},
		// Duplicates are kept in written order.
		{`foo{a="b", a="b"}`, &VectorSelector{
			Name: "foo",
			LabelMatchers: []*labels.Matcher{
				labels.MustNewMatcher(labels.MatchEqual, "a", "b"),
				labels.MustNewMatcher(labels.MatchEqual, "a", "b"),
				labels.MustNewMatcher(labels.MatchEqual, labels.MetricName, "foo"),
			},
		}},
		{`{a="b"}`, &VectorSelector{
			LabelMatchers: []*labels.Matcher{
				labels.MustNewMatcher(labels.MatchEqual, "a", "b"),
			},
		}},
		{`test:name{on="call"}`, &VectorSelector{
			Name: "test:name",
			LabelMatchers: []*labels.Matcher{
				labels.MustNewMatcher(labels.MatchEqual, "on", "call"),
				labels.MustNewMatcher(labels.MatchEqual, labels.MetricName, "test:name"),
			},
		}},
		{`foo{NaN='bc'}`, &VectorSelector{
			Name: "foo",
			LabelMatchers: []*labels.Matcher{
				labels.MustNewMatcher(labels.MatchEqual, "NaN", "bc"),
				labels.MustNewMatcher(labels.MatchEqual, labels.MetricName, "foo"),
			},
		}},

		// Vector arithmetic and matching.
		{`foo * bar`, &BinaryExpr{
			Op: OpMul, LHS: vec("foo"), RHS: vec("bar"),
			VectorMatching: &VectorMatching{Card: CardOneToOne},
		}},
		{`foo == 1`, &BinaryExpr{Op: OpEql, LHS: vec("foo"), RHS: &NumberLiteral{Val: 1}}},
		{`foo == bool 1`, &BinaryExpr{Op: OpEql, LHS: vec("foo"), RHS: &NumberLiteral{Val: 1}, ReturnBool: true}},
		{`2.5 / bar`, &BinaryExpr{Op: OpDiv, LHS: &NumberLiteral{Val: 2.5}, RHS: vec("bar")}},
		{`foo and bar`, &BinaryExpr{
			Op: OpAnd, LHS: vec("foo"), RHS: vec("bar"),
			VectorMatching: &VectorMatching{Card: CardManyToMany},
		}},
		{`foo or bar`, &BinaryExpr{
			Op: OpOr, LHS: vec("foo"), RHS: vec("bar"),
			VectorMatching: &VectorMatching{Card: CardManyToMany},
		}},
		{`foo unless bar`, &BinaryExpr{
			Op: OpUnless, LHS: vec("foo"), RHS: vec("bar"),
			VectorMatching: &VectorMatching{Card: CardManyToMany},
		}},
		{`foo + bar or bla and blub`, &BinaryExpr{
			Op: OpOr,
			LHS: &BinaryExpr{
				Op: OpAdd, LHS: vec("foo"), RHS: vec("bar"),
				VectorMatching: &VectorMatching{Card: CardOneToOne},
			},
			RHS: &BinaryExpr{
				Op: OpAnd, LHS: vec("bla"), RHS: vec("blub"),
				VectorMatching: &VectorMatching{Card: CardManyToMany},
			},
			VectorMatching: &VectorMatching{Card: CardManyToMany},
		}},
		{`foo * on(branch) bar`, &BinaryExpr{
			Op: OpMul, LHS: vec("foo"), RHS: vec("bar"),
			VectorMatching: &VectorMatching{
				Card:           CardOneToOne,
				MatchingLabels: []string{"branch"},
				On:             true,
			},
		}},
		{`foo * on(test, blub) group_left bar`, &BinaryExpr{
			Op: OpMul, LHS: vec("foo"), RHS: vec("bar"),
			VectorMatching: &VectorMatching{
				Card:           CardManyToOne,
				MatchingLabels: []string{"test", "blub"},
				On:             true,
			},
		}},
		{`foo / ignoring(test) group_left(blub) bar`, &BinaryExpr{
			Op: OpDiv, LHS: vec("foo"), RHS: vec("bar"),
			VectorMatching: &VectorMatching{
				Card:           CardManyToOne,
				MatchingLabels: []string{"test"},
				Include:        []string{"blub"},
			},
		}},
		{`foo - on(test) group_right(bar, foo) baz`, &BinaryExpr{
			Op: OpSub, LHS: vec("foo"), RHS: vec("baz"),
			VectorMatching: &VectorMatching{
				Card:           CardOneToMany,
				MatchingLabels: []string{"test"},
				On:             true,
				Include:        []string{"bar", "foo"},
			},
		}},
		{`foo and on(a, b) bar`, &BinaryExpr{
			Op: OpAnd, LHS: vec("foo"), RHS: vec("bar"),
			VectorMatching: &VectorMatching{
				Card:           CardManyToMany,
				MatchingLabels: []string{"a", "b"},
				On:             true,
			},
		}},
		{`foo and on() bar`, &BinaryExpr{
			Op: OpAnd, LHS: vec("foo"), RHS: vec("bar"),
			VectorMatching: &VectorMatching{Card: CardManyToMany, On: true},
		}},
		{`foo unless ignoring(c) bar`, &BinaryExpr{
			Op: OpUnless, LHS: vec("foo"), RHS: vec("bar"),
			VectorMatching: &VectorMatching{
				Card:           CardManyToMany,
				MatchingLabels: []string{"c"},
			},
		}},
		// Set operations match by identity, the grouping modifier is
		// dropped.
		{`foo and on(a) group_left(b) bar`, &BinaryExpr{
			Op: OpAnd, LHS: vec("foo"), RHS: vec("bar"),
			VectorMatching: &VectorMatching{
				Card:           CardManyToMany,
				MatchingLabels: []string{"a"},
				On:             true,
			},
		}},
		{`-foo + bar`, &BinaryExpr{
			Op: OpAdd, LHS: &UnaryExpr{Op: OpSub, Expr: vec("foo")}, RHS: vec("bar"),
			VectorMatching: &VectorMatching{Card: CardOneToOne},
		}},

		// Parens and unary.
		{`((foo))`, &ParenExpr{Expr: &ParenExpr{Expr: vec("foo")}}},
		{`-some_metric`, &UnaryExpr{Op: OpSub, Expr: vec("some_metric")}},
		{`+some_metric`, &UnaryExpr{Op: OpAdd, Expr: vec("some_metric")}},
		{`-(1 + 2)`, &UnaryExpr{
			Op: OpSub,
			Expr: &ParenExpr{
				Expr: &BinaryExpr{Op: OpAdd, LHS: &NumberLiteral{Val: 1}, RHS: &NumberLiteral{Val: 2}},
			},
		}},

		// Matrix selectors.
		{`test[5s]`, &MatrixSelector{VectorSelector: vec("test"), Range: 5 * time.Second}},
		{`test[1h30m]`, &MatrixSelector{VectorSelector: vec("test"), Range: 90 * time.Minute}},
		{`test[5m] OFFSET 90s`, &MatrixSelector{
			VectorSelector: &VectorSelector{
				Name:          "test",
				Offset:        90 * time.Second,
				LabelMatchers: vec("test").LabelMatchers,
			},
			Range: 5 * time.Minute,
		}},
		{`test{a="b"}[5y] @ 1603774699`, &MatrixSelector{
			VectorSelector: &VectorSelector{
				Name:      "test",
				Timestamp: ptrTo(int64(1603774699000)),
				LabelMatchers: []*labels.Matcher{
					labels.MustNewMatcher(labels.MatchEqual, "a", "b"),
					labels.MustNewMatcher(labels.MatchEqual, labels.MetricName, "test"),
				},
			},
			Range: 5 * 365 * 24 * time.Hour,
		}},

		// Subqueries.
		{`foo[10m:6s]`, &SubqueryExpr{Expr: vec("foo"), Range: 10 * time.Minute, Step: 6 * time.Second}},
		{`foo[10m:]`, &SubqueryExpr{Expr: vec("foo"), Range: 10 * time.Minute}},
		{`foo[5m:0s]`, &SubqueryExpr{Expr: vec("foo"), Range: 5 * time.Minute}},
		{`foo{bar="baz"}[10m:6s] offset 1m`, &SubqueryExpr{
			Expr: &VectorSelector{
				Name: "foo",
				LabelMatchers: []*labels.Matcher{
					labels.MustNewMatcher(labels.MatchEqual, "bar", "baz"),
					labels.MustNewMatcher(labels.MatchEqual, labels.MetricName, "foo"),
				},
			},
			Range:  10 * time.Minute,
			Step:   6 * time.Second,
			Offset: time.Minute,
		}},
		{`(foo + bar)[5m:] @ end()`, &SubqueryExpr{
			Expr: &ParenExpr{Expr: &BinaryExpr{
				Op: OpAdd, LHS: vec("foo"), RHS: vec("bar"),
				VectorMatching: &VectorMatching{Card: CardOneToOne},
			}},
			Range:      5 * time.Minute,
			StartOrEnd: AtEnd,
		}},
		{`sum(some_metric) [30m:10s]`, &SubqueryExpr{
			Expr:  &AggregateExpr{Op: AggSum, Expr: vec("some_metric")},
			Range: 30 * time.Minute,
			Step:  10 * time.Second,
		}},
		{`min_over_time(rate(http_requests_total[5m])[30m:1m])`, &Call{
			Func: Functions["min_over_time"],
			Args: []Expr{
				&SubqueryExpr{
					Expr: &Call{
						Func: Functions["rate"],
						Args: []Expr{
							&MatrixSelector{
								VectorSelector: vec("http_requests_total"),
								Range:          5 * time.Minute,
							},
						},
					},
					Range: 30 * time.Minute,
					Step:  time.Minute,
				},
			},
		}},

		// Calls.
		{`time()`, &Call{Func: Functions["time"]}},
		{`floor(some_metric{foo!="bar"})`, &Call{
			Func: Functions["floor"],
			Args: []Expr{
				&VectorSelector{
					Name: "some_metric",
					LabelMatchers: []*labels.Matcher{
						labels.MustNewMatcher(labels.MatchNotEqual, "foo", "bar"),
						labels.MustNewMatcher(labels.MatchEqual, labels.MetricName, "some_metric"),
					},
				},
			},
		}},
		{`rate(http_requests_total[5m])`, &Call{
			Func: Functions["rate"],
			Args: []Expr{
				&MatrixSelector{VectorSelector: vec("http_requests_total"), Range: 5 * time.Minute},
			},
		}},
		{`round(some_metric)`, &Call{Func: Functions["round"], Args: []Expr{vec("some_metric")}}},
		{`round(some_metric, 5)`, &Call{
			Func: Functions["round"],
			Args: []Expr{vec("some_metric"), &NumberLiteral{Val: 5}},
		}},
		{`hour()`, &Call{Func: Functions["hour"]}},
		{`label_join(up, "dst", "-", "src1", "src2")`, &Call{
			Func: Functions["label_join"],
			Args: []Expr{
				vec("up"),
				&StringLiteral{Val: "dst"},
				&StringLiteral{Val: "-"},
				&StringLiteral{Val: "src1"},
				&StringLiteral{Val: "src2"},
			},
		}},
		{`vector(1)`, &Call{Func: Functions["vector"], Args: []Expr{&NumberLiteral{Val: 1}}}},

		// Aggregations.
		{`sum by (foo) (some_metric)`, &AggregateExpr{
			Op: AggSum, Expr: vec("some_metric"), Grouping: []string{"foo"},
		}},
		{`avg by (foo)(some_metric)`, &AggregateExpr{
			Op: AggAvg, Expr: vec("some_metric"), Grouping: []string{"foo"},
		}},
		{`max without (test) (some_metric)`, &AggregateExpr{
			Op: AggMax, Expr: vec("some_metric"), Grouping: []string{"test"}, Without: true,
		}},
		{`sum (some_metric) by (test)`, &AggregateExpr{
			Op: AggSum, Expr: vec("some_metric"), Grouping: []string{"test"},
		}},
		{`stddev(some_metric)`, &AggregateExpr{Op: AggStddev, Expr: vec("some_metric")}},
		{`sum by ()(some_metric)`, &AggregateExpr{Op: AggSum, Expr: vec("some_metric")}},
		{`sum by (foo, bar,)(some_metric)`, &AggregateExpr{
			Op: AggSum, Expr: vec("some_metric"), Grouping: []string{"foo", "bar"},
		}},
		{`topk(5, some_metric)`, &AggregateExpr{
			Op: AggTopK, Expr: vec("some_metric"), Param: &NumberLiteral{Val: 5},
		}},
		{`topk by (bar) (2, some_metric)`, &AggregateExpr{
			Op: AggTopK, Expr: vec("some_metric"), Param: &NumberLiteral{Val: 2},
			Grouping: []string{"bar"},
		}},
		{`count_values("value", some_metric)`, &AggregateExpr{
			Op: AggCountValues, Expr: vec("some_metric"), Param: &StringLiteral{Val: "value"},
		}},
		{`quantile(0.9, some_metric)`, &AggregateExpr{
			Op: AggQuantile, Expr: vec("some_metric"), Param: &NumberLiteral{Val: 0.9},
		}},
		// Keywords and operator words are ordinary label names in
		// grouping position.
		{`sum without (and, by, avg, count, alert, annotations) (some_metric)`, &AggregateExpr{
			Op: AggSum, Expr: vec("some_metric"), Without: true,
			Grouping: []string{"and", "by", "avg", "count", "alert", "annotations"},
		}},
		{`sum by (host) (rate(http_requests_total[5m]))`, &AggregateExpr{
			Op: AggSum,
			Expr: &Call{
				Func: Functions["rate"],
				Args: []Expr{
					&MatrixSelector{VectorSelector: vec("http_requests_total"), Range: 5 * time.Minute},
				},
			},
			Grouping: []string{"host"},
		}},
	} {
		tt := tt
		t.Run(fmt.Sprintf("Test%d", i+1), func(t *testing.T) {
			defer func() {
				if t.Failed() {
					t.Logf("Input: %#q", tt.input)
				}
			}()
			got, err := Parse(tt.input)
			require.NoError(t, err)
			requireTree(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for i, tt := range []struct {
		input string
		err   string
	}{
		{``, `1:1: parse error: no expression found in input`},
		{`# only a comment`, `1:17: parse error: no expression found in input`},
		{`foo bar`, `1:5: parse error: unexpected identifier "bar"`},
		{"foo\n  and\n  bar\nbaz", `4:1: parse error: unexpected identifier "baz"`},
		{`(foo,bar)`, `1:5: parse error: unexpected ",", expected ")"`},

		// Function calls.
		{`rate(foo)`, `1:6: parse error: expected type range vector in call to function "rate", got instant vector`},
		{`rate(foo[5m], bar)`, `1:1: parse error: expected 1 argument(s) in call to "rate", got 2`},
		{`topk(foo)`, `1:1: parse error: expected 2 argument(s) in call to "topk", got 1`},
		{`label_join(up)`, `1:1: parse error: expected at least 3 argument(s) in call to "label_join", got 1`},
		{`unknown_func(foo)`, `1:1: parse error: unknown function with name "unknown_func"`},
		{`rate(foo[5m],)`, `1:13: parse error: trailing commas not allowed in function call args`},
		{`sum(foo,)`, `1:8: parse error: trailing commas not allowed in function call args`},

		// Binary expressions.
		{`1 == 1`, `1:3: parse error: comparisons between scalars must use BOOL modifier`},
		{`1 + "x"`, `1:5: parse error: binary expression must contain only scalar and instant vector types, got string on right-hand side`},
		{`"x" - foo`, `1:1: parse error: binary expression must contain only scalar and instant vector types, got string on left-hand side`},
		{`foo and 1`, `1:1: parse error: set operator "and" not allowed in binary scalar expression`},
		{`1 or foo`, `1:1: parse error: set operator "or" not allowed in binary scalar expression`},
		{`foo + bool bar`, `1:7: parse error: bool modifier can only be used on comparison operators`},
		{`foo * on(a) ignoring(b) bar`, `1:13: parse error: on and ignoring clauses must not be combined`},
		{`foo * group_left(a) bar`, `1:7: parse error: unexpected <group_left> in binary expression, expected on or ignoring clause before grouping`},
		{`foo / on(a) group_left(a) bar`, `1:5: parse error: label "a" must not occur in ON and GROUP clause at once`},
		{`1 + on(a) 2`, `1:1: parse error: vector matching only allowed between instant vectors`},

		// Unary expressions.
		{`-"foo"`, `1:1: parse error: unary expression only allowed on expressions of type scalar or instant vector, got "string"`},
		{`-foo[5m]`, `1:1: parse error: unary expression only allowed on expressions of type scalar or instant vector, got "range vector"`},

		// Selectors.
		{`{}`, `1:1: parse error: vector selector must contain label matchers or metric name`},
		{`{x=~".*"}`, `1:1: parse error: vector selector must contain at least one non-empty matcher`},
		{`foo{__name__="bar"}`, `1:1: parse error: metric name must not be set twice: "foo" or "bar"`},
		{`foo{a="b"`, `1:10: parse error: unexpected end of input inside braces`},
		{`foo{a=b}`, `1:7: parse error: unexpected identifier "b" in label matching, expected string`},

		// Ranges, offsets and @.
		{`foo[]`, `1:5: parse error: missing unit character in duration`},
		{`foo[0m]`, `1:5: parse error: duration must be greater than 0: "0m"`},
		{`foo[2m:1m] offset 0s`, `1:19: parse error: duration must be greater than 0: "0s"`},
		{`foo offset 1s5h`, `1:12: parse error: not a valid duration string: "1s5h"`},
		{`rate(foo[5m])[5m]`, `1:14: parse error: ranges only allowed for vector selectors`},
		{`foo offset 5m[2m]`, `1:14: parse error: no offset modifiers allowed before range`},
		{`foo @ 50[2m]`, `1:9: parse error: no @ modifiers allowed before range`},
		{`foo[5m][2m:]`, `1:1: parse error: subquery is only allowed on instant vector, got matrix in "foo[5m][2m:]" instead`},
		{`1 offset 1m`, `1:1: parse error: offset modifier must be preceded by an instant vector selector or range vector selector or a subquery`},
		{`foo offset 5m offset 10s`, `1:1: parse error: offset may not be set multiple times`},
		{`foo @ 100 @ 200`, `1:1: parse error: @ <timestamp> may not be set multiple times`},
		{`(foo) @ 100`, `1:1: parse error: @ modifier must be preceded by an instant vector selector or range vector selector or a subquery`},
		{`foo @ 1e19`, `1:7: parse error: timestamp out of bounds for @ modifier: 10000000000000000000.000000`},
		{`foo @ banana`, `1:7: parse error: unexpected identifier "banana" in @ modifier, expected timestamp or start() or end()`},
		{`foo @ start`, `1:12: parse error: unexpected end of input, expected "("`},
		{`some_metric[5m] @ 1m`, `1:19: parse error: unexpected duration "1m" in @ modifier, expected timestamp or start() or end()`},
		{`foo offset`, `1:11: parse error: unexpected end of input in offset, expected duration`},
		{`foo unless`, `1:11: parse error: unexpected end of input`},

		// Aggregations.
		{`sum by (1) (foo)`, `1:9: parse error: unexpected number "1" in grouping opts, expected label`},
		{`sum by ("foo")(bar)`, `1:9: parse error: unexpected string "\"foo\"" in grouping opts, expected label`},
		{`sum by (x) foo`, `1:12: parse error: unexpected identifier "foo" in aggregation, expected "("`},
		{`sum(1)`, `1:5: parse error: expected type instant vector in aggregation expression, got scalar`},
		{`topk(foo, bar)`, `1:6: parse error: expected type scalar in aggregation parameter, got instant vector`},
		{`count_values(1, foo)`, `1:14: parse error: expected type string in aggregation parameter, got scalar`},
	} {
		tt := tt
		t.Run(fmt.Sprintf("Test%d", i+1), func(t *testing.T) {
			defer func() {
				if t.Failed() {
					t.Logf("Input: %#q", tt.input)
				}
			}()
			_, err := Parse(tt.input)
			require.Error(t, err)
			require.EqualError(t, err, tt.err)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			require.Equal(t, tt.input, perr.Query)
		})
	}
}

func TestParseErrorKinds(t *testing.T) {
	// The wrapped error tells the kinds of failure apart.
	{
		_, err := Parse(`rate(foo)`)
		var terr *TypeError
		require.ErrorAs(t, err, &terr)

		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		require.Equal(t, posrange.PositionRange{Start: 5, End: 8}, perr.Pos)
	}
	{
		_, err := Parse(`foo bar`)
		var serr *SyntaxError
		require.ErrorAs(t, err, &serr)
	}
	{
		_, err := Parse(`topk(foo)`)
		var aerr *ArityError
		require.ErrorAs(t, err, &aerr)
		require.Equal(t, "topk", aerr.FuncName)
		require.Equal(t, 2, aerr.Expected)
		require.Equal(t, 1, aerr.Actual)
		require.False(t, aerr.AtLeast)
	}
	{
		_, err := Parse(`foo * on(a) ignoring(b) bar`)
		var merr *MatchingClauseError
		require.ErrorAs(t, err, &merr)
	}
	{
		_, err := Parse(`foo{`)
		var lerr *lexer.Error
		require.ErrorAs(t, err, &lerr)
	}
	{
		_, err := Parse(`foo[0m]`)
		var ferr *literal.FormatError
		require.ErrorAs(t, err, &ferr)
		require.Equal(t, "0m", ferr.Raw)
	}
}

func TestParsePositions(t *testing.T) {
	parse := func(input string) Expr {
		t.Helper()
		e, err := Parse(input)
		require.NoError(t, err)
		return e
	}

	e := parse(`rate(foo[5m])`)
	require.Equal(t, posrange.PositionRange{Start: 0, End: 13}, e.PositionRange())
	ms := e.(*Call).Args[0].(*MatrixSelector)
	require.Equal(t, posrange.PositionRange{Start: 5, End: 12}, ms.PositionRange())
	require.Equal(t, posrange.PositionRange{Start: 5, End: 8}, ms.VectorSelector.PositionRange())

	// The folded sign extends the literal.
	require.Equal(t, posrange.PositionRange{Start: 0, End: 2}, parse(`-1`).PositionRange())

	// Modifiers extend their selector.
	require.Equal(t, posrange.PositionRange{Start: 0, End: 13}, parse(`foo offset 5m`).PositionRange())
	require.Equal(t, posrange.PositionRange{Start: 0, End: 9}, parse(`foo @ 100`).PositionRange())

	// The grouping clause counts toward the aggregation regardless of
	// where it is written.
	require.Equal(t, posrange.PositionRange{Start: 0, End: 16}, parse(`sum by (x) (foo)`).PositionRange())
	require.Equal(t, posrange.PositionRange{Start: 0, End: 16}, parse(`sum (foo) by (x)`).PositionRange())

	require.Equal(t, posrange.PositionRange{Start: 0, End: 5}, parse(`a + b`).PositionRange())
	require.Equal(t, posrange.PositionRange{Start: 0, End: 4}, parse(`-foo`).PositionRange())
	require.Equal(t, posrange.PositionRange{Start: 0, End: 5}, parse(`(foo)`).PositionRange())
	require.Equal(t, posrange.PositionRange{Start: 0, End: 10}, parse(`foo[5m:1m]`).PositionRange())
}

func TestParseMetricSelector(t *testing.T) {
	ms, err := ParseMetricSelector(`up{job="api", instance=~"host.*"}`)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff([]*labels.Matcher{
		labels.MustNewMatcher(labels.MatchEqual, "job", "api"),
		labels.MustNewMatcher(labels.MatchRegexp, "instance", "host.*"),
		labels.MustNewMatcher(labels.MatchEqual, labels.MetricName, "up"),
	}, ms, treeOpts))

	for _, input := range []string{
		`up offset 5m`,
		`up @ 100`,
		`up @ start()`,
		`rate(up[5m])`,
		`up + up`,
		`{`,
	} {
		_, err := ParseMetricSelector(input)
		require.Error(t, err, input)
	}

	_, err = ParseMetricSelector(`up offset 5m`)
	require.EqualError(t, err, `"up offset 5m" is not a valid metric selector`)
}

func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"",
		"foo",
		`up{job="api"}`,
		"rate(http_requests_total[5m])",
		"sum by (host) (rate(foo[5m]))",
		"foo * on(branch) bar",
		"foo / ignoring(a) group_left(b) bar",
		"min_over_time(rate(foo[5m])[30m:1m])",
		"1 + 2 * 3 ^ -4",
		"foo @ start() offset -5m",
		"topk(5, foo)",
		"rate(foo[5m",
		`{a=~".*"}`,
		"foo[5m:] @ 1609746000",
		"-some_metric",
		`count_values("value", build_info)`,
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		e, err := Parse(s)
		if err != nil {
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			require.NotEmpty(t, err.Error())
			return
		}
		// The canonical form parses back into the same canonical form.
		out := e.String()
		e2, err := Parse(out)
		require.NoError(t, err, "reparse %#q", out)
		require.Equal(t, out, e2.String())
	})
}
