package promql

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-faster/promql/labels"
	"github.com/go-faster/promql/lexer"
	"github.com/go-faster/promql/literal"
	"github.com/go-faster/promql/posrange"
)

func (p *parser) parseExpr() (Expr, error) {
	lhs, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	return p.parseBinaryExpr(lhs, 1)
}

// parseBinaryExpr climbs operator precedence starting from lhs,
// consuming operators that bind at least as tightly as minPrec. Equal
// precedence associates to the left, except for the power operator.
func (p *parser) parseBinaryExpr(lhs Expr, minPrec int) (Expr, error) {
	for {
		opTok := p.peek()
		op, ok := binOpFromToken(opTok.Type)
		if !ok || op.Precedence() < minPrec {
			return lhs, nil
		}
		p.next()

		returnBool, vm, err := p.parseBinModifiers(op)
		if err != nil {
			return nil, err
		}

		rhs, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		for {
			peekOp, ok := binOpFromToken(p.peek().Type)
			if !ok {
				break
			}
			if peekOp.Precedence() > op.Precedence() {
				rhs, err = p.parseBinaryExpr(rhs, op.Precedence()+1)
			} else if peekOp.Precedence() == op.Precedence() && peekOp.isRightAssociative() {
				rhs, err = p.parseBinaryExpr(rhs, op.Precedence())
			} else {
				break
			}
			if err != nil {
				return nil, err
			}
		}

		lhs, err = p.newBinaryExpr(op, opTok, lhs, rhs, returnBool, vm)
		if err != nil {
			return nil, err
		}
	}
}

// parseBinModifiers parses the modifiers following a binary operator
// token: an optional bool flag, then an optional matching clause with
// an optional grouping clause.
func (p *parser) parseBinModifiers(op BinOp) (returnBool bool, vm *VectorMatching, err error) {
	if t := p.peek(); t.Type == lexer.Bool {
		p.next()
		if !op.IsComparisonOperator() {
			return false, nil, p.errSyntax(t.Pos, "bool modifier can only be used on comparison operators")
		}
		returnBool = true
	}

	switch t := p.peek(); t.Type {
	case lexer.On, lexer.Ignoring:
		p.next()
		vm = &VectorMatching{Card: CardOneToOne, On: t.Type == lexer.On}
		vm.MatchingLabels, _, err = p.parseGrouping()
		if err != nil {
			return false, nil, err
		}

		if t := p.peek(); t.Type == lexer.GroupLeft || t.Type == lexer.GroupRight {
			p.next()
			if t.Type == lexer.GroupLeft {
				vm.Card = CardManyToOne
			} else {
				vm.Card = CardOneToMany
			}
			if p.peek().Type == lexer.LeftParen {
				vm.Include, _, err = p.parseGrouping()
				if err != nil {
					return false, nil, err
				}
			}
		}

		if t := p.peek(); t.Type == lexer.On || t.Type == lexer.Ignoring {
			return false, nil, p.errMatching(t.Pos, "on and ignoring clauses must not be combined")
		}
	case lexer.GroupLeft, lexer.GroupRight:
		p.next()
		return false, nil, p.unexpected(t, "binary expression", "on or ignoring clause before grouping")
	}
	return returnBool, vm, nil
}

// newBinaryExpr validates operand types and resolves vector matching
// for a parsed binary operation.
func (p *parser) newBinaryExpr(op BinOp, opTok lexer.Token, lhs, rhs Expr, returnBool bool, vm *VectorMatching) (Expr, error) {
	lt, rt := lhs.Type(), rhs.Type()

	if lt != ValueTypeScalar && lt != ValueTypeVector {
		return nil, p.errType(lhs.PositionRange(), "binary expression must contain only scalar and instant vector types, got %s on left-hand side", DocumentedType(lt))
	}
	if rt != ValueTypeScalar && rt != ValueTypeVector {
		return nil, p.errType(rhs.PositionRange(), "binary expression must contain only scalar and instant vector types, got %s on right-hand side", DocumentedType(rt))
	}

	if op.IsComparisonOperator() && !returnBool && lt == ValueTypeScalar && rt == ValueTypeScalar {
		return nil, p.errType(opTok.Pos, "comparisons between scalars must use BOOL modifier")
	}
	if op.IsSetOperator() && (lt == ValueTypeScalar || rt == ValueTypeScalar) {
		return nil, p.errType(mergeRanges(lhs, rhs), "set operator %q not allowed in binary scalar expression", op)
	}

	if lt == ValueTypeVector && rt == ValueTypeVector {
		if vm == nil {
			vm = &VectorMatching{Card: CardOneToOne}
		}
	} else if vm != nil {
		if len(vm.MatchingLabels) > 0 {
			return nil, p.errType(mergeRanges(lhs, rhs), "vector matching only allowed between instant vectors")
		}
		vm = nil
	}

	if vm != nil {
		if op.IsSetOperator() {
			// Set operations pair series by identity, an explicit
			// cardinality modifier has nothing to refine.
			vm.Card = CardManyToMany
			vm.Include = nil
		}
		if vm.On {
			for _, l1 := range vm.MatchingLabels {
				for _, l2 := range vm.Include {
					if l1 == l2 {
						return nil, p.errMatching(opTok.Pos, "label %q must not occur in ON and GROUP clause at once", l1)
					}
				}
			}
		}
	}

	return &BinaryExpr{
		Op:             op,
		LHS:            lhs,
		RHS:            rhs,
		VectorMatching: vm,
		ReturnBool:     returnBool,
	}, nil
}

// parseUnaryExpr parses an optional unary sign. The sign binds tighter
// than any binary operator except power, and a sign in front of a
// number literal is folded into the literal itself.
func (p *parser) parseUnaryExpr() (Expr, error) {
	t := p.peek()
	if t.Type != lexer.Add && t.Type != lexer.Sub {
		return p.parsePostfixExpr()
	}
	p.next()

	operand, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	operand, err = p.parseBinaryExpr(operand, OpPow.Precedence())
	if err != nil {
		return nil, err
	}

	if nl, ok := operand.(*NumberLiteral); ok {
		if t.Type == lexer.Sub {
			nl.Val = -nl.Val
		}
		nl.PosRange.Start = t.Pos.Start
		return nl, nil
	}

	if ty := operand.Type(); ty != ValueTypeScalar && ty != ValueTypeVector {
		span := posrange.PositionRange{Start: t.Pos.Start, End: operand.PositionRange().End}
		return nil, p.errType(span, "unary expression only allowed on expressions of type scalar or instant vector, got %q", DocumentedType(ty))
	}

	op := OpAdd
	if t.Type == lexer.Sub {
		op = OpSub
	}
	return &UnaryExpr{Op: op, Expr: operand, StartPos: t.Pos.Start}, nil
}

// parsePostfixExpr parses a primary expression followed by any number
// of range, offset and @ modifiers.
func (p *parser) parsePostfixExpr() (Expr, error) {
	e, err := p.parsePrimaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		switch t := p.peek(); t.Type {
		case lexer.LeftBracket:
			p.next()
			e, err = p.parseRangeOrSubquery(e, t)
		case lexer.Offset:
			p.next()
			e, err = p.parseOffset(e)
		case lexer.At:
			p.next()
			e, err = p.parseAt(e)
		default:
			return e, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// parseRangeOrSubquery parses the bracketed tail of e: either a range
// selector window or a subquery range with an optional step.
func (p *parser) parseRangeOrSubquery(e Expr, lbrack lexer.Token) (Expr, error) {
	rangeTok, err := p.consume(lexer.Duration)
	if err != nil {
		return nil, err
	}
	rng, err := p.parseDurationValue(rangeTok)
	if err != nil {
		return nil, err
	}
	if rng == 0 {
		return nil, p.zeroDurationErr(rangeTok)
	}

	if p.peek().Type == lexer.Colon {
		p.next()
		var step time.Duration
		if p.peek().Type == lexer.Duration {
			stepTok := p.next()
			step, err = p.parseDurationValue(stepTok)
			if err != nil {
				return nil, err
			}
		}
		rbrack, err := p.consume(lexer.RightBracket)
		if err != nil {
			return nil, err
		}
		sq := &SubqueryExpr{
			Expr:   e,
			Range:  rng,
			Step:   step,
			EndPos: rbrack.Pos.End,
		}
		if ty := e.Type(); ty != ValueTypeVector {
			return nil, p.errType(sq.PositionRange(), "subquery is only allowed on instant vector, got %s in %q instead", ty, sq)
		}
		return sq, nil
	}

	rbrack, err := p.consume(lexer.RightBracket)
	if err != nil {
		return nil, err
	}
	errSpan := posrange.PositionRange{Start: lbrack.Pos.Start, End: rbrack.Pos.End}
	vs, ok := e.(*VectorSelector)
	if !ok {
		return nil, p.errType(errSpan, "ranges only allowed for vector selectors")
	}
	if vs.Offset != 0 {
		return nil, p.errSyntax(errSpan, "no offset modifiers allowed before range")
	}
	if vs.Timestamp != nil || vs.StartOrEnd != NoAnchor {
		return nil, p.errSyntax(errSpan, "no @ modifiers allowed before range")
	}
	return &MatrixSelector{VectorSelector: vs, Range: rng, EndPos: rbrack.Pos.End}, nil
}

// parseOffset parses the duration after an offset keyword and attaches
// it to e. A leading minus shifts the evaluation time into the future.
func (p *parser) parseOffset(e Expr) (Expr, error) {
	neg := false
	t := p.next()
	switch t.Type {
	case lexer.Sub:
		neg = true
		t = p.next()
	case lexer.Add:
		t = p.next()
	}
	if t.Type != lexer.Duration {
		return nil, p.unexpected(t, "offset", "duration")
	}
	d, err := p.parseDurationValue(t)
	if err != nil {
		return nil, err
	}
	if d == 0 {
		return nil, p.zeroDurationErr(t)
	}
	if neg {
		d = -d
	}
	return e, p.setOffset(e, d, t.Pos.End)
}

func (p *parser) setOffset(e Expr, offset time.Duration, end posrange.Pos) error {
	var (
		offsetp *time.Duration
		endPosp *posrange.Pos
	)
	switch s := e.(type) {
	case *VectorSelector:
		offsetp = &s.Offset
		endPosp = &s.PosRange.End
	case *MatrixSelector:
		vs := s.VectorSelector.(*VectorSelector)
		offsetp = &vs.Offset
		endPosp = &s.EndPos
	case *SubqueryExpr:
		offsetp = &s.Offset
		endPosp = &s.EndPos
	default:
		return p.errSyntax(e.PositionRange(), "offset modifier must be preceded by an instant vector selector or range vector selector or a subquery")
	}
	if *offsetp != 0 {
		return p.errSyntax(e.PositionRange(), "offset may not be set multiple times")
	}
	*offsetp = offset
	*endPosp = end
	return nil
}

// parseAt parses the argument of an @ modifier: a literal timestamp in
// seconds or a start()/end() anchor.
func (p *parser) parseAt(e Expr) (Expr, error) {
	t := p.next()
	if t.Type == lexer.Ident {
		var anchor Anchor
		switch strings.ToLower(t.Text) {
		case "start":
			anchor = AtStart
		case "end":
			anchor = AtEnd
		default:
			return nil, p.unexpected(t, "@ modifier", "timestamp or start() or end()")
		}
		if _, err := p.consume(lexer.LeftParen); err != nil {
			return nil, err
		}
		rparen, err := p.consume(lexer.RightParen)
		if err != nil {
			return nil, err
		}
		return e, p.setTimestamp(e, nil, anchor, rparen.Pos.End)
	}

	sign := 1.0
	switch t.Type {
	case lexer.Add:
		t = p.next()
	case lexer.Sub:
		sign = -1
		t = p.next()
	}
	if t.Type != lexer.Number {
		return nil, p.unexpected(t, "@ modifier", "timestamp or start() or end()")
	}
	v, err := literal.ParseNumber(t.Text)
	if err != nil {
		return nil, p.error(t.Pos, err)
	}
	v *= sign
	// The timestamp is stored in milliseconds, reject seconds that do
	// not fit after conversion.
	if math.IsInf(v, 0) || math.IsNaN(v) ||
		v >= float64(math.MaxInt64)/1000 || v <= float64(math.MinInt64)/1000 {
		return nil, p.errSyntax(t.Pos, "timestamp out of bounds for @ modifier: %f", v)
	}
	ts := int64(math.Round(v * 1000))
	return e, p.setTimestamp(e, &ts, NoAnchor, t.Pos.End)
}

func (p *parser) setTimestamp(e Expr, ts *int64, anchor Anchor, end posrange.Pos) error {
	var (
		tsp     **int64
		anchorp *Anchor
		endPosp *posrange.Pos
	)
	switch s := e.(type) {
	case *VectorSelector:
		tsp, anchorp, endPosp = &s.Timestamp, &s.StartOrEnd, &s.PosRange.End
	case *MatrixSelector:
		vs := s.VectorSelector.(*VectorSelector)
		tsp, anchorp, endPosp = &vs.Timestamp, &vs.StartOrEnd, &s.EndPos
	case *SubqueryExpr:
		tsp, anchorp, endPosp = &s.Timestamp, &s.StartOrEnd, &s.EndPos
	default:
		return p.errSyntax(e.PositionRange(), "@ modifier must be preceded by an instant vector selector or range vector selector or a subquery")
	}
	if *tsp != nil || *anchorp != NoAnchor {
		return p.errSyntax(e.PositionRange(), "@ <timestamp> may not be set multiple times")
	}
	*tsp = ts
	*anchorp = anchor
	*endPosp = end
	return nil
}

func (p *parser) parsePrimaryExpr() (Expr, error) {
	switch t := p.next(); {
	case t.Type == lexer.Number:
		v, err := literal.ParseNumber(t.Text)
		if err != nil {
			return nil, p.error(t.Pos, err)
		}
		return &NumberLiteral{Val: v, PosRange: t.Pos}, nil

	case t.Type == lexer.String:
		s, err := literal.Unquote(t.Text)
		if err != nil {
			return nil, p.error(t.Pos, err)
		}
		return &StringLiteral{Val: s, PosRange: t.Pos}, nil

	case t.Type == lexer.LeftParen:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		rparen, err := p.consume(lexer.RightParen)
		if err != nil {
			return nil, err
		}
		return &ParenExpr{
			Expr:     e,
			PosRange: posrange.PositionRange{Start: t.Pos.Start, End: rparen.Pos.End},
		}, nil

	case t.Type == lexer.Ident:
		if p.peek().Type == lexer.LeftParen {
			return p.parseCall(t)
		}
		p.unread()
		return p.parseVectorSelector()

	case t.Type == lexer.MetricIdent:
		p.unread()
		return p.parseVectorSelector()

	case t.Type == lexer.LeftBrace:
		p.unread()
		return p.parseVectorSelector()

	case t.Type.IsAggregator():
		// Aggregation operators double as metric names when no
		// aggregation body follows, so that e.g. a metric named topk
		// stays selectable.
		if nt := p.peek().Type; nt != lexer.LeftParen && nt != lexer.By && nt != lexer.Without {
			p.unread()
			return p.parseVectorSelector()
		}
		return p.parseAggregateExpr(t)

	default:
		return nil, p.unexpected(t, "", "")
	}
}

func (p *parser) parseVectorSelector() (Expr, error) {
	var (
		name string
		span posrange.PositionRange
	)
	if t := p.peek(); t.Type == lexer.Ident || t.Type == lexer.MetricIdent || t.Type.IsAggregator() {
		p.next()
		name = t.Text
		span = t.Pos
	}

	var matchers []*labels.Matcher
	if p.peek().Type == lexer.LeftBrace {
		lbrace := p.next()
		if name == "" {
			span = lbrace.Pos
		}
		ms, rbrace, err := p.parseLabelMatchers()
		if err != nil {
			return nil, err
		}
		matchers = ms
		span.End = rbrace.Pos.End
	}

	if name == "" && len(matchers) == 0 {
		return nil, p.errSyntax(span, "vector selector must contain label matchers or metric name")
	}

	if name != "" {
		for _, m := range matchers {
			if m.Name == labels.MetricName {
				return nil, p.errSyntax(span, "metric name must not be set twice: %q or %q", name, m.Value)
			}
		}
		m, err := labels.NewMatcher(labels.MatchEqual, labels.MetricName, name)
		if err != nil {
			return nil, p.error(span, err)
		}
		matchers = append(matchers, m)
	}

	// A selector of only empty matchers would implicitly select every
	// series.
	notEmpty := false
	for _, lm := range matchers {
		if !lm.Matches("") {
			notEmpty = true
			break
		}
	}
	if !notEmpty {
		return nil, p.errSyntax(span, "vector selector must contain at least one non-empty matcher")
	}

	return &VectorSelector{Name: name, LabelMatchers: matchers, PosRange: span}, nil
}

// parseLabelMatchers parses the matcher list after an opening brace,
// through the closing brace. A trailing comma is allowed.
func (p *parser) parseLabelMatchers() ([]*labels.Matcher, lexer.Token, error) {
	var matchers []*labels.Matcher
	for {
		if p.peek().Type == lexer.RightBrace {
			return matchers, p.next(), nil
		}
		m, err := p.parseLabelMatcher()
		if err != nil {
			return nil, lexer.Token{}, err
		}
		matchers = append(matchers, m)

		switch t := p.next(); t.Type {
		case lexer.Comma:
		case lexer.RightBrace:
			return matchers, t, nil
		default:
			return nil, lexer.Token{}, p.unexpected(t, "label matching", `"," or "}"`)
		}
	}
}

func (p *parser) parseLabelMatcher() (*labels.Matcher, error) {
	name := p.next()
	if name.Type != lexer.Ident {
		return nil, p.unexpected(name, "label matching", "label name")
	}

	var mt labels.MatchType
	switch op := p.next(); op.Type {
	case lexer.Assign:
		mt = labels.MatchEqual
	case lexer.Neq:
		mt = labels.MatchNotEqual
	case lexer.EqlRegex:
		mt = labels.MatchRegexp
	case lexer.NeqRegex:
		mt = labels.MatchNotRegexp
	default:
		return nil, p.unexpected(op, "label matching", "label matching operator")
	}

	value := p.next()
	if value.Type != lexer.String {
		return nil, p.unexpected(value, "label matching", "string")
	}
	val, err := literal.Unquote(value.Text)
	if err != nil {
		return nil, p.error(value.Pos, err)
	}

	m, err := labels.NewMatcher(mt, name.Text, val)
	if err != nil {
		span := posrange.PositionRange{Start: name.Pos.Start, End: value.Pos.End}
		return nil, p.error(span, err)
	}
	return m, nil
}

func (p *parser) parseCall(name lexer.Token) (Expr, error) {
	fn, ok := GetFunction(name.Text)
	if !ok {
		return nil, p.errSyntax(name.Pos, "unknown function with name %q", name.Text)
	}
	ctx := fmt.Sprintf("call to function %q", fn.Name)

	if _, err := p.consume(lexer.LeftParen); err != nil {
		return nil, err
	}
	args, rparen, err := p.parseExprList(ctx)
	if err != nil {
		return nil, err
	}
	call := &Call{
		Func: fn,
		Args: args,
		PosRange: posrange.PositionRange{
			Start: name.Pos.Start,
			End:   rparen.Pos.End,
		},
	}

	if fn.Variadic {
		if want := len(fn.ArgTypes) - 1; len(args) < want {
			return nil, p.error(call.PosRange, &ArityError{
				FuncName: fn.Name,
				Expected: want,
				Actual:   len(args),
				AtLeast:  true,
			})
		}
	} else if len(args) != len(fn.ArgTypes) {
		return nil, p.error(call.PosRange, &ArityError{
			FuncName: fn.Name,
			Expected: len(fn.ArgTypes),
			Actual:   len(args),
		})
	}

	for i, arg := range args {
		want := fn.ArgTypes[min(i, len(fn.ArgTypes)-1)]
		if err := p.expectType(arg, want, ctx); err != nil {
			return nil, err
		}
	}
	return call, nil
}

// parseExprList parses a comma separated expression list after an
// opening paren, through the closing paren. Unlike matcher and grouping
// lists, a trailing comma is not allowed here.
func (p *parser) parseExprList(context string) ([]Expr, lexer.Token, error) {
	var args []Expr
	if p.peek().Type == lexer.RightParen {
		return args, p.next(), nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, lexer.Token{}, err
		}
		args = append(args, arg)

		switch t := p.next(); t.Type {
		case lexer.Comma:
			if p.peek().Type == lexer.RightParen {
				return nil, lexer.Token{}, p.errSyntax(t.Pos, "trailing commas not allowed in function call args")
			}
		case lexer.RightParen:
			return args, t, nil
		default:
			return nil, lexer.Token{}, p.unexpected(t, context, `"," or ")"`)
		}
	}
}

// parseAggregateExpr parses an aggregation after its operator token.
// The grouping modifier may precede or follow the parenthesized body.
func (p *parser) parseAggregateExpr(opTok lexer.Token) (Expr, error) {
	op := tokenAggOps[opTok.Type]

	var (
		grouping []string
		without  bool
		modifier bool
	)
	if t := p.peek(); t.Type == lexer.By || t.Type == lexer.Without {
		p.next()
		without = t.Type == lexer.Without
		g, _, err := p.parseGrouping()
		if err != nil {
			return nil, err
		}
		grouping = g
		modifier = true
	}

	if t := p.next(); t.Type != lexer.LeftParen {
		return nil, p.unexpected(t, "aggregation", `"("`)
	}
	args, rparen, err := p.parseExprList("aggregation")
	if err != nil {
		return nil, err
	}
	end := rparen.Pos.End

	if !modifier {
		if t := p.peek(); t.Type == lexer.By || t.Type == lexer.Without {
			p.next()
			without = t.Type == lexer.Without
			g, gend, err := p.parseGrouping()
			if err != nil {
				return nil, err
			}
			grouping = g
			end = gend
		}
	}

	agg := &AggregateExpr{
		Op:       op,
		Grouping: grouping,
		Without:  without,
		PosRange: posrange.PositionRange{Start: opTok.Pos.Start, End: end},
	}

	want := 1
	if op.hasParam() {
		want = 2
	}
	if len(args) != want {
		return nil, p.error(agg.PosRange, &ArityError{
			FuncName: op.String(),
			Expected: want,
			Actual:   len(args),
		})
	}
	if op.hasParam() {
		agg.Param = args[0]
	}
	agg.Expr = args[want-1]

	if err := p.expectType(agg.Expr, ValueTypeVector, "aggregation expression"); err != nil {
		return nil, err
	}
	if agg.Param != nil {
		if err := p.expectType(agg.Param, op.paramType(), "aggregation parameter"); err != nil {
			return nil, err
		}
	}
	return agg, nil
}

// parseGrouping parses a parenthesized label name list. Keywords and
// word operators are not reserved in label positions.
func (p *parser) parseGrouping() ([]string, posrange.Pos, error) {
	if t := p.next(); t.Type != lexer.LeftParen {
		return nil, 0, p.unexpected(t, "grouping opts", `"("`)
	}
	var names []string
	if p.peek().Type == lexer.RightParen {
		return names, p.next().Pos.End, nil
	}
	for {
		t := p.next()
		if !isLabelNameToken(t.Type) {
			return nil, 0, p.unexpected(t, "grouping opts", "label")
		}
		if !labels.IsValidName(t.Text) {
			return nil, 0, p.errSyntax(t.Pos, "invalid label name for grouping: %q", t.Text)
		}
		names = append(names, t.Text)

		switch t := p.next(); t.Type {
		case lexer.Comma:
			if p.peek().Type == lexer.RightParen {
				return names, p.next().Pos.End, nil
			}
		case lexer.RightParen:
			return names, t.Pos.End, nil
		default:
			return nil, 0, p.unexpected(t, "grouping opts", `"," or ")"`)
		}
	}
}

// isLabelNameToken reports whether the token type can stand for a
// label name.
func isLabelNameToken(tt lexer.TokenType) bool {
	switch tt {
	case lexer.Ident, lexer.MetricIdent, lexer.And, lexer.Or, lexer.Unless, lexer.Atan2:
		return true
	}
	return tt.IsKeyword() || tt.IsAggregator()
}
