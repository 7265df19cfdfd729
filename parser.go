package promql

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/promql/lexer"
	"github.com/go-faster/promql/literal"
	"github.com/go-faster/promql/posrange"
)

// parser is a recursive descent parser over a pre-lexed token slice.
// A parser value serves a single Parse call and is discarded after it.
type parser struct {
	input  string
	tokens []lexer.Token
	pos    int
}

func (p *parser) next() lexer.Token {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) peek() lexer.Token {
	if len(p.tokens) <= p.pos {
		eof := posrange.Pos(len(p.input))
		return lexer.Token{Type: lexer.EOF, Pos: posrange.PositionRange{Start: eof, End: eof}}
	}
	return p.tokens[p.pos]
}

func (p *parser) unread() {
	if p.pos > 0 {
		p.pos--
	}
}

// consume reads the next token and fails if it is not of the wanted type.
func (p *parser) consume(tt lexer.TokenType) (lexer.Token, error) {
	t := p.next()
	if t.Type != tt {
		return t, p.unexpected(t, "", fmt.Sprintf("%q", tt))
	}
	return t, nil
}

// error wraps err into a ParseError locating it at pos.
func (p *parser) error(pos posrange.PositionRange, err error) error {
	return &ParseError{Pos: pos, Err: err, Query: p.input}
}

func (p *parser) errSyntax(pos posrange.PositionRange, format string, args ...any) error {
	return p.error(pos, &SyntaxError{Msg: fmt.Sprintf(format, args...)})
}

func (p *parser) errType(pos posrange.PositionRange, format string, args ...any) error {
	return p.error(pos, &TypeError{Msg: fmt.Sprintf(format, args...)})
}

func (p *parser) errMatching(pos posrange.PositionRange, format string, args ...any) error {
	return p.error(pos, &MatchingClauseError{Msg: fmt.Sprintf(format, args...)})
}

// unexpected reports an unexpected token, naming the surrounding
// construct and the expected input when known.
func (p *parser) unexpected(t lexer.Token, context, expected string) error {
	var msg strings.Builder
	msg.WriteString("unexpected ")
	msg.WriteString(t.String())
	if context != "" {
		msg.WriteString(" in ")
		msg.WriteString(context)
	}
	if expected != "" {
		msg.WriteString(", expected ")
		msg.WriteString(expected)
	}
	return p.errSyntax(t.Pos, "%s", msg.String())
}

// expectType fails unless e evaluates to the wanted type.
func (p *parser) expectType(e Expr, want ValueType, context string) error {
	if got := e.Type(); got != want {
		return p.errType(e.PositionRange(), "expected type %s in %s, got %s", DocumentedType(want), context, DocumentedType(got))
	}
	return nil
}

// parseDurationValue interprets the text of a duration token.
func (p *parser) parseDurationValue(t lexer.Token) (time.Duration, error) {
	d, err := literal.ParseDuration(t.Text)
	if err != nil {
		return 0, p.error(t.Pos, err)
	}
	return d, nil
}

// zeroDurationErr reports a zero duration where a positive one is
// required. Ranges and offsets of zero width are always mistakes,
// subquery steps are the one place zero is meaningful.
func (p *parser) zeroDurationErr(t lexer.Token) error {
	return p.error(t.Pos, &literal.FormatError{Raw: t.Text, Reason: "duration must be greater than 0"})
}
