// Package lexer implements tokenization of PromQL queries.
//
// Tokenize splits an input string into a flat token slice in a single
// pass. The scanner is a small state machine: each state function
// consumes input and returns the next state. Brace, bracket and paren
// tracking lives in the lexer so that context-dependent constructs,
// label matchers and range durations, can be tokenized without parser
// feedback.
package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/promql/posrange"
)

// Error is a lexical error with the byte span that triggered it.
type Error struct {
	Msg string
	Pos posrange.PositionRange
}

// Error implements error.
func (e *Error) Error() string {
	return e.Msg
}

// PositionRange returns the byte span the error refers to.
func (e *Error) PositionRange() posrange.PositionRange {
	return e.Pos
}

// Tokenize splits the input into a sequence of tokens. On a lexical
// error it returns a *Error describing the first offending input span.
func Tokenize(input string) ([]Token, error) {
	l := &lexer{input: input}
	for state := lexStatements; state != nil; {
		state = state(l)
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.tokens, nil
}

const eof = -1

// stateFn scans some input and returns the state to continue in.
type stateFn func(*lexer) stateFn

type lexer struct {
	input  string
	start  posrange.Pos // start of the pending token
	pos    posrange.Pos // current scan position
	width  int          // width of the last rune read
	tokens []Token
	err    *Error

	parenDepth  int
	braceOpen   bool
	bracketOpen bool
	gotColon    bool
	stringOpen  rune
}

func (l *lexer) next() rune {
	if int(l.pos) >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[int(l.pos):])
	l.width = w
	l.pos += posrange.Pos(w)
	return r
}

func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

// backup steps back one rune. Valid once per call of next.
func (l *lexer) backup() {
	l.pos -= posrange.Pos(l.width)
}

func (l *lexer) emit(t TokenType) {
	l.tokens = append(l.tokens, Token{
		Type: t,
		Text: l.input[l.start:l.pos],
		Pos:  posrange.PositionRange{Start: l.start, End: l.pos},
	})
	l.start = l.pos
}

// ignore drops the pending input.
func (l *lexer) ignore() {
	l.start = l.pos
}

func (l *lexer) accept(valid string) bool {
	if strings.ContainsRune(valid, l.next()) {
		return true
	}
	l.backup()
	return false
}

func (l *lexer) acceptRun(valid string) {
	for strings.ContainsRune(valid, l.next()) {
	}
	l.backup()
}

// errorf records a lexical error and stops the scan.
func (l *lexer) errorf(format string, args ...any) stateFn {
	l.err = &Error{
		Msg: fmt.Sprintf(format, args...),
		Pos: posrange.PositionRange{Start: l.start, End: l.pos},
	}
	return nil
}

// lexStatements is the top-level query state.
func lexStatements(l *lexer) stateFn {
	if l.braceOpen {
		return lexInsideBraces
	}
	if strings.HasPrefix(l.input[l.pos:], "#") {
		return lexLineComment
	}

	switch r := l.next(); {
	case r == eof:
		switch {
		case l.parenDepth != 0:
			return l.errorf("unclosed left parenthesis")
		case l.bracketOpen:
			return l.errorf("unclosed left bracket")
		}
		return nil
	case isSpace(r):
		return lexSpace
	case r == ',':
		l.emit(Comma)
	case r == '*':
		l.emit(Mul)
	case r == '/':
		l.emit(Div)
	case r == '%':
		l.emit(Mod)
	case r == '+':
		l.emit(Add)
	case r == '-':
		l.emit(Sub)
	case r == '^':
		l.emit(Pow)
	case r == '@':
		l.emit(At)
	case r == '=':
		switch t := l.peek(); t {
		case '=':
			l.next()
			l.emit(Eql)
		case '~':
			return l.errorf("unexpected character after '=': %q", t)
		default:
			l.emit(Assign)
		}
	case r == '!':
		if t := l.next(); t == '=' {
			l.emit(Neq)
		} else {
			return l.errorf("unexpected character after '!': %q", t)
		}
	case r == '<':
		if t := l.peek(); t == '=' {
			l.next()
			l.emit(Lte)
		} else {
			l.emit(Lss)
		}
	case r == '>':
		if t := l.peek(); t == '=' {
			l.next()
			l.emit(Gte)
		} else {
			l.emit(Gtr)
		}
	case isDigit(r) || r == '.' && isDigit(l.peek()):
		l.backup()
		return lexNumberOrDuration
	case r == '"' || r == '\'':
		l.stringOpen = r
		return lexString
	case r == '`':
		l.stringOpen = r
		return lexRawString
	case r == 'n' || r == 'N' || r == 'i' || r == 'I':
		// inf and nan are numbers despite looking like identifiers.
		tail := strings.ToLower(l.input[l.pos:])
		if len(tail) < 3 || !isAlphaNumeric(rune(tail[2])) {
			if (r == 'i' || r == 'I') && strings.HasPrefix(tail, "nf") {
				l.pos += 2
				l.emit(Number)
				break
			}
			if (r == 'n' || r == 'N') && strings.HasPrefix(tail, "an") {
				l.pos += 2
				l.emit(Number)
				break
			}
		}
		fallthrough
	case isAlpha(r):
		l.backup()
		return lexKeywordOrIdentifier
	case r == ':':
		if !l.bracketOpen {
			return l.errorf("unexpected colon %q", r)
		}
		if l.gotColon {
			return l.errorf("unexpected colon %q", r)
		}
		l.emit(Colon)
		l.gotColon = true
	case r == '(':
		l.emit(LeftParen)
		l.parenDepth++
	case r == ')':
		l.emit(RightParen)
		l.parenDepth--
		if l.parenDepth < 0 {
			return l.errorf("unexpected right parenthesis %q", r)
		}
	case r == '{':
		l.emit(LeftBrace)
		l.braceOpen = true
		return lexInsideBraces
	case r == '}':
		return l.errorf("unexpected right brace %q", r)
	case r == '[':
		if l.bracketOpen {
			return l.errorf("unexpected left bracket %q", r)
		}
		l.gotColon = false
		l.emit(LeftBracket)
		if isSpace(l.peek()) {
			skipSpaces(l)
		}
		l.bracketOpen = true
		return lexDuration
	case r == ']':
		if !l.bracketOpen {
			return l.errorf("unexpected right bracket %q", r)
		}
		l.emit(RightBracket)
		l.bracketOpen = false
	default:
		return l.errorf("unexpected character: %q", r)
	}
	return lexStatements
}

// lexInsideBraces scans the matcher list inside curly braces.
func lexInsideBraces(l *lexer) stateFn {
	switch r := l.next(); {
	case r == eof:
		return l.errorf("unexpected end of input inside braces")
	case isSpace(r):
		return lexSpace
	case isAlpha(r):
		l.backup()
		return lexIdentifier
	case r == ',':
		l.emit(Comma)
	case r == '"' || r == '\'':
		l.stringOpen = r
		return lexString
	case r == '`':
		l.stringOpen = r
		return lexRawString
	case r == '=':
		if l.next() == '~' {
			l.emit(EqlRegex)
			break
		}
		l.backup()
		l.emit(Assign)
	case r == '!':
		switch nr := l.next(); {
		case nr == '~':
			l.emit(NeqRegex)
		case nr == '=':
			l.emit(Neq)
		default:
			return l.errorf("unexpected character after '!' inside braces: %q", nr)
		}
	case r == '{':
		return l.errorf("unexpected left brace %q", r)
	case r == '}':
		l.emit(RightBrace)
		l.braceOpen = false
		return lexStatements
	default:
		return l.errorf("unexpected character inside braces: %q", r)
	}
	return lexInsideBraces
}

// lexString scans a quoted string. The token keeps its delimiters and
// escapes, decoding is left to the literal package.
func lexString(l *lexer) stateFn {
Loop:
	for {
		switch l.next() {
		case '\\':
			if r := l.next(); r != eof && r != '\n' {
				break
			}
			fallthrough
		case eof, '\n':
			return l.errorf("unterminated quoted string")
		case l.stringOpen:
			break Loop
		}
	}
	l.emit(String)
	return lexStatements
}

// lexRawString scans a backtick-quoted raw string.
func lexRawString(l *lexer) stateFn {
Loop:
	for {
		switch l.next() {
		case eof:
			return l.errorf("unterminated raw string")
		case l.stringOpen:
			break Loop
		}
	}
	l.emit(String)
	return lexStatements
}

func lexSpace(l *lexer) stateFn {
	for isSpace(l.peek()) {
		l.next()
	}
	l.ignore()
	return lexStatements
}

// lexLineComment drops input up to the end of the line.
func lexLineComment(l *lexer) stateFn {
	l.pos += posrange.Pos(len("#"))
	for r := l.next(); !isEndOfLine(r) && r != eof; {
		r = l.next()
	}
	l.backup()
	l.ignore()
	return lexStatements
}

// lexDuration scans the duration right after an opening bracket.
func lexDuration(l *lexer) stateFn {
	if l.scanNumber() {
		return l.errorf("missing unit character in duration")
	}
	if !acceptRemainingDuration(l) {
		return l.errorf("bad duration syntax: %q", l.input[l.start:l.pos])
	}
	l.backup()
	l.emit(Duration)
	return lexStatements
}

// lexNumberOrDuration scans either a number or a duration, which are
// only told apart by the unit suffix.
func lexNumberOrDuration(l *lexer) stateFn {
	if l.scanNumber() {
		l.emit(Number)
		return lexStatements
	}
	if acceptRemainingDuration(l) {
		l.backup()
		l.emit(Duration)
		return lexStatements
	}
	return l.errorf("bad number or duration syntax: %q", l.input[l.start:l.pos])
}

func acceptRemainingDuration(l *lexer) bool {
	if !l.accept("smhdwy") {
		return false
	}
	// Trailing s of ms. Unit validity is checked by the duration parser.
	l.accept("s")
	// Compound durations continue with more digit runs and units.
	for l.accept("0123456789") {
		for l.accept("0123456789") {
		}
		if !l.accept("smhdw") {
			return false
		}
		l.accept("s")
	}
	return !isAlphaNumeric(l.next())
}

// scanNumber reports whether a complete number was consumed. On false
// the scan position is left after whatever prefix was read.
func (l *lexer) scanNumber() bool {
	digits := "0123456789"
	if l.accept("0") && l.accept("xX") {
		digits = "0123456789abcdefABCDEF"
	}
	l.acceptRun(digits)
	if l.accept(".") {
		l.acceptRun(digits)
	}
	if l.accept("eE") {
		l.accept("+-")
		l.acceptRun("0123456789")
	}
	// The next rune must not extend the token, otherwise this may be a
	// duration or an identifier.
	return !isAlphaNumeric(l.peek())
}

// lexKeywordOrIdentifier scans a word and emits it as a keyword if it is
// one, otherwise as a metric identifier if it contains colons and a
// plain identifier if not.
func lexKeywordOrIdentifier(l *lexer) stateFn {
Loop:
	for {
		switch r := l.next(); {
		case isAlphaNumeric(r) || r == ':':
			// Absorb.
		default:
			l.backup()
			word := l.input[l.start:l.pos]
			if kw, ok := key[strings.ToLower(word)]; ok {
				l.emit(kw)
			} else if !strings.Contains(word, ":") {
				l.emit(Ident)
			} else {
				l.emit(MetricIdent)
			}
			break Loop
		}
	}
	return lexStatements
}

// lexIdentifier scans a label name inside braces. Keywords are ordinary
// label names here.
func lexIdentifier(l *lexer) stateFn {
	for isAlphaNumeric(l.next()) {
	}
	l.backup()
	l.emit(Ident)
	return lexInsideBraces
}

// skipSpaces skips spaces without entering the space state.
func skipSpaces(l *lexer) {
	for isSpace(l.peek()) {
		l.next()
	}
	l.ignore()
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isEndOfLine(r rune) bool {
	return r == '\r' || r == '\n'
}

func isAlpha(r rune) bool {
	return r == '_' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z'
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

func isAlphaNumeric(r rune) bool {
	return isAlpha(r) || isDigit(r)
}
