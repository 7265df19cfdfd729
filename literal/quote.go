package literal

import (
	"strings"
	"unicode/utf8"
)

// Unquote interprets s as a PromQL string literal, returning the value it
// represents. The literal must carry matching delimiters: double or
// single quotes with escape processing, or backticks for a raw string.
// Unlike Go, single-quoted strings may hold any number of characters.
func Unquote(s string) (string, error) {
	orig := s
	n := len(s)
	if n < 2 {
		return "", &FormatError{Raw: orig, Reason: "invalid string literal"}
	}
	quote := s[0]
	if quote != s[n-1] {
		return "", &FormatError{Raw: orig, Reason: "invalid string literal"}
	}
	s = s[1 : n-1]

	if quote == '`' {
		// Raw string: no escapes and no way to express a backtick.
		if strings.ContainsRune(s, '`') {
			return "", &FormatError{Raw: orig, Reason: "invalid string literal"}
		}
		return s, nil
	}
	if quote != '"' && quote != '\'' {
		return "", &FormatError{Raw: orig, Reason: "invalid string literal"}
	}
	if strings.ContainsRune(s, '\n') {
		return "", &FormatError{Raw: orig, Reason: "invalid string literal"}
	}

	if !strings.ContainsRune(s, '\\') && !strings.ContainsRune(s, rune(quote)) {
		return s, nil
	}

	buf := make([]byte, 0, 3*len(s)/2)
	for len(s) > 0 {
		c, multibyte, rest, ok := unquoteChar(s, quote)
		if !ok {
			return "", &FormatError{Raw: orig, Reason: "invalid string literal"}
		}
		s = rest
		if c < utf8.RuneSelf || !multibyte {
			buf = append(buf, byte(c))
		} else {
			buf = utf8.AppendRune(buf, c)
		}
	}
	return string(buf), nil
}

// unquoteChar decodes the first character or escape sequence of s.
// multibyte reports whether the value must be encoded as UTF-8 rather
// than appended as a single byte.
func unquoteChar(s string, quote byte) (value rune, multibyte bool, tail string, ok bool) {
	switch c := s[0]; {
	case c == quote:
		// Bare delimiter must be escaped.
		return
	case c >= utf8.RuneSelf:
		r, size := utf8.DecodeRuneInString(s)
		return r, true, s[size:], true
	case c != '\\':
		return rune(s[0]), false, s[1:], true
	}

	if len(s) <= 1 {
		return
	}
	c := s[1]
	s = s[2:]

	switch c {
	case 'a':
		value = '\a'
	case 'b':
		value = '\b'
	case 'f':
		value = '\f'
	case 'n':
		value = '\n'
	case 'r':
		value = '\r'
	case 't':
		value = '\t'
	case 'v':
		value = '\v'
	case 'x', 'u', 'U':
		n := 0
		switch c {
		case 'x':
			n = 2
		case 'u':
			n = 4
		case 'U':
			n = 8
		}
		if len(s) < n {
			return
		}
		var v rune
		for j := 0; j < n; j++ {
			x, xok := unhex(s[j])
			if !xok {
				return
			}
			v = v<<4 | x
		}
		s = s[n:]
		if c == 'x' {
			// A single byte, possibly not valid UTF-8.
			value = v
			break
		}
		if !utf8.ValidRune(v) {
			return
		}
		value = v
		multibyte = true
	case '0', '1', '2', '3', '4', '5', '6', '7':
		if len(s) < 2 {
			return
		}
		v := rune(c) - '0'
		for j := 0; j < 2; j++ {
			x := rune(s[j]) - '0'
			if x < 0 || x > 7 {
				return
			}
			v = v<<3 | x
		}
		s = s[2:]
		if v > 255 {
			return
		}
		value = v
	case '\\':
		value = '\\'
	case '\'', '"':
		// The escaped quote must match the delimiter.
		if c != quote {
			return
		}
		value = rune(c)
	default:
		return
	}
	return value, multibyte, s, true
}

func unhex(b byte) (v rune, ok bool) {
	c := rune(b)
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return
}
