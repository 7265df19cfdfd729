package labels

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/grafana/regexp"
)

// MatchType is the type of a label matcher.
type MatchType int

// Possible match types.
const (
	MatchEqual MatchType = iota
	MatchNotEqual
	MatchRegexp
	MatchNotRegexp
)

var matchTypeStr = [...]string{
	MatchEqual:     "=",
	MatchNotEqual:  "!=",
	MatchRegexp:    "=~",
	MatchNotRegexp: "!~",
}

func (m MatchType) String() string {
	if m < MatchEqual || m > MatchNotRegexp {
		panic("unknown match type")
	}
	return matchTypeStr[m]
}

// Matcher matches a single label value.
type Matcher struct {
	Type  MatchType
	Name  string
	Value string

	re *regexp.Regexp
}

// NewMatcher returns a matcher of the given type for the label name.
// Regex matchers compile Value anchored to the full string, so the
// expression must cover the whole label value to match.
func NewMatcher(t MatchType, n, v string) (*Matcher, error) {
	m := &Matcher{
		Type:  t,
		Name:  n,
		Value: v,
	}
	if t == MatchRegexp || t == MatchNotRegexp {
		re, err := regexp.Compile("^(?:" + v + ")$")
		if err != nil {
			return nil, errors.Wrapf(err, "invalid regex in label matcher %q", v)
		}
		m.re = re
	}
	return m, nil
}

// MustNewMatcher is NewMatcher that panics on error.
func MustNewMatcher(t MatchType, n, v string) *Matcher {
	m, err := NewMatcher(t, n, v)
	if err != nil {
		panic(err)
	}
	return m
}

// Matches reports whether the matcher accepts the given label value.
func (m *Matcher) Matches(s string) bool {
	switch m.Type {
	case MatchEqual:
		return s == m.Value
	case MatchNotEqual:
		return s != m.Value
	case MatchRegexp:
		return m.re.MatchString(s)
	case MatchNotRegexp:
		return !m.re.MatchString(s)
	}
	panic("labels.Matcher.Matches: invalid match type")
}

// String renders the matcher in selector form, e.g. job="api".
func (m *Matcher) String() string {
	return fmt.Sprintf("%s%s%q", m.Name, m.Type, m.Value)
}
