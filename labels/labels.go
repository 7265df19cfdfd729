// Package labels implements the label model PromQL selects and matches
// time series by: label sets, the canonical label order and label
// matchers.
package labels

import (
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// MetricName is the reserved label name holding the metric name of a
// series.
const MetricName = "__name__"

// Label is a single name/value pair.
type Label struct {
	Name  string
	Value string
}

// Labels is a set of labels. Most operations expect it in the canonical
// order produced by Sort.
type Labels []Label

// New returns a sorted label set built from the given labels.
func New(ls ...Label) Labels {
	set := make(Labels, 0, len(ls))
	set = append(set, ls...)
	Sort(set)
	return set
}

// FromStrings returns a sorted label set from a list of name, value
// pairs. It panics on an odd number of arguments.
func FromStrings(ss ...string) Labels {
	if len(ss)%2 != 0 {
		panic("labels.FromStrings: odd number of strings")
	}
	set := make(Labels, 0, len(ss)/2)
	for i := 0; i < len(ss); i += 2 {
		set = append(set, Label{Name: ss[i], Value: ss[i+1]})
	}
	Sort(set)
	return set
}

// Sort sorts ls in place into the canonical order: case-insensitive by
// name, with ties broken by the raw name and then the value. The order
// is total, so equal sets always sort identically.
func Sort(ls Labels) {
	slices.SortStableFunc(ls, func(a, b Label) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Value, b.Value)
	})
}

// Sorted returns a copy of ls in canonical order.
func (ls Labels) Sorted() Labels {
	set := make(Labels, len(ls))
	copy(set, ls)
	Sort(set)
	return set
}

// MatchLabels returns a subset of ls, keeping the relative order of the
// kept labels. With on set it keeps exactly the labels named in names,
// otherwise it keeps everything else and additionally drops the metric
// name. The metric name is only ever kept by naming it in an on set.
func (ls Labels) MatchLabels(on bool, names ...string) Labels {
	nameSet := make(map[string]struct{}, len(names))
	for _, n := range names {
		nameSet[n] = struct{}{}
	}

	matched := make(Labels, 0, len(ls))
	for _, l := range ls {
		_, ok := nameSet[l.Name]
		if on == ok && (on || l.Name != MetricName) {
			matched = append(matched, l)
		}
	}
	return matched
}

var seps = []byte{'\xff'}

// Hash returns a hash of the label set, usable as a grouping key. Equal
// sets in equal order hash equally.
func (ls Labels) Hash() uint64 {
	b := make([]byte, 0, 1024)
	for i, l := range ls {
		if len(b)+len(l.Name)+len(l.Value)+2 >= cap(b) {
			// Entries above 1KB are fed to the hash directly.
			h := xxhash.New()
			_, _ = h.Write(b)
			for _, l := range ls[i:] {
				_, _ = h.WriteString(l.Name)
				_, _ = h.Write(seps)
				_, _ = h.WriteString(l.Value)
				_, _ = h.Write(seps)
			}
			return h.Sum64()
		}
		b = append(b, l.Name...)
		b = append(b, seps[0])
		b = append(b, l.Value...)
		b = append(b, seps[0])
	}
	return xxhash.Sum64(b)
}

// Get returns the value of the label with the given name, or an empty
// string if it is not present.
func (ls Labels) Get(name string) string {
	for _, l := range ls {
		if l.Name == name {
			return l.Value
		}
	}
	return ""
}

// Has reports whether a label with the given name is present.
func (ls Labels) Has(name string) bool {
	for _, l := range ls {
		if l.Name == name {
			return true
		}
	}
	return false
}

// String renders the label set in {name="value", ...} form.
func (ls Labels) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, l := range ls {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(l.Name)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(l.Value))
	}
	b.WriteByte('}')
	return b.String()
}

// IsValidName reports whether s is a valid label name: a non-empty run
// of [a-zA-Z_][a-zA-Z0-9_]*.
func IsValidName(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i, r := range s {
		if !(r == '_' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || i > 0 && '0' <= r && r <= '9') {
			return false
		}
	}
	return true
}
