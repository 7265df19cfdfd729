package promql

import "math"

// ValueType describes the static type of an expression.
type ValueType string

// Value types.
const (
	ValueTypeNone   ValueType = "none"
	ValueTypeScalar ValueType = "scalar"
	ValueTypeString ValueType = "string"
	ValueTypeVector ValueType = "vector"
	ValueTypeMatrix ValueType = "matrix"
)

// DocumentedType returns the type string used in documentation and error
// messages.
func DocumentedType(t ValueType) string {
	switch t {
	case ValueTypeVector:
		return "instant vector"
	case ValueTypeMatrix:
		return "range vector"
	}
	return string(t)
}

// Sample value sentinels. Both are NaN bit patterns, so they compare
// unequal to everything including themselves, and can only be told apart
// by their bits.
const (
	// NormalNaN is an ordinary quiet NaN carrying no special meaning.
	NormalNaN uint64 = 0x7ff8000000000001
	// StaleNaN marks a point where a series went stale: the sample does
	// not exist and must not be returned to a caller.
	StaleNaN uint64 = 0x7ff0000000000002
)

// IsStaleNaN reports whether v is the staleness marker. Only the exact
// bit pattern counts, any other NaN is an ordinary sample value.
func IsStaleNaN(v float64) bool {
	return math.Float64bits(v) == StaleNaN
}
