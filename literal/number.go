package literal

import (
	"strconv"
	"strings"
)

// ParseNumber parses a PromQL numeric literal into a float64. Accepted
// forms are those of strconv: decimal and hexadecimal integers and
// floats, inf and nan in any case, plus legacy leading-zero octal
// integers. An octal-looking literal containing the digits 8 or 9 is
// read as decimal.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	// Integer parsing first so that 017 stays octal and 0x2f hex. The
	// float fallback picks up 089 as decimal.
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return float64(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &FormatError{Raw: s, Reason: "error parsing number"}
	}
	return f, nil
}
