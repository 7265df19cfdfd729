package literal

import (
	"strconv"
	"strings"
	"time"

	"github.com/grafana/regexp"
)

// Components must appear in descending unit order, each at most once.
var durationRE = regexp.MustCompile(`^(([0-9]+)y)?(([0-9]+)w)?(([0-9]+)d)?(([0-9]+)h)?(([0-9]+)m)?(([0-9]+)s)?(([0-9]+)ms)?$`)

// ParseDuration parses a PromQL duration string: a sequence of integer
// components with units y, w, d, h, m, s, ms, largest unit first. A year
// is exactly 365 days and a week exactly 7 days. The bare literal "0"
// denotes the zero duration.
func ParseDuration(s string) (time.Duration, error) {
	switch s {
	case "0":
		// Zero needs no unit.
		return 0, nil
	case "":
		return 0, &FormatError{Raw: s, Reason: "empty duration string"}
	}
	matches := durationRE.FindStringSubmatch(s)
	if matches == nil {
		return 0, &FormatError{Raw: s, Reason: "not a valid duration string"}
	}

	var (
		dur         time.Duration
		overflowErr error
	)
	add := func(pos int, mult time.Duration) {
		if matches[pos] == "" {
			return
		}
		// On overflow Atoi returns the clamped maximum, which the bound
		// check below rejects.
		n, _ := strconv.Atoi(matches[pos])

		if n > int((1<<63-1)/mult/time.Millisecond) {
			overflowErr = &FormatError{Raw: s, Reason: "duration out of range"}
		}
		dur += time.Duration(n) * time.Millisecond * mult

		if dur < 0 {
			overflowErr = &FormatError{Raw: s, Reason: "duration out of range"}
		}
	}

	add(2, 1000*60*60*24*365) // y
	add(4, 1000*60*60*24*7)   // w
	add(6, 1000*60*60*24)     // d
	add(8, 1000*60*60)        // h
	add(10, 1000*60)          // m
	add(12, 1000)             // s
	add(14, 1)                // ms

	return dur, overflowErr
}

// FormatDuration renders d in the form ParseDuration accepts: integer
// components with units y, w, d, h, m, s, ms, largest unit first. Years
// and weeks are used only when the duration divides them exactly. The
// zero duration formats as "0s". ParseDuration(FormatDuration(d)) == d
// for any d that is a whole number of milliseconds.
func FormatDuration(d time.Duration) string {
	ms := int64(d / time.Millisecond)
	if ms == 0 {
		return "0s"
	}

	var b strings.Builder
	f := func(unit string, mult int64, exact bool) {
		if exact && ms%mult != 0 {
			return
		}
		if v := ms / mult; v > 0 {
			b.WriteString(strconv.FormatInt(v, 10))
			b.WriteString(unit)
			ms -= v * mult
		}
	}

	f("y", 1000*60*60*24*365, true)
	f("w", 1000*60*60*24*7, true)
	f("d", 1000*60*60*24, false)
	f("h", 1000*60*60, false)
	f("m", 1000*60, false)
	f("s", 1000, false)
	f("ms", 1, false)

	return b.String()
}
