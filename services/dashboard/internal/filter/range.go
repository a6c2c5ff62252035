package filter

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Bound selects which end of a Range an input edits.
type Bound int

const (
	MinBound Bound = iota
	MaxBound
)

var leadingZeros = regexp.MustCompile(`^0+(\d)`)

// NormalizeRangeInput applies one keystroke of the objective-range inputs.
// The raw text accepts a decimal comma; the stored value is floored and never
// negative, and anything unparsable becomes 0. When the edit leaves Min above
// Max the other bound is pulled along. text is what the edited input should
// display; it is empty when the input was cleared.
func NormalizeRangeInput(prev Range, b Bound, raw string) (next Range, text string) {
	raw = strings.TrimSpace(strings.Replace(raw, ",", ".", 1))
	raw = leadingZeros.ReplaceAllString(raw, "$1")

	next = prev
	if raw == "" {
		next.set(b, 0)
		return next, ""
	}

	v := 0.0
	if n, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
		v = math.Max(0, math.Floor(n))
	}
	next.set(b, v)

	if next.Min > next.Max {
		if b == MinBound {
			next.Max = next.Min
		} else {
			next.Min = next.Max
		}
	}
	return next, strconv.FormatFloat(next.get(b), 'f', -1, 64)
}

func (r *Range) set(b Bound, v float64) {
	if b == MinBound {
		r.Min = v
		return
	}
	r.Max = v
}

func (r Range) get(b Bound) float64 {
	if b == MinBound {
		return r.Min
	}
	return r.Max
}
