// Package numeric converts attribute and literal strings from SLD documents
// into floats without losing the precision they were authored with.
package numeric

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numberPattern matches the first decimal or scientific number in a string.
var numberPattern = regexp.MustCompile(`-?\d*\.?\d+(?:[eE][-+]?\d+)?`)

// ToFloat parses raw as a float64.
//
// A direct parse is tried first, so scientific notation and long decimals
// such as "0.20000000000000001" go through the standard parser unchanged.
// Otherwise the first numeric substring is used ("12.5 m" yields 12.5).
// The second result is false when nothing finite and numeric is present.
func ToFloat(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && isFinite(f) {
		return f, true
	}
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || !isFinite(f) {
		return 0, false
	}
	return f, true
}

// Format renders v in the shortest form that parses back to the same float.
func Format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
