// Package testutil provides assertion helpers shared by the sim/ and
// sim/protocol/ test packages. It must not import sim so that sim's
// internal tests can use it.
package testutil

import (
	"math"
	"strings"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertWithin checks |got-want| <= absTol, for sample means and rates.
func AssertWithin(t *testing.T, name string, want, got, absTol float64) {
	t.Helper()
	if math.Abs(want-got) > absTol {
		t.Errorf("%s: got %v, want %v +/- %v", name, got, want, absTol)
	}
}

// LetterPayloads returns the n application payloads a run generates, in
// order: 19 copies of 'a', then 'b', wrapping after 'z'.
func LetterPayloads(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strings.Repeat(string(rune('a'+i%26)), 19)
	}
	return out
}
