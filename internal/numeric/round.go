// Package numeric holds small rounding helpers shared by the graph,
// detect, and report packages. No ecosystem library in the
// retrieval pack offers fixed-decimal rounding for float64; math.Round
// is the standard idiom for it, so this stays stdlib-only (see
// DESIGN.md).
package numeric

import "math"

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds v to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Round3 rounds v to three decimal places.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
