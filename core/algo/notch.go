// Package algo holds the pure numeric helpers behind the rating engine.
package algo

import (
	"math"
	"strings"

	"github.com/kaimin86/credit-rating-deploy/schema"
)

// ERVDot marks the position of a rating inside its notch.
const ERVDot = "●"

// Round rounds half away from zero. This is the one rounding policy used wherever a
// real-valued rating becomes an integer notch.
func Round(x float64) float64 {
	return math.Round(x)
}

// Clamp bounds x to [lo, hi]. NaN passes through unchanged.
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// ClampRating bounds a rating to the scale.
func ClampRating(x float64) float64 {
	return Clamp(x, schema.MinNotch, schema.MaxNotch)
}

// Notch rounds x and clamps the result to the scale.
// It returns 0, which no scale maps, for NaN.
func Notch(x float64) int {
	if math.IsNaN(x) {
		return 0
	}
	return int(ClampRating(Round(x)))
}

// OrderedSum adds values strictly left to right so that the result only depends on the
// order the caller fixes.
func OrderedSum(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum
}

// DistanceToLowerBound returns how far r sits above the lower edge of its notch, in [0, 1].
// Ratings at or beyond the ends of the scale pin to 0 and 1.
func DistanceToLowerBound(r float64) float64 {
	switch {
	case r <= schema.MinNotch:
		return 0
	case r >= schema.MaxNotch:
		return 1
	}
	return r - (Round(r) - 0.5)
}

// ERVLine draws a width-character line with a dot that moves from the right edge (d = 0)
// to the left edge (d = 1). d is rounded to two decimals first.
func ERVLine(d float64, width int) string {
	if width < 1 {
		return ""
	}
	d = Clamp(math.Round(d*100)/100, 0, 1)
	pos := int(Round((1 - d) * float64(width-1)))
	return strings.Repeat(" ", pos) + ERVDot + strings.Repeat(" ", width-1-pos)
}
