package algo

import (
	"math"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.4, 0},
		{0.5, 1},
		{1.5, 2},
		{2.5, 3},
		{21.5, 22},
		{-0.5, -1},
		{13.49, 13},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round(tt.in), "Round(%v)", tt.in)
	}
}

func TestNotch(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want int
	}{
		{"in range", 14.2, 14},
		{"half rounds up", 14.5, 15},
		{"above scale", 23.4, 22},
		{"below scale", -3, 1},
		{"zero", 0.2, 1},
		{"positive infinity", math.Inf(1), 22},
		{"negative infinity", math.Inf(-1), 1},
		{"nan", math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Notch(tt.in))
		})
	}
}

func TestOrderedSum(t *testing.T) {
	assert.Equal(t, 0.0, OrderedSum(nil))
	assert.Equal(t, 3.5, OrderedSum([]float64{2.0, 0.5, 1.0}))
}

func TestDistanceToLowerBound(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1, 0},
		{0.2, 0},
		{22, 1},
		{23, 1},
		{14, 0.5},
		{14.25, 0.75},
		{13.75, 0.25},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, DistanceToLowerBound(tt.in), 1e-9, "DistanceToLowerBound(%v)", tt.in)
	}
}

func TestERVLine(t *testing.T) {
	right := ERVLine(0, 21)
	assert.Equal(t, 21, utf8.RuneCountInString(right))
	assert.Equal(t, ERVDot, string([]rune(right)[20]))

	left := ERVLine(1, 21)
	assert.Equal(t, ERVDot, string([]rune(left)[0]))

	mid := ERVLine(0.5, 21)
	assert.Equal(t, ERVDot, string([]rune(mid)[10]))

	assert.Equal(t, "", ERVLine(0.5, 0))
}

// FuzzClamp checks that clamping is idempotent and always lands inside the scale.
func FuzzClamp(f *testing.F) {
	for _, seed := range []float64{0, 1, 21.7, 22, 23.4, -5, 1e9} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, x float64) {
		if math.IsNaN(x) {
			return
		}
		once := ClampRating(x)
		assert.Equal(t, once, ClampRating(once))
		assert.GreaterOrEqual(t, once, 1.0)
		assert.LessOrEqual(t, once, 22.0)

		n := Notch(x)
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 22)
	})
}

func BenchmarkOrderedSum(b *testing.B) {
	values := []float64{0.1, 2.3, -1.2, 0.7, 3.3, 0.01, -0.4, 1.9, 0.2, 0.3, 1.1, 4.2}
	for b.Loop() {
		_ = OrderedSum(values)
	}
}
