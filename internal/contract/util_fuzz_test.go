package contract

import (
	"testing"
	"unicode/utf8"
)

// FuzzTruncateText checks that truncation never grows the text and never splits a rune.
func FuzzTruncateText(f *testing.F) {
	seeds := []struct {
		text  string
		width int
	}{
		{"Nominal GDP per capita (US$)", 10},
		{"Voice & Accountability (Z-score)", 4},
		{"", 0},
		{"Côte d'Ivoire", 6},
		{"short", 100},
	}
	for _, seed := range seeds {
		f.Add(seed.text, seed.width)
	}

	f.Fuzz(func(t *testing.T, text string, width int) {
		if !utf8.ValidString(text) {
			return
		}
		out := TruncateText(text, width)
		if utf8.RuneCountInString(out) > utf8.RuneCountInString(text) {
			t.Fatalf("TruncateText(%q, %d) grew to %q", text, width, out)
		}
		if !utf8.ValidString(out) {
			t.Fatalf("TruncateText(%q, %d) produced invalid UTF-8", text, width)
		}
	})
}

// FuzzParseBoolString checks that parsing never panics and accepts only the documented words.
func FuzzParseBoolString(f *testing.F) {
	for _, seed := range []string{"yes", "NO", "true", "False", "1", "0", "", "maybe"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		v, err := ParseBoolString(s)
		if err != nil && v {
			t.Fatalf("ParseBoolString(%q) returned true with an error", s)
		}
	})
}
