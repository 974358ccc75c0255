package core

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/kaimin86/credit-rating-deploy/core/algo"
	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/schema"
)

// RatingScale maps numeric ratings to letter grades.
type RatingScale struct {
	entries []schema.RatingScaleEntry
	letters map[int]string
}

// NewRatingScale validates a scale table. Notches outside [1, 22], duplicates and blank
// letters are configuration errors. Gaps are allowed and logged, since a lookup miss
// degrades to the unknown marker.
func NewRatingScale(entries []schema.RatingScaleEntry, logger *slog.Logger) (*RatingScale, error) {
	logger = contract.LoggerOrDefault(logger)
	s := &RatingScale{letters: make(map[int]string, len(entries))}
	for _, e := range entries {
		if e.Notch < schema.MinNotch || e.Notch > schema.MaxNotch {
			return nil, &schema.ConfigurationError{Table: "rating_scale", Reason: fmt.Sprintf("notch %d outside [%d, %d]", e.Notch, schema.MinNotch, schema.MaxNotch)}
		}
		if e.Letter == "" {
			return nil, &schema.ConfigurationError{Table: "rating_scale", Reason: fmt.Sprintf("notch %d has no letter", e.Notch)}
		}
		if prev, dup := s.letters[e.Notch]; dup {
			return nil, &schema.ConfigurationError{Table: "rating_scale", Reason: fmt.Sprintf("notch %d mapped twice (%s, %s)", e.Notch, prev, e.Letter)}
		}
		s.letters[e.Notch] = e.Letter
		s.entries = append(s.entries, e)
	}
	slices.SortFunc(s.entries, func(a, b schema.RatingScaleEntry) int { return a.Notch - b.Notch })

	for n := schema.MinNotch; n <= schema.MaxNotch; n++ {
		if _, ok := s.letters[n]; !ok {
			logger.Warn("rating scale has no letter for notch", "notch", n)
		}
	}
	return s, nil
}

// ToLetter rounds value half away from zero, clamps it into the scale and returns its
// letter. It never fails: an unmapped notch or NaN yields schema.UnknownLetter.
func (s *RatingScale) ToLetter(value float64) string {
	if l, ok := s.Letter(algo.Notch(value)); ok {
		return l
	}
	return schema.UnknownLetter
}

// Letter looks up an integer notch.
func (s *RatingScale) Letter(notch int) (string, bool) {
	l, ok := s.letters[notch]
	return l, ok
}

// Entries returns the table ordered by notch.
func (s *RatingScale) Entries() []schema.RatingScaleEntry { return slices.Clone(s.entries) }
