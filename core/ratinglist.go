package core

import (
	"context"
	"slices"
	"strings"

	"github.com/kaimin86/credit-rating-deploy/core/algo"
	"github.com/kaimin86/credit-rating-deploy/schema"
)

// LatestYear returns the most recent year with any Z-score row.
func (e *Engine) LatestYear() (int, bool) {
	latest := 0
	for _, c := range e.static.Countries() {
		if ys := e.static.Years(c); len(ys) > 0 && ys[len(ys)-1] > latest {
			latest = ys[len(ys)-1]
		}
	}
	return latest, latest > 0
}

// RatingList rates every country with a Z-score row for year (0 = latest) and returns
// them ordered by final rating, best first, then by country. A country whose overrides
// are unavailable is listed with a zero adjustment and flagged.
func (e *Engine) RatingList(ctx context.Context, year int) ([]schema.RatingListEntry, error) {
	if year == 0 {
		latest, ok := e.LatestYear()
		if !ok {
			return nil, schema.ErrNoData
		}
		year = latest
	}

	var entries []schema.RatingListEntry
	for _, country := range e.static.Countries() {
		z, ok := e.static.ZScores(country, year)
		if !ok {
			continue
		}
		model, err := e.model.Compute(z, e.static.Coefficients())
		if err != nil {
			return nil, err
		}

		entry := schema.RatingListEntry{
			Country:      country,
			PublicRating: z.PublicRating,
			ModelRating:  model.ModelRating,
		}
		loaded, err := NewOverrideStore(e.transport, country, e.logger).Load(ctx, year)
		if err != nil {
			e.logger.Warn("overrides unavailable for rating list", "country", country, "year", year, "error", err)
			loaded = LoadResult{Status: schema.OverridesUnavailable}
		}
		entry.Overrides = loaded.Status

		adjustments, _ := e.reconcile(country, year, loaded.Records)
		terms := make([]float64, 0, len(adjustments))
		for _, key := range e.catalog.FactorKeys() {
			terms = append(terms, adjustments[key])
		}
		entry.Adjustment = algo.OrderedSum(terms)
		entry.FinalRating = algo.ClampRating(entry.ModelRating + entry.Adjustment)

		entry.FinalLetter = schema.ListUnknown
		if l, ok := e.scale.Letter(algo.Notch(entry.FinalRating)); ok {
			entry.FinalLetter = l
		}
		entry.DistanceLowerBound = algo.DistanceToLowerBound(entry.FinalRating)
		entry.ERVLine = algo.ERVLine(entry.DistanceLowerBound, schema.ERVWidth)

		if cov, ok := e.static.Coverage(country); ok {
			entry.InERV = cov.InERV
			entry.Analyst = cov.Analyst
		}
		entries = append(entries, entry)
	}

	slices.SortStableFunc(entries, func(a, b schema.RatingListEntry) int {
		switch {
		case a.FinalRating > b.FinalRating:
			return -1
		case a.FinalRating < b.FinalRating:
			return 1
		}
		return strings.Compare(a.Country, b.Country)
	})
	return entries, nil
}
