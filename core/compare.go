package core

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kaimin86/credit-rating-deploy/core/algo"
	"github.com/kaimin86/credit-rating-deploy/schema"
)

// FindBucket looks up a peer bucket by name, ignoring case.
func FindBucket(name string) (schema.RatingBucket, error) {
	for _, b := range schema.RatingBuckets() {
		if strings.EqualFold(b.Name, strings.TrimSpace(name)) {
			return b, nil
		}
	}
	names := make([]string, 0, len(schema.RatingBuckets()))
	for _, b := range schema.RatingBuckets() {
		names = append(names, b.Name)
	}
	return schema.RatingBucket{}, fmt.Errorf("unknown rating bucket %q. must be one of %s", name, strings.Join(names, ", "))
}

// Peers compares the model with the public rating for every country whose rounded
// public rating falls inside bucket in year (0 = latest). Countries without a public
// rating are skipped. The result is ordered by public rating, best first.
func (e *Engine) Peers(_ context.Context, year int, bucketName string) ([]schema.PeerEntry, error) {
	bucket, err := FindBucket(bucketName)
	if err != nil {
		return nil, err
	}
	if year == 0 {
		latest, ok := e.LatestYear()
		if !ok {
			return nil, schema.ErrNoData
		}
		year = latest
	}

	var peers []schema.PeerEntry
	for _, country := range e.static.Countries() {
		z, ok := e.static.ZScores(country, year)
		if !ok || z.PublicRating == nil {
			continue
		}
		public := *z.PublicRating
		notch := int(algo.Clamp(algo.Round(public), 0, schema.MaxNotch))
		if notch < bucket.Low || notch > bucket.High {
			continue
		}
		model, err := e.model.Compute(z, e.static.Coefficients())
		if err != nil {
			return nil, err
		}
		peers = append(peers, schema.PeerEntry{
			Country:      country,
			PublicRating: public,
			PublicLetter: e.scale.ToLetter(public),
			ModelRating:  model.ModelRating,
			ModelLetter:  e.scale.ToLetter(model.ModelRating),
			Gap:          model.ModelRating - public,
			Notches:      model.NotchMap(),
		})
	}

	slices.SortStableFunc(peers, func(a, b schema.PeerEntry) int {
		switch {
		case a.PublicRating > b.PublicRating:
			return -1
		case a.PublicRating < b.PublicRating:
			return 1
		}
		return strings.Compare(a.Country, b.Country)
	})
	return peers, nil
}

// History compares the model with the public rating for every year of country.
func (e *Engine) History(_ context.Context, country string) ([]schema.HistoryPoint, error) {
	years := e.static.Years(country)
	if len(years) == 0 {
		return nil, fmt.Errorf("%w for country %q", schema.ErrNoData, country)
	}
	points := make([]schema.HistoryPoint, 0, len(years))
	for _, year := range years {
		z, _ := e.static.ZScores(country, year)
		model, err := e.model.Compute(z, e.static.Coefficients())
		if err != nil {
			return nil, err
		}
		p := schema.HistoryPoint{Year: year, ModelRating: model.ModelRating, PublicRating: z.PublicRating}
		if z.PublicRating != nil {
			gap := model.ModelRating - *z.PublicRating
			p.Gap = &gap
		}
		points = append(points, p)
	}
	return points, nil
}
