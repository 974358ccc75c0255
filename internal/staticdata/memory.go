package staticdata

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/kaimin86/credit-rating-deploy/schema"
)

// Memory describes static tables that are already in memory, e.g. in tests or
// when another process hands them over.
type Memory struct {
	Catalog      *schema.Catalog
	Scale        []schema.RatingScaleEntry
	Coefficients schema.Coefficients
	ZScores      []schema.Observation
	Raw          []schema.Observation
	Agencies     map[schema.CountryYear]schema.AgencyRatings
	Coverage     map[string]schema.Coverage
}

// Build indexes m into Tables. Missing catalog and scale fall back to the built-in ones.
func (m Memory) Build() *Tables {
	t := &Tables{
		catalog:      m.Catalog,
		scale:        slices.Clone(m.Scale),
		coefficients: m.Coefficients.Clone(),
		zscores:      index(m.ZScores),
		raw:          index(m.Raw),
		agencies:     maps.Clone(m.Agencies),
		coverage:     maps.Clone(m.Coverage),
		years:        map[string][]int{},
	}
	if t.catalog == nil {
		t.catalog = schema.DefaultCatalog()
	}
	if t.scale == nil {
		t.scale = schema.DefaultRatingScale()
	}
	if t.coefficients == nil {
		t.coefficients = schema.Coefficients{}
	}
	if t.agencies == nil {
		t.agencies = map[schema.CountryYear]schema.AgencyRatings{}
	}
	if t.coverage == nil {
		t.coverage = map[string]schema.Coverage{}
	}
	for cy := range t.zscores {
		t.years[cy.Country] = append(t.years[cy.Country], cy.Year)
	}
	for country, ys := range t.years {
		slices.Sort(ys)
		t.years[country] = ys
	}
	t.countries = slices.Sorted(maps.Keys(t.years))

	h := sha256.New()
	_ = json.NewEncoder(h).Encode(t.catalog.Spec())
	// fmt prints maps with sorted keys, so the digest is stable.
	fmt.Fprint(h, t.scale, t.coefficients, t.agencies, t.coverage)
	for _, series := range []map[schema.CountryYear]schema.Observation{t.zscores, t.raw} {
		for _, cy := range slices.SortedFunc(maps.Keys(series), compareCountryYear) {
			o := series[cy]
			fmt.Fprint(h, cy, o.Values)
			if o.PublicRating != nil {
				fmt.Fprint(h, *o.PublicRating)
			}
		}
	}
	t.fingerprint = hex.EncodeToString(h.Sum(nil))
	return t
}

func compareCountryYear(a, b schema.CountryYear) int {
	if c := strings.Compare(a.Country, b.Country); c != 0 {
		return c
	}
	return a.Year - b.Year
}

func index(rows []schema.Observation) map[schema.CountryYear]schema.Observation {
	out := make(map[schema.CountryYear]schema.Observation, len(rows))
	for _, o := range rows {
		if o.Values == nil {
			o.Values = map[string]float64{}
		}
		out[schema.CountryYear{Country: o.Country, Year: o.Year}] = o
	}
	return out
}
