package core

import (
	"math"

	"github.com/kaimin86/credit-rating-deploy/core/algo"
	"github.com/kaimin86/credit-rating-deploy/schema"
)

// ModelOutput is the numeric half of a rating.
type ModelOutput struct {
	Notches     []schema.FactorNotch `json:"notches"` // canonical factor order
	Constant    float64              `json:"constant"`
	ModelRating float64              `json:"model_rating"`
}

// NotchMap returns the factor notches keyed by factor.
func (o ModelOutput) NotchMap() map[string]float64 {
	out := make(map[string]float64, len(o.Notches))
	for _, n := range o.Notches {
		out[n.Key] = n.Notch
	}
	return out
}

// FactorModel aggregates weighted factor notches into the model rating.
type FactorModel struct {
	catalog *schema.Catalog
}

// NewFactorModel creates a model over the catalog's factors.
func NewFactorModel(catalog *schema.Catalog) *FactorModel {
	return &FactorModel{catalog: catalog}
}

// Compute multiplies each factor's coefficient by its Z-score and sums the notches in
// canonical order (pillar order, then position), adding the constant last. A missing
// coefficient or Z-score for any factor is a ConfigurationError, never a zero.
func (m *FactorModel) Compute(z schema.Observation, coefficients schema.Coefficients) (ModelOutput, error) {
	keys := m.catalog.FactorKeys()
	out := ModelOutput{Notches: make([]schema.FactorNotch, 0, len(keys))}
	terms := make([]float64, 0, len(keys)+1)

	for _, key := range keys {
		coef, ok := finite(coefficients, key)
		if !ok {
			return ModelOutput{}, &schema.ConfigurationError{Table: "coefficients", Country: z.Country, Year: z.Year, Key: key, Reason: "missing coefficient"}
		}
		zs, ok := z.Value(key)
		if !ok || math.IsNaN(zs) || math.IsInf(zs, 0) {
			return ModelOutput{}, &schema.ConfigurationError{Table: "zscores", Country: z.Country, Year: z.Year, Key: key, Reason: "missing Z-score"}
		}
		notch := coef * zs
		out.Notches = append(out.Notches, schema.FactorNotch{Key: key, Coefficient: coef, ZScore: zs, Notch: notch})
		terms = append(terms, notch)
	}

	constant, ok := finite(coefficients, schema.ConstKey)
	if !ok {
		return ModelOutput{}, &schema.ConfigurationError{Table: "coefficients", Country: z.Country, Year: z.Year, Key: schema.ConstKey, Reason: "missing coefficient"}
	}
	out.Constant = constant * 1.0
	terms = append(terms, out.Constant)
	out.ModelRating = algo.OrderedSum(terms)
	return out, nil
}

func finite(c schema.Coefficients, key string) (float64, bool) {
	v, ok := c[key]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
