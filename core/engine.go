package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/kaimin86/credit-rating-deploy/core/algo"
	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/schema"
)

// Engine computes ratings for one set of static tables and one override transport.
// It keeps no per-request state, so one Engine serves concurrent requests.
type Engine struct {
	static      contract.StaticSource
	transport   contract.PartitionTransport
	invalidator contract.CacheInvalidator
	catalog     *schema.Catalog
	scale       *RatingScale
	model       *FactorModel
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithInvalidator sets the hook called after every successful save.
// A transport that implements contract.CacheInvalidator is used by default.
func WithInvalidator(inv contract.CacheInvalidator) Option {
	return func(e *Engine) { e.invalidator = inv }
}

// NewEngine validates the rating scale of static and wires the components together.
func NewEngine(static contract.StaticSource, transport contract.PartitionTransport, opts ...Option) (*Engine, error) {
	e := &Engine{static: static, transport: transport, catalog: static.Catalog()}
	if inv, ok := transport.(contract.CacheInvalidator); ok {
		e.invalidator = inv
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = contract.LoggerOrDefault(e.logger)

	scale, err := NewRatingScale(static.RatingScale(), e.logger)
	if err != nil {
		return nil, err
	}
	e.scale = scale
	e.model = NewFactorModel(e.catalog)
	return e, nil
}

// Catalog returns the catalog the engine rates with.
func (e *Engine) Catalog() *schema.Catalog { return e.catalog }

// Scale returns the validated rating scale.
func (e *Engine) Scale() *RatingScale { return e.scale }

// Static returns the static tables.
func (e *Engine) Static() contract.StaticSource { return e.static }

// ResolveYear maps year 0 to the latest year with a Z-score row for country.
func (e *Engine) ResolveYear(country string, year int) (int, error) {
	if year != 0 {
		return year, nil
	}
	years := e.static.Years(country)
	if len(years) == 0 {
		return 0, fmt.Errorf("%w for country %q", schema.ErrNoData, country)
	}
	return years[len(years)-1], nil
}

// Rate computes the rating of (country, year) with the stored overrides.
func (e *Engine) Rate(ctx context.Context, country string, year int) (*schema.RatingResult, error) {
	return e.Simulate(ctx, country, year, nil)
}

// Simulate computes the rating of (country, year) with whatIf adjustments laid over the
// stored overrides for this request only. What-if keys follow the same editability rules
// as saved overrides.
//
// Static input problems abort with a ConfigurationError. Override problems never do:
// a missing partition rates with zero overrides and a transport failure rates the model
// alone, both flagged in the result.
func (e *Engine) Simulate(ctx context.Context, country string, year int, whatIf map[string]float64) (*schema.RatingResult, error) {
	year, err := e.ResolveYear(country, year)
	if err != nil {
		return nil, err
	}
	if err := e.checkEditable(whatIf); err != nil {
		return nil, err
	}

	z, ok := e.static.ZScores(country, year)
	if !ok {
		return nil, &schema.ConfigurationError{Table: "zscores", Country: country, Year: year, Reason: "no row", Err: schema.ErrNoData}
	}
	model, err := e.model.Compute(z, e.static.Coefficients())
	if err != nil {
		return nil, err
	}

	result := &schema.RatingResult{
		Country:      country,
		Year:         year,
		ModelRating:  model.ModelRating,
		Notches:      model.Notches,
		PublicRating: z.PublicRating,
		Agencies:     schema.AgencyRatings{SP: schema.NotRated, Moodys: schema.NotRated, Fitch: schema.NotRated},
	}
	if a, ok := e.static.Agencies(country, year); ok {
		result.Agencies = a
	}

	loaded, err := NewOverrideStore(e.transport, country, e.logger).Load(ctx, year)
	if err != nil {
		e.logger.Warn("overrides unavailable, rating model only", "country", country, "year", year, "error", err)
		loaded = LoadResult{Status: schema.OverridesUnavailable}
		result.OverridesError = err.Error()
	}
	result.Overrides = loaded.Status
	result.Malformed = loaded.Malformed

	records := overlay(loaded.Records, whatIf)
	adjustments, comments := e.reconcile(country, year, records)
	result.Adjustments = adjustments
	result.Comments = comments

	terms := make([]float64, 0, len(model.Notches))
	for _, key := range e.catalog.FactorKeys() {
		terms = append(terms, adjustments[key])
	}
	result.AdjustmentTotal = algo.OrderedSum(terms)
	result.FinalRating = algo.ClampRating(model.ModelRating + result.AdjustmentTotal)
	result.ModelLetter = e.scale.ToLetter(model.ModelRating)
	result.FinalLetter = e.scale.ToLetter(result.FinalRating)

	in := tableInput{
		catalog:     e.catalog,
		model:       model,
		zscores:     z,
		adjustments: adjustments,
		comments:    comments,
		modelLetter: result.ModelLetter,
		finalLetter: result.FinalLetter,
		total:       result.AdjustmentTotal,
		final:       result.FinalRating,
	}
	if raw, ok := e.static.RawValues(country, year); ok {
		in.raw = raw
	}
	result.FactorTable = buildFactorTable(in)
	result.ConstituentTable = buildConstituentTable(in)
	return result, nil
}

// reconcile turns override records into per-key adjustments and comments. Unknown and
// sentinel keys are dropped, and rollup parents always take the sum of their children.
func (e *Engine) reconcile(country string, year int, records []schema.OverrideRecord) (map[string]float64, map[string]string) {
	adjustments := map[string]float64{}
	comments := map[string]string{}
	var kept []schema.OverrideRecord

	for _, r := range records {
		switch {
		case !e.catalog.Known(r.ShortKey):
			e.logger.Warn("ignoring override for unknown key", "country", country, "year", year, "key", r.ShortKey)
			continue
		case e.catalog.IsRollupParent(r.ShortKey):
			if r.Adjustment != 0 {
				e.logger.Warn("direct adjustment on rollup parent superseded by its children",
					"country", country, "year", year, "key", r.ShortKey, "value", r.Adjustment)
			}
		default:
			adjustments[r.ShortKey] = r.Adjustment
			kept = append(kept, r)
		}
		if r.Comment != "" {
			comments[r.ShortKey] = r.Comment
		}
	}

	for parent, sum := range Rollup(kept, e.catalog.Rules()) {
		adjustments[parent] = sum
	}
	for _, key := range e.catalog.FactorKeys() {
		if _, ok := adjustments[key]; !ok {
			adjustments[key] = 0
		}
	}
	return adjustments, comments
}

// Overrides loads the stored records of (country, year).
func (e *Engine) Overrides(ctx context.Context, country string, year int) (LoadResult, error) {
	year, err := e.ResolveYear(country, year)
	if err != nil {
		return LoadResult{}, err
	}
	return NewOverrideStore(e.transport, country, e.logger).Load(ctx, year)
}

// SaveOverrides validates and normalizes records, then replaces the year's rows.
// Non-editable and unknown keys are rejected. Records that carry neither an adjustment
// nor a comment are dropped, and repeated keys keep the last record. The saved records
// are returned. After a successful write the read-through cache for country is
// invalidated, so the caller's next read is fresh.
func (e *Engine) SaveOverrides(ctx context.Context, country string, year int, records []schema.OverrideRecord) ([]schema.OverrideRecord, error) {
	if year <= 0 {
		return nil, fmt.Errorf("a year is required to save overrides, got %d", year)
	}
	normalized, err := e.Normalize(records)
	if err != nil {
		return nil, err
	}
	if err := NewOverrideStore(e.transport, country, e.logger).Save(ctx, year, normalized); err != nil {
		return nil, err
	}
	if e.invalidator != nil {
		e.invalidator.Invalidate(country)
	}
	e.logger.Info("overrides saved", "country", country, "year", year, "records", len(normalized))
	return normalized, nil
}

// Normalize applies the save rules to records without writing them.
func (e *Engine) Normalize(records []schema.OverrideRecord) ([]schema.OverrideRecord, error) {
	out := make([]schema.OverrideRecord, 0, len(records))
	position := map[string]int{}
	for _, r := range records {
		r.ShortKey = strings.TrimSpace(r.ShortKey)
		r.Comment = strings.TrimSpace(r.Comment)
		if err := e.checkKey(r.ShortKey); err != nil {
			return nil, err
		}
		if math.IsNaN(r.Adjustment) || math.IsInf(r.Adjustment, 0) {
			return nil, fmt.Errorf("adjustment for %s must be a finite number", r.ShortKey)
		}
		if at, dup := position[r.ShortKey]; dup {
			out[at] = r
			continue
		}
		position[r.ShortKey] = len(out)
		out = append(out, r)
	}

	pruned := out[:0]
	for _, r := range out {
		if r.Adjustment != 0 || r.Comment != "" {
			pruned = append(pruned, r)
		}
	}
	return pruned, nil
}

// DropReadOnly removes records whose key can never be saved: sentinels, headers, rollup
// parents and keys missing from the catalog. Each dropped key is logged at WARN.
// SaveOverrides still rejects such keys when a caller names them.
func (e *Engine) DropReadOnly(country string, year int, records []schema.OverrideRecord) []schema.OverrideRecord {
	out := make([]schema.OverrideRecord, 0, len(records))
	for _, r := range records {
		if e.savable(country, year, r.ShortKey) {
			out = append(out, r)
		}
	}
	return out
}

// savable reports whether key passes checkKey and logs the reason when it does not.
// Blank keys are dropped without a warning.
func (e *Engine) savable(country string, year int, key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	if err := e.checkKey(key); err != nil {
		e.logger.Warn("read-only override row dropped", "country", country, "year", year, "key", key, "reason", err)
		return false
	}
	return true
}

func (e *Engine) checkKey(key string) error {
	if !e.catalog.Known(key) && !schema.IsSentinelKey(key) {
		return fmt.Errorf("%w: %q", schema.ErrUnknownKey, key)
	}
	if !e.catalog.Editability(key).Adjustment {
		return fmt.Errorf("%w: %q", schema.ErrNotEditable, key)
	}
	return nil
}

func (e *Engine) checkEditable(whatIf map[string]float64) error {
	var errs []error
	for key, v := range whatIf {
		if err := e.checkKey(key); err != nil {
			errs = append(errs, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("what-if adjustment for %s must be a finite number", key))
		}
	}
	return errors.Join(errs...)
}

// overlay returns records with whatIf adjustments replacing or adding entries.
// Comments of replaced records are kept.
func overlay(records []schema.OverrideRecord, whatIf map[string]float64) []schema.OverrideRecord {
	if len(whatIf) == 0 {
		return records
	}
	out := make([]schema.OverrideRecord, 0, len(records)+len(whatIf))
	applied := map[string]bool{}
	for _, r := range records {
		if v, ok := whatIf[r.ShortKey]; ok {
			r.Adjustment = v
			applied[r.ShortKey] = true
		}
		out = append(out, r)
	}
	for _, key := range sortedKeys(whatIf) {
		if !applied[key] {
			out = append(out, schema.OverrideRecord{ShortKey: key, Adjustment: whatIf[key]})
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
