package core

import (
	"context"
	"errors"
	"testing"

	"github.com/kaimin86/credit-rating-deploy/internal/iocache"
	"github.com/kaimin86/credit-rating-deploy/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEngine_NoOverridesKeepsModelRating(t *testing.T) {
	e := newTestEngine(t, flatModel(21.7, zrow("Japan", 2024, nil, nil)), seedLedger(t, "Japan"))

	res, err := e.Rate(context.Background(), "Japan", 2024)
	require.NoError(t, err)
	assert.InDelta(t, 21.7, res.ModelRating, 1e-12)
	assert.Equal(t, res.ModelRating, res.FinalRating)
	assert.Zero(t, res.AdjustmentTotal)
	assert.Equal(t, "AAA", res.FinalLetter)
	assert.Equal(t, schema.OverridesLoaded, res.Overrides)
}

func TestEngine_ClampsAboveScale(t *testing.T) {
	e := newTestEngine(t, flatModel(23.4, zrow("Japan", 2024, nil, nil)), seedLedger(t, "Japan"))

	res, err := e.Rate(context.Background(), "Japan", 2024)
	require.NoError(t, err)
	assert.InDelta(t, 23.4, res.ModelRating, 1e-12)
	assert.Equal(t, 22.0, res.FinalRating)
	assert.Equal(t, "AAA", res.FinalLetter)
	assert.Equal(t, "AAA", res.ModelLetter)
}

func TestEngine_ChildAdjustmentsRollUp(t *testing.T) {
	ledger := seedLedger(t, "Japan",
		schema.PartitionRow{Year: 2024, ShortName: "default_hist", Adjustment: "1"},
		schema.PartitionRow{Year: 2024, ShortName: "default_decay", Adjustment: "-0.5"},
	)
	e := newTestEngine(t, flatModel(10, zrow("Japan", 2024, nil, nil)), ledger)

	res, err := e.Rate(context.Background(), "Japan", 2024)
	require.NoError(t, err)
	assert.Equal(t, 0.5, res.Adjustments["default_factor"])
	assert.Equal(t, 1.0, res.Adjustments["default_hist"])
	assert.Equal(t, 0.5, res.AdjustmentTotal)
	assert.Equal(t, 10.5, res.FinalRating)
}

func TestEngine_Reconcile(t *testing.T) {
	ledger := seedLedger(t, "Japan",
		schema.PartitionRow{Year: 2024, ShortName: "governance_factor", Adjustment: "5", Comment: "should not count"},
		schema.PartitionRow{Year: 2024, ShortName: "rule_law", Adjustment: "0.25"},
		schema.PartitionRow{Year: 2024, ShortName: "mystery_key", Adjustment: "9"},
		schema.PartitionRow{Year: 2024, ShortName: "const", Adjustment: "9"},
		schema.PartitionRow{Year: 2024, ShortName: "wealth_factor", Adjustment: "bad"},
		schema.PartitionRow{Year: 2024, ShortName: "size_factor", Adjustment: "-1", Comment: "smaller"},
		schema.PartitionRow{Year: 2023, ShortName: "size_factor", Adjustment: "7"},
	)
	logger, buf := bufferLogger()
	e := newTestEngine(t, flatModel(12, zrow("Japan", 2024, nil, nil)), ledger, WithLogger(logger))

	res, err := e.Rate(context.Background(), "Japan", 2024)
	require.NoError(t, err)

	assert.Equal(t, 0.25, res.Adjustments["governance_factor"])
	assert.Equal(t, -0.75, res.AdjustmentTotal)
	assert.Equal(t, 11.25, res.FinalRating)
	assert.NotContains(t, res.Adjustments, "mystery_key")
	assert.NotContains(t, res.Adjustments, "const")
	assert.Equal(t, "smaller", res.Comments["size_factor"])
	assert.Equal(t, "should not count", res.Comments["governance_factor"])
	require.Len(t, res.Malformed, 1)
	assert.Equal(t, "wealth_factor", res.Malformed[0].ShortKey)

	for _, key := range testCatalog.FactorKeys() {
		assert.Contains(t, res.Adjustments, key)
	}

	log := buf.String()
	assert.Contains(t, log, "superseded by its children")
	assert.Contains(t, log, "key=mystery_key")
}

func TestEngine_OverrideFaults(t *testing.T) {
	static := flatModel(14, zrow("Japan", 2024, nil, nil))

	t.Run("partition not found", func(t *testing.T) {
		e := newTestEngine(t, static, iocache.NewMemoryPartitionStore())
		res, err := e.Rate(context.Background(), "Japan", 2024)
		require.NoError(t, err)
		assert.Equal(t, schema.OverridesNoPartition, res.Overrides)
		assert.Equal(t, 14.0, res.FinalRating)
		assert.Empty(t, res.OverridesError)
	})

	t.Run("transport failure", func(t *testing.T) {
		ledger := &iocache.MockPartitionStore{}
		ledger.On("Open", mock.Anything, "Japan").Return(schema.PartitionHandle{}, errors.New("quota exceeded"))

		e := newTestEngine(t, static, ledger)
		res, err := e.Rate(context.Background(), "Japan", 2024)
		require.NoError(t, err)
		assert.Equal(t, schema.OverridesUnavailable, res.Overrides)
		assert.Contains(t, res.OverridesError, "quota exceeded")
		assert.Equal(t, 14.0, res.ModelRating)
		assert.Equal(t, 14.0, res.FinalRating)
		assert.Equal(t, "BBB", res.FinalLetter)
		assert.Len(t, res.FactorTable, 19)
	})
}

func TestEngine_ConfigurationErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("no Z-score row", func(t *testing.T) {
		e := newTestEngine(t, flatModel(10, zrow("Japan", 2024, nil, nil)), seedLedger(t, "Japan"))
		_, err := e.Rate(ctx, "Japan", 2019)
		var ce *schema.ConfigurationError
		require.ErrorAs(t, err, &ce)
		assert.ErrorIs(t, err, schema.ErrNoData)
		assert.Equal(t, 2019, ce.Year)
	})

	t.Run("unknown country for latest year", func(t *testing.T) {
		e := newTestEngine(t, flatModel(10, zrow("Japan", 2024, nil, nil)), seedLedger(t, "Japan"))
		_, err := e.Rate(ctx, "Atlantis", 0)
		assert.ErrorIs(t, err, schema.ErrNoData)
	})

	t.Run("missing coefficient", func(t *testing.T) {
		m := flatModel(10, zrow("Japan", 2024, nil, nil))
		delete(m.Coefficients, "size_factor")
		e := newTestEngine(t, m, seedLedger(t, "Japan"))
		_, err := e.Rate(ctx, "Japan", 2024)
		assert.True(t, schema.IsConfigurationError(err))
	})

	t.Run("bad scale", func(t *testing.T) {
		m := flatModel(10)
		m.Scale = []schema.RatingScaleEntry{{Notch: 40, Letter: "Z"}}
		_, err := NewEngine(m.Build(), iocache.NewMemoryPartitionStore())
		assert.True(t, schema.IsConfigurationError(err))
	})
}

func TestEngine_ResolveYear(t *testing.T) {
	e := newTestEngine(t, flatModel(10, zrow("Japan", 2022, nil, nil), zrow("Japan", 2024, nil, nil), zrow("Chile", 2023, nil, nil)), seedLedger(t, "Japan"))

	year, err := e.ResolveYear("Japan", 0)
	require.NoError(t, err)
	assert.Equal(t, 2024, year)

	year, err = e.ResolveYear("Japan", 2022)
	require.NoError(t, err)
	assert.Equal(t, 2022, year)

	res, err := e.Rate(context.Background(), "Chile", 0)
	require.NoError(t, err)
	assert.Equal(t, 2023, res.Year)
}

func TestEngine_Agencies(t *testing.T) {
	m := flatModel(10, zrow("Japan", 2024, fptr(17), nil), zrow("Japan", 2023, nil, nil))
	m.Agencies = map[schema.CountryYear]schema.AgencyRatings{
		{Country: "Japan", Year: 2024}: {SP: "A+", Moodys: "A1", Fitch: "A"},
	}
	e := newTestEngine(t, m, seedLedger(t, "Japan"))

	res, err := e.Rate(context.Background(), "Japan", 2024)
	require.NoError(t, err)
	assert.Equal(t, "A1", res.Agencies.Moodys)
	require.NotNil(t, res.PublicRating)
	assert.Equal(t, 17.0, *res.PublicRating)

	res, err = e.Rate(context.Background(), "Japan", 2023)
	require.NoError(t, err)
	assert.Equal(t, schema.AgencyRatings{SP: "NR", Moodys: "NR", Fitch: "NR"}, res.Agencies)
	assert.Nil(t, res.PublicRating)
}

func TestEngine_Simulate(t *testing.T) {
	ctx := context.Background()
	ledger := seedLedger(t, "Japan",
		schema.PartitionRow{Year: 2024, ShortName: "wealth_factor", Adjustment: "1", Comment: "rich"},
	)
	e := newTestEngine(t, flatModel(10, zrow("Japan", 2024, nil, nil)), ledger)

	res, err := e.Simulate(ctx, "Japan", 2024, map[string]float64{"wealth_factor": -1, "gov_eff": 2})
	require.NoError(t, err)
	assert.Equal(t, -1.0, res.Adjustments["wealth_factor"])
	assert.Equal(t, "rich", res.Comments["wealth_factor"])
	assert.Equal(t, 2.0, res.Adjustments["governance_factor"])
	assert.Equal(t, 11.0, res.FinalRating)

	// Nothing was persisted
	stored, err := e.Overrides(ctx, "Japan", 2024)
	require.NoError(t, err)
	assert.Equal(t, []schema.OverrideRecord{{ShortKey: "wealth_factor", Adjustment: 1, Comment: "rich"}}, stored.Records)

	tests := []struct {
		name   string
		whatIf map[string]float64
		want   error
	}{
		{"rollup parent", map[string]float64{"governance_factor": 1}, schema.ErrNotEditable},
		{"sentinel", map[string]float64{schema.FinalRatingKey: 1}, schema.ErrNotEditable},
		{"unknown", map[string]float64{"vibes": 1}, schema.ErrUnknownKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Simulate(ctx, "Japan", 2024, tt.whatIf)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEngine_SaveOverrides(t *testing.T) {
	ctx := context.Background()
	static := flatModel(10, zrow("Japan", 2024, nil, nil))

	t.Run("normalizes and invalidates", func(t *testing.T) {
		inner := seedLedger(t, "Japan", schema.PartitionRow{Year: 2023, ShortName: "size_factor", Adjustment: "2"})
		cached := iocache.NewCachedPartitionStore(inner)
		e := newTestEngine(t, static, cached)

		// Prime the read-through cache
		res, err := e.Rate(ctx, "Japan", 2024)
		require.NoError(t, err)
		assert.Zero(t, res.AdjustmentTotal)

		saved, err := e.SaveOverrides(ctx, "Japan", 2024, []schema.OverrideRecord{
			{ShortKey: " wealth_factor ", Adjustment: 1},
			{ShortKey: "gov_eff", Adjustment: 0},
			{ShortKey: "pol_stab", Adjustment: 0, Comment: " note "},
			{ShortKey: "wealth_factor", Adjustment: 2, Comment: "revised"},
		})
		require.NoError(t, err)
		assert.Equal(t, []schema.OverrideRecord{
			{ShortKey: "wealth_factor", Adjustment: 2, Comment: "revised"},
			{ShortKey: "pol_stab", Adjustment: 0, Comment: "note"},
		}, saved)

		res, err = e.Rate(ctx, "Japan", 2024)
		require.NoError(t, err)
		assert.Equal(t, 2.0, res.AdjustmentTotal, "the save invalidated the cached partition")

		rows, err := inner.ReadRows(ctx, schema.PartitionHandle{Country: "Japan"})
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("explicit invalidator", func(t *testing.T) {
		inv := &recordingInvalidator{}
		e := newTestEngine(t, static, seedLedger(t, "Japan"), WithInvalidator(inv))
		_, err := e.SaveOverrides(ctx, "Japan", 2024, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"Japan"}, inv.countries)
	})

	t.Run("rejections", func(t *testing.T) {
		inv := &recordingInvalidator{}
		e := newTestEngine(t, static, seedLedger(t, "Japan"), WithInvalidator(inv))

		tests := []struct {
			name    string
			country string
			year    int
			records []schema.OverrideRecord
			want    error
		}{
			{"rollup parent", "Japan", 2024, []schema.OverrideRecord{{ShortKey: "default_factor", Adjustment: 1}}, schema.ErrNotEditable},
			{"constant", "Japan", 2024, []schema.OverrideRecord{{ShortKey: "const", Adjustment: 1}}, schema.ErrNotEditable},
			{"header", "Japan", 2024, []schema.OverrideRecord{{ShortKey: "eco_header", Adjustment: 1}}, schema.ErrUnknownKey},
			{"unknown", "Japan", 2024, []schema.OverrideRecord{{ShortKey: "nope", Adjustment: 1}}, schema.ErrUnknownKey},
			{"not provisioned", "Chile", 2024, nil, schema.ErrPartitionNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := e.SaveOverrides(ctx, tt.country, tt.year, tt.records)
				assert.ErrorIs(t, err, tt.want)
			})
		}

		_, err := e.SaveOverrides(ctx, "Japan", 0, nil)
		assert.ErrorContains(t, err, "year is required")

		assert.Empty(t, inv.countries, "failed saves never invalidate")
	})
}

func TestEngine_Tables(t *testing.T) {
	ledger := seedLedger(t, "Japan",
		schema.PartitionRow{Year: 2024, ShortName: "default_hist", Adjustment: "1", Comment: "past default"},
		schema.PartitionRow{Year: 2024, ShortName: "wealth_factor", Adjustment: "0.5"},
	)
	m := flatModel(10, zrow("Japan", 2024, nil, map[string]float64{"wealth_factor": 2}))
	m.Raw = []schema.Observation{{Country: "Japan", Year: 2024, Values: map[string]float64{"ngdp_pc": 34000, "default_hist": 1}}}
	e := newTestEngine(t, m, ledger)

	res, err := e.Rate(context.Background(), "Japan", 2024)
	require.NoError(t, err)

	factors := res.FactorTable
	require.Len(t, factors, 19)
	assert.Equal(t, schema.ConstNode, factors[0].Kind)
	assert.Equal(t, "eco_header", factors[1].Key)
	assert.Equal(t, "wealth_factor", factors[2].Key)
	assert.Equal(t, 2.0, *factors[2].Notch)
	assert.Equal(t, 0.5, *factors[2].Adjustment)
	assert.True(t, factors[2].Editable.Adjustment)

	var headers, factorRows int
	for _, r := range factors {
		switch r.Kind {
		case schema.HeaderNode:
			headers++
			assert.False(t, r.Editable.Adjustment)
		case schema.FactorNode, schema.RollupNode:
			factorRows++
		}
	}
	assert.Equal(t, 5, headers)
	assert.Equal(t, 11, factorRows)

	predicted, final := factors[17], factors[18]
	assert.Equal(t, schema.PredictedRatingKey, predicted.Key)
	assert.Equal(t, 12.0, *predicted.Notch)
	assert.Equal(t, 1.5, *predicted.Adjustment)
	assert.Equal(t, schema.FinalRatingKey, final.Key)
	assert.Equal(t, 13.5, *final.Notch)
	assert.Equal(t, res.FinalLetter, final.Letter)
	assert.False(t, final.Editable.Adjustment)

	constituents := res.ConstituentTable
	require.Len(t, constituents, 28)
	kinds := map[schema.NodeKind]int{}
	for _, r := range constituents {
		kinds[r.Kind]++
	}
	assert.Equal(t, 4, kinds[schema.HeaderNode])
	assert.Equal(t, 7, kinds[schema.FactorNode])
	assert.Equal(t, 4, kinds[schema.RollupNode])
	assert.Equal(t, 13, kinds[schema.LeafNode])

	var hist, parent, wealth schema.TableRow
	for _, r := range constituents {
		switch r.Key {
		case "default_hist":
			hist = r
		case "default_factor":
			parent = r
		case "wealth_factor":
			wealth = r
		}
	}
	assert.Equal(t, 1.0, *hist.Adjustment)
	assert.Equal(t, "past default", hist.Comment)
	assert.Equal(t, 1.0, *hist.RawValue)
	assert.True(t, hist.Editable.Adjustment)
	assert.Equal(t, 1.0, *parent.Adjustment)
	assert.False(t, parent.Editable.Adjustment)
	assert.Equal(t, 34000.0, *wealth.RawValue)
}

func BenchmarkRate(b *testing.B) {
	ledger := seedLedger(b, "Japan",
		schema.PartitionRow{Year: 2024, ShortName: "default_hist", Adjustment: "1"},
		schema.PartitionRow{Year: 2024, ShortName: "gov_eff", Adjustment: "-0.5"},
	)
	e := newTestEngine(b, flatModel(10, zrow("Japan", 2024, nil, map[string]float64{"wealth_factor": 1.2})), ledger)
	ctx := context.Background()
	for b.Loop() {
		_, _ = e.Rate(ctx, "Japan", 2024)
	}
}

func TestEngine_DropReadOnly(t *testing.T) {
	logger, buf := bufferLogger()
	e := newTestEngine(t, flatModel(10, zrow("Japan", 2024, nil, nil)), seedLedger(t, "Japan"), WithLogger(logger))

	kept := e.DropReadOnly("Japan", 2024, []schema.OverrideRecord{
		{ShortKey: schema.ConstKey, Adjustment: 1},
		{ShortKey: "default_factor", Adjustment: 0.5},
		{ShortKey: "wealth_factor", Adjustment: 1, Comment: "kept"},
		{ShortKey: schema.PredictedRatingKey, Adjustment: 14},
		{ShortKey: "mystery_key", Adjustment: 2},
		{ShortKey: " ", Adjustment: 3},
		{ShortKey: "default_hist", Adjustment: -1},
	})
	assert.Equal(t, []schema.OverrideRecord{
		{ShortKey: "wealth_factor", Adjustment: 1, Comment: "kept"},
		{ShortKey: "default_hist", Adjustment: -1},
	}, kept)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	for _, key := range []string{"const", "default_factor", "predicted_rating", "mystery_key"} {
		assert.Contains(t, out, "key="+key)
	}
	assert.NotContains(t, out, "key=wealth_factor")

	// Naming a read-only key explicitly still fails
	_, err := e.SaveOverrides(context.Background(), "Japan", 2024, []schema.OverrideRecord{{ShortKey: "default_factor", Adjustment: 1}})
	assert.ErrorIs(t, err, schema.ErrNotEditable)
}
