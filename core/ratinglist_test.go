package core

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/kaimin86/credit-rating-deploy/core/algo"
	"github.com/kaimin86/credit-rating-deploy/internal/iocache"
	"github.com/kaimin86/credit-rating-deploy/internal/staticdata"
	"github.com/kaimin86/credit-rating-deploy/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// listModel rates Japan 18, Chile 14.25, Peru 14.25 and Kenya 8 in 2024.
func listModel() staticdata.Memory {
	w := func(v float64) map[string]float64 { return map[string]float64{"wealth_factor": v} }
	m := flatModel(0,
		zrow("Japan", 2023, fptr(17), w(17)),
		zrow("Japan", 2024, fptr(18), w(18)),
		zrow("Chile", 2024, fptr(16.6), w(14.25)),
		zrow("Peru", 2024, fptr(13), w(14.25)),
		zrow("Kenya", 2024, nil, w(8)),
	)
	m.Coverage = map[string]schema.Coverage{"Japan": {InERV: "Yes", Analyst: "KM"}}
	return m
}

func TestRatingList(t *testing.T) {
	ledger := seedLedger(t, "Japan", schema.PartitionRow{Year: 2024, ShortName: "wealth_factor", Adjustment: "0.5"})
	_, err := ledger.Provision(context.Background(), "Chile")
	require.NoError(t, err)
	e := newTestEngine(t, listModel(), ledger)

	entries, err := e.RatingList(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	countries := []string{entries[0].Country, entries[1].Country, entries[2].Country, entries[3].Country}
	assert.Equal(t, []string{"Japan", "Chile", "Peru", "Kenya"}, countries)

	japan := entries[0]
	assert.Equal(t, 18.0, japan.ModelRating)
	assert.Equal(t, 0.5, japan.Adjustment)
	assert.Equal(t, 18.5, japan.FinalRating)
	assert.Equal(t, "AA-", japan.FinalLetter)
	assert.Equal(t, 0.0, japan.DistanceLowerBound)
	assert.Equal(t, schema.ERVWidth, utf8.RuneCountInString(japan.ERVLine))
	assert.Equal(t, algo.ERVDot, string([]rune(japan.ERVLine)[schema.ERVWidth-1]))
	assert.Equal(t, "Yes", japan.InERV)
	assert.Equal(t, "KM", japan.Analyst)
	assert.Equal(t, schema.OverridesLoaded, japan.Overrides)

	chile := entries[1]
	assert.Equal(t, "BBB", chile.FinalLetter)
	assert.InDelta(t, 0.75, chile.DistanceLowerBound, 1e-12)
	assert.Equal(t, schema.OverridesLoaded, chile.Overrides)
	assert.Equal(t, schema.OverridesNoPartition, entries[2].Overrides)
	assert.Nil(t, entries[3].PublicRating)

	past, err := e.RatingList(context.Background(), 2023)
	require.NoError(t, err)
	require.Len(t, past, 1)
	assert.Equal(t, 17.0, past[0].FinalRating)

	none, err := e.RatingList(context.Background(), 1990)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRatingList_UnknownLetter(t *testing.T) {
	m := flatModel(0, zrow("Norway", 2024, nil, map[string]float64{"wealth_factor": 25}))
	m.Scale = schema.DefaultRatingScale()[:21]
	e := newTestEngine(t, m, iocache.NewMemoryPartitionStore())

	entries, err := e.RatingList(context.Background(), 2024)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 22.0, entries[0].FinalRating)
	assert.Equal(t, schema.ListUnknown, entries[0].FinalLetter)
	assert.Equal(t, 1.0, entries[0].DistanceLowerBound)
}

func TestRatingList_Unavailable(t *testing.T) {
	ledger := &iocache.MockPartitionStore{}
	ledger.On("Open", mock.Anything, "Japan").Return(schema.PartitionHandle{}, errors.New("timeout"))
	ledger.On("Open", mock.Anything, mock.Anything).Return(schema.PartitionHandle{}, schema.ErrPartitionNotFound)
	e := newTestEngine(t, listModel(), ledger)

	entries, err := e.RatingList(context.Background(), 2024)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "Japan", entries[0].Country)
	assert.Equal(t, schema.OverridesUnavailable, entries[0].Overrides)
	assert.Zero(t, entries[0].Adjustment)
	assert.Equal(t, 18.0, entries[0].FinalRating)
}

func TestRatingList_NoData(t *testing.T) {
	e := newTestEngine(t, flatModel(0), iocache.NewMemoryPartitionStore())
	_, err := e.RatingList(context.Background(), 0)
	assert.ErrorIs(t, err, schema.ErrNoData)

	_, ok := e.LatestYear()
	assert.False(t, ok)
}
