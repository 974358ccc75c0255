package core

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/internal/iocache"
	"github.com/kaimin86/credit-rating-deploy/internal/staticdata"
	"github.com/kaimin86/credit-rating-deploy/schema"
	"github.com/stretchr/testify/require"
)

var testCatalog = schema.DefaultCatalog()

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

// bufferLogger returns a logger that records text output for assertions.
func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func fptr(v float64) *float64 { return &v }

// zrow builds a Z-score row with every factor present, 0 unless given.
func zrow(country string, year int, public *float64, values map[string]float64) schema.Observation {
	o := schema.Observation{Country: country, Year: year, PublicRating: public, Values: map[string]float64{}}
	for _, k := range testCatalog.FactorKeys() {
		o.Values[k] = 0
	}
	for k, v := range values {
		o.Values[k] = v
	}
	return o
}

// coefs builds a coefficient table with every factor present, 0 unless given.
func coefs(constant float64, values map[string]float64) schema.Coefficients {
	c := schema.Coefficients{schema.ConstKey: constant}
	for _, k := range testCatalog.FactorKeys() {
		c[k] = 0
	}
	for k, v := range values {
		c[k] = v
	}
	return c
}

// flatModel is a set of static tables where model_rating equals each row's wealth Z-score
// plus the constant.
func flatModel(constant float64, rows ...schema.Observation) staticdata.Memory {
	return staticdata.Memory{
		Catalog:      testCatalog,
		Coefficients: coefs(constant, map[string]float64{"wealth_factor": 1}),
		ZScores:      rows,
	}
}

func newTestEngine(t testing.TB, m staticdata.Memory, transport contract.PartitionTransport, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	e, err := NewEngine(m.Build(), transport, opts...)
	require.NoError(t, err)
	return e
}

// seedLedger provisions country and writes rows into a fresh in-memory ledger.
func seedLedger(t testing.TB, country string, rows ...schema.PartitionRow) *iocache.MemoryPartitionStore {
	t.Helper()
	store := iocache.NewMemoryPartitionStore()
	ctx := context.Background()
	_, err := store.Provision(ctx, country)
	require.NoError(t, err)
	if len(rows) > 0 {
		require.NoError(t, store.WriteRows(ctx, schema.PartitionHandle{Country: country}, rows))
	}
	return store
}

// recordingInvalidator remembers which countries were invalidated.
type recordingInvalidator struct {
	countries []string
}

func (r *recordingInvalidator) Invalidate(country string) { r.countries = append(r.countries, country) }
func (r *recordingInvalidator) InvalidateAll()            { r.countries = append(r.countries, "*") }
