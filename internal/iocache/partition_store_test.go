package iocache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteLedger(t *testing.T) contract.PartitionStore {
	t.Helper()
	store, err := NewPartitionStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPartitionStores(t *testing.T) {
	stores := map[string]func(t *testing.T) contract.PartitionStore{
		"sqlite": newSQLiteLedger,
		"memory": func(*testing.T) contract.PartitionStore { return NewMemoryPartitionStore() },
	}
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			runLedgerContract(t, newStore(t))
		})
	}
}

// runLedgerContract exercises the partition store contract shared by every backend.
func runLedgerContract(t *testing.T, store contract.PartitionStore) {
	ctx := context.Background()

	_, err := store.Open(ctx, "Japan")
	require.ErrorIs(t, err, schema.ErrPartitionNotFound)

	err = store.WriteRows(ctx, schema.PartitionHandle{Country: "Japan"}, nil)
	require.ErrorIs(t, err, schema.ErrPartitionNotFound)

	_, err = store.Provision(ctx, "  ")
	require.Error(t, err)

	rev0, err := store.Revision(ctx)
	require.NoError(t, err)

	created, err := store.Provision(ctx, "Japan")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = store.Provision(ctx, "Japan")
	require.NoError(t, err)
	assert.False(t, created)

	rev1, err := store.Revision(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, rev0, rev1)

	h, err := store.Open(ctx, "Japan")
	require.NoError(t, err)
	assert.Equal(t, "Japan", h.Country)

	rows, err := store.ReadRows(ctx, h)
	require.NoError(t, err)
	assert.Empty(t, rows)

	written := []schema.PartitionRow{
		{Year: 2023, ShortName: "wealth_factor", Adjustment: "0.5", Comment: "x"},
		{Year: 2024, ShortName: "ca_avg", Adjustment: "", Comment: "blank"},
		{Year: 2024, ShortName: "size_factor", Adjustment: "abc"},
	}
	require.NoError(t, store.WriteRows(ctx, h, written))

	rows, err = store.ReadRows(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, written, rows)

	rev2, err := store.Revision(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, rev1, rev2)

	infos, err := store.ListPartitions(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "Japan", infos[0].Country)
	assert.Equal(t, 3, infos[0].Rows)

	require.NoError(t, store.WriteRows(ctx, h, written[:1]))
	rows, err = store.ReadRows(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, written[:1], rows)

	_, err = store.Provision(ctx, "Brazil")
	require.NoError(t, err)
	infos, err = store.ListPartitions(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "Brazil", infos[0].Country)
	assert.Equal(t, 0, infos[0].Rows)

	runYearReplace(t, store)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 2, status.Partitions)
	assert.Equal(t, 3, status.TotalRows)
	assert.False(t, status.LastWrite.IsZero())
}

// runYearReplace checks that replacing one year of the Brazil partition leaves the
// other years untouched and keeps replaced rows after them.
func runYearReplace(t *testing.T, store contract.PartitionStore) {
	t.Helper()
	ctx := context.Background()
	replacer, ok := store.(contract.YearReplacer)
	require.True(t, ok, "every ledger replaces single years")

	err := replacer.ReplaceYear(ctx, schema.PartitionHandle{Country: "Peru"}, 2024, nil)
	require.ErrorIs(t, err, schema.ErrPartitionNotFound)

	h := schema.PartitionHandle{Country: "Brazil"}
	require.NoError(t, store.WriteRows(ctx, h, []schema.PartitionRow{
		{Year: 2023, ShortName: "size_factor", Adjustment: "5"},
		{Year: 2024, ShortName: "wealth_factor", Adjustment: "1"},
	}))
	before, err := store.Revision(ctx)
	require.NoError(t, err)

	require.NoError(t, replacer.ReplaceYear(ctx, h, 2024, []schema.PartitionRow{
		{ShortName: "wealth_factor", Adjustment: "2", Comment: "revised"},
		{ShortName: "ca_avg", Adjustment: "-1"},
	}))

	rows, err := store.ReadRows(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []schema.PartitionRow{
		{Year: 2023, ShortName: "size_factor", Adjustment: "5"},
		{Year: 2024, ShortName: "wealth_factor", Adjustment: "2", Comment: "revised"},
		{Year: 2024, ShortName: "ca_avg", Adjustment: "-1"},
	}, rows)

	after, err := store.Revision(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	require.NoError(t, replacer.ReplaceYear(ctx, h, 2024, nil))
	rows, err = store.ReadRows(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []schema.PartitionRow{{Year: 2023, ShortName: "size_factor", Adjustment: "5"}}, rows)

	require.NoError(t, replacer.ReplaceYear(ctx, h, 2022, []schema.PartitionRow{{ShortName: "ca_avg", Adjustment: "3"}}))
	rows, err = store.ReadRows(ctx, h)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2022, rows[1].Year)
}

func TestNewPartitionStore_NoneBackend(t *testing.T) {
	store, err := NewPartitionStore(schema.NoneBackend, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryPartitionStore{}, store)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, string(schema.NoneBackend), status.Backend)
}

func TestNewPartitionStore_Errors(t *testing.T) {
	_, err := NewPartitionStore(schema.DatabaseBackend("oracle"), "")
	assert.ErrorContains(t, err, "unsupported backend")

	_, err = NewPartitionStore(schema.MySQLBackend, "")
	assert.ErrorContains(t, err, "connection string is required")
}

func TestPartitionStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	store, err := NewPartitionStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	_, err = store.Provision(ctx, "Chile")
	require.NoError(t, err)
	require.NoError(t, store.WriteRows(ctx, schema.PartitionHandle{Country: "Chile"}, []schema.PartitionRow{
		{Year: 2022, ShortName: "growth_factor", Adjustment: "-1"},
	}))
	require.NoError(t, store.Close())

	store, err = NewPartitionStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	h, err := store.Open(ctx, "Chile")
	require.NoError(t, err)
	rows, err := store.ReadRows(ctx, h)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "-1", rows[0].Adjustment)
}

func TestCachedPartitionStore(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryPartitionStore()
	_, err := inner.Provision(ctx, "Japan")
	require.NoError(t, err)
	h := schema.PartitionHandle{Country: "Japan"}
	first := []schema.PartitionRow{{Year: 2024, ShortName: "wealth_factor", Adjustment: "1"}}
	require.NoError(t, inner.WriteRows(ctx, h, first))

	cached := NewCachedPartitionStore(inner)

	rows, err := cached.ReadRows(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, first, rows)

	// Mutating the returned slice must not leak into the cache
	rows[0].Adjustment = "99"
	rows, err = cached.ReadRows(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, first, rows)

	second := []schema.PartitionRow{{Year: 2024, ShortName: "wealth_factor", Adjustment: "2"}}
	require.NoError(t, cached.WriteRows(ctx, h, second))
	rows, err = cached.ReadRows(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, second, rows, "writes through the cache drop the cached copy")

	// A write that bypasses the cache moves the revision and is seen on the next read
	require.NoError(t, inner.WriteRows(ctx, h, nil))
	rows, err = cached.ReadRows(ctx, h)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = cached.ReadRows(ctx, schema.PartitionHandle{Country: "Peru"})
	assert.ErrorIs(t, err, schema.ErrPartitionNotFound)

	// Management calls pass through
	rev, err := cached.Revision(ctx)
	require.NoError(t, err)
	innerRev, _ := inner.Revision(ctx)
	assert.Equal(t, innerRev, rev)
}

func TestCachedPartitionStore_ReplaceYearKeepsOtherWriters(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryPartitionStore()
	_, err := inner.Provision(ctx, "Japan")
	require.NoError(t, err)
	h := schema.PartitionHandle{Country: "Japan"}
	require.NoError(t, inner.WriteRows(ctx, h, []schema.PartitionRow{
		{Year: 2023, ShortName: "size_factor", Adjustment: "2"},
	}))

	cached := NewCachedPartitionStore(inner)
	_, err = cached.ReadRows(ctx, h)
	require.NoError(t, err)

	// Another process revises 2023 behind the cache
	require.NoError(t, inner.ReplaceYear(ctx, h, 2023, []schema.PartitionRow{{ShortName: "size_factor", Adjustment: "5"}}))

	require.NoError(t, cached.ReplaceYear(ctx, h, 2024, []schema.PartitionRow{{ShortName: "wealth_factor", Adjustment: "1"}}))

	rows, err := inner.ReadRows(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []schema.PartitionRow{
		{Year: 2023, ShortName: "size_factor", Adjustment: "5"},
		{Year: 2024, ShortName: "wealth_factor", Adjustment: "1"},
	}, rows)
}

func TestCachedPartitionStore_ReplaceYearWithoutReplacer(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryPartitionStore()
	_, err := inner.Provision(ctx, "Japan")
	require.NoError(t, err)
	h := schema.PartitionHandle{Country: "Japan"}
	require.NoError(t, inner.WriteRows(ctx, h, []schema.PartitionRow{
		{Year: 2023, ShortName: "size_factor", Adjustment: "5"},
		{Year: 2024, ShortName: "wealth_factor", Adjustment: "1"},
	}))

	cached := NewCachedPartitionStore(wholePartitionStore{inner})
	require.NoError(t, cached.ReplaceYear(ctx, h, 2024, []schema.PartitionRow{{ShortName: "ca_avg", Adjustment: "2"}}))

	rows, err := inner.ReadRows(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []schema.PartitionRow{
		{Year: 2023, ShortName: "size_factor", Adjustment: "5"},
		{Year: 2024, ShortName: "ca_avg", Adjustment: "2"},
	}, rows)
}

// wholePartitionStore hides ReplaceYear so only whole-partition writes remain.
type wholePartitionStore struct {
	contract.PartitionStore
}
