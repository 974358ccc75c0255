package iocache

import (
	"context"
	"slices"
	"sync"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/schema"
)

// CachedPartitionStore keeps the last read of every partition in memory.
// Cached rows are tagged with the ledger revision seen when they were read and are
// dropped as soon as the revision moves, so writes from other processes are picked up.
type CachedPartitionStore struct {
	contract.PartitionStore

	mu       sync.RWMutex
	rows     map[string][]schema.PartitionRow
	revision string
}

var (
	_ contract.PartitionStore   = &CachedPartitionStore{} // Compile-time check
	_ contract.YearReplacer     = &CachedPartitionStore{} // Compile-time check
	_ contract.CacheInvalidator = &CachedPartitionStore{} // Compile-time check
)

// NewCachedPartitionStore wraps a ledger with a read-through cache.
func NewCachedPartitionStore(inner contract.PartitionStore) *CachedPartitionStore {
	return &CachedPartitionStore{PartitionStore: inner, rows: map[string][]schema.PartitionRow{}}
}

// ReadRows serves cached rows while the ledger revision is unchanged.
func (cs *CachedPartitionStore) ReadRows(ctx context.Context, h schema.PartitionHandle) ([]schema.PartitionRow, error) {
	revision, err := cs.PartitionStore.Revision(ctx)
	if err != nil {
		// Without a revision there is nothing to validate against; read through.
		return cs.PartitionStore.ReadRows(ctx, h)
	}

	cs.mu.RLock()
	cached, ok := cs.rows[h.Country]
	current := cs.revision == revision
	cs.mu.RUnlock()
	if ok && current {
		return slices.Clone(cached), nil
	}

	rows, err := cs.PartitionStore.ReadRows(ctx, h)
	if err != nil {
		return nil, err
	}
	cs.mu.Lock()
	if cs.revision != revision {
		clear(cs.rows)
		cs.revision = revision
	}
	cs.rows[h.Country] = slices.Clone(rows)
	cs.mu.Unlock()
	return rows, nil
}

// WriteRows writes through and drops the cached copy of the country.
func (cs *CachedPartitionStore) WriteRows(ctx context.Context, h schema.PartitionHandle, rows []schema.PartitionRow) error {
	defer cs.Invalidate(h.Country)
	return cs.PartitionStore.WriteRows(ctx, h, rows)
}

// ReplaceYear delegates to the ledger when it can replace a single year. Otherwise it
// merges against a fresh read of the partition and rewrites it whole.
func (cs *CachedPartitionStore) ReplaceYear(ctx context.Context, h schema.PartitionHandle, year int, rows []schema.PartitionRow) error {
	defer cs.Invalidate(h.Country)
	if replacer, ok := cs.PartitionStore.(contract.YearReplacer); ok {
		return replacer.ReplaceYear(ctx, h, year, rows)
	}

	stored, err := cs.PartitionStore.ReadRows(ctx, h)
	if err != nil {
		return err
	}
	next := slices.DeleteFunc(stored, func(r schema.PartitionRow) bool { return r.Year == year })
	for _, r := range rows {
		r.Year = year
		next = append(next, r)
	}
	return cs.PartitionStore.WriteRows(ctx, h, next)
}

// Invalidate drops the cached rows of one country.
func (cs *CachedPartitionStore) Invalidate(country string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.rows, country)
}

// InvalidateAll drops every cached partition.
func (cs *CachedPartitionStore) InvalidateAll() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	clear(cs.rows)
	cs.revision = ""
}
