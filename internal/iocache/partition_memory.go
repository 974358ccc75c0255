package iocache

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/schema"
)

type memoryPartition struct {
	rows    []schema.PartitionRow
	updated time.Time
}

// MemoryPartitionStore is a process-local ledger. It backs the none backend and tests.
type MemoryPartitionStore struct {
	mu         sync.RWMutex
	partitions map[string]*memoryPartition
	writes     int64
}

var (
	_ contract.PartitionStore = &MemoryPartitionStore{} // Compile-time check
	_ contract.YearReplacer   = &MemoryPartitionStore{} // Compile-time check
)

// NewMemoryPartitionStore returns an empty in-memory ledger.
func NewMemoryPartitionStore() *MemoryPartitionStore {
	return &MemoryPartitionStore{partitions: map[string]*memoryPartition{}}
}

// Open resolves the partition of a country.
func (ms *MemoryPartitionStore) Open(_ context.Context, country string) (schema.PartitionHandle, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if _, ok := ms.partitions[country]; !ok {
		return schema.PartitionHandle{}, fmt.Errorf("%w: %s", schema.ErrPartitionNotFound, country)
	}
	return schema.PartitionHandle{Country: country}, nil
}

// ReadRows returns a copy of the partition rows.
func (ms *MemoryPartitionStore) ReadRows(_ context.Context, h schema.PartitionHandle) ([]schema.PartitionRow, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	p, ok := ms.partitions[h.Country]
	if !ok {
		return nil, fmt.Errorf("%w: %s", schema.ErrPartitionNotFound, h.Country)
	}
	return slices.Clone(p.rows), nil
}

// WriteRows replaces the partition rows.
func (ms *MemoryPartitionStore) WriteRows(_ context.Context, h schema.PartitionHandle, rows []schema.PartitionRow) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	p, ok := ms.partitions[h.Country]
	if !ok {
		return fmt.Errorf("%w: %s", schema.ErrPartitionNotFound, h.Country)
	}
	p.rows = slices.Clone(rows)
	p.updated = time.Now()
	ms.writes++
	return nil
}

// ReplaceYear swaps the rows of one year, appending the new rows after the others.
func (ms *MemoryPartitionStore) ReplaceYear(_ context.Context, h schema.PartitionHandle, year int, rows []schema.PartitionRow) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	p, ok := ms.partitions[h.Country]
	if !ok {
		return fmt.Errorf("%w: %s", schema.ErrPartitionNotFound, h.Country)
	}
	next := slices.DeleteFunc(slices.Clone(p.rows), func(r schema.PartitionRow) bool { return r.Year == year })
	for _, r := range rows {
		r.Year = year
		next = append(next, r)
	}
	p.rows = next
	p.updated = time.Now()
	ms.writes++
	return nil
}

// Provision creates an empty partition.
func (ms *MemoryPartitionStore) Provision(_ context.Context, country string) (bool, error) {
	country = strings.TrimSpace(country)
	if country == "" {
		return false, fmt.Errorf("country cannot be empty")
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.partitions[country]; ok {
		return false, nil
	}
	ms.partitions[country] = &memoryPartition{updated: time.Now()}
	ms.writes++
	return true, nil
}

// ListPartitions returns every partition ordered by country.
func (ms *MemoryPartitionStore) ListPartitions(_ context.Context) ([]schema.PartitionInfo, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make([]schema.PartitionInfo, 0, len(ms.partitions))
	for country, p := range ms.partitions {
		out = append(out, schema.PartitionInfo{Country: country, Rows: len(p.rows), UpdatedAt: p.updated})
	}
	slices.SortFunc(out, func(a, b schema.PartitionInfo) int { return strings.Compare(a.Country, b.Country) })
	return out, nil
}

// Revision counts mutations.
func (ms *MemoryPartitionStore) Revision(_ context.Context) (string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return fmt.Sprintf("mem:%d", ms.writes), nil
}

// GetStatus returns status information about the ledger.
func (ms *MemoryPartitionStore) GetStatus() (schema.LedgerStatus, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	status := schema.LedgerStatus{
		Backend:    string(schema.NoneBackend),
		Connected:  true,
		Partitions: len(ms.partitions),
	}
	for _, p := range ms.partitions {
		status.TotalRows += len(p.rows)
		if p.updated.After(status.LastWrite) {
			status.LastWrite = p.updated
		}
	}
	return status, nil
}

// Close is a no-op.
func (ms *MemoryPartitionStore) Close() error { return nil }
