// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"

	"github.com/kaimin86/credit-rating-deploy/schema"
)

// PartitionTransport is the override partition contract the engine depends on.
// Open returns schema.ErrPartitionNotFound when the country was never provisioned.
// WriteRows replaces every row of the partition and must appear atomic to the caller.
type PartitionTransport interface {
	Open(ctx context.Context, country string) (schema.PartitionHandle, error)
	ReadRows(ctx context.Context, h schema.PartitionHandle) ([]schema.PartitionRow, error)
	WriteRows(ctx context.Context, h schema.PartitionHandle, rows []schema.PartitionRow) error
}

// YearReplacer replaces the rows of one year of a partition in a single atomic step.
// Rows of other years are left as stored, so concurrent writers of different years
// never overwrite each other.
type YearReplacer interface {
	ReplaceYear(ctx context.Context, h schema.PartitionHandle, year int, rows []schema.PartitionRow) error
}

// Revisioner reports a token that changes whenever the ledger is written or provisioned.
type Revisioner interface {
	Revision(ctx context.Context) (string, error)
}

// PartitionStore is a PartitionTransport that also manages partitions.
type PartitionStore interface {
	PartitionTransport
	Revisioner

	// Provision creates an empty partition. It reports false when the partition already existed.
	Provision(ctx context.Context, country string) (bool, error)

	// ListPartitions returns every provisioned partition ordered by country.
	ListPartitions(ctx context.Context) ([]schema.PartitionInfo, error)

	// GetStatus returns status information about the ledger.
	GetStatus() (schema.LedgerStatus, error)

	// Close closes the underlying connection.
	Close() error
}

// CacheInvalidator is implemented by read-through caches sitting in front of a transport.
type CacheInvalidator interface {
	Invalidate(country string)
	InvalidateAll()
}

// CacheStore defines the interface for the rating snapshot cache.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// StoreManager hands out the configured ledger and snapshot cache.
// This allows the persistence layer to be mocked for testing.
type StoreManager interface {
	GetLedger() PartitionStore
	GetSnapshotStore() CacheStore
}

// StaticSource is the read-only view over the static tables.
type StaticSource interface {
	Catalog() *schema.Catalog
	RatingScale() []schema.RatingScaleEntry
	Coefficients() schema.Coefficients
	ZScores(country string, year int) (schema.Observation, bool)
	RawValues(country string, year int) (schema.Observation, bool)
	Agencies(country string, year int) (schema.AgencyRatings, bool)
	Coverage(country string) (schema.Coverage, bool)
	Countries() []string
	Years(country string) []int
	Fingerprint() string
}
