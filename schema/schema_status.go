package schema

import "time"

// CacheStatus represents the status of the rating snapshot cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// LedgerStatus represents the status of the override ledger.
type LedgerStatus struct {
	Backend    string           `json:"backend"`
	Connected  bool             `json:"connected"`
	Partitions int              `json:"partitions"`
	TotalRows  int              `json:"total_rows"`
	LastWrite  time.Time        `json:"last_write"`
	TableSizes map[string]int64 `json:"table_sizes"`
}
