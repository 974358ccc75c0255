package iocache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/schema"
)

// CacheStoreImpl persists rating snapshots in one of the SQL backends.
type CacheStoreImpl struct {
	db        *sql.DB
	tableName string
	backend   schema.DatabaseBackend
	connStr   string
}

var _ contract.CacheStore = &CacheStoreImpl{} // Compile-time check

// NewCacheStore initializes and returns a new CacheStore based on the backend type.
func NewCacheStore(tableName string, backend schema.DatabaseBackend, connStr string) (contract.CacheStore, error) {
	// Validate table name to prevent SQL injection
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}

	if backend == schema.NoneBackend {
		// Return a no-op store for disabled caching
		return &CacheStoreImpl{tableName: tableName, backend: backend, connStr: connStr}, nil
	}

	db, err := openDB(backend, connStr, GetCacheDBFilePath(), "snapshot cache")
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(getCreateTableQuery(tableName, backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	return &CacheStoreImpl{
		db:        db,
		tableName: tableName,
		backend:   backend,
		connStr:   connStr,
	}, nil
}

// getCreateTableQuery returns the CREATE TABLE query for the given backend.
func getCreateTableQuery(tableName string, backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(tableName, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				snapshot_key VARCHAR(255) PRIMARY KEY,
				payload LONGBLOB NOT NULL,
				layout_version INT NOT NULL,
				computed_at BIGINT NOT NULL
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				snapshot_key TEXT PRIMARY KEY,
				payload BYTEA NOT NULL,
				layout_version INTEGER NOT NULL,
				computed_at BIGINT NOT NULL
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				snapshot_key TEXT PRIMARY KEY,
				payload BLOB NOT NULL,
				layout_version INTEGER NOT NULL,
				computed_at INTEGER NOT NULL
			);
		`, quotedTableName)
	}
}

// Get retrieves a snapshot by key. A miss is reported as sql.ErrNoRows.
func (ps *CacheStoreImpl) Get(key string) ([]byte, int, int64, error) {
	if ps.backend == schema.NoneBackend || ps.db == nil {
		return nil, 0, 0, sql.ErrNoRows
	}

	var (
		payload    []byte
		layout     int
		computedAt int64
	)
	query := fmt.Sprintf(`SELECT payload, layout_version, computed_at FROM %s WHERE snapshot_key = %s`,
		quoteTableName(ps.tableName, ps.backend), placeholders(ps.backend, 1, 1))
	if err := ps.db.QueryRowContext(context.Background(), query, key).Scan(&payload, &layout, &computedAt); err != nil {
		return nil, 0, 0, err
	}
	return payload, layout, computedAt, nil
}

// Set inserts or replaces a snapshot.
func (ps *CacheStoreImpl) Set(key string, value []byte, version int, timestamp int64) error {
	if ps.backend == schema.NoneBackend || ps.db == nil {
		return nil
	}
	_, err := ps.db.Exec(ps.getUpsertQuery(), key, value, version, timestamp)
	return err
}

// getUpsertQuery returns the UPSERT query for the backend.
func (ps *CacheStoreImpl) getUpsertQuery() string {
	quotedTableName := quoteTableName(ps.tableName, ps.backend)
	switch ps.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (snapshot_key, payload, layout_version, computed_at) VALUES (?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE payload = new.payload, layout_version = new.layout_version, computed_at = new.computed_at`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (snapshot_key, payload, layout_version, computed_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (snapshot_key) DO UPDATE SET payload = EXCLUDED.payload, layout_version = EXCLUDED.layout_version, computed_at = EXCLUDED.computed_at`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (snapshot_key, payload, layout_version, computed_at) VALUES (?, ?, ?, ?)`, quotedTableName)
	}
}

// Close closes the underlying DB connection.
func (ps *CacheStoreImpl) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}

// GetStatus returns status information about the cache store.
func (ps *CacheStoreImpl) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{
		Backend:   string(ps.backend),
		Connected: ps.db != nil,
	}

	if ps.backend == schema.NoneBackend || ps.db == nil {
		return status, nil
	}

	quotedTableName := quoteTableName(ps.tableName, ps.backend)

	row := ps.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedTableName))
	if err := row.Scan(&status.TotalEntries); err != nil {
		return status, fmt.Errorf("failed to count snapshots: %w", err)
	}

	if status.TotalEntries == 0 {
		return status, nil
	}

	var newest, oldest int64
	row = ps.db.QueryRow(fmt.Sprintf("SELECT MAX(computed_at), MIN(computed_at) FROM %s", quotedTableName))
	if err := row.Scan(&newest, &oldest); err != nil {
		return status, fmt.Errorf("failed to read snapshot times: %w", err)
	}
	status.LastEntryTime = time.Unix(newest, 0)
	status.OldestEntryTime = time.Unix(oldest, 0)

	status.TableSizeBytes = tableSize(ps.db, ps.backend, ps.connStr, ps.tableName, status.TotalEntries)
	return status, nil
}

// tableSize estimates the on-disk size of a table. It falls back to a rough
// per-row estimate when the backend cannot tell.
func tableSize(db *sql.DB, backend schema.DatabaseBackend, connStr, tableName string, rows int) int64 {
	fallback := int64(rows) * 1000
	var size int64
	switch backend {
	case schema.SQLiteBackend:
		// Whole file, SQLite has no per-table accounting without dbstat
		row := db.QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
		if err := row.Scan(&size); err != nil {
			return 0
		}
		return size

	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(connStr)
		if err != nil || cfg.DBName == "" {
			return fallback
		}
		row := db.QueryRow("SELECT data_length + index_length FROM information_schema.tables WHERE table_schema = ? AND table_name = ?", cfg.DBName, tableName)
		if err := row.Scan(&size); err != nil {
			return fallback
		}
		return size

	case schema.PostgreSQLBackend:
		row := db.QueryRow("SELECT pg_total_relation_size($1)", tableName)
		if err := row.Scan(&size); err != nil {
			return fallback
		}
		return size

	default:
		return fallback
	}
}
