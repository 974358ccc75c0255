package iocache

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/schema"
)

// snapshotTable is the name of the table for rating snapshots.
const snapshotTable = "rating_snapshots"

// Global Manager instance for main logic.
var (
	Manager   = &StoreManagerImpl{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// GetLedgerDBFilePath returns the path to the SQLite DB file for the override ledger.
func GetLedgerDBFilePath() string {
	return contract.GetLedgerDBFilePath()
}

// GetCacheDBFilePath returns the path to the SQLite DB file for rating snapshots.
func GetCacheDBFilePath() string {
	return contract.GetCacheDBFilePath()
}

// InitStores initializes the global manager. The ledger is always opened, and sits
// behind a read-through cache. An empty cacheBackend leaves snapshot caching off.
func InitStores(ledgerBackend schema.DatabaseBackend, ledgerConnStr string, cacheBackend schema.DatabaseBackend, cacheConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		ledger, err := NewPartitionStore(ledgerBackend, ledgerConnStr)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize override ledger: %w", err)
			return
		}

		var snapshots contract.CacheStore
		if cacheBackend != "" {
			snapshots, err = NewCacheStore(snapshotTable, cacheBackend, cacheConnStr)
			if err != nil {
				_ = ledger.Close()
				initErr = fmt.Errorf("failed to initialize snapshot caching: %w", err)
				return
			}
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.ledger = NewCachedPartitionStore(ledger)
		Manager.snapshots = snapshots
	})

	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.ledger != nil {
			_ = Manager.ledger.Close()
		}
		if Manager.snapshots != nil {
			_ = Manager.snapshots.Close()
		}
	})
}

// ClearCache clears rating snapshots for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the table.
// For NoneBackend, it does nothing.
func ClearCache(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearBackend(backend, dbFilePath, connStr, snapshotTable)
}

// ClearLedger removes every override partition for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the ledger tables.
// For NoneBackend, it does nothing.
func ClearLedger(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearBackend(backend, dbFilePath, connStr, LedgerTables...)
}

func clearBackend(backend schema.DatabaseBackend, dbFilePath, connStr string, tables ...string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		// Remove the file; ignore if it doesn't exist
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		for _, table := range tables {
			if err := clearSQLTable(backend, connStr, table); err != nil {
				return err
			}
		}
		return nil

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported backend for clearing: %s", backend)
	}
}

// clearSQLTable connects to the SQL database and drops the table if it exists.
func clearSQLTable(backend schema.DatabaseBackend, connStr, tableName string) error {
	driver, err := driverName(backend)
	if err != nil {
		return err
	}
	db, err := sql.Open(driver, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", backend, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", backend, err)
	}

	query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(tableName, backend))
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", tableName, err)
	}
	return nil
}
