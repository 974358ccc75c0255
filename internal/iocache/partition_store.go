package iocache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/schema"
)

// Ledger table names.
const (
	partitionsTable = "rating_override_partitions"
	rowsTable       = "rating_override_rows"
)

// LedgerTables lists the ledger tables in drop order.
var LedgerTables = []string{rowsTable, partitionsTable}

// PartitionStoreImpl keeps override partitions in one of the SQL backends.
// Each country is one partition. Its rows keep their insertion order through row_index.
type PartitionStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
	now     func() time.Time
}

var (
	_ contract.PartitionStore = &PartitionStoreImpl{} // Compile-time check
	_ contract.YearReplacer   = &PartitionStoreImpl{} // Compile-time check
)

// NewPartitionStore opens the override ledger. The none backend yields an in-process
// store whose contents vanish with the process.
func NewPartitionStore(backend schema.DatabaseBackend, connStr string) (contract.PartitionStore, error) {
	if backend == schema.NoneBackend {
		return NewMemoryPartitionStore(), nil
	}

	db, err := openDB(backend, connStr, GetLedgerDBFilePath(), "override ledger")
	if err != nil {
		return nil, err
	}

	store := &PartitionStoreImpl{db: db, backend: backend, connStr: connStr, now: time.Now}
	if err := store.createTables(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// createTables creates the ledger tables when missing. The DDL is portable across the
// three SQL backends and matches the embedded migrations.
func (ps *PartitionStoreImpl) createTables() error {
	queries := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				country VARCHAR(128) NOT NULL PRIMARY KEY,
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL
			)`, ps.quote(partitionsTable)),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				country VARCHAR(128) NOT NULL,
				row_index INTEGER NOT NULL,
				year INTEGER NOT NULL,
				short_name VARCHAR(128) NOT NULL,
				adjustment VARCHAR(64),
				analyst_comment TEXT,
				PRIMARY KEY (country, row_index)
			)`, ps.quote(rowsTable)),
	}
	for _, q := range queries {
		if _, err := ps.db.Exec(q); err != nil {
			return fmt.Errorf("failed to create ledger tables: %w", err)
		}
	}
	return nil
}

func (ps *PartitionStoreImpl) quote(table string) string {
	return quoteTableName(table, ps.backend)
}

func (ps *PartitionStoreImpl) ph(start, n int) string {
	return placeholders(ps.backend, start, n)
}

// Open resolves the partition of a country.
func (ps *PartitionStoreImpl) Open(ctx context.Context, country string) (schema.PartitionHandle, error) {
	ok, err := partitionExists(ctx, ps.db, ps.quote(partitionsTable), ps.ph(1, 1), country)
	if err != nil {
		return schema.PartitionHandle{}, err
	}
	if !ok {
		return schema.PartitionHandle{}, fmt.Errorf("%w: %s", schema.ErrPartitionNotFound, country)
	}
	return schema.PartitionHandle{Country: country}, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func partitionExists(ctx context.Context, q queryRower, table, ph, country string) (bool, error) {
	var found string
	err := q.QueryRowContext(ctx, fmt.Sprintf("SELECT country FROM %s WHERE country = %s", table, ph), country).Scan(&found)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to look up partition %s: %w", country, err)
	}
	return true, nil
}

// ReadRows returns the rows of a partition in stored order.
func (ps *PartitionStoreImpl) ReadRows(ctx context.Context, h schema.PartitionHandle) ([]schema.PartitionRow, error) {
	query := fmt.Sprintf(`SELECT year, short_name, adjustment, analyst_comment FROM %s WHERE country = %s ORDER BY row_index`,
		ps.quote(rowsTable), ps.ph(1, 1))
	rows, err := ps.db.QueryContext(ctx, query, h.Country)
	if err != nil {
		return nil, fmt.Errorf("failed to read partition %s: %w", h.Country, err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.PartitionRow
	for rows.Next() {
		var r schema.PartitionRow
		var adjustment, comment sql.NullString
		if err := rows.Scan(&r.Year, &r.ShortName, &adjustment, &comment); err != nil {
			return nil, fmt.Errorf("failed to scan partition %s: %w", h.Country, err)
		}
		r.Adjustment = adjustment.String
		r.Comment = comment.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read partition %s: %w", h.Country, err)
	}
	return out, nil
}

// WriteRows replaces all rows of a partition in a single transaction.
func (ps *PartitionStoreImpl) WriteRows(ctx context.Context, h schema.PartitionHandle, rows []schema.PartitionRow) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := ps.lockPartition(ctx, tx, h.Country); err != nil {
		return err
	}

	del := fmt.Sprintf("DELETE FROM %s WHERE country = %s", ps.quote(rowsTable), ps.ph(1, 1))
	if _, err := tx.ExecContext(ctx, del, h.Country); err != nil {
		return fmt.Errorf("failed to clear partition %s: %w", h.Country, err)
	}
	if err := ps.insertRows(ctx, tx, h.Country, 0, rows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit partition %s: %w", h.Country, err)
	}
	return nil
}

// ReplaceYear swaps the rows of one year in a single transaction. New rows are appended
// after the highest stored row_index; rows of other years keep their place.
func (ps *PartitionStoreImpl) ReplaceYear(ctx context.Context, h schema.PartitionHandle, year int, rows []schema.PartitionRow) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := ps.lockPartition(ctx, tx, h.Country); err != nil {
		return err
	}

	del := fmt.Sprintf("DELETE FROM %s WHERE country = %s AND year = %s", ps.quote(rowsTable), ps.ph(1, 1), ps.ph(2, 1))
	if _, err := tx.ExecContext(ctx, del, h.Country, year); err != nil {
		return fmt.Errorf("failed to clear %d of partition %s: %w", year, h.Country, err)
	}

	var last int
	maxQuery := fmt.Sprintf("SELECT COALESCE(MAX(row_index), -1) FROM %s WHERE country = %s", ps.quote(rowsTable), ps.ph(1, 1))
	if err := tx.QueryRowContext(ctx, maxQuery, h.Country).Scan(&last); err != nil {
		return fmt.Errorf("failed to read partition %s: %w", h.Country, err)
	}

	tagged := make([]schema.PartitionRow, len(rows))
	for i, r := range rows {
		r.Year = year
		tagged[i] = r
	}
	if err := ps.insertRows(ctx, tx, h.Country, last+1, tagged); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit partition %s: %w", h.Country, err)
	}
	return nil
}

// lockPartition touches the partition row first, so concurrent writers of one country
// queue on its row lock, and confirms that the partition exists.
func (ps *PartitionStoreImpl) lockPartition(ctx context.Context, tx *sql.Tx, country string) error {
	upd := fmt.Sprintf("UPDATE %s SET updated_at = %s WHERE country = %s", ps.quote(partitionsTable), ps.ph(1, 1), ps.ph(2, 1))
	res, err := tx.ExecContext(ctx, upd, ps.now().UnixNano(), country)
	if err != nil {
		return fmt.Errorf("failed to touch partition %s: %w", country, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	ok, err := partitionExists(ctx, tx, ps.quote(partitionsTable), ps.ph(1, 1), country)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", schema.ErrPartitionNotFound, country)
	}
	return nil
}

// insertRows writes rows with consecutive row_index values starting at first.
func (ps *PartitionStoreImpl) insertRows(ctx context.Context, tx *sql.Tx, country string, first int, rows []schema.PartitionRow) error {
	if len(rows) == 0 {
		return nil
	}
	ins := fmt.Sprintf("INSERT INTO %s (country, row_index, year, short_name, adjustment, analyst_comment) VALUES (%s)",
		ps.quote(rowsTable), ps.ph(1, 6))
	stmt, err := tx.PrepareContext(ctx, ins)
	if err != nil {
		return fmt.Errorf("failed to prepare ledger insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range rows {
		var adjustment any
		if strings.TrimSpace(r.Adjustment) != "" {
			adjustment = r.Adjustment
		}
		if _, err := stmt.ExecContext(ctx, country, first+i, r.Year, r.ShortName, adjustment, r.Comment); err != nil {
			return fmt.Errorf("failed to write row %d of partition %s: %w", first+i, country, err)
		}
	}
	return nil
}

// Provision creates an empty partition for a country.
func (ps *PartitionStoreImpl) Provision(ctx context.Context, country string) (bool, error) {
	country = strings.TrimSpace(country)
	if country == "" {
		return false, fmt.Errorf("country cannot be empty")
	}

	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := partitionExists(ctx, tx, ps.quote(partitionsTable), ps.ph(1, 1), country)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}

	now := ps.now().UnixNano()
	ins := fmt.Sprintf("INSERT INTO %s (country, created_at, updated_at) VALUES (%s)", ps.quote(partitionsTable), ps.ph(1, 3))
	if _, err := tx.ExecContext(ctx, ins, country, now, now); err != nil {
		return false, fmt.Errorf("failed to provision partition %s: %w", country, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit partition %s: %w", country, err)
	}
	return true, nil
}

// ListPartitions returns every partition with its row count.
func (ps *PartitionStoreImpl) ListPartitions(ctx context.Context) ([]schema.PartitionInfo, error) {
	query := fmt.Sprintf(`
		SELECT p.country, p.updated_at, COUNT(r.row_index)
		FROM %s p LEFT JOIN %s r ON r.country = p.country
		GROUP BY p.country, p.updated_at
		ORDER BY p.country`, ps.quote(partitionsTable), ps.quote(rowsTable))
	rows, err := ps.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.PartitionInfo
	for rows.Next() {
		var info schema.PartitionInfo
		var updated int64
		if err := rows.Scan(&info.Country, &updated, &info.Rows); err != nil {
			return nil, fmt.Errorf("failed to scan partition: %w", err)
		}
		info.UpdatedAt = time.Unix(0, updated)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Revision summarizes the ledger so that any provision or write changes it.
func (ps *PartitionStoreImpl) Revision(ctx context.Context) (string, error) {
	var partitions, total int
	var latest int64
	query := fmt.Sprintf("SELECT COUNT(*), COALESCE(MAX(updated_at), 0) FROM %s", ps.quote(partitionsTable))
	if err := ps.db.QueryRowContext(ctx, query).Scan(&partitions, &latest); err != nil {
		return "", fmt.Errorf("failed to read ledger revision: %w", err)
	}
	if err := ps.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", ps.quote(rowsTable))).Scan(&total); err != nil {
		return "", fmt.Errorf("failed to read ledger revision: %w", err)
	}
	return fmt.Sprintf("%d:%d:%d", partitions, latest, total), nil
}

// GetStatus returns status information about the ledger.
func (ps *PartitionStoreImpl) GetStatus() (schema.LedgerStatus, error) {
	status := schema.LedgerStatus{
		Backend:    string(ps.backend),
		Connected:  ps.db != nil,
		TableSizes: map[string]int64{},
	}
	if ps.db == nil {
		return status, nil
	}

	var latest int64
	query := fmt.Sprintf("SELECT COUNT(*), COALESCE(MAX(updated_at), 0) FROM %s", ps.quote(partitionsTable))
	if err := ps.db.QueryRow(query).Scan(&status.Partitions, &latest); err != nil {
		return status, fmt.Errorf("failed to count partitions: %w", err)
	}
	if latest > 0 {
		status.LastWrite = time.Unix(0, latest)
	}
	if err := ps.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", ps.quote(rowsTable))).Scan(&status.TotalRows); err != nil {
		return status, fmt.Errorf("failed to count rows: %w", err)
	}

	status.TableSizes[partitionsTable] = tableSize(ps.db, ps.backend, ps.connStr, partitionsTable, status.Partitions)
	status.TableSizes[rowsTable] = tableSize(ps.db, ps.backend, ps.connStr, rowsTable, status.TotalRows)
	return status, nil
}

// Close closes the underlying DB connection.
func (ps *PartitionStoreImpl) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}
