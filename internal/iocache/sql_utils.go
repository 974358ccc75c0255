package iocache

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/kaimin86/credit-rating-deploy/schema"
	_ "modernc.org/sqlite" // SQLite driver
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateTableName validates that the table name is a safe SQL identifier.
// It ensures the name consists only of alphanumeric characters and underscores,
// starting with a letter or underscore, to prevent SQL injection.
func validateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("invalid table name: %s (must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$)", name)
	}
	return nil
}

// quoteTableName returns the properly quoted table name for the given backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf("`%s`", name)
	default: // SQLite and PostgreSQL
		return fmt.Sprintf("\"%s\"", name)
	}
}

// placeholders returns n comma-separated bind parameters starting at position start (1-based).
func placeholders(backend schema.DatabaseBackend, start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		if backend == schema.PostgreSQLBackend {
			parts[i] = fmt.Sprintf("$%d", start+i)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

// driverName maps a backend to its database/sql driver.
func driverName(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}
}

// openDB opens and pings a database for one of the SQL backends. defaultPath is used
// for SQLite when connStr is empty. what names the store in error messages.
func openDB(backend schema.DatabaseBackend, connStr, defaultPath, what string) (*sql.DB, error) {
	driver, err := driverName(backend)
	if err != nil {
		return nil, err
	}

	dsn := connStr
	switch backend {
	case schema.SQLiteBackend:
		if dsn == "" {
			dsn = defaultPath
		}
	case schema.MySQLBackend, schema.PostgreSQLBackend:
		if dsn == "" {
			return nil, fmt.Errorf("a connection string is required for the %s %s", backend, what)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s %s: %w. %s", backend, what, err, connDetail(backend))
	}
	if backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s %s. Check that the server is running and connection parameters are valid: %w", backend, what, err)
	}
	return db, nil
}

// connDetail gives a hint about the expected connection string.
func connDetail(backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return "Check connection format: user:password@tcp(host:port)/dbname"
	case schema.PostgreSQLBackend:
		return "Check connection format: host=localhost port=5432 user=postgres dbname=mydb"
	default:
		return "Ensure the directory is writable"
	}
}
