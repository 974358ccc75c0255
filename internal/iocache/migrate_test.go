package iocache

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/kaimin86/credit-rating-deploy/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateLedger_NoneBackend(t *testing.T) {
	err := MigrateLedger(&bytes.Buffer{}, schema.NoneBackend, "", -1)
	assert.ErrorContains(t, err, "migrations are not supported for NoneBackend")
}

func TestMigrateLedger_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	var out bytes.Buffer

	// Run migration to latest version
	require.NoError(t, MigrateLedger(&out, schema.SQLiteBackend, dbPath, -1))
	assert.Contains(t, out.String(), "Successfully migrated from version 0 to version 2")

	// Run migration again (should be a no-op)
	out.Reset()
	require.NoError(t, MigrateLedger(&out, schema.SQLiteBackend, dbPath, -1))
	assert.Contains(t, out.String(), "already at the latest version")

	// Step down to version 1, then roll back everything
	require.NoError(t, MigrateLedger(&out, schema.SQLiteBackend, dbPath, 1))
	require.NoError(t, MigrateLedger(&out, schema.SQLiteBackend, dbPath, 0))

	out.Reset()
	require.NoError(t, MigrateLedger(&out, schema.SQLiteBackend, dbPath, 0))
	assert.Contains(t, out.String(), "already at version 0")

	// Migrate back up and use the tables
	require.NoError(t, MigrateLedger(&out, schema.SQLiteBackend, dbPath, -1))

	store, err := NewPartitionStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	created, err := store.Provision(context.Background(), "Japan")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestMigrateLedger_AfterStoreCreatedTables(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	store, err := NewPartitionStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.NoError(t, MigrateLedger(&bytes.Buffer{}, schema.SQLiteBackend, dbPath, -1))
}

func TestMigrateLedger_SQLiteInMemory(t *testing.T) {
	require.NoError(t, MigrateLedger(&bytes.Buffer{}, schema.SQLiteBackend, ":memory:", -1))
}
