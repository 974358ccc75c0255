package iocache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kaimin86/credit-rating-deploy/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobals() {
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	Manager = &StoreManagerImpl{}
}

func TestInitStores(t *testing.T) {
	t.Run("single setup", func(t *testing.T) {
		resetGlobals()
		dir := t.TempDir()
		ledgerPath := filepath.Join(dir, "ledger.db")
		cachePath := filepath.Join(dir, "cache.db")

		err := InitStores(schema.SQLiteBackend, ledgerPath, schema.SQLiteBackend, cachePath)
		require.NoError(t, err)

		assert.IsType(t, &CachedPartitionStore{}, Manager.GetLedger())
		assert.NotNil(t, Manager.GetSnapshotStore())

		CloseStores()

		_, err = os.Stat(ledgerPath)
		assert.NoError(t, err, "ledger file should be created")
		_, err = os.Stat(cachePath)
		assert.NoError(t, err, "cache file should be created")
	})

	t.Run("idempotent setup", func(t *testing.T) {
		resetGlobals()
		dir := t.TempDir()
		ledgerPath := filepath.Join(dir, "ledger.db")

		// Multiple initializations should be safe (sync.Once)
		assert.NoError(t, InitStores(schema.SQLiteBackend, ledgerPath, "", ""))
		assert.NoError(t, InitStores(schema.SQLiteBackend, ledgerPath, "", ""))
		assert.Nil(t, Manager.GetSnapshotStore())

		// Multiple closes should be safe (sync.Once)
		CloseStores()
		CloseStores()
	})

	t.Run("ledger failure", func(t *testing.T) {
		resetGlobals()
		err := InitStores(schema.MySQLBackend, "", schema.NoneBackend, "")
		assert.ErrorContains(t, err, "failed to initialize override ledger")
		assert.Nil(t, Manager.GetLedger())
	})

	t.Run("cache failure closes ledger", func(t *testing.T) {
		resetGlobals()
		err := InitStores(schema.NoneBackend, "", schema.PostgreSQLBackend, "")
		assert.ErrorContains(t, err, "failed to initialize snapshot caching")
		assert.Nil(t, Manager.GetLedger())
	})

	resetGlobals()
}

func TestClearBackends(t *testing.T) {
	t.Run("sqlite removes file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledger.db")
		store, err := NewPartitionStore(schema.SQLiteBackend, path)
		require.NoError(t, err)
		require.NoError(t, store.Close())

		require.NoError(t, ClearLedger(schema.SQLiteBackend, path, ""))
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))

		// Clearing twice is fine
		assert.NoError(t, ClearLedger(schema.SQLiteBackend, path, ""))
	})

	t.Run("sqlite needs a path", func(t *testing.T) {
		assert.Error(t, ClearCache(schema.SQLiteBackend, "", ""))
	})

	t.Run("none is a no-op", func(t *testing.T) {
		assert.NoError(t, ClearCache(schema.NoneBackend, "", ""))
		assert.NoError(t, ClearLedger(schema.NoneBackend, "", ""))
	})

	t.Run("unsupported", func(t *testing.T) {
		assert.ErrorContains(t, ClearCache(schema.DatabaseBackend("oracle"), "", ""), "unsupported backend")
	})
}
