package iocache

import (
	"context"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetLedger implements the StoreManager interface.
func (m *MockStoreManager) GetLedger() contract.PartitionStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.PartitionStore)
	return store
}

// GetSnapshotStore implements the StoreManager interface.
func (m *MockStoreManager) GetSnapshotStore() contract.CacheStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.CacheStore)
	return store
}

// MockCacheStore is a mock implementation of CacheStore for testing.
type MockCacheStore struct {
	mock.Mock
}

var _ contract.CacheStore = &MockCacheStore{} // Compile-time check

// Get implements the CacheStore interface.
func (m *MockCacheStore) Get(key string) ([]byte, int, int64, error) {
	args := m.Called(key)
	data, _ := args.Get(0).([]byte)
	return data, args.Int(1), args.Get(2).(int64), args.Error(3)
}

// Set implements the CacheStore interface.
func (m *MockCacheStore) Set(key string, data []byte, version int, ts int64) error {
	args := m.Called(key, data, version, ts)
	return args.Error(0)
}

// GetStatus implements the CacheStore interface.
func (m *MockCacheStore) GetStatus() (schema.CacheStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// Close implements the CacheStore interface.
func (m *MockCacheStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockPartitionStore is a mock implementation of PartitionStore for testing.
type MockPartitionStore struct {
	mock.Mock
}

var _ contract.PartitionStore = &MockPartitionStore{} // Compile-time check

// Open implements the PartitionTransport interface.
func (m *MockPartitionStore) Open(ctx context.Context, country string) (schema.PartitionHandle, error) {
	args := m.Called(ctx, country)
	return args.Get(0).(schema.PartitionHandle), args.Error(1)
}

// ReadRows implements the PartitionTransport interface.
func (m *MockPartitionStore) ReadRows(ctx context.Context, h schema.PartitionHandle) ([]schema.PartitionRow, error) {
	args := m.Called(ctx, h)
	rows, _ := args.Get(0).([]schema.PartitionRow)
	return rows, args.Error(1)
}

// WriteRows implements the PartitionTransport interface.
func (m *MockPartitionStore) WriteRows(ctx context.Context, h schema.PartitionHandle, rows []schema.PartitionRow) error {
	args := m.Called(ctx, h, rows)
	return args.Error(0)
}

// Revision implements the Revisioner interface.
func (m *MockPartitionStore) Revision(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// Provision implements the PartitionStore interface.
func (m *MockPartitionStore) Provision(ctx context.Context, country string) (bool, error) {
	args := m.Called(ctx, country)
	return args.Bool(0), args.Error(1)
}

// ListPartitions implements the PartitionStore interface.
func (m *MockPartitionStore) ListPartitions(ctx context.Context) ([]schema.PartitionInfo, error) {
	args := m.Called(ctx)
	infos, _ := args.Get(0).([]schema.PartitionInfo)
	return infos, args.Error(1)
}

// GetStatus implements the PartitionStore interface.
func (m *MockPartitionStore) GetStatus() (schema.LedgerStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.LedgerStatus), args.Error(1)
}

// Close implements the PartitionStore interface.
func (m *MockPartitionStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
