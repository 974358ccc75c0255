// Package iocache persists the override ledger and caches rating snapshots.
package iocache

import (
	"sync"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
)

// StoreManagerImpl holds the ledger and snapshot store instances.
type StoreManagerImpl struct {
	sync.RWMutex // Protects the store pointers during initialization
	ledger       contract.PartitionStore
	snapshots    contract.CacheStore
}

var _ contract.StoreManager = &StoreManagerImpl{} // Compile-time check

// GetLedger returns the override ledger.
func (mgr *StoreManagerImpl) GetLedger() contract.PartitionStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.ledger
}

// GetSnapshotStore returns the rating snapshot cache.
func (mgr *StoreManagerImpl) GetSnapshotStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.snapshots
}
