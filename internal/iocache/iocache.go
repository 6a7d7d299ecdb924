// Package iocache persists repositories, analysis runs, commits, contributors
// and model configs across SQLite, MySQL and PostgreSQL.
package iocache

import (
	"sync"

	"github.com/gitlegend/gitlegend/internal/contract"
)

// StoreManager owns the process-wide Store.
type StoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	store        contract.Store
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// GetStore returns the initialized Store, or nil before InitStore.
func (mgr *StoreManager) GetStore() contract.Store {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.store
}
