// Package iocache persists analysis reports, teaching batches and test execution history.
package iocache

import (
	"sync"

	"github.com/huangsam/triad/internal/contract"
)

// StoreManager manages the report and history stores.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	reports      contract.ReportStore
	history      contract.HistoryStore
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// GetReportStore returns the ReportStore.
func (mgr *StoreManager) GetReportStore() contract.ReportStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.reports
}

// GetHistoryStore returns the HistoryStore.
func (mgr *StoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
