package store

import (
	"errors"
	"sync"
	"time"

	"github.com/zorenko/aircap/internal/core/domain"
	"github.com/zorenko/aircap/internal/core/ports"
)

// ErrNotFound is returned when a BSSID is absent from the last scan.
var ErrNotFound = errors.New("access point not found in last scan")

// ScanStore caches the most recent access point scan. Every scan replaces
// the previous snapshot wholesale; entries never expire individually.
type ScanStore struct {
	mu      sync.RWMutex
	aps     []domain.AccessPoint
	takenAt time.Time
}

var _ ports.ScanStore = (*ScanStore)(nil)

// NewScanStore creates an empty store.
func NewScanStore() *ScanStore {
	return &ScanStore{}
}

// RecordScan replaces the cached AP list atomically. The input slice is
// copied so later caller mutations cannot leak into the snapshot.
func (s *ScanStore) RecordScan(aps []domain.AccessPoint) {
	cp := make([]domain.AccessPoint, len(aps))
	copy(cp, aps)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.aps = cp
	s.takenAt = time.Now()
}

// LookupByBSSID finds an AP in the last scan. MAC comparison is
// case-insensitive.
func (s *ScanStore) LookupByBSSID(bssid string) (domain.AccessPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ap := range s.aps {
		if ap.MatchesBSSID(bssid) {
			return ap, nil
		}
	}
	return domain.AccessPoint{}, ErrNotFound
}

// Snapshot returns a copy of the current scan state.
func (s *ScanStore) Snapshot() domain.ScanSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]domain.AccessPoint, len(s.aps))
	copy(cp, s.aps)
	return domain.ScanSnapshot{AccessPoints: cp, TakenAt: s.takenAt}
}
