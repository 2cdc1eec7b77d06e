// Package store holds client-side authoritative state fetched from the
// export service. All mutation is funneled through single-writer actions;
// the stores only guard against concurrent reads during a write.
package store

import (
	"sync"

	"github.com/osm-exports/exportctl/internal/models"
)

// FetchState tracks the listing/record fetch lifecycle.
type FetchState string

const (
	FetchIdle     FetchState = "idle"
	FetchFetching FetchState = "fetching"
	FetchReceived FetchState = "received"
	FetchError    FetchState = "error"
)

// StoreError is the last fetch failure, with the HTTP status when one was
// received.
type StoreError struct {
	Err        error
	StatusCode int
}

// RegionStore holds the current page of listed regions, the currently viewed
// record, and fetch status. It never holds two records with the same id.
type RegionStore struct {
	mu sync.RWMutex

	page       []*models.ExportRegion
	count      int
	activePage int

	current *models.ExportRegion

	state   FetchState
	lastErr *StoreError

	listeners []func()
}

// NewRegionStore creates an empty store.
func NewRegionStore() *RegionStore {
	return &RegionStore{state: FetchIdle}
}

// Subscribe registers a callback invoked after every mutation. Callbacks run
// outside the store lock.
func (s *RegionStore) Subscribe(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *RegionStore) notify() {
	s.mu.RLock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

// Fetching marks a fetch as in progress.
func (s *RegionStore) Fetching() {
	s.mu.Lock()
	s.state = FetchFetching
	s.lastErr = nil
	s.mu.Unlock()
	s.notify()
}

// ReceivedPage replaces the listed page.
func (s *RegionStore) ReceivedPage(page int, count int, regions []*models.ExportRegion) {
	s.mu.Lock()
	s.state = FetchReceived
	s.activePage = page
	s.count = count
	s.page = dedupeByID(regions)
	s.mu.Unlock()
	s.notify()
}

// ReceivedRegion replaces the currently viewed record.
func (s *RegionStore) ReceivedRegion(region *models.ExportRegion) {
	s.mu.Lock()
	s.state = FetchReceived
	s.current = region
	s.replaceInPage(region)
	s.mu.Unlock()
	s.notify()
}

// FetchFailed records a fetch error and its status code.
func (s *RegionStore) FetchFailed(err error, statusCode int) {
	s.mu.Lock()
	s.state = FetchError
	s.lastErr = &StoreError{Err: err, StatusCode: statusCode}
	s.mu.Unlock()
	s.notify()
}

// Created inserts a newly created record without requiring a re-fetch.
func (s *RegionStore) Created(region *models.ExportRegion) {
	s.mu.Lock()
	s.current = region
	s.removeFromPage(region.ID)
	s.page = append(s.page, region)
	s.count++
	s.mu.Unlock()
	s.notify()
}

// Updated merges updated fields at the known id.
func (s *RegionStore) Updated(region *models.ExportRegion) {
	s.mu.Lock()
	if s.current != nil && s.current.ID == region.ID {
		s.current = region
	}
	s.replaceInPage(region)
	s.mu.Unlock()
	s.notify()
}

// Deleted removes the record entirely.
func (s *RegionStore) Deleted(id int64) {
	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	if s.removeFromPage(id) {
		s.count--
	}
	s.mu.Unlock()
	s.notify()
}

// Current returns the currently viewed record, or nil.
func (s *RegionStore) Current() *models.ExportRegion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Page returns the listed page, its 1-based number, and the total count.
func (s *RegionStore) Page() ([]*models.ExportRegion, int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	page := make([]*models.ExportRegion, len(s.page))
	copy(page, s.page)
	return page, s.activePage, s.count
}

// State returns the fetch state.
func (s *RegionStore) State() FetchState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastError returns the most recent fetch failure, or nil.
func (s *RegionStore) LastError() *StoreError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// replaceInPage swaps the page entry with the same id, if present.
func (s *RegionStore) replaceInPage(region *models.ExportRegion) {
	for i, existing := range s.page {
		if existing.ID == region.ID {
			s.page[i] = region
			return
		}
	}
}

// removeFromPage drops the page entry with the given id.
func (s *RegionStore) removeFromPage(id int64) bool {
	for i, existing := range s.page {
		if existing.ID == id {
			s.page = append(s.page[:i], s.page[i+1:]...)
			return true
		}
	}
	return false
}

// dedupeByID keeps the last record for each id, preserving order of first
// appearance.
func dedupeByID(regions []*models.ExportRegion) []*models.ExportRegion {
	seen := make(map[int64]int, len(regions))
	out := make([]*models.ExportRegion, 0, len(regions))
	for _, region := range regions {
		if i, ok := seen[region.ID]; ok {
			out[i] = region
			continue
		}
		seen[region.ID] = len(out)
		out = append(out, region)
	}
	return out
}
