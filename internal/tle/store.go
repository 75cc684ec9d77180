package tle

import (
	"sync/atomic"
	"time"
)

// Store keeps the most recently fetched dataset for reporting. Resolution
// never reads from it.
type Store struct {
	dataset atomic.Pointer[TLEDataset]
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the latest dataset, or nil.
func (s *Store) Get() *TLEDataset {
	return s.dataset.Load()
}

// Set replaces the latest dataset.
func (s *Store) Set(ds *TLEDataset) {
	s.dataset.Store(ds)
}

// AgeSeconds returns the age of the latest dataset, or -1 when none is held.
func (s *Store) AgeSeconds() float64 {
	ds := s.dataset.Load()
	if ds == nil {
		return -1
	}
	return time.Since(ds.FetchedAt).Seconds()
}
