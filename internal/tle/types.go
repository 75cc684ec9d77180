// Package tle fetches, parses and keeps two-line element sets for the
// satellites the resolver can point at.
package tle

import (
	"strings"
	"time"
)

// TLEEntry represents a single satellite's two-line element set.
type TLEEntry struct {
	NORADID int       `json:"norad_id"`
	Name    string    `json:"name"`
	Epoch   time.Time `json:"epoch"`
	Line1   string    `json:"line1"`
	Line2   string    `json:"line2"`
}

// EpochRange represents the minimum and maximum epoch times in a dataset.
type EpochRange struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// TLEDataset is one fetched set of element sets.
type TLEDataset struct {
	Source     string     `json:"source"`
	FetchedAt  time.Time  `json:"fetched_at"`
	Stale      bool       `json:"stale"`
	EpochRange EpochRange `json:"epoch_range"`
	Satellites []TLEEntry `json:"-"`
}

// NewDataset builds a dataset and computes its epoch range.
func NewDataset(source string, fetchedAt time.Time, entries []TLEEntry) *TLEDataset {
	ds := &TLEDataset{Source: source, FetchedAt: fetchedAt, Satellites: entries}
	for i, e := range entries {
		if i == 0 || e.Epoch.Before(ds.EpochRange.Min) {
			ds.EpochRange.Min = e.Epoch
		}
		if i == 0 || e.Epoch.After(ds.EpochRange.Max) {
			ds.EpochRange.Max = e.Epoch
		}
	}
	return ds
}

// FindByName returns the first entry whose name matches, ignoring case and
// surrounding whitespace.
func FindByName(entries []TLEEntry, name string) (TLEEntry, bool) {
	want := strings.TrimSpace(name)
	for _, e := range entries {
		if strings.EqualFold(e.Name, want) {
			return e, true
		}
	}
	return TLEEntry{}, false
}

// FindByNORAD returns the entry with the given catalog number.
func FindByNORAD(entries []TLEEntry, id int) (TLEEntry, bool) {
	for _, e := range entries {
		if e.NORADID == id {
			return e, true
		}
	}
	return TLEEntry{}, false
}
