package tle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNoElements is returned when a fetch yields no parseable element sets.
var ErrNoElements = errors.New("no element sets in TLE data")

// GroupSource fetches a satellite group live on every call. When a cache is
// attached, each successful download is written to it; with fallback
// enabled a failed download is served from a cached copy younger than
// maxAge, marked stale.
type GroupSource struct {
	fetcher  *Fetcher
	store    *Store
	cache    *Cache
	fallback bool
	maxAge   time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// GroupSourceOption configures a GroupSource.
type GroupSourceOption func(*GroupSource)

// WithCache attaches an on-disk cache.
func WithCache(c *Cache) GroupSourceOption {
	return func(s *GroupSource) { s.cache = c }
}

// WithStaleFallback serves cached data up to maxAge old when the fetch fails.
func WithStaleFallback(maxAge time.Duration) GroupSourceOption {
	return func(s *GroupSource) {
		s.fallback = true
		s.maxAge = maxAge
	}
}

// NewGroupSource creates a GroupSource that records fetched datasets in store.
func NewGroupSource(fetcher *Fetcher, store *Store, logger *slog.Logger, opts ...GroupSourceOption) *GroupSource {
	s := &GroupSource{fetcher: fetcher, store: store, now: time.Now, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Satellites downloads and parses the group.
func (s *GroupSource) Satellites(ctx context.Context) ([]TLEEntry, error) {
	ds, err := s.fetch(ctx)
	if err == nil {
		return ds.Satellites, nil
	}
	// Only cancellation skips the cache; an expired deadline still falls back.
	if !s.fallback || s.cache == nil || errors.Is(ctx.Err(), context.Canceled) {
		return nil, err
	}

	stale, ferr := s.loadCached()
	if ferr != nil {
		s.logger.Debug("no usable cached TLE data", "component", "tle", "error", ferr)
		return nil, err
	}
	s.logger.Warn("serving stale TLE data", "component", "tle",
		"fetch_error", err, "cached_at", stale.FetchedAt, "satellites", len(stale.Satellites))
	return stale.Satellites, nil
}

func (s *GroupSource) fetch(ctx context.Context) (*TLEDataset, error) {
	data, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := Parse(bytes.NewReader(data), s.logger)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w from %s", ErrNoElements, s.fetcher.SourceURL())
	}

	fetchedAt := s.now()
	ds := NewDataset(s.fetcher.SourceURL(), fetchedAt, entries)
	if s.store != nil {
		s.store.Set(ds)
	}
	if s.cache != nil {
		if err := s.cache.Write(data, fetchedAt); err != nil {
			s.logger.Warn("failed to cache TLE data", "component", "tle", "error", err)
		}
	}
	return ds, nil
}

func (s *GroupSource) loadCached() (*TLEDataset, error) {
	data, ts, err := s.cache.LoadLatest()
	if err != nil {
		return nil, err
	}
	if age := s.now().Sub(ts); age > s.maxAge {
		return nil, fmt.Errorf("cached copy is %s old, limit %s", age.Round(time.Second), s.maxAge)
	}
	entries, err := Parse(bytes.NewReader(data), s.logger)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoElements
	}
	ds := NewDataset("cache", ts, entries)
	ds.Stale = true
	if s.store != nil {
		s.store.Set(ds)
	}
	return ds, nil
}
