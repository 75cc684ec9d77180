package tle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrCacheEmpty is returned by LoadLatest when no cached copy exists.
var ErrCacheEmpty = errors.New("no cached TLE data")

// Cache keeps the last few downloads of one satellite group on disk, one
// file per fetch named <group>-<unix millis>.tle.
type Cache struct {
	dir      string
	prefix   string
	maxFiles int
}

// NewCache creates a Cache for group in dir that keeps at most maxFiles copies.
func NewCache(dir, group string, maxFiles int) *Cache {
	if maxFiles <= 0 {
		maxFiles = 5
	}
	if group == "" {
		group = DefaultGroup
	}
	return &Cache{dir: dir, prefix: sanitizeGroup(group) + "-", maxFiles: maxFiles}
}

func sanitizeGroup(g string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '_'
	}, g)
}

// Write stores data under the fetch time and drops the oldest copies. The
// file is renamed into place so a concurrent LoadLatest never sees it half
// written.
func (c *Cache) Write(data []byte, fetchedAt time.Time) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, ".partial-*")
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing cache file: %w", err)
	}
	name := c.prefix + strconv.FormatInt(fetchedAt.UnixMilli(), 10) + ".tle"
	if err := os.Rename(tmp.Name(), filepath.Join(c.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("placing cache file: %w", err)
	}
	return c.prune()
}

// LoadLatest returns the newest cached copy and its fetch time.
func (c *Cache) LoadLatest() ([]byte, time.Time, error) {
	files, err := c.listFiles()
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(files) == 0 {
		return nil, time.Time{}, ErrCacheEmpty
	}

	latest := files[len(files)-1]
	data, err := os.ReadFile(filepath.Join(c.dir, latest.name))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading cache file: %w", err)
	}
	return data, latest.fetchedAt, nil
}

type cacheFile struct {
	name      string
	fetchedAt time.Time
}

// listFiles returns this group's cache files, oldest first.
func (c *Cache) listFiles() ([]cacheFile, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing cache dir: %w", err)
	}

	var files []cacheFile
	for _, e := range entries {
		name := e.Name()
		stamp, ok := strings.CutPrefix(name, c.prefix)
		if e.IsDir() || !ok {
			continue
		}
		stamp, ok = strings.CutSuffix(stamp, ".tle")
		if !ok {
			continue
		}
		ms, err := strconv.ParseInt(stamp, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, cacheFile{name: name, fetchedAt: time.UnixMilli(ms)})
	}

	slices.SortFunc(files, func(a, b cacheFile) int { return a.fetchedAt.Compare(b.fetchedAt) })
	return files, nil
}

func (c *Cache) prune() error {
	files, err := c.listFiles()
	if err != nil || len(files) <= c.maxFiles {
		return err
	}
	var errs []error
	for _, f := range files[:len(files)-c.maxFiles] {
		if err := os.Remove(filepath.Join(c.dir, f.name)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("pruning %s: %w", f.name, err))
		}
	}
	return errors.Join(errs...)
}
