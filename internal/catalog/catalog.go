// Package catalog loads Hipparcos star positions and resolves common star
// names to Hipparcos numbers.
package catalog

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
)

// EpochJD is the Hipparcos catalog epoch J1991.25 as a Julian Date (TT).
const EpochJD = 2448349.0625

//go:embed data/hip_bright.dat
var embedded []byte

// Star is one Hipparcos entry. Proper motion in RA already includes cos(Dec).
type Star struct {
	HIP         int
	Vmag        float64
	RADeg       float64
	DecDeg      float64
	ParallaxMas float64
	PMRAMasYr   float64
	PMDecMasYr  float64
}

// Catalog is an immutable set of stars keyed by Hipparcos number.
type Catalog struct {
	source string
	stars  map[int]Star
}

// Lookup returns the star with the given Hipparcos number.
func (c *Catalog) Lookup(hip int) (Star, bool) {
	s, ok := c.stars[hip]
	return s, ok
}

// Len returns the number of stars.
func (c *Catalog) Len() int { return len(c.stars) }

// Source describes where the catalog was loaded from.
func (c *Catalog) Source() string { return c.source }

// Parse reads the pipe-separated hip_main.dat layout. Fields used: 1 HIP,
// 5 Vmag, 8 RAdeg, 9 DEdeg, 11 Plx, 12 pmRA, 13 pmDE. Entries without an
// astrometric solution are skipped.
func Parse(r io.Reader, source string, logger *slog.Logger) (*Catalog, error) {
	c := &Catalog{source: source, stars: make(map[int]Star)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	skipped := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < 14 {
			skipped++
			logger.Warn("skipping short catalog line", "source", source, "line", lineNo)
			continue
		}
		s, err := parseStar(fields)
		if err != nil {
			skipped++
			logger.Debug("skipping catalog entry", "source", source, "line", lineNo, "error", err)
			continue
		}
		c.stars[s.HIP] = s
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", source, err)
	}
	if len(c.stars) == 0 {
		return nil, fmt.Errorf("catalog %s contains no usable stars", source)
	}

	logger.Info("star catalog loaded", "source", source, "stars", len(c.stars), "skipped", skipped)
	return c, nil
}

func parseStar(f []string) (Star, error) {
	num := func(i int) (float64, error) {
		v := strings.TrimSpace(f[i])
		if v == "" {
			return 0, fmt.Errorf("field %d empty", i)
		}
		return strconv.ParseFloat(v, 64)
	}

	hip, err := strconv.Atoi(strings.TrimSpace(f[1]))
	if err != nil {
		return Star{}, fmt.Errorf("invalid HIP %q: %w", f[1], err)
	}
	s := Star{HIP: hip}
	if s.RADeg, err = num(8); err != nil {
		return Star{}, err
	}
	if s.DecDeg, err = num(9); err != nil {
		return Star{}, err
	}
	// Missing magnitude, parallax or proper motion degrade to zero.
	s.Vmag, _ = num(5)
	s.ParallaxMas, _ = num(11)
	s.PMRAMasYr, _ = num(12)
	s.PMDecMasYr, _ = num(13)
	return s, nil
}

// Loader loads a catalog at most once. A path always wins; otherwise an
// attached Downloader supplies the full catalog, and the embedded
// bright-star subset is used when there is neither or the download fails.
type Loader struct {
	path       string
	downloader *Downloader
	logger     *slog.Logger

	once sync.Once
	cat  *Catalog
	err  error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithDownloader fetches the full catalog when no path is configured.
func WithDownloader(d *Downloader) LoaderOption {
	return func(l *Loader) { l.downloader = d }
}

// NewLoader creates a Loader for the given file path.
func NewLoader(path string, logger *slog.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{path: path, logger: logger}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load returns the catalog, reading it on first call.
func (l *Loader) Load() (*Catalog, error) {
	return l.LoadContext(context.Background())
}

// LoadContext is Load with a context bounding a first-time download.
func (l *Loader) LoadContext(ctx context.Context) (*Catalog, error) {
	l.once.Do(func() {
		switch {
		case l.path != "":
			l.cat, l.err = l.loadFile()
		case l.downloader != nil:
			l.cat, l.err = l.loadDownloaded(ctx)
		default:
			l.cat, l.err = Parse(bytes.NewReader(embedded), "embedded", l.logger)
		}
	})
	return l.cat, l.err
}

func (l *Loader) loadFile() (*Catalog, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	return Parse(f, l.path, l.logger)
}

func (l *Loader) loadDownloaded(ctx context.Context) (*Catalog, error) {
	data, source, err := l.downloader.Fetch(ctx)
	if err == nil {
		var cat *Catalog
		if cat, err = Parse(bytes.NewReader(data), source, l.logger); err == nil {
			return cat, nil
		}
	}
	l.logger.Warn("full star catalog unavailable, using embedded bright stars",
		"component", "catalog", "error", err)
	return Parse(bytes.NewReader(embedded), "embedded", l.logger)
}

// Loaded reports whether the catalog has been loaded successfully.
func (l *Loader) Loaded() bool {
	c, err := l.Load()
	return err == nil && c != nil
}
