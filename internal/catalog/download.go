package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/star/starseeker/internal/httputil"
)

const (
	// DefaultURL is the CDS copy of the Hipparcos main catalog (I/239).
	DefaultURL = "https://cdsarc.cds.unistra.fr/ftp/cats/I/239/hip_main.dat"

	cacheFileName = "hip_main.dat"
	maxBodyBytes  = 128 << 20
)

// Downloader fetches the full Hipparcos catalog once and keeps it on disk.
// The catalog is static, so a cached copy never expires.
type Downloader struct {
	url        string
	cacheDir   string
	httpClient *http.Client
	retry      httputil.RetryConfig
	logger     *slog.Logger
}

// NewDownloader creates a Downloader for url that caches into cacheDir.
// An empty cacheDir downloads on every load.
func NewDownloader(url, cacheDir string, timeout time.Duration, logger *slog.Logger) *Downloader {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Downloader{
		url:        url,
		cacheDir:   cacheDir,
		httpClient: &http.Client{Timeout: timeout},
		retry:      httputil.DefaultRetryConfig().Attempts(1),
		logger:     logger,
	}
}

// WithRetry sets the retry policy for the download.
func (d *Downloader) WithRetry(cfg httputil.RetryConfig) *Downloader {
	d.retry = cfg
	return d
}

// CachePath returns the on-disk location of the cached catalog, or "" when
// caching is off.
func (d *Downloader) CachePath() string {
	if d.cacheDir == "" {
		return ""
	}
	return filepath.Join(d.cacheDir, cacheFileName)
}

// Fetch returns the catalog text and a description of where it came from:
// the cache file when present, otherwise a fresh download that is then
// written to the cache.
func (d *Downloader) Fetch(ctx context.Context) ([]byte, string, error) {
	if p := d.CachePath(); p != "" {
		data, err := os.ReadFile(p)
		if err == nil && len(data) > 0 {
			return data, p, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("unreadable cached catalog", "component", "catalog", "path", p, "error", err)
		}
	}

	var body []byte
	err := httputil.WithRetry(ctx, d.retry, func() error {
		var err error
		body, err = d.fetchOnce(ctx)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	if body, err = gunzipIfNeeded(body); err != nil {
		return nil, "", err
	}

	if p := d.CachePath(); p != "" {
		if err := writeAtomic(p, body); err != nil {
			d.logger.Warn("failed to cache star catalog", "component", "catalog", "path", p, "error", err)
		}
	}
	d.logger.Info("star catalog downloaded", "component", "catalog", "url", d.url, "bytes", len(body))
	return body, d.url, nil
}

func (d *Downloader) fetchOnce(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, httputil.Permanent(fmt.Errorf("creating request: %w", err))
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching star catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, d.url)
		if !httputil.IsRetryableHTTPStatus(resp.StatusCode) {
			return nil, httputil.Permanent(err)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, httputil.Permanent(fmt.Errorf("response from %s exceeds %d byte limit", d.url, maxBodyBytes))
	}
	return body, nil
}

// gunzipIfNeeded accepts both hip_main.dat and hip_main.dat.gz.
func gunzipIfNeeded(body []byte) ([]byte, error) {
	if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
		return body, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("opening gzip catalog: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing catalog: %w", err)
	}
	if len(out) > maxBodyBytes {
		return nil, fmt.Errorf("decompressed catalog exceeds %d byte limit", maxBodyBytes)
	}
	return out, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".partial-*")
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
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("placing cache file: %w", err)
	}
	return nil
}
