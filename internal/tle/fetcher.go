package tle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/star/starseeker/internal/httputil"
)

const (
	// DefaultBaseURL is Celestrak's general-perturbations query endpoint.
	DefaultBaseURL = "https://celestrak.org/NORAD/elements/gp.php"
	// DefaultGroup holds the crewed stations.
	DefaultGroup = "stations"

	maxBodyBytes = 50 << 20
)

// GroupURL returns the TLE-format URL of a Celestrak group.
func GroupURL(baseURL, group string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if group == "" {
		group = DefaultGroup
	}
	q := url.Values{"GROUP": {group}, "FORMAT": {"tle"}}
	return baseURL + "?" + q.Encode()
}

// Fetcher retrieves raw TLE data from a primary source and optional extra
// sources. A failing extra source is logged and skipped.
type Fetcher struct {
	sourceURL  string
	extraURLs  []string
	httpClient *http.Client
	retry      httputil.RetryConfig
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher for the given source URL.
func NewFetcher(sourceURL string, logger *slog.Logger, extraURLs ...string) *Fetcher {
	if sourceURL == "" {
		sourceURL = GroupURL("", "")
	}
	return &Fetcher{
		sourceURL:  sourceURL,
		extraURLs:  extraURLs,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      httputil.DefaultRetryConfig().Attempts(1),
		logger:     logger,
	}
}

// WithRetry sets the retry policy for each source.
func (f *Fetcher) WithRetry(cfg httputil.RetryConfig) *Fetcher {
	f.retry = cfg
	return f
}

// SourceURL returns the configured source URL.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// Fetch downloads the primary source and appends every reachable extra source.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	body, err := f.fetchWithRetry(ctx, f.sourceURL)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(body)
	for _, u := range f.extraURLs {
		extra, err := f.fetchWithRetry(ctx, u)
		if err != nil {
			f.logger.Warn("extra TLE source failed", "component", "tle", "url", u, "error", err)
			continue
		}
		if buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
			buf.WriteByte('\n')
		}
		buf.Write(extra)
	}
	return buf.Bytes(), nil
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, u string) ([]byte, error) {
	var body []byte
	err := httputil.WithRetry(ctx, f.retry, func() error {
		var err error
		body, err = f.fetchOne(ctx, u)
		return err
	})
	return body, err
}

func (f *Fetcher) fetchOne(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, httputil.Permanent(fmt.Errorf("creating request: %w", err))
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching TLE data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, u)
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
		return nil, httputil.Permanent(fmt.Errorf("response from %s exceeds %d byte limit", u, maxBodyBytes))
	}
	return body, nil
}
