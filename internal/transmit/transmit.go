// Package transmit sends mount angles to the pointing sink over HTTP.
package transmit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/star/starseeker/internal/httputil"
	"github.com/star/starseeker/internal/metrics"
	"github.com/star/starseeker/internal/sky"
)

// ErrRejected is returned when the sink answers with anything but 200.
var ErrRejected = fmt.Errorf("%w: sink rejected command", sky.ErrTransmitFailed)

// Client issues GET <base>?alt=<deg>&az=<deg>.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	retry      httputil.RetryConfig
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetries allows n extra attempts on transport errors and 5xx/429 answers.
func WithRetries(n int) Option {
	return func(c *Client) { c.retry = c.retry.Attempts(n + 1) }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient validates baseURL and returns a Client.
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse sink url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("sink url %q must be http or https", baseURL)
	}
	c := &Client{
		base:       u,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		retry:      httputil.DefaultRetryConfig().Attempts(1),
		logger:     logger,
		tracer:     otel.Tracer("github.com/star/starseeker/internal/transmit"),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// CommandURL returns the request URL for mount angles m.
func (c *Client) CommandURL(m sky.Horizontal) string {
	u := *c.base
	q := u.Query()
	q.Set("alt", strconv.FormatFloat(m.AltitudeDeg, 'f', 6, 64))
	q.Set("az", strconv.FormatFloat(m.AzimuthDeg, 'f', 6, 64))
	u.RawQuery = q.Encode()
	return u.String()
}

// Transmit sends m and returns the sink's last status code (0 when no
// response was received). Only 200 counts as success.
func (c *Client) Transmit(ctx context.Context, m sky.Horizontal) (int, error) {
	ctx, span := c.tracer.Start(ctx, "transmit.Send", trace.WithAttributes(
		attribute.Float64("mount.azimuth_deg", m.AzimuthDeg),
		attribute.Float64("mount.altitude_deg", m.AltitudeDeg),
	))
	defer span.End()

	target := c.CommandURL(m)
	status := 0
	err := httputil.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return httputil.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			status = 0
			return err
		}
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		status = resp.StatusCode

		if resp.StatusCode == http.StatusOK {
			return nil
		}
		rejected := fmt.Errorf("%w: HTTP %d", ErrRejected, resp.StatusCode)
		if httputil.IsRetryableHTTPStatus(resp.StatusCode) {
			return rejected
		}
		return httputil.Permanent(rejected)
	})

	metrics.ObserveTransmit(status)
	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		if status == 0 {
			err = fmt.Errorf("%w: %w", sky.ErrTransmitFailed, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "transmit failed")
		c.logger.Warn("transmit failed", "component", "transmit", "url", target, "status", status, "error", err)
		return status, err
	}
	c.logger.Info("transmitted", "component", "transmit", "alt", m.AltitudeDeg, "az", m.AzimuthDeg, "status", status)
	return status, nil
}
