// Package httpclient is the rate-limited JSON client shared by the upstream adapters
// (OSMCha, the OSM API, Overpass, Panoramax, Imgur and Mastodon).
//
// The client handles JSON decoding, status mapping and retries:
//   - network failures and HTTP 5xx/429 wrap ErrTransientFetch and are retried
//   - HTTP 404 wraps ErrNotFound
//   - any other non-2xx status is returned as ErrUnexpectedStatus
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/observability"
)

const (
	defaultTimeout      = 30 * time.Second
	maxResponseBodySize = 10 * 1024 * 1024 // 10MB
	maxDownloadSize     = 50 * 1024 * 1024 // 50MB
	errBodyReadLimit    = 1024
	errStatusBodyFmt    = "%w: status %d, body: %s"
	headerUserAgent     = "User-Agent"
	headerAccept        = "Accept"
	contentTypeJSON     = "application/json"
	downloadFilePerm    = 0o600
)

// ErrUnexpectedStatus is returned for non-2xx responses that are neither missing nor transient.
var ErrUnexpectedStatus = errors.New("unexpected http status")

// Config configures a Client.
type Config struct {
	// Source labels metrics and errors, e.g. "osmcha".
	Source string
	// RequestsPerSecond bounds the request rate; <= 0 disables limiting.
	RequestsPerSecond float64
	Timeout           time.Duration
	UserAgent         string
	Retry             RetryConfig
	// Transport overrides the HTTP transport, used by tests.
	Transport http.RoundTripper
}

// Client performs rate-limited GET requests.
type Client struct {
	source     string
	userAgent  string
	httpClient *http.Client
	base       http.RoundTripper
	limiter    *rate.Limiter
	retry      RetryConfig
}

// New creates a Client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	return &Client{
		source:    cfg.Source,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: base,
		},
		base:    base,
		limiter: limiter,
		retry:   cfg.Retry.withDefaults(),
	}
}

// Source returns the metrics label of the client.
func (c *Client) Source() string {
	return c.source
}

// GetJSON fetches url and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	body, err := c.Get(ctx, url, headers)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: parse response of %s: %w", c.source, url, err)
	}

	return nil
}

// Get fetches url and returns the body, retrying transient failures.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	var body []byte

	err := c.withRetry(ctx, func() error {
		var err error

		body, err = c.getOnce(ctx, url, headers, maxResponseBodySize)

		return err
	})

	return body, err
}

// Download stores the body of url in path.
func (c *Client) Download(ctx context.Context, url, path string) error {
	var body []byte

	err := c.withRetry(ctx, func() error {
		var err error

		body, err = c.getOnce(ctx, url, nil, maxDownloadSize)

		return err
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, body, downloadFilePerm); err != nil {
		return fmt.Errorf("%s: write %s: %w", c.source, path, err)
	}

	return nil
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// Transport returns a RoundTripper sharing the limiter, user agent and metrics of the
// client, for SDKs that bring their own request code. A non-2xx response is returned
// as an error carrying the same sentinels as Get. Requests are not retried.
func (c *Client) Transport() http.RoundTripper {
	return roundTripper{client: c}
}

type roundTripper struct {
	client *Client
}

func (t roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.client.send(req.Clone(req.Context()), t.client.base.RoundTrip)
	if err != nil {
		return nil, err
	}

	if !successful(resp.StatusCode) {
		defer resp.Body.Close()
		return nil, t.client.statusError(req, resp)
	}

	return resp, nil
}

func (c *Client) getOnce(ctx context.Context, url string, headers map[string]string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", c.source, err)
	}

	req.Header.Set(headerAccept, contentTypeJSON)

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return c.do(req, limit)
}

func (c *Client) do(req *http.Request, limit int64) ([]byte, error) {
	resp, err := c.send(req, c.httpClient.Do)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !successful(resp.StatusCode) {
		return nil, c.statusError(req, resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read response: %w", coreerrors.ErrTransientFetch, c.source, err)
	}

	return body, nil
}

// send waits for the limiter, then performs req with next and records its duration.
func (c *Client) send(req *http.Request, next func(*http.Request) (*http.Response, error)) (*http.Response, error) {
	ctx := req.Context()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limiter: %w", c.source, err)
	}

	if c.userAgent != "" && req.Header.Get(headerUserAgent) == "" {
		req.Header.Set(headerUserAgent, c.userAgent)
	}

	start := time.Now()

	resp, err := next(req)

	observability.FetchDuration.WithLabelValues(c.source).Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: request %s: %w", c.source, req.URL, ctx.Err())
		}

		return nil, fmt.Errorf("%w: %s: request %s: %w", coreerrors.ErrTransientFetch, c.source, req.URL, err)
	}

	return resp, nil
}

func successful(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

func (c *Client) statusError(req *http.Request, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyReadLimit))

	var sentinel error

	switch {
	case resp.StatusCode == http.StatusNotFound:
		sentinel = coreerrors.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= http.StatusInternalServerError:
		sentinel = coreerrors.ErrTransientFetch
	default:
		sentinel = ErrUnexpectedStatus
	}

	return fmt.Errorf("%s: %s: "+errStatusBodyFmt, c.source, req.URL, sentinel, resp.StatusCode, string(body))
}
