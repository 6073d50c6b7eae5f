// Package shortener wraps the external link-shortening provider. The
// provider contract: GET <endpoint>?access_token=...&longUrl=<url>
// returns {"status_code": int, "data": {"url": string}}; status_code
// 200 means success. Anything else is a hard failure for the caller.
package shortener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/citycal/server/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds every provider call. Expiry aborts event
	// creation before anything is persisted.
	DefaultTimeout = 8 * time.Second
	// DefaultRateLimit keeps us under typical provider quotas.
	DefaultRateLimit = rate.Limit(10)
)

var (
	// ErrProviderStatus is returned when the provider answered with a
	// non-200 status_code in its JSON body.
	ErrProviderStatus = errors.New("link shortener returned failure status")
	// ErrMalformedResponse is returned when the provider body could not
	// be decoded.
	ErrMalformedResponse = errors.New("malformed link shortener response")
)

// Client calls the link-shortening provider.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	accessToken string
	limiter     *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-call deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRateLimit sets a custom rate limit (requests per second).
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewClient creates a provider client for the given endpoint and token.
func NewClient(endpoint, accessToken string, opts ...Option) *Client {
	client := &Client{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		endpoint:    endpoint,
		accessToken: accessToken,
		limiter:     rate.NewLimiter(DefaultRateLimit, 1),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type shortenResponse struct {
	StatusCode int `json:"status_code"`
	Data       struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Shorten requests a shortened public link for longURL. Any transport
// failure, malformed body, or non-200 provider status_code is an error;
// there are no retries.
func (c *Client) Shorten(ctx context.Context, longURL string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("shortener rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("access_token", c.accessToken)
	params.Set("longUrl", longURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build shortener request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ShortenerRequestsTotal.WithLabelValues("transport_error").Inc()
		return "", fmt.Errorf("call link shortener: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		metrics.ShortenerRequestsTotal.WithLabelValues("transport_error").Inc()
		return "", fmt.Errorf("read shortener response: %w", err)
	}

	var payload shortenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.ShortenerRequestsTotal.WithLabelValues("transport_error").Inc()
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if payload.StatusCode != http.StatusOK {
		metrics.ShortenerRequestsTotal.WithLabelValues("provider_error").Inc()
		return "", fmt.Errorf("%w: status %d", ErrProviderStatus, payload.StatusCode)
	}
	if payload.Data.URL == "" {
		metrics.ShortenerRequestsTotal.WithLabelValues("provider_error").Inc()
		return "", fmt.Errorf("%w: empty url", ErrMalformedResponse)
	}

	metrics.ShortenerRequestsTotal.WithLabelValues("success").Inc()
	return payload.Data.URL, nil
}
