// Package usaspending searches federal contract awards through the
// USAspending.gov API and turns them into dated events.
package usaspending

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for the USAspending v2 API.
	DefaultBaseURL = "https://api.usaspending.gov/api/v2"

	DefaultTimeout   = 60 * time.Second
	DefaultRateLimit = 2
	DefaultPageLimit = 100
	DefaultMaxPages  = 5
)

// DefaultAwardTypeCodes are the contract award types: definitive contracts,
// purchase orders, delivery orders and BPA calls.
var DefaultAwardTypeCodes = []string{"A", "B", "C", "D"}

// Client is a USAspending API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	awardTypes []string
	pageLimit  int
	maxPages   int
	maxRetries int
	retryBase  time.Duration
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithRateLimit sets a custom rate limit. Values below 1 disable limiting.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond < 1 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithAwardTypes overrides the award type codes searched.
func WithAwardTypes(codes []string) ClientOption {
	return func(c *Client) {
		if len(codes) > 0 {
			c.awardTypes = codes
		}
	}
}

// WithPaging sets the page size and the maximum number of pages followed.
func WithPaging(limit, maxPages int) ClientOption {
	return func(c *Client) {
		if limit > 0 {
			c.pageLimit = limit
		}
		if maxPages > 0 {
			c.maxPages = maxPages
		}
	}
}

// WithRetry sets how often a 5xx or 429 response is retried and the initial backoff.
func WithRetry(maxRetries int, base time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryBase = base
	}
}

// NewClient creates a new USAspending client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		awardTypes: DefaultAwardTypeCodes,
		pageLimit:  DefaultPageLimit,
		maxPages:   DefaultMaxPages,
		maxRetries: 2,
		retryBase:  time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError represents a non-200 response from the API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("usaspending API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

func (e *APIError) retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// postWithRetry posts payload to path, retrying transient failures with
// exponential backoff.
func (c *Client) postWithRetry(ctx context.Context, path string, payload, result interface{}) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		err := c.post(ctx, path, payload, result)
		if err == nil {
			return nil
		}
		lastErr = err
		apiErr, ok := err.(*APIError)
		if !ok || !apiErr.retryable() || i == c.maxRetries {
			break
		}
		backoff := c.retryBase * time.Duration(1<<uint(i))
		log.Warn().Err(err).Int("attempt", i+1).Dur("backoff", backoff).Msg("usaspending request failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return lastErr
}

func (c *Client) post(ctx context.Context, path string, payload, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: string(msg), Endpoint: path}
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
