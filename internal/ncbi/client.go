// Package ncbi provides the shared HTTP client used by every network stage.
// PubMed E-utilities requests and the secondary page-data fetch go through the
// same retry loop, rate limiter, and response size guard.
package ncbi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the NCBI E-utilities base URL.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	// DefaultTool identifies this application to NCBI.
	DefaultTool = "scapis-dashboard"
	// DefaultEmail is the contact email sent to NCBI.
	DefaultEmail = "scapis-dashboard@users.noreply.github.com"
	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "SCAPIS-Dashboard/1.0"

	// Rate limits per NCBI policy.
	RateWithoutKey = 3  // requests per second without API key
	RateWithKey    = 10 // requests per second with API key

	// DefaultMaxResponseBytes is the maximum response body size (50 MB).
	DefaultMaxResponseBytes int64 = 50 * 1024 * 1024

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	// DefaultAttempts is the total number of tries per URL.
	DefaultAttempts = 3

	// DefaultRetryDelay is multiplied by the attempt number between tries.
	DefaultRetryDelay = 1 * time.Second

	// warnURLPrefix is how much of a failed URL ends up in the log line.
	warnURLPrefix = 80
)

// BaseClient is a shared HTTP client with rate limiting, common NCBI
// parameter injection, bounded retries, and response size guards.
type BaseClient struct {
	BaseURL    string
	APIKey     string
	Tool       string
	Email      string
	UserAgent  string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	MaxBytes   int64
	Attempts   int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Option configures a BaseClient.
type Option func(*BaseClient)

// WithBaseURL sets the base URL for E-utilities requests.
func WithBaseURL(u string) Option {
	return func(c *BaseClient) { c.BaseURL = u }
}

// WithAPIKey sets the NCBI API key and adjusts the rate limit accordingly.
func WithAPIKey(key string) Option {
	return func(c *BaseClient) {
		c.APIKey = key
		if key != "" {
			c.Limiter = rate.NewLimiter(rate.Limit(RateWithKey), 1)
		}
	}
}

// WithTool sets the tool parameter for NCBI requests.
func WithTool(tool string) Option {
	return func(c *BaseClient) { c.Tool = tool }
}

// WithEmail sets the email parameter for NCBI requests.
func WithEmail(email string) Option {
	return func(c *BaseClient) { c.Email = email }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *BaseClient) { c.UserAgent = ua }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *BaseClient) { c.HTTPClient = hc }
}

// WithTimeout sets the per-request timeout on the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *BaseClient) {
		if d > 0 {
			c.HTTPClient.Timeout = d
		}
	}
}

// WithMaxResponseBytes sets the maximum allowed response body size.
func WithMaxResponseBytes(n int64) Option {
	return func(c *BaseClient) { c.MaxBytes = n }
}

// WithRetry sets the attempt bound and the linear backoff step.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *BaseClient) {
		if attempts > 0 {
			c.Attempts = attempts
		}
		if delay >= 0 {
			c.RetryDelay = delay
		}
	}
}

// WithRateLimit overrides the request pacing. Tests use rate.Inf.
func WithRateLimit(limit rate.Limit) Option {
	return func(c *BaseClient) { c.Limiter = rate.NewLimiter(limit, 1) }
}

// WithLogger sets the logger used for retry and failure messages.
func WithLogger(l *zap.Logger) Option {
	return func(c *BaseClient) {
		if l != nil {
			c.Logger = l
		}
	}
}

// NewBaseClient creates a new base client with the given options.
func NewBaseClient(opts ...Option) *BaseClient {
	c := &BaseClient{
		BaseURL:    DefaultBaseURL,
		Tool:       DefaultTool,
		Email:      DefaultEmail,
		UserAgent:  DefaultUserAgent,
		MaxBytes:   DefaultMaxResponseBytes,
		Attempts:   DefaultAttempts,
		RetryDelay: DefaultRetryDelay,
		Limiter:    rate.NewLimiter(rate.Limit(RateWithoutKey), 1),
		Logger:     zap.NewNop(),
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DoGet performs a GET against an E-utilities endpoint with the common NCBI
// parameters added. Returns the response body.
func (c *BaseClient) DoGet(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	if c.APIKey != "" {
		params.Set("api_key", c.APIKey)
	}
	if c.Tool != "" {
		params.Set("tool", c.Tool)
	}
	if c.Email != "" {
		params.Set("email", c.Email)
	}

	u, err := url.JoinPath(c.BaseURL, endpoint)
	if err != nil {
		return nil, fmt.Errorf("building URL: %w", err)
	}
	return c.Get(ctx, u+"?"+params.Encode())
}

// Get fetches an absolute URL, retrying up to Attempts times. The wait
// before retry n is RetryDelay*n unless the server sent Retry-After.
func (c *BaseClient) Get(ctx context.Context, rawURL string) ([]byte, error) {
	attempts := c.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, wait, err := c.getOnce(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request canceled: %w", ctx.Err())
		}
		if attempt == attempts {
			break
		}

		if wait <= 0 {
			wait = c.RetryDelay * time.Duration(attempt)
		}
		c.Logger.Debug("retrying request",
			zap.String("url", shorten(rawURL)),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
		if err := sleepWithContext(ctx, wait); err != nil {
			return nil, fmt.Errorf("retry canceled: %w", err)
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// TryGet is Get for callers that treat a failed fetch as absent data.
// Failures are logged and reported as a nil body.
func (c *BaseClient) TryGet(ctx context.Context, rawURL string) []byte {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		c.Logger.Warn("failed to fetch",
			zap.String("url", shorten(rawURL)+"..."),
			zap.Error(err))
		return nil
	}
	return body
}

// getOnce performs a single rate-limited request. The returned duration is a
// server-requested wait (Retry-After), zero when none was given.
func (c *BaseClient) getOnce(ctx context.Context, rawURL string) ([]byte, time.Duration, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, retryAfterDuration(resp.Header.Get("Retry-After")),
			fmt.Errorf("rate limit exceeded (HTTP 429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("server returned HTTP %d", resp.StatusCode)
	}

	// Read up to MaxBytes+1 to detect oversized responses.
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.MaxBytes+1))
	if err != nil {
		return nil, 0, fmt.Errorf("reading response: %w", err)
	}
	if int64(len(body)) > c.MaxBytes {
		return nil, 0, fmt.Errorf("response exceeds maximum size of %d bytes", c.MaxBytes)
	}
	return body, 0, nil
}

func shorten(u string) string {
	r := []rune(u)
	if len(r) <= warnURLPrefix {
		return u
	}
	return string(r[:warnURLPrefix])
}

func retryAfterDuration(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}

	if secs, err := strconv.Atoi(v); err == nil {
		if secs > 0 {
			return time.Duration(secs) * time.Second
		}
		return 0
	}

	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d > 0 {
			return d
		}
	}

	return 0
}

// SleepWithContext waits for d or until ctx is done.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	return sleepWithContext(ctx, d)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
