// Package alphavantage provides a client for the Alpha Vantage fundamentals API.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/equity-cli/internal/resilience"
)

// Client defines the Alpha Vantage operations.
type Client interface {
	// Overview fetches the company overview (valuation and profitability ratios).
	Overview(ctx context.Context, symbol string) (*Overview, error)
	IncomeStatement(ctx context.Context, symbol string) (*Statement, error)
	BalanceSheet(ctx context.Context, symbol string) (*Statement, error)
	CashFlow(ctx context.Context, symbol string) (*Statement, error)
	// Dividends fetches the dividend history, newest first.
	Dividends(ctx context.Context, symbol string) ([]Dividend, error)
}

// DefaultRequestsPerMinute is the free tier limit.
const DefaultRequestsPerMinute = 5

// RateLimitError is returned when Alpha Vantage answers with a rate limit
// notice instead of data. It is always wrapped in a resilience.TransientError.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string { return "alphavantage: rate limited: " + e.Message }

// APIError is an in-band error message from Alpha Vantage.
type APIError struct {
	Function string
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alphavantage: %s: %s", e.Function, e.Message)
}

// Option configures the Alpha Vantage client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per minute. Values <= 0 disable the limit.
func WithRateLimit(perMinute int) Option {
	return func(c *httpClient) {
		if perMinute <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithCircuitBreaker replaces the default breaker. Only transient errors
// trip it unless cfg.ShouldTrip is set.
func WithCircuitBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(c *httpClient) {
		c.breakerCfg = cfg
	}
}

type httpClient struct {
	apiKey     string
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	breakerCfg resilience.CircuitBreakerConfig
	breaker    *resilience.CircuitBreaker
}

// NewClient creates a new Alpha Vantage client.
func NewClient(apiKey string, opts ...Option) Client {
	breakerCfg := resilience.DefaultCircuitBreakerConfig()
	breakerCfg.Name = "alphavantage"

	c := &httpClient{
		apiKey:     apiKey,
		baseURL:    "https://www.alphavantage.co",
		http:       &http.Client{Timeout: 30 * time.Second},
		retry:      resilience.DefaultRetryConfig(),
		breakerCfg: breakerCfg,
	}
	WithRateLimit(DefaultRequestsPerMinute)(c)
	for _, opt := range opts {
		opt(c)
	}

	if c.breakerCfg.ShouldTrip == nil {
		c.breakerCfg.ShouldTrip = resilience.IsTransient
	}
	if c.breakerCfg.Name == "" {
		c.breakerCfg.Name = "alphavantage"
	}
	c.breaker = resilience.NewCircuitBreaker(c.breakerCfg)
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("alphavantage", "query")
	}
	return c
}

// query runs one API function through the breaker, with retries inside it.
func (c *httpClient) query(ctx context.Context, function, symbol string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, eris.New("alphavantage: api key not configured")
	}
	return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
		return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
			return c.get(ctx, function, symbol)
		})
	})
}

func (c *httpClient) get(ctx context.Context, function, symbol string) ([]byte, error) {
	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", strings.ToUpper(strings.TrimSpace(symbol)))
	params.Set("apikey", c.apiKey)
	reqURL := c.baseURL + "/query?" + params.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "alphavantage: rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "alphavantage: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrapf(err, "alphavantage: %s request", function)
		}
		return nil, resilience.NewTransientError(eris.Wrapf(err, "alphavantage: %s request", function), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "alphavantage: read response body"), 0)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("alphavantage: %s: unexpected status %d: %s", function, resp.StatusCode, truncate(body, 200))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	if err := inBandError(function, body); err != nil {
		return nil, err
	}
	return body, nil
}

// inBandError detects the messages Alpha Vantage returns with a 200 status
// in place of data.
func inBandError(function string, body []byte) error {
	var msg struct {
		Note         string `json:"Note"`
		Information  string `json:"Information"`
		ErrorMessage string `json:"Error Message"`
	}
	// Non-object bodies are handled by the caller's decoder.
	if json.Unmarshal(body, &msg) != nil {
		return nil
	}

	switch {
	case msg.ErrorMessage != "":
		return &APIError{Function: function, Message: msg.ErrorMessage}
	case msg.Note != "":
		return resilience.NewTransientError(&RateLimitError{Message: msg.Note}, http.StatusTooManyRequests)
	case msg.Information != "":
		lower := strings.ToLower(msg.Information)
		if strings.Contains(lower, "rate limit") || strings.Contains(lower, "frequency") {
			return resilience.NewTransientError(&RateLimitError{Message: msg.Information}, http.StatusTooManyRequests)
		}
		return &APIError{Function: function, Message: msg.Information}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// IsRateLimited reports whether err came from an Alpha Vantage rate limit notice.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
