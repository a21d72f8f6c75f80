package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	DefaultBaseURL   = "https://api.github.com"
	DefaultUserAgent = "grit-find (github.com)"
	DefaultTimeout   = 20 * time.Second

	acceptGitHubJSON = "application/vnd.github+json"
	apiVersion       = "2022-11-28"
)

// RateLimit is the quota reported by the last GitHub response
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// Client is a GitHub API client. It attaches the fixed headers to every
// request and enforces a per-request timeout. Retry lives in Retrier, not here.
type Client struct {
	httpClient       *http.Client
	downloadClient   *http.Client
	baseURL          string
	token            string // Optional: for authenticated requests (higher rate limits)
	userAgent        string
	timeout          time.Duration
	logger           *log.Logger
	retrier          *Retrier
	probeConcurrency int

	mu        sync.Mutex
	rateLimit RateLimit
	hasLimit  bool
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API root (tests, GHES)
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithToken sets the bearer credential. Empty means unauthenticated.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger enables request logging
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient replaces the API transport. The timeout option is ignored
// for a client supplied this way.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetrier replaces the rate-limit retry policy
func WithRetrier(r *Retrier) Option {
	return func(c *Client) { c.retrier = r }
}

// WithProbeConcurrency bounds parallel release probes per search page
func WithProbeConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.probeConcurrency = n
		}
	}
}

// NewClient creates a GitHub API client with a 20 second request timeout
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:          DefaultBaseURL,
		userAgent:        DefaultUserAgent,
		timeout:          DefaultTimeout,
		probeConcurrency: 8,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	if c.downloadClient == nil {
		c.downloadClient = NewDownloadClient(c.timeout)
	}
	if c.retrier == nil {
		c.retrier = NewRetrier()
	}
	if c.retrier.OnWait == nil && c.logger != nil {
		logger := c.logger
		c.retrier.OnWait = func(attempt int, wait time.Duration) {
			logger.Warn("Hit GitHub rate limit", "attempt", attempt, "wait", wait)
		}
	}
	return c
}

// Authenticated reports whether a bearer token is attached to requests
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// Do sends one request to the API. path is relative to the base URL unless
// it is already absolute. Failures to obtain a response are *TransportError.
func (c *Client) Do(ctx context.Context, method, path string, params url.Values) (*http.Response, error) {
	endpoint := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		endpoint = c.baseURL + path
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("Failed to create request", "url", endpoint, "error", err)
		}
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, acceptGitHubJSON)

	if c.logger != nil {
		c.logger.Info(method, "endpoint", endpoint)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("Request failed", "url", endpoint, "error", err)
		}
		return nil, &TransportError{Method: method, URL: endpoint, Err: err}
	}

	c.recordRateLimit(resp)
	return resp, nil
}

// setHeaders applies the fixed header set. The token is never logged.
func (c *Client) setHeaders(req *http.Request, accept string) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) recordRateLimit(resp *http.Response) {
	limit, ok := parseRateLimit(resp.Header)
	if c.logger != nil {
		c.logger.Debug("Rate limit",
			"remaining", resp.Header.Get("X-RateLimit-Remaining"),
			"reset", resp.Header.Get("X-RateLimit-Reset"),
			"status", resp.StatusCode)
	}
	if !ok {
		return
	}
	c.mu.Lock()
	c.rateLimit = limit
	c.hasLimit = true
	c.mu.Unlock()
}

// RateLimit returns the quota from the most recent response, if any
func (c *Client) RateLimit() (RateLimit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rateLimit, c.hasLimit
}

func parseRateLimit(h http.Header) (RateLimit, bool) {
	remaining, err := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err != nil {
		return RateLimit{}, false
	}
	rl := RateLimit{Remaining: remaining}
	if limit, err := strconv.Atoi(h.Get("X-RateLimit-Limit")); err == nil {
		rl.Limit = limit
	}
	if reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		rl.Reset = time.Unix(reset, 0)
	}
	return rl, true
}

// ParseRepoString parses "owner/repo" format into owner and repo
func ParseRepoString(repoStr string) (owner, repo string, err error) {
	parts := strings.Split(strings.TrimSpace(repoStr), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format: expected 'owner/repo', got '%s'", repoStr)
	}
	return parts[0], parts[1], nil
}

// NewFileLogger creates a logger that appends to api.log inside dir.
// The returned file must be closed by the caller.
func NewFileLogger(dir, prefix string, level log.Level) (*log.Logger, *os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile := filepath.Join(dir, "api.log")

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          prefix,
		Level:           level,
	})
	return logger, f, nil
}
