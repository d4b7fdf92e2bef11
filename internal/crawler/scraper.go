package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"feedqa/internal/config"
	"feedqa/internal/logger"
	"feedqa/pkg/utils"
)

// Transport errors.
var (
	ErrInvalidURL           = errors.New("invalid URL format")
	ErrFetchFailed          = errors.New("failed to fetch feed")
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrBodyTooLarge         = errors.New("response body exceeds size limit")
)

// FetchError is returned when both the direct and the proxy attempt failed.
// The message carries the proxy failure; both causes are reachable through
// errors.Is and errors.As.
type FetchError struct {
	Direct error
	Proxy  error
	URL    string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", ErrFetchFailed, e.Proxy)
}

// Unwrap exposes the sentinel and both attempt errors.
func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailed, e.Direct, e.Proxy}
}

// Scraper retrieves feed documents over HTTP with a proxy fallback.
type Scraper struct {
	client *http.Client
	cfg    config.FetcherConfig
	log    *logger.Logger
}

// ScraperOption customizes a Scraper.
type ScraperOption func(*Scraper)

// WithHTTPClient replaces the HTTP client, e.g. with an httptest client.
func WithHTTPClient(c *http.Client) ScraperOption {
	return func(s *Scraper) {
		s.client = c
	}
}

// WithLogger sets the logger used for attempt diagnostics.
func WithLogger(l *logger.Logger) ScraperOption {
	return func(s *Scraper) {
		s.log = l
	}
}

// NewScraper creates a new scraper instance with default config.
func NewScraper(opts ...ScraperOption) *Scraper {
	return NewScraperWithConfig(&config.Default().Fetcher, opts...)
}

// NewScraperWithConfig creates a new scraper from fetcher settings.
func NewScraperWithConfig(cfg *config.FetcherConfig, opts ...ScraperOption) *Scraper {
	s := &Scraper{
		client: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
		cfg: *cfg,
		log: logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// FetchFeed returns the raw body of the feed at rawURL. The URL is fetched
// directly first; on any failure it is fetched once more through the proxy.
func (s *Scraper) FetchFeed(ctx context.Context, rawURL string) (string, error) {
	body, _, err := s.FetchFeedWithPlan(ctx, rawURL)

	return body, err
}

// FetchFeedWithPlan is FetchFeed that also returns the executed plan, so
// callers can inspect every attempt.
func (s *Scraper) FetchFeedWithPlan(ctx context.Context, rawURL string) (string, *AttemptPlan, error) {
	if !utils.IsValidURL(rawURL) {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	plan, err := NewAttemptPlan(rawURL, s.cfg.ProxyEndpoint, s.cfg.ProxyParam)
	if err != nil {
		return "", nil, err
	}

	var directErr, proxyErr error

	for {
		attempt, ok := plan.Next()
		if !ok {
			break
		}

		startTime := time.Now()
		body, status, err := s.fetch(ctx, attempt.URL)
		plan.RecordAttempt(attempt, status, time.Since(startTime), err)

		if err == nil {
			return body, plan, nil
		}

		if attempt.Kind == AttemptDirect {
			directErr = err
			s.log.Debug("direct fetch failed, trying proxy", "url", rawURL, "error", err)
		} else {
			proxyErr = err
		}
	}

	plan.LogAttemptSummary(s.log)

	return "", plan, &FetchError{URL: rawURL, Direct: directErr, Proxy: proxyErr}
}

// fetch performs one GET and returns (body, statusCode, error).
func (s *Scraper) fetch(ctx context.Context, target string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = utils.BuildHeaders(s.cfg.Accept, s.cfg.UserAgent, nil)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", resp.StatusCode, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	limit := s.cfg.GetMaxBodyBytes()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > limit {
		return "", resp.StatusCode, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}

	return string(body), resp.StatusCode, nil
}

// ReadLocalFile reads content from a local file path.
func (s *Scraper) ReadLocalFile(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read local file %s: %w", filePath, err)
	}

	return string(content), nil
}
