package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"feedqa/internal/logger"
)

// ErrInvalidProxyEndpoint is returned when the proxy endpoint cannot be parsed.
var ErrInvalidProxyEndpoint = errors.New("invalid proxy endpoint")

// AttemptKind names the route an attempt takes.
type AttemptKind string

// Attempt routes, in the order they are tried.
const (
	AttemptDirect AttemptKind = "direct"
	AttemptProxy  AttemptKind = "proxy"
)

// Attempt is one planned GET.
type Attempt struct {
	Kind AttemptKind
	URL  string
}

// AttemptResult records the result of a fetch attempt.
type AttemptResult struct {
	Timestamp  time.Time
	Kind       AttemptKind
	URL        string
	Error      string
	Duration   time.Duration
	StatusCode int
	Success    bool
}

// AttemptPlan yields the direct URL and then the proxied URL, and keeps a
// record of each attempt. A plan is used by a single fetch and is not safe
// for concurrent use.
type AttemptPlan struct {
	target   string
	attempts []Attempt
	results  []AttemptResult
	next     int
}

// NewAttemptPlan builds the plan for target. The proxy URL is the endpoint
// with target percent-encoded into the param query parameter.
func NewAttemptPlan(target, proxyEndpoint, proxyParam string) (*AttemptPlan, error) {
	proxyURL, err := ProxyURL(proxyEndpoint, proxyParam, target)
	if err != nil {
		return nil, err
	}

	return &AttemptPlan{
		target: target,
		attempts: []Attempt{
			{Kind: AttemptDirect, URL: target},
			{Kind: AttemptProxy, URL: proxyURL},
		},
	}, nil
}

// ProxyURL returns endpoint with target set as the param query parameter.
// Existing query parameters of the endpoint are kept.
func ProxyURL(endpoint, param, target string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || !u.IsAbs() {
		return "", fmt.Errorf("%w: %q", ErrInvalidProxyEndpoint, endpoint)
	}

	q := u.Query()
	q.Set(param, target)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Next returns the next attempt, or false once the plan is exhausted.
func (p *AttemptPlan) Next() (Attempt, bool) {
	if p.next >= len(p.attempts) {
		return Attempt{}, false
	}

	a := p.attempts[p.next]
	p.next++

	return a, true
}

// RecordAttempt records the result of a fetch attempt.
func (p *AttemptPlan) RecordAttempt(a Attempt, statusCode int, duration time.Duration, err error) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}

	p.results = append(p.results, AttemptResult{
		Timestamp:  time.Now(),
		Kind:       a.Kind,
		URL:        a.URL,
		Error:      errMsg,
		Duration:   duration,
		StatusCode: statusCode,
		Success:    err == nil,
	})
}

// Results returns the recorded attempts in order.
func (p *AttemptPlan) Results() []AttemptResult {
	return p.results
}

// Succeeded reports whether any attempt succeeded, and through which route.
func (p *AttemptPlan) Succeeded() (AttemptKind, bool) {
	for _, r := range p.results {
		if r.Success {
			return r.Kind, true
		}
	}

	return "", false
}

// AttemptStats contains statistics about fetch attempts.
type AttemptStats struct {
	TotalAttempts      int
	SuccessfulAttempts int
	FailedAttempts     int
	TotalDuration      time.Duration
}

// Stats summarizes the recorded attempts.
func (p *AttemptPlan) Stats() AttemptStats {
	var stats AttemptStats

	for _, r := range p.results {
		stats.TotalAttempts++
		stats.TotalDuration += r.Duration

		if r.Success {
			stats.SuccessfulAttempts++
		} else {
			stats.FailedAttempts++
		}
	}

	return stats
}

// String returns a string representation of attempt stats.
func (s AttemptStats) String() string {
	return fmt.Sprintf(
		"Attempts: %d total, %d success, %d failed (%.2fs)",
		s.TotalAttempts,
		s.SuccessfulAttempts,
		s.FailedAttempts,
		s.TotalDuration.Seconds(),
	)
}

// LogAttemptSummary logs every attempt of the plan at debug level.
func (p *AttemptPlan) LogAttemptSummary(l *logger.Logger) {
	for i, r := range p.results {
		status := "ok"
		if !r.Success {
			status = r.Error
		}

		l.Debug(fmt.Sprintf("attempt %d (%s)", i+1, r.Kind),
			"url", r.URL,
			"status", status,
			"code", r.StatusCode,
			"duration", r.Duration,
		)
	}

	l.Debug("fetch summary", "target", p.target, "stats", p.Stats().String())
}
