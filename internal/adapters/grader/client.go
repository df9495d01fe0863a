// Package grader fetches per-case run details from the judging service.
package grader

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

	"golang.org/x/time/rate"

	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

const (
	defaultTimeout = 5 * time.Second
	maxErrorBody   = 512
)

var (
	// ErrRunNotFound is returned when the grader has no run with the token.
	ErrRunNotFound = errors.New("grader: run not found")
	// ErrUnexpectedStatus is returned for any other non-200 response.
	ErrUnexpectedStatus = errors.New("grader: unexpected status")
)

// Client calls GET {base}/runs/{token}/details.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	logger  logger.Logger
}

// New creates a client for the grader at baseURL. Without WithRateLimit
// requests are not throttled.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("grader: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("grader: base url %q must be http or https", baseURL)
	}

	c := &Client{
		base:    u,
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Inf, 0),
		logger:  logger.Get().Named("grader"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RunDetail returns the graded breakdown of the run identified by token.
func (c *Client) RunDetail(ctx context.Context, token string) (detail *types.RunDetail, err error) {
	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("grader: rate limit: %w", err)
	}
	metrics.RecordDetailRateLimitWait(metrics.Since(waitStart))

	start := time.Now()
	defer func() {
		metrics.RecordDetailFetch(metrics.Since(start), err)
	}()

	endpoint := c.base.JoinPath("runs", token, "details")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("grader: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grader: request run %s: %w", token, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, token)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn(ctx, "grader returned error",
			logger.String("token", token),
			logger.Int("status", resp.StatusCode),
			logger.String("body", string(body)),
		)
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var d types.RunDetail
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return nil, fmt.Errorf("grader: decode run %s: %w", token, err)
	}
	return &d, nil
}
