// Package files provides the HTTP file existence checker used by the file
// processor.
package files

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
)

// DefaultRequestsPerSecond limits how fast existence checks hit the file
// stores during a full harvest.
const DefaultRequestsPerSecond = 10

// DefaultTimeout bounds a single HEAD request.
const DefaultTimeout = 15 * time.Second

// HeadChecker verifies file existence with HEAD requests.
type HeadChecker struct {
	httpc   *http.Client
	limiter *rate.Limiter
}

var _ driven.FileChecker = (*HeadChecker)(nil)

// Option configures the checker.
type Option func(*HeadChecker)

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HeadChecker) {
		h.httpc = c
	}
}

// WithRequestsPerSecond sets the request rate limit.
func WithRequestsPerSecond(rps float64) Option {
	return func(h *HeadChecker) {
		if rps > 0 {
			h.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewHeadChecker creates a checker with the given options.
func NewHeadChecker(opts ...Option) *HeadChecker {
	h := &HeadChecker{
		httpc:   &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Exists reports whether url answers a HEAD request. 404 and 410 read as
// absent; any other non-2xx status is an error, the store may be down rather
// than the file missing.
func (h *HeadChecker) Exists(ctx context.Context, url string) (bool, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := h.httpc.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status %s for %s", resp.Status, url)
	}
}
