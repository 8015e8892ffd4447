package semconv

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter provides rate limiting functionality for API requests
type RateLimiter struct {
	limiter *rate.Limiter
	limit   int
	window  time.Duration
}

// NewRateLimiter allows limit requests per window. The full budget is
// available as a burst, matching how the GitHub API accounts requests.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit),
		limit:   limit,
		window:  window,
	}
}

// Wait blocks until the next request may be issued or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Limit returns the configured requests per window.
func (r *RateLimiter) Limit() (int, time.Duration) {
	return r.limit, r.window
}
