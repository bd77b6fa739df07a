package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedProvider throttles calls to the wrapped provider process-wide.
// It is shared by discovery and scoring so both draw from one quota.
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimitedProvider allows requestsPerSecond calls with a burst of one.
func NewRateLimitedProvider(inner Provider, requestsPerSecond float64) *RateLimitedProvider {
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Complete waits for a token, then delegates.
func (p *RateLimitedProvider) Complete(ctx context.Context, r Request) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm rate limit: %w", err)
	}
	return p.inner.Complete(ctx, r)
}
