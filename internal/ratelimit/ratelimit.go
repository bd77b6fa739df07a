package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/amishk599/autocareer/internal/model"
)

// KeyedLimiter enforces a minimum delay between calls sharing the same key.
// Concurrent callers for one key are spaced out rather than released together.
type KeyedLimiter struct {
	mu       sync.Mutex
	next     map[string]time.Time // earliest start of the next call per key
	minDelay time.Duration
}

// NewKeyedLimiter creates a limiter that spaces calls for each key by minDelay.
func NewKeyedLimiter(minDelay time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		next:     make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait reserves the next slot for key and blocks until it arrives.
// Returns an error if the context is cancelled while waiting.
func (r *KeyedLimiter) Wait(ctx context.Context, key string) error {
	if r == nil || r.minDelay <= 0 {
		return nil
	}

	r.mu.Lock()
	now := time.Now()
	slot := now
	if next, ok := r.next[key]; ok && next.After(now) {
		slot = next
	}
	r.next[key] = slot.Add(r.minDelay)
	r.mu.Unlock()

	remaining := slot.Sub(now)
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", key, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// HostLimitedFetcher is a decorator that spaces requests to the same host
// before delegating to the wrapped ContentFetcher.
type HostLimitedFetcher struct {
	inner   model.ContentFetcher
	limiter *KeyedLimiter
}

// NewHostLimitedFetcher wraps a ContentFetcher with per-host rate limiting.
func NewHostLimitedFetcher(inner model.ContentFetcher, limiter *KeyedLimiter) *HostLimitedFetcher {
	return &HostLimitedFetcher{inner: inner, limiter: limiter}
}

// Fetch waits for the host's slot, then delegates to the wrapped fetcher.
func (f *HostLimitedFetcher) Fetch(ctx context.Context, rawURL string, format model.Format) (model.Page, error) {
	key := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		key = u.Host
	}
	if err := f.limiter.Wait(ctx, key); err != nil {
		return model.Page{}, err
	}
	return f.inner.Fetch(ctx, rawURL, format)
}
