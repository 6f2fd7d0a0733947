package httpcache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// domainRateLimiter enforces a minimum delay between requests to the same host.
type domainRateLimiter struct {
	lastRequest sync.Map // host -> time.Time
	mu          sync.Map // host -> *sync.Mutex
	minDelay    time.Duration
}

func newDomainRateLimiter(minDelay time.Duration) *domainRateLimiter {
	return &domainRateLimiter{minDelay: minDelay}
}

// Wait blocks until a request to host is allowed or ctx is done.
func (r *domainRateLimiter) Wait(ctx context.Context, host string, logger *slog.Logger) error {
	if r == nil || r.minDelay <= 0 || host == "" {
		return nil
	}

	muI, _ := r.mu.LoadOrStore(host, &sync.Mutex{})
	mu, ok := muI.(*sync.Mutex)
	if !ok {
		return nil
	}
	mu.Lock()
	defer mu.Unlock()

	if lastI, ok := r.lastRequest.Load(host); ok {
		if last, ok := lastI.(time.Time); ok {
			if wait := r.minDelay - time.Since(last); wait > 0 {
				logger.DebugContext(ctx, "rate limit pause", "host", host, "wait", wait.Round(time.Millisecond))
				t := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					t.Stop()
					return ctx.Err()
				case <-t.C:
				}
			}
		}
	}

	r.lastRequest.Store(host, time.Now())
	return nil
}
