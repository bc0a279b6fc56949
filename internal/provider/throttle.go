package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"dealer_hunt/internal/source"
)

// Throttle spaces out requests to the same domain. It is safe for
// concurrent use and is shared by all runs.
type Throttle struct {
	every time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewThrottle allows one request per domain every interval. A zero interval
// disables throttling.
func NewThrottle(every time.Duration) *Throttle {
	return &Throttle{every: every, limiters: map[string]*rate.Limiter{}}
}

// Wait blocks until a request to rawURL's domain is allowed.
func (t *Throttle) Wait(ctx context.Context, rawURL string) error {
	if t == nil || t.every <= 0 {
		return nil
	}
	domain := source.NormalizeDomain(rawURL)

	t.mu.Lock()
	l, ok := t.limiters[domain]
	if !ok {
		l = rate.NewLimiter(rate.Every(t.every), 1)
		t.limiters[domain] = l
	}
	t.mu.Unlock()

	if err := l.Wait(ctx); err != nil {
		return fmt.Errorf("throttle %s: %w", domain, err)
	}
	return nil
}
