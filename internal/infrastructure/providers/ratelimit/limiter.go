// Package ratelimit enforces per-provider monthly request budgets.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/alchemorsel/fooddata/pkg/errors"
	"golang.org/x/time/rate"
)

// Limiter tracks one provider's monthly budget. The window resets when the
// wall-clock month changes. Budget is checked before a request is issued,
// and every attempted HTTP call, retries included, consumes one unit.
type Limiter struct {
	provider string
	limit    int

	mu          sync.Mutex
	periodStart time.Time
	used        int

	// smoother spreads bursts so a hot path cannot hammer the upstream
	// even while the monthly budget has headroom.
	smoother *rate.Limiter
	now      func() time.Time
}

// New creates a limiter with the given monthly budget.
func New(provider string, monthlyLimit int) *Limiter {
	return &Limiter{
		provider: provider,
		limit:    monthlyLimit,
		smoother: rate.NewLimiter(rate.Limit(5), 10),
		now:      time.Now,
	}
}

// CheckAndConsume consumes one unit of budget, resetting the window first
// if the month rolled over. It fails without consuming when the budget is
// exhausted; the caller must not attempt the request.
func (l *Limiter) CheckAndConsume() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.periodStart.Year() != now.Year() || l.periodStart.Month() != now.Month() {
		l.periodStart = now
		l.used = 0
	}

	if l.used >= l.limit {
		return errors.NewRateLimitExceededError(l.provider, l.limit)
	}
	l.used++
	return nil
}

// Wait blocks until the burst smoother admits another request or the
// context is done. Budget accounting happens in CheckAndConsume.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.smoother.Wait(ctx)
}

// Used returns the requests consumed in the current window.
func (l *Limiter) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}

// Remaining returns the budget left in the current window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rem := l.limit - l.used; rem > 0 {
		return rem
	}
	return 0
}

// Limit returns the configured monthly budget.
func (l *Limiter) Limit() int {
	return l.limit
}
