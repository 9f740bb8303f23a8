// Package retry provides the backoff policy wrapped around every outbound
// provider call.
package retry

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/alchemorsel/fooddata/pkg/errors"
)

// Policy retries an operation with exponential backoff. An upstream 429 is
// terminal: rate-limit rejections are not transient within one request and
// are never retried.
type Policy struct {
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// New creates a policy with the given attempt budget and a 1s base delay.
func New(maxAttempts int) Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return Policy{
		maxAttempts: maxAttempts,
		baseDelay:   time.Second,
		sleep:       sleepCtx,
	}
}

// MaxAttempts returns the attempt budget.
func (p Policy) MaxAttempts() int {
	return p.maxAttempts
}

// WithBaseDelay returns a copy of the policy with a different base delay.
func (p Policy) WithBaseDelay(d time.Duration) Policy {
	p.baseDelay = d
	return p
}

// Do invokes op until it succeeds, the attempts are exhausted, or a
// non-retryable error occurs. The delay before retrying attempt n+1 is
// 2^n * base, with n starting at 1. The last error is surfaced.
func (p Policy) Do(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if attempt == p.maxAttempts {
			break
		}
		delay := p.baseDelay * time.Duration(1<<attempt)
		if err := p.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

// Retryable classifies an error. Rate-limit rejections, local or
// upstream, are terminal, as is anything wrapped by Permanent.
func Retryable(err error) bool {
	var pe permanentError
	if stderrors.As(err, &pe) {
		return false
	}
	if errors.Is(err, errors.CodeRateLimitExceeded) {
		return false
	}
	return errors.HTTPStatus(err) != http.StatusTooManyRequests
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks an error as non-retryable regardless of its status code.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
