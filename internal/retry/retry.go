package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy describes how an outbound call is retried. The same policy value is
// injected into every HTTP caller instead of each one hand-rolling its loop.
type Policy struct {
	MaxAttempts   int
	Delay         time.Duration
	Backoff       bool // exponential backoff
	RetryStatuses []int
}

// Default returns the policy used by the batch jobs: three attempts,
// exponential backoff, retry on the usual transient HTTP statuses.
func Default(delay time.Duration) Policy {
	if delay <= 0 {
		delay = time.Second
	}
	return Policy{
		MaxAttempts:   3,
		Delay:         delay,
		Backoff:       true,
		RetryStatuses: []int{429, 500, 502, 503, 504},
	}
}

// RetryableStatus reports whether an HTTP status should be retried.
func (p Policy) RetryableStatus(code int) bool {
	for _, s := range p.RetryStatuses {
		if code == s {
			return true
		}
	}
	return false
}

// Permanent wraps an error that must not be retried.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }

func (p *Permanent) Unwrap() error { return p.Err }

// Do runs fn until it succeeds, returns a Permanent error, or attempts run out.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var perm *Permanent
		if errors.As(err, &perm) {
			return perm.Err
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		delay := p.Delay
		if p.Backoff {
			delay = time.Duration(1<<(attempt-1)) * p.Delay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
