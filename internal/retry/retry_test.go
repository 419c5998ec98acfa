package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func testPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:   attempts,
		Delay:         time.Millisecond,
		Backoff:       true,
		RetryStatuses: []int{429, 500, 502, 503, 504},
	}
}

func TestDoSucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	err := testPolicy(3).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := testPolicy(3).Do(context.Background(), func() error {
		calls++
		return errors.New("still broken")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	cause := errors.New("bad request")
	err := testPolicy(5).Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("post: %w", &Permanent{Err: cause})
	})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be returned, got %v", err)
	}
}

func TestRetryableStatus(t *testing.T) {
	p := testPolicy(3)
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !p.RetryableStatus(code) {
			t.Errorf("status %d should be retryable", code)
		}
	}
	for _, code := range []int{200, 204, 400, 403, 404} {
		if p.RetryableStatus(code) {
			t.Errorf("status %d should not be retryable", code)
		}
	}
}
