package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gemfashion/storefront/core"
)

func fastRetry(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

// TestRetryBasicSuccess tests successful execution on first attempt
func TestRetryBasicSuccess(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetry(3), func() error {
		attempts++
		return nil
	})
	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

// TestRetryEventualSuccess tests success after multiple attempts
func TestRetryEventualSuccess(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetry(3), func() error {
		attempts++
		if attempts < 3 {
			return core.ErrStorageUnavailable
		}
		return nil
	})
	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

// TestRetryExhausted tests the wrapped error after the last attempt
func TestRetryExhausted(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetry(2), func() error {
		attempts++
		return core.ErrAIUnavailable
	})
	if !errors.Is(err, core.ErrMaxRetriesExceeded) {
		t.Errorf("Expected ErrMaxRetriesExceeded, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

// TestRetryStopsOnPermanentError tests the Retryable predicate
func TestRetryStopsOnPermanentError(t *testing.T) {
	cfg := fastRetry(5)
	cfg.Retryable = core.IsRetryable

	attempts := 0
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		return core.ErrInvalidRepositoryURL
	})
	if !errors.Is(err, core.ErrInvalidRepositoryURL) {
		t.Errorf("Expected the original error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

// TestRetryContextCancellation tests that a cancelled context ends the loop
func TestRetryContextCancellation(t *testing.T) {
	cfg := fastRetry(10)
	cfg.InitialDelay = time.Hour
	cfg.MaxDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Retry(ctx, cfg, func() error { return core.ErrTimeout })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// TestRetryWithCircuitBreaker tests that an open circuit ends the retries
func TestRetryWithCircuitBreaker(t *testing.T) {
	cb, _ := newTestBreaker(t, 2)

	attempts := 0
	err := RetryWithCircuitBreaker(context.Background(), fastRetry(5), cb, func() error {
		attempts++
		return core.ErrAIUnavailable
	})
	if !errors.Is(err, core.ErrCircuitBreakerOpen) {
		t.Errorf("Expected ErrCircuitBreakerOpen, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts before the circuit opened, got %d", attempts)
	}
}

// TestRetryConfigFrom tests conversion from the service configuration
func TestRetryConfigFrom(t *testing.T) {
	rc := RetryConfigFrom(core.RetryConfig{MaxAttempts: 4, InitialInterval: time.Second})
	if rc.MaxAttempts != 4 || rc.InitialDelay != time.Second {
		t.Errorf("Unexpected retry config %+v", rc)
	}
	if rc.MaxDelay != 5*time.Second || rc.BackoffFactor != 2.0 {
		t.Errorf("Expected defaults for unset fields, got %+v", rc)
	}
}
