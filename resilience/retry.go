package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gemfashion/storefront/core"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool

	// Retryable decides whether an error is worth another attempt.
	// Nil retries every error.
	Retryable func(error) bool
}

// DefaultRetryConfig provides sensible defaults
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
		Retryable:     core.IsRetryable,
	}
}

// RetryConfigFrom converts the service configuration section
func RetryConfigFrom(c core.RetryConfig) *RetryConfig {
	rc := DefaultRetryConfig()
	if c.MaxAttempts > 0 {
		rc.MaxAttempts = c.MaxAttempts
	}
	if c.InitialInterval > 0 {
		rc.InitialDelay = c.InitialInterval
	}
	if c.MaxInterval > 0 {
		rc.MaxDelay = c.MaxInterval
	}
	if c.Multiplier > 0 {
		rc.BackoffFactor = c.Multiplier
	}
	return rc
}

// Retry executes fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx ends.
func Retry(ctx context.Context, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if config.Retryable != nil && !config.Retryable(err) {
			return err
		}
		if attempt == config.MaxAttempts {
			break
		}

		if attempt > 1 {
			delay = time.Duration(float64(delay) * config.BackoffFactor)
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
		}

		wait := delay
		if config.JitterEnabled {
			wait += time.Duration(float64(delay) * 0.1 * math.Sin(float64(attempt)))
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded for %v: %w", config.MaxAttempts, lastErr, core.ErrMaxRetriesExceeded)
}

// RetryWithCircuitBreaker runs every attempt through cb. An open circuit ends
// the retries immediately.
func RetryWithCircuitBreaker(ctx context.Context, config *RetryConfig, cb core.CircuitBreaker, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	guarded := *config
	inner := config.Retryable
	guarded.Retryable = func(err error) bool {
		if errors.Is(err, core.ErrCircuitBreakerOpen) {
			return false
		}
		return inner == nil || inner(err)
	}
	return Retry(ctx, &guarded, func() error {
		return cb.Execute(ctx, fn)
	})
}
