package core

import (
	"context"
	"time"
)

// CircuitBreaker guards calls to an unreliable dependency, here the AI provider.
// States: "closed" (calls pass), "open" (calls fail fast with
// ErrCircuitBreakerOpen), "half-open" (a limited number of trial calls pass).
type CircuitBreaker interface {
	// Execute runs fn unless the circuit is open and records the outcome.
	Execute(ctx context.Context, fn func() error) error

	// ExecuteWithTimeout is Execute with a deadline applied to fn's context.
	ExecuteWithTimeout(ctx context.Context, timeout time.Duration, fn func() error) error

	// GetState returns "closed", "open" or "half-open".
	GetState() string

	GetMetrics() map[string]interface{}

	// Reset forces the circuit closed and clears counters.
	Reset()

	CanExecute() bool
}

// CircuitBreakerParams bundles configuration and dependencies for implementations
type CircuitBreakerParams struct {
	Name      string
	Config    CircuitBreakerConfig
	Logger    Logger
	Telemetry Telemetry
}

// DefaultCircuitBreakerParams returns defaults matching DefaultConfig
func DefaultCircuitBreakerParams(name string) CircuitBreakerParams {
	return CircuitBreakerParams{
		Name:   name,
		Config: DefaultConfig().Resilience.CircuitBreaker,
	}
}
