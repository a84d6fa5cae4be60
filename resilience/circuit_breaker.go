package resilience

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gemfashion/storefront/core"
)

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	// StateClosed allows all requests through
	StateClosed CircuitState = iota
	// StateOpen blocks all requests
	StateOpen
	// StateHalfOpen allows a limited number of trial calls
	StateHalfOpen
)

// String returns the string representation of the state
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrorClassifier determines which errors count toward the failure threshold
type ErrorClassifier func(error) bool

// DefaultErrorClassifier counts provider and infrastructure failures only.
// Shopper input, missing records and cancelled requests never trip the breaker.
func DefaultErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case core.IsValidation(err),
		core.IsConfigurationError(err),
		core.IsNotFound(err),
		core.IsStateError(err),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	Name string

	// FailureThreshold is the number of consecutive counted failures that opens the circuit
	FailureThreshold int

	// SleepWindow is how long the circuit stays open before probing
	SleepWindow time.Duration

	// HalfOpenRequests is the number of concurrent trial calls allowed while half-open
	HalfOpenRequests int

	ErrorClassifier ErrorClassifier
	Logger          core.Logger
	Telemetry       core.Telemetry

	now func() time.Time
}

// DefaultConfig returns the breaker settings used for the AI provider
func DefaultConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:             "default",
		FailureThreshold: 5,
		SleepWindow:      30 * time.Second,
		HalfOpenRequests: 1,
		ErrorClassifier:  DefaultErrorClassifier,
		Logger:           &core.NoOpLogger{},
		Telemetry:        &core.NoOpTelemetry{},
	}
}

// Validate checks the configuration
func (c *CircuitBreakerConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("circuit breaker name is required: %w", core.ErrInvalidConfiguration)
	}
	if c.FailureThreshold < 1 {
		return fmt.Errorf("failure threshold must be at least 1, got %d: %w", c.FailureThreshold, core.ErrInvalidConfiguration)
	}
	if c.SleepWindow <= 0 {
		return fmt.Errorf("sleep window must be positive, got %v: %w", c.SleepWindow, core.ErrInvalidConfiguration)
	}
	if c.HalfOpenRequests < 0 {
		return fmt.Errorf("half-open requests cannot be negative: %w", core.ErrInvalidConfiguration)
	}
	return nil
}

// CircuitBreaker implements core.CircuitBreaker with a consecutive-failure
// threshold and a fixed sleep window.
type CircuitBreaker struct {
	config *CircuitBreakerConfig

	mu             sync.Mutex
	state          CircuitState
	stateChangedAt time.Time
	generation     uint64
	failures       int
	halfOpenActive int

	successes int64
	rejected  int64
	counted   int64
	listeners []func(name string, from, to CircuitState)
}

var _ core.CircuitBreaker = (*CircuitBreaker)(nil)

// NewCircuitBreaker validates config and returns a closed breaker
func NewCircuitBreaker(config *CircuitBreakerConfig) (*CircuitBreaker, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid circuit breaker config: %w", err)
	}
	if config.ErrorClassifier == nil {
		config.ErrorClassifier = DefaultErrorClassifier
	}
	if config.Logger == nil {
		config.Logger = &core.NoOpLogger{}
	}
	if config.Telemetry == nil {
		config.Telemetry = &core.NoOpTelemetry{}
	}
	if config.HalfOpenRequests == 0 {
		config.HalfOpenRequests = 1
	}
	if config.now == nil {
		config.now = time.Now
	}

	cb := &CircuitBreaker{
		config:         config,
		state:          StateClosed,
		stateChangedAt: config.now(),
	}

	config.Logger.Info("Circuit breaker created", map[string]interface{}{
		"operation":         "circuit_breaker_created",
		"name":              config.Name,
		"failure_threshold": config.FailureThreshold,
		"sleep_window_ms":   config.SleepWindow.Milliseconds(),
	})
	return cb, nil
}

// SetLogger replaces the logger, tagging it with the resilience component
func (cb *CircuitBreaker) SetLogger(logger core.Logger) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.config.Logger = core.ForComponent(logger, "storefront/resilience")
}

// Execute runs fn with circuit breaker protection
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	return cb.ExecuteWithTimeout(ctx, 0, fn)
}

// ExecuteWithTimeout runs fn unless the circuit is open. A positive timeout
// bounds how long the caller waits; fn itself is expected to observe ctx.
func (cb *CircuitBreaker) ExecuteWithTimeout(ctx context.Context, timeout time.Duration, fn func() error) error {
	halfOpen, allowed := cb.admit()
	if !allowed {
		cb.config.Logger.Info("Circuit breaker rejected execution", map[string]interface{}{
			"operation": "circuit_breaker_reject",
			"name":      cb.config.Name,
			"state":     cb.GetState(),
		})
		cb.config.Telemetry.RecordMetric("storefront.circuit_breaker.rejected", 1, map[string]string{"name": cb.config.Name})
		return fmt.Errorf("circuit breaker '%s' is open: %w", cb.config.Name, core.ErrCircuitBreakerOpen)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				cb.config.Logger.Error("Circuit breaker caught panic", map[string]interface{}{
					"name":  cb.config.Name,
					"panic": fmt.Sprintf("%v", r),
				})
				done <- fmt.Errorf("panic in circuit breaker: %v\nStack:\n%s", r, debug.Stack())
			}
		}()
		done <- fn()
	}()

	select {
	case err := <-done:
		cb.complete(halfOpen, err)
		return err
	case <-ctx.Done():
		// fn keeps running; its outcome is recorded when it finishes
		go func() {
			cb.complete(halfOpen, <-done)
		}()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", ctx.Err(), core.ErrTimeout)
		}
		return ctx.Err()
	}
}

// admit decides whether a call may run and whether it is a half-open trial call
func (cb *CircuitBreaker) admit() (halfOpen bool, allowed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.config.now().Sub(cb.stateChangedAt) >= cb.config.SleepWindow {
		cb.transitionLocked(StateHalfOpen)
	}

	switch cb.state {
	case StateClosed:
		return false, true
	case StateHalfOpen:
		if cb.halfOpenActive >= cb.config.HalfOpenRequests {
			cb.rejected++
			return true, false
		}
		cb.halfOpenActive++
		return true, true
	default:
		cb.rejected++
		return false, false
	}
}

func (cb *CircuitBreaker) complete(halfOpen bool, err error) {
	counts := cb.config.ErrorClassifier(err)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if halfOpen && cb.halfOpenActive > 0 {
		cb.halfOpenActive--
	}

	switch {
	case err == nil:
		cb.successes++
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.transitionLocked(StateClosed)
		}
	case counts:
		cb.counted++
		cb.failures++
		cb.config.Logger.Debug("Circuit breaker counted failure", map[string]interface{}{
			"name":     cb.config.Name,
			"failures": cb.failures,
			"error":    err.Error(),
		})
		if cb.state == StateHalfOpen || (cb.state == StateClosed && cb.failures >= cb.config.FailureThreshold) {
			cb.transitionLocked(StateOpen)
		}
	default:
		// not the provider's fault; a half-open trial call that ends this way proves nothing
	}
}

// transitionLocked must be called with cb.mu held
func (cb *CircuitBreaker) transitionLocked(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.stateChangedAt = cb.config.now()
	cb.generation++
	if to != StateHalfOpen {
		cb.halfOpenActive = 0
	}
	if to == StateClosed {
		cb.failures = 0
	}

	cb.config.Logger.Info("Circuit breaker state changed", map[string]interface{}{
		"name": cb.config.Name,
		"from": from.String(),
		"to":   to.String(),
	})
	cb.config.Telemetry.RecordMetric("storefront.circuit_breaker.transitions", 1, map[string]string{
		"name": cb.config.Name,
		"from": from.String(),
		"to":   to.String(),
	})

	for _, listener := range cb.listeners {
		go listener(cb.config.Name, from, to)
	}
}

// AddStateChangeListener registers fn to run (in its own goroutine) on every transition
func (cb *CircuitBreaker) AddStateChangeListener(fn func(name string, from, to CircuitState)) {
	cb.mu.Lock()
	cb.listeners = append(cb.listeners, fn)
	cb.mu.Unlock()
}

// GetState returns "closed", "open" or "half-open"
func (cb *CircuitBreaker) GetState() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state.String()
}

// GetMetrics returns a snapshot of the breaker counters
func (cb *CircuitBreaker) GetMetrics() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return map[string]interface{}{
		"name":                 cb.config.Name,
		"state":                cb.state.String(),
		"generation":           cb.generation,
		"consecutive_failures": cb.failures,
		"successes":            cb.successes,
		"failures":             cb.counted,
		"rejected":             cb.rejected,
		"half_open_active":     cb.halfOpenActive,
	}
}

// CanExecute reports whether a call would currently be admitted, without reserving a trial slot
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		return cb.config.now().Sub(cb.stateChangedAt) >= cb.config.SleepWindow
	default:
		return cb.halfOpenActive < cb.config.HalfOpenRequests
	}
}

// Reset forces the circuit closed and clears counters
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	old := cb.state
	cb.transitionLocked(StateClosed)
	cb.failures = 0
	cb.halfOpenActive = 0
	cb.successes, cb.counted, cb.rejected = 0, 0, 0

	cb.config.Logger.Info("Circuit breaker reset", map[string]interface{}{
		"operation":      "circuit_breaker_reset",
		"name":           cb.config.Name,
		"previous_state": old.String(),
	})
}
