package resilience

import (
	"github.com/gemfashion/storefront/core"
)

// Dependencies holds optional collaborators for breakers built from configuration
type Dependencies struct {
	Logger    core.Logger
	Telemetry core.Telemetry
}

// NewFromParams builds a breaker from the service configuration. A disabled
// breaker section yields a breaker that never opens.
func NewFromParams(params core.CircuitBreakerParams) (*CircuitBreaker, error) {
	cfg := DefaultConfig()
	cfg.Name = params.Name
	cfg.Logger = core.ForComponent(params.Logger, "storefront/resilience")
	if params.Telemetry != nil {
		cfg.Telemetry = params.Telemetry
	}

	c := params.Config
	if c.Threshold > 0 {
		cfg.FailureThreshold = c.Threshold
	}
	if c.Timeout > 0 {
		cfg.SleepWindow = c.Timeout
	}
	if c.HalfOpenRequests > 0 {
		cfg.HalfOpenRequests = c.HalfOpenRequests
	}
	if !c.Enabled {
		cfg.ErrorClassifier = func(error) bool { return false }
		cfg.Logger.Info("Circuit breaker disabled by configuration", map[string]interface{}{
			"name": params.Name,
		})
	}
	return NewCircuitBreaker(cfg)
}

// CreateCircuitBreaker builds a named breaker with default settings
func CreateCircuitBreaker(name string, deps Dependencies) (*CircuitBreaker, error) {
	params := core.DefaultCircuitBreakerParams(name)
	params.Logger = deps.Logger
	params.Telemetry = deps.Telemetry
	return NewFromParams(params)
}
