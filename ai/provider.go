package ai

import (
	"time"

	"github.com/gemfashion/storefront/core"
)

// Provider represents an AI provider type
type Provider string

// Standard provider constants
const (
	ProviderGemini  Provider = "gemini"
	ProviderOpenAI  Provider = "openai"
	ProviderBedrock Provider = "bedrock"
	ProviderMock    Provider = "mock"
	ProviderAuto    Provider = "auto" // Auto-detect from environment
)

// AIConfig holds configuration for AI client creation
type AIConfig struct {
	Provider string

	APIKey  string
	BaseURL string

	Timeout    time.Duration
	MaxRetries int

	Model        string
	Temperature  float32
	MaxTokens    int
	SystemPrompt string

	Logger    core.Logger
	Telemetry core.Telemetry

	// Extra carries provider specific settings such as the AWS region
	Extra map[string]interface{}
}

// AIOption configures an AI client
type AIOption func(*AIConfig)

// WithProvider sets the AI provider
func WithProvider(provider string) AIOption {
	return func(c *AIConfig) {
		c.Provider = provider
	}
}

// WithAPIKey sets the API key
func WithAPIKey(key string) AIOption {
	return func(c *AIConfig) {
		c.APIKey = key
	}
}

// WithBaseURL sets the base URL for the API
func WithBaseURL(url string) AIOption {
	return func(c *AIConfig) {
		c.BaseURL = url
	}
}

// WithRegion sets the AWS region for the Bedrock provider
func WithRegion(region string) AIOption {
	return func(c *AIConfig) {
		if c.Extra == nil {
			c.Extra = make(map[string]interface{})
		}
		c.Extra["region"] = region
	}
}

// WithTimeout sets the request timeout
func WithTimeout(timeout time.Duration) AIOption {
	return func(c *AIConfig) {
		c.Timeout = timeout
	}
}

// WithMaxRetries sets the maximum number of retries
func WithMaxRetries(retries int) AIOption {
	return func(c *AIConfig) {
		c.MaxRetries = retries
	}
}

// WithModel sets the model to use
func WithModel(model string) AIOption {
	return func(c *AIConfig) {
		c.Model = model
	}
}

// WithTemperature sets the temperature for generation
func WithTemperature(temp float32) AIOption {
	return func(c *AIConfig) {
		c.Temperature = temp
	}
}

// WithMaxTokens sets the maximum tokens for generation
func WithMaxTokens(tokens int) AIOption {
	return func(c *AIConfig) {
		c.MaxTokens = tokens
	}
}

// WithSystemPrompt sets the default system instruction
func WithSystemPrompt(prompt string) AIOption {
	return func(c *AIConfig) {
		c.SystemPrompt = prompt
	}
}

// WithLogger sets the logger
func WithLogger(logger core.Logger) AIOption {
	return func(c *AIConfig) {
		c.Logger = logger
	}
}

// WithTelemetry sets the telemetry provider
func WithTelemetry(telemetry core.Telemetry) AIOption {
	return func(c *AIConfig) {
		c.Telemetry = telemetry
	}
}

// FromConfig maps the service configuration onto client options. Development
// mock mode forces the mock provider.
func FromConfig(cfg *core.Config) []AIOption {
	provider := cfg.AI.Provider
	if cfg.Development.MockAI {
		provider = string(ProviderMock)
	}
	if provider == "" {
		provider = string(ProviderAuto)
	}
	opts := []AIOption{
		WithProvider(provider),
		WithBaseURL(cfg.AI.BaseURL),
		WithModel(cfg.AI.Model),
		WithTemperature(cfg.AI.Temperature),
		WithMaxTokens(cfg.AI.MaxTokens),
		WithTimeout(cfg.AI.Timeout),
		WithMaxRetries(cfg.AI.RetryAttempts),
		WithSystemPrompt(cfg.AI.SystemPrompt),
	}
	// Under auto detection each provider reads its own key variable.
	if provider != string(ProviderAuto) {
		opts = append(opts, WithAPIKey(cfg.AI.APIKey))
	}
	return opts
}
