package gemini

import (
	"os"

	"github.com/gemfashion/storefront/ai"
	"github.com/gemfashion/storefront/core"
)

func init() {
	ai.MustRegister(&Factory{})
}

// Factory creates Gemini AI clients
type Factory struct{}

// Name returns the provider name
func (f *Factory) Name() string {
	return providerName
}

// Description returns provider description
func (f *Factory) Description() string {
	return "Google Gemini streaming chat over the native GenerateContent API"
}

// Priority returns provider priority
func (f *Factory) Priority() int {
	return 70
}

// Create creates a new Gemini client
func (f *Factory) Create(config *ai.AIConfig) core.AIClient {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("API_KEY")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("GEMINI_BASE_URL")
	}

	client := NewClient(apiKey, baseURL, config.Logger)
	client.SetTelemetry(config.Telemetry)
	client.ApplyConfig(config.Timeout, config.MaxRetries, config.Model, config.Temperature, config.MaxTokens, config.SystemPrompt)
	return client
}

// DetectEnvironment checks if Gemini is configured and returns priority
func (f *Factory) DetectEnvironment() (priority int, available bool) {
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("API_KEY") != "" {
		return f.Priority(), true
	}
	return 0, false
}
