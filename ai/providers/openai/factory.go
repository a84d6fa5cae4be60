package openai

import (
	"os"

	"github.com/gemfashion/storefront/ai"
	"github.com/gemfashion/storefront/core"
)

func init() {
	ai.MustRegister(&Factory{})
}

// Factory creates OpenAI-compatible clients
type Factory struct{}

// Name returns the provider name
func (f *Factory) Name() string {
	return providerName
}

// Description returns provider description
func (f *Factory) Description() string {
	return "OpenAI-compatible chat completions (OpenAI, llama.cpp, vLLM, Ollama)"
}

// Priority returns provider priority
func (f *Factory) Priority() int {
	return 60
}

// Create creates a new OpenAI-compatible client
func (f *Factory) Create(config *ai.AIConfig) core.AIClient {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}

	client := NewClient(apiKey, baseURL, config.Logger)
	client.SetTelemetry(config.Telemetry)
	client.ApplyConfig(config.Timeout, config.MaxRetries, config.Model, config.Temperature, config.MaxTokens, config.SystemPrompt)
	return client
}

// DetectEnvironment reports availability when a key or a self-hosted endpoint is set
func (f *Factory) DetectEnvironment() (priority int, available bool) {
	if os.Getenv("OPENAI_API_KEY") != "" || os.Getenv("OPENAI_BASE_URL") != "" {
		return f.Priority(), true
	}
	return 0, false
}
