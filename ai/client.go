// Package ai creates chat clients for the fashion assistant from a registry
// of providers. Providers register themselves from init(); import them for
// side effects:
//
//	import _ "github.com/gemfashion/storefront/ai/providers/gemini"
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/gemfashion/storefront/core"
)

// NewClient creates an AI client using registered providers
func NewClient(opts ...AIOption) (core.AIClient, error) {
	config := &AIConfig{
		Provider:    string(ProviderAuto),
		MaxRetries:  3,
		Timeout:     30 * time.Second,
		Temperature: 0.7,
		MaxTokens:   1024,
	}
	for _, opt := range opts {
		opt(config)
	}

	config.Logger = core.ForComponent(config.Logger, "storefront/ai")
	if config.Telemetry == nil {
		config.Telemetry = &core.NoOpTelemetry{}
	}

	config.Logger.Info("Starting AI client creation", map[string]interface{}{
		"operation":        "ai_client_creation",
		"provider_setting": config.Provider,
	})

	if config.Provider == string(ProviderAuto) {
		provider, err := detectBestProvider(config.Logger, config.Telemetry)
		if err != nil {
			return nil, fmt.Errorf("no AI provider available: %w", err)
		}
		config.Provider = provider
	}

	factory, exists := GetProvider(config.Provider)
	if !exists {
		config.Logger.Error("AI provider not registered", map[string]interface{}{
			"operation":           "ai_provider_lookup",
			"requested_provider":  config.Provider,
			"available_providers": ListProviders(),
		})
		return nil, fmt.Errorf("provider '%s' not registered. Import _ \"github.com/gemfashion/storefront/ai/providers/%s\": %w",
			config.Provider, config.Provider, core.ErrInvalidConfiguration)
	}

	client := factory.Create(config)
	config.Logger.Info("AI client created", map[string]interface{}{
		"operation":   "ai_client_creation",
		"provider":    config.Provider,
		"client_type": fmt.Sprintf("%T", client),
		"streaming":   SupportsStreaming(client),
	})
	return client, nil
}

// SupportsStreaming reports whether client can deliver incremental chunks
func SupportsStreaming(client core.AIClient) bool {
	sc, ok := client.(core.StreamingAIClient)
	return ok && sc.SupportsStreaming()
}

// Stream delivers a reply through callback. Clients without streaming
// support deliver the whole reply as a single chunk.
func Stream(ctx context.Context, client core.AIClient, prompt string, options *core.AIOptions, callback core.StreamCallback) (*core.AIResponse, error) {
	if sc, ok := client.(core.StreamingAIClient); ok && sc.SupportsStreaming() {
		return sc.StreamResponse(ctx, prompt, options, callback)
	}

	resp, err := client.GenerateResponse(ctx, prompt, options)
	if err != nil {
		return nil, err
	}
	if err := callback(core.StreamChunk{Content: resp.Content, Delta: true, Model: resp.Model}); err != nil {
		return resp, nil
	}
	_ = callback(core.StreamChunk{Index: 1, Model: resp.Model, FinishReason: "stop", Usage: &resp.Usage})
	return resp, nil
}
