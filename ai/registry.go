package ai

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gemfashion/storefront/core"
)

// ProviderFactory defines the interface for AI provider factories
type ProviderFactory interface {
	// Create creates a new AI client instance with the given configuration
	Create(config *AIConfig) core.AIClient

	// DetectEnvironment checks if this provider can be used with current environment
	// Returns priority (higher = preferred) and availability
	DetectEnvironment() (priority int, available bool)

	Name() string
	Description() string
}

// ProviderRegistry manages registered AI providers
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
}

var registry = &ProviderRegistry{
	providers: make(map[string]ProviderFactory),
}

// Register registers a new AI provider factory.
// Provider packages call it from init().
func Register(factory ProviderFactory) error {
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	name := factory.Name()
	if name == "" {
		return fmt.Errorf("factory.Name() cannot be empty")
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, exists := registry.providers[name]; exists {
		return fmt.Errorf("provider '%s' already registered", name)
	}

	registry.providers[name] = factory
	return nil
}

// MustRegister registers a provider and panics on error
func MustRegister(factory ProviderFactory) {
	if err := Register(factory); err != nil {
		panic(fmt.Sprintf("failed to register provider: %v", err))
	}
}

// GetProvider retrieves a registered provider by name
func GetProvider(name string) (ProviderFactory, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	factory, exists := registry.providers[name]
	return factory, exists
}

// ListProviders returns all registered provider names
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.providers))
	for name := range registry.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderInfo contains information about a registered provider
type ProviderInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	Priority    int    `json:"priority"`
}

// GetProviderInfo returns information about all registered providers, best first
func GetProviderInfo() []ProviderInfo {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	info := make([]ProviderInfo, 0, len(registry.providers))
	for name, factory := range registry.providers {
		priority, available := factory.DetectEnvironment()
		info = append(info, ProviderInfo{
			Name:        name,
			Description: factory.Description(),
			Available:   available,
			Priority:    priority,
		})
	}

	sort.Slice(info, func(i, j int) bool {
		if info[i].Priority != info[j].Priority {
			return info[i].Priority > info[j].Priority
		}
		return info[i].Name < info[j].Name
	})
	return info
}

// detectBestProvider picks the available provider with the highest priority
func detectBestProvider(logger core.Logger, telemetry core.Telemetry) (string, error) {
	start := time.Now()

	var best *ProviderInfo
	for _, info := range GetProviderInfo() {
		logger.Debug("Provider environment check", map[string]interface{}{
			"operation": "ai_provider_check",
			"provider":  info.Name,
			"priority":  info.Priority,
			"available": info.Available,
		})
		if info.Available && best == nil {
			info := info
			best = &info
		}
	}

	if best == nil {
		telemetry.RecordMetric("storefront.ai.provider.detection", 1, map[string]string{"status": "no_providers"})
		logger.Error("No AI providers detected in environment", map[string]interface{}{
			"operation":  "ai_provider_detection",
			"registered": ListProviders(),
			"suggestion": "Set GEMINI_API_KEY or OPENAI_API_KEY, or enable STOREFRONT_MOCK_AI",
		})
		return "", fmt.Errorf("no provider detected in environment: %w", core.ErrMissingConfiguration)
	}

	telemetry.RecordMetric("storefront.ai.provider.detection.duration", float64(time.Since(start).Milliseconds()), nil)
	telemetry.RecordMetric("storefront.ai.provider.selected", 1, map[string]string{"provider": best.Name})
	logger.Info("AI provider selected", map[string]interface{}{
		"operation": "ai_provider_selection",
		"provider":  best.Name,
		"priority":  best.Priority,
	})
	return best.Name, nil
}
