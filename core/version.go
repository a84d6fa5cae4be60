package core

// Build information, overridable with -ldflags "-X github.com/gemfashion/storefront/core.Version=..."
var (
	// Version is the service version reported by /health and telemetry
	Version = "development"

	// APIVersion is the current HTTP API version
	APIVersion = "v1"

	// GitCommit is set during build time
	GitCommit = "unknown"
)
