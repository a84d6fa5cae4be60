package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all storefront service configuration.
// Precedence, lowest to highest: defaults, environment, config file, functional options.
type Config struct {
	Name    string `json:"name" yaml:"name" env:"STOREFRONT_NAME" default:"storefront"`
	Port    int    `json:"port" yaml:"port" env:"STOREFRONT_PORT,PORT" default:"8080"`
	Address string `json:"address" yaml:"address" env:"STOREFRONT_ADDRESS"`

	HTTP          HTTPConfig          `json:"http" yaml:"http"`
	Storage       StorageConfig       `json:"storage" yaml:"storage"`
	AI            AIConfig            `json:"ai" yaml:"ai"`
	Payment       PaymentConfig       `json:"payment" yaml:"payment"`
	Notifications NotificationConfig  `json:"notifications" yaml:"notifications"`
	Search        SearchConfig        `json:"search" yaml:"search"`
	Docs          DocsConfig          `json:"docs" yaml:"docs"`
	Telemetry     TelemetryConfig     `json:"telemetry" yaml:"telemetry"`
	Resilience    ResilienceConfig    `json:"resilience" yaml:"resilience"`
	Logging       LoggingConfig       `json:"logging" yaml:"logging"`
	Development   DevelopmentConfig   `json:"development" yaml:"development"`
	Housekeeping  HousekeepingConfig  `json:"housekeeping" yaml:"housekeeping"`
	Assistant     AssistantRateConfig `json:"assistant" yaml:"assistant"`
}

// HTTPConfig contains HTTP server settings
type HTTPConfig struct {
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" env:"STOREFRONT_HTTP_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" env:"STOREFRONT_HTTP_WRITE_TIMEOUT" default:"0s"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout" default:"120s"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" env:"STOREFRONT_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	ClientCookie    string        `json:"client_cookie" yaml:"client_cookie" default:"client_id"`
	CORS            CORSConfig    `json:"cors" yaml:"cors"`
}

// CORSConfig contains CORS settings
type CORSConfig struct {
	Enabled          bool     `json:"enabled" yaml:"enabled" env:"STOREFRONT_CORS_ENABLED" default:"false"`
	AllowedOrigins   []string `json:"allowed_origins" yaml:"allowed_origins" env:"STOREFRONT_CORS_ORIGINS"`
	AllowedMethods   []string `json:"allowed_methods" yaml:"allowed_methods" default:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `json:"allowed_headers" yaml:"allowed_headers" default:"Content-Type,X-Client-ID"`
	ExposedHeaders   []string `json:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials" env:"STOREFRONT_CORS_CREDENTIALS" default:"false"`
	MaxAge           int      `json:"max_age" yaml:"max_age" default:"86400"`
}

// StorageConfig selects the key-value backend holding per-client state
type StorageConfig struct {
	Provider  string        `json:"provider" yaml:"provider" env:"STOREFRONT_STORAGE_PROVIDER" default:"inmemory"`
	RedisURL  string        `json:"redis_url" yaml:"redis_url" env:"STOREFRONT_REDIS_URL,REDIS_URL"`
	Namespace string        `json:"namespace" yaml:"namespace" env:"STOREFRONT_STORAGE_NAMESPACE" default:"storefront"`
	TTL       time.Duration `json:"ttl" yaml:"ttl" env:"STOREFRONT_STORAGE_TTL" default:"0s"`
}

// AIConfig contains fashion assistant provider settings
type AIConfig struct {
	Provider      string        `json:"provider" yaml:"provider" env:"STOREFRONT_AI_PROVIDER" default:"auto"`
	APIKey        string        `json:"api_key" yaml:"api_key" env:"STOREFRONT_AI_API_KEY,GEMINI_API_KEY,OPENAI_API_KEY"`
	BaseURL       string        `json:"base_url" yaml:"base_url" env:"STOREFRONT_AI_BASE_URL"`
	Model         string        `json:"model" yaml:"model" env:"STOREFRONT_AI_MODEL"`
	Temperature   float32       `json:"temperature" yaml:"temperature" env:"STOREFRONT_AI_TEMPERATURE" default:"0.7"`
	MaxTokens     int           `json:"max_tokens" yaml:"max_tokens" env:"STOREFRONT_AI_MAX_TOKENS" default:"1024"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout" env:"STOREFRONT_AI_TIMEOUT" default:"30s"`
	SystemPrompt  string        `json:"system_prompt" yaml:"system_prompt" env:"STOREFRONT_AI_SYSTEM_PROMPT"`
	SessionTTL    time.Duration `json:"session_ttl" yaml:"session_ttl" env:"STOREFRONT_AI_SESSION_TTL" default:"24h"`
	RetryAttempts int           `json:"retry_attempts" yaml:"retry_attempts" default:"3"`
}

// PaymentConfig tunes the mobile money simulator
type PaymentConfig struct {
	// DelayScale multiplies every simulated delay. 1.0 reproduces the real timings.
	DelayScale float64 `json:"delay_scale" yaml:"delay_scale" env:"STOREFRONT_PAYMENT_DELAY_SCALE" default:"1.0"`
}

// NotificationConfig controls toast lifetime
type NotificationConfig struct {
	TTL time.Duration `json:"ttl" yaml:"ttl" env:"STOREFRONT_NOTIFICATION_TTL" default:"3s"`
}

// SearchConfig controls search input debouncing
type SearchConfig struct {
	Debounce time.Duration `json:"debounce" yaml:"debounce" env:"STOREFRONT_SEARCH_DEBOUNCE" default:"300ms"`
}

// DocsConfig controls the documentation generator jobs
type DocsConfig struct {
	// JobTTL is how long a finished job and its document stay readable
	JobTTL time.Duration `json:"job_ttl" yaml:"job_ttl" env:"STOREFRONT_DOCS_JOB_TTL" default:"24h"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	Enabled        bool    `json:"enabled" yaml:"enabled" env:"STOREFRONT_TELEMETRY_ENABLED" default:"false"`
	Endpoint       string  `json:"endpoint" yaml:"endpoint" env:"STOREFRONT_TELEMETRY_ENDPOINT,OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName    string  `json:"service_name" yaml:"service_name" env:"OTEL_SERVICE_NAME"`
	MetricsEnabled bool    `json:"metrics_enabled" yaml:"metrics_enabled" default:"true"`
	TracingEnabled bool    `json:"tracing_enabled" yaml:"tracing_enabled" default:"true"`
	SamplingRate   float64 `json:"sampling_rate" yaml:"sampling_rate" default:"1.0"`
	Insecure       bool    `json:"insecure" yaml:"insecure" default:"true"`
	// Protocol selects the OTLP transport: grpc or http/protobuf
	Protocol string `json:"protocol" yaml:"protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL" default:"grpc"`
	// MetricsEndpoint receives OTLP/HTTP metrics. Defaults to Endpoint when
	// Protocol is http/protobuf; with grpc, metrics stay in process unless set.
	MetricsEndpoint string `json:"metrics_endpoint" yaml:"metrics_endpoint" env:"OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"`
	// MetricsInterval is how often metrics are pushed to the endpoint
	MetricsInterval time.Duration `json:"metrics_interval" yaml:"metrics_interval" default:"30s"`
	// Stdout exports spans to stdout when no endpoint is configured
	Stdout bool `json:"stdout" yaml:"stdout" env:"STOREFRONT_TELEMETRY_STDOUT" default:"false"`
}

// ResilienceConfig contains resilience settings
type ResilienceConfig struct {
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker" yaml:"circuit_breaker"`
	Retry          RetryConfig          `json:"retry" yaml:"retry"`
}

// CircuitBreakerConfig contains circuit breaker settings
type CircuitBreakerConfig struct {
	Enabled          bool          `json:"enabled" yaml:"enabled" env:"STOREFRONT_CB_ENABLED" default:"true"`
	Threshold        int           `json:"threshold" yaml:"threshold" env:"STOREFRONT_CB_THRESHOLD" default:"5"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout" env:"STOREFRONT_CB_TIMEOUT" default:"30s"`
	HalfOpenRequests int           `json:"half_open_requests" yaml:"half_open_requests" default:"1"`
}

// RetryConfig contains retry settings
type RetryConfig struct {
	MaxAttempts     int           `json:"max_attempts" yaml:"max_attempts" env:"STOREFRONT_RETRY_MAX_ATTEMPTS" default:"3"`
	InitialInterval time.Duration `json:"initial_interval" yaml:"initial_interval" default:"200ms"`
	MaxInterval     time.Duration `json:"max_interval" yaml:"max_interval" default:"5s"`
	Multiplier      float64       `json:"multiplier" yaml:"multiplier" default:"2.0"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"STOREFRONT_LOG_LEVEL" default:"info"`
	Format string `json:"format" yaml:"format" env:"STOREFRONT_LOG_FORMAT" default:"json"`
	Output string `json:"output" yaml:"output" env:"STOREFRONT_LOG_OUTPUT" default:"stdout"`
}

// DevelopmentConfig contains development mode settings
type DevelopmentConfig struct {
	Enabled      bool `json:"enabled" yaml:"enabled" env:"STOREFRONT_DEV_MODE" default:"false"`
	MockAI       bool `json:"mock_ai" yaml:"mock_ai" env:"STOREFRONT_MOCK_AI" default:"false"`
	DebugLogging bool `json:"debug_logging" yaml:"debug_logging" env:"STOREFRONT_DEBUG" default:"false"`
}

// HousekeepingConfig drives the periodic cleanup job
type HousekeepingConfig struct {
	// Schedule is a cron spec understood by robfig/cron
	Schedule   string        `json:"schedule" yaml:"schedule" env:"STOREFRONT_HOUSEKEEPING_SCHEDULE" default:"@every 1m"`
	IdleClient time.Duration `json:"idle_client" yaml:"idle_client" env:"STOREFRONT_IDLE_CLIENT" default:"30m"`
}

// AssistantRateConfig limits chat messages per client
type AssistantRateConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" env:"STOREFRONT_ASSISTANT_RPM" default:"20"`
}

// Option is a functional option for configuring the service
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "storefront",
		Port:    8080,
		Address: "",
		HTTP: HTTPConfig{
			ReadTimeout: 30 * time.Second,
			// SSE streams (payment, chat, docs) outlive any sane write timeout
			WriteTimeout:    0,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			ClientCookie:    "client_id",
			CORS: CORSConfig{
				Enabled:          false,
				AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Content-Type", "X-Client-ID"},
				AllowCredentials: false,
				MaxAge:           86400,
			},
		},
		Storage: StorageConfig{
			Provider:  "inmemory",
			Namespace: "storefront",
		},
		AI: AIConfig{
			Provider:      "auto",
			Model:         "",
			Temperature:   0.7,
			MaxTokens:     1024,
			Timeout:       30 * time.Second,
			SessionTTL:    24 * time.Hour,
			RetryAttempts: 3,
		},
		Payment: PaymentConfig{
			DelayScale: 1.0,
		},
		Notifications: NotificationConfig{
			TTL: 3 * time.Second,
		},
		Search: SearchConfig{
			Debounce: 300 * time.Millisecond,
		},
		Docs: DocsConfig{
			JobTTL: 24 * time.Hour,
		},
		Telemetry: TelemetryConfig{
			Enabled:         false,
			MetricsEnabled:  true,
			TracingEnabled:  true,
			SamplingRate:    1.0,
			Insecure:        true,
			Protocol:        "grpc",
			MetricsInterval: 30 * time.Second,
		},
		Resilience: ResilienceConfig{
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          true,
				Threshold:        5,
				Timeout:          30 * time.Second,
				HalfOpenRequests: 1,
			},
			Retry: RetryConfig{
				MaxAttempts:     3,
				InitialInterval: 200 * time.Millisecond,
				MaxInterval:     5 * time.Second,
				Multiplier:      2.0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Housekeeping: HousekeepingConfig{
			Schedule:   "@every 1m",
			IdleClient: 30 * time.Minute,
		},
		Assistant: AssistantRateConfig{
			RequestsPerMinute: 20,
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables take precedence over defaults but are overridden by functional options.
//
// Variable naming convention:
//   - Service-specific: STOREFRONT_<SETTING>
//   - Standard variables: PORT, REDIS_URL, GEMINI_API_KEY, OPENAI_API_KEY, OTEL_EXPORTER_OTLP_ENDPOINT
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("STOREFRONT_NAME"); v != "" {
		c.Name = v
	}
	if v := firstEnv("STOREFRONT_PORT", "PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", v, ErrInvalidConfiguration)
		}
		c.Port = port
	}
	if v := os.Getenv("STOREFRONT_ADDRESS"); v != "" {
		c.Address = v
	}

	// HTTP settings
	if err := envDuration("STOREFRONT_HTTP_READ_TIMEOUT", &c.HTTP.ReadTimeout); err != nil {
		return err
	}
	if err := envDuration("STOREFRONT_HTTP_WRITE_TIMEOUT", &c.HTTP.WriteTimeout); err != nil {
		return err
	}
	if err := envDuration("STOREFRONT_HTTP_SHUTDOWN_TIMEOUT", &c.HTTP.ShutdownTimeout); err != nil {
		return err
	}

	// CORS settings
	if v := os.Getenv("STOREFRONT_CORS_ENABLED"); v != "" {
		c.HTTP.CORS.Enabled = parseBool(v)
	}
	if v := os.Getenv("STOREFRONT_CORS_ORIGINS"); v != "" {
		c.HTTP.CORS.AllowedOrigins = parseStringList(v)
		c.HTTP.CORS.Enabled = true
	}
	if v := os.Getenv("STOREFRONT_CORS_CREDENTIALS"); v != "" {
		c.HTTP.CORS.AllowCredentials = parseBool(v)
	}

	// Storage settings
	if v := os.Getenv("STOREFRONT_STORAGE_PROVIDER"); v != "" {
		c.Storage.Provider = v
	}
	if v := firstEnv("STOREFRONT_REDIS_URL", "REDIS_URL"); v != "" {
		c.Storage.RedisURL = v
		if os.Getenv("STOREFRONT_STORAGE_PROVIDER") == "" {
			c.Storage.Provider = "redis" // Auto-select if a URL is provided
		}
	}
	if v := os.Getenv("STOREFRONT_STORAGE_NAMESPACE"); v != "" {
		c.Storage.Namespace = v
	}
	if err := envDuration("STOREFRONT_STORAGE_TTL", &c.Storage.TTL); err != nil {
		return err
	}

	// AI settings
	if v := os.Getenv("STOREFRONT_AI_PROVIDER"); v != "" {
		c.AI.Provider = v
	}
	if v := firstEnv("STOREFRONT_AI_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("STOREFRONT_AI_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
	if v := os.Getenv("STOREFRONT_AI_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("STOREFRONT_AI_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("invalid AI temperature %q: %w", v, ErrInvalidConfiguration)
		}
		c.AI.Temperature = float32(f)
	}
	if v := os.Getenv("STOREFRONT_AI_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid AI max tokens %q: %w", v, ErrInvalidConfiguration)
		}
		c.AI.MaxTokens = n
	}
	if err := envDuration("STOREFRONT_AI_TIMEOUT", &c.AI.Timeout); err != nil {
		return err
	}
	if err := envDuration("STOREFRONT_AI_SESSION_TTL", &c.AI.SessionTTL); err != nil {
		return err
	}
	if v := os.Getenv("STOREFRONT_AI_SYSTEM_PROMPT"); v != "" {
		c.AI.SystemPrompt = v
	}

	// Simulators and UI timings
	if v := os.Getenv("STOREFRONT_PAYMENT_DELAY_SCALE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid payment delay scale %q: %w", v, ErrInvalidConfiguration)
		}
		c.Payment.DelayScale = f
	}
	if err := envDuration("STOREFRONT_NOTIFICATION_TTL", &c.Notifications.TTL); err != nil {
		return err
	}
	if err := envDuration("STOREFRONT_SEARCH_DEBOUNCE", &c.Search.Debounce); err != nil {
		return err
	}
	if err := envDuration("STOREFRONT_DOCS_JOB_TTL", &c.Docs.JobTTL); err != nil {
		return err
	}

	// Telemetry settings
	if v := os.Getenv("STOREFRONT_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := firstEnv("STOREFRONT_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true // Auto-enable if endpoint is provided
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"); v != "" {
		c.Telemetry.Protocol = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); v != "" {
		c.Telemetry.MetricsEndpoint = v
	}
	if v := os.Getenv("STOREFRONT_TELEMETRY_STDOUT"); v != "" {
		c.Telemetry.Stdout = parseBool(v)
	}
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	} else if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.Name
	}

	// Resilience settings
	if v := os.Getenv("STOREFRONT_CB_ENABLED"); v != "" {
		c.Resilience.CircuitBreaker.Enabled = parseBool(v)
	}
	if v := os.Getenv("STOREFRONT_CB_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Resilience.CircuitBreaker.Threshold = n
		}
	}
	if err := envDuration("STOREFRONT_CB_TIMEOUT", &c.Resilience.CircuitBreaker.Timeout); err != nil {
		return err
	}
	if v := os.Getenv("STOREFRONT_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Resilience.Retry.MaxAttempts = n
		}
	}

	// Logging settings
	if v := os.Getenv("STOREFRONT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STOREFRONT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("STOREFRONT_LOG_OUTPUT"); v != "" {
		c.Logging.Output = v
	}

	// Development settings
	if v := os.Getenv("STOREFRONT_DEV_MODE"); v != "" {
		c.Development.Enabled = parseBool(v)
		if c.Development.Enabled {
			c.Logging.Level = "debug"
			c.Logging.Format = "text"
		}
	}
	if v := os.Getenv("STOREFRONT_MOCK_AI"); v != "" {
		c.Development.MockAI = parseBool(v)
	}
	if v := os.Getenv("STOREFRONT_DEBUG"); v != "" {
		c.Development.DebugLogging = parseBool(v)
		if c.Development.DebugLogging {
			c.Logging.Level = "debug"
		}
	}

	// Housekeeping
	if v := os.Getenv("STOREFRONT_HOUSEKEEPING_SCHEDULE"); v != "" {
		c.Housekeeping.Schedule = v
	}
	if err := envDuration("STOREFRONT_IDLE_CLIENT", &c.Housekeeping.IdleClient); err != nil {
		return err
	}
	if v := os.Getenv("STOREFRONT_ASSISTANT_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Assistant.RequestsPerMinute = n
		}
	}

	return nil
}

// LoadFromFile loads configuration from a JSON or YAML file.
// File settings override environment variables but are overridden by functional options.
//
// Example YAML:
//
//	port: 8080
//	storage:
//	  provider: redis
//	  redis_url: redis://localhost:6379/0
//	ai:
//	  provider: gemini
//	  model: gemini-2.5-flash
func (c *Config) LoadFromFile(path string) error {
	cleanPath := filepath.Clean(path)

	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config file extension %s: %w", ext, ErrInvalidConfiguration)
	}

	data, err := os.ReadFile(cleanPath) // nosec G304 -- extension is validated
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %v: %w", err, ErrInvalidConfiguration)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %v: %w", err, ErrInvalidConfiguration)
		}
	}

	return nil
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    KindConfig,
			Message: fmt.Sprintf("invalid port: %d", c.Port),
			Err:     ErrInvalidConfiguration,
		}
	}

	switch c.Storage.Provider {
	case "inmemory":
	case "redis":
		if c.Storage.RedisURL == "" {
			return &StoreError{
				Op:      "Config.Validate",
				Kind:    KindConfig,
				Message: "redis URL is required for the redis storage provider",
				Err:     ErrMissingConfiguration,
			}
		}
	default:
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    KindConfig,
			Message: fmt.Sprintf("unknown storage provider: %s", c.Storage.Provider),
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Payment.DelayScale < 0 {
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    KindConfig,
			Message: "payment delay scale must not be negative",
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Notifications.TTL <= 0 {
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    KindConfig,
			Message: "notification TTL must be positive",
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Search.Debounce < 0 {
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    KindConfig,
			Message: "search debounce must not be negative",
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Docs.JobTTL <= 0 {
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    KindConfig,
			Message: "docs job TTL must be positive",
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" && !c.Telemetry.Stdout {
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    KindConfig,
			Message: "telemetry endpoint is required when telemetry is enabled",
			Err:     ErrMissingConfiguration,
		}
	}

	switch c.Telemetry.Protocol {
	case "", "grpc", "http", "http/protobuf":
	default:
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    KindConfig,
			Message: fmt.Sprintf("unsupported OTLP protocol %q (use grpc or http/protobuf)", c.Telemetry.Protocol),
			Err:     ErrInvalidConfiguration,
		}
	}

	return nil
}

// ListenAddr returns the host:port the HTTP server binds to
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

// Helper functions

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid duration for %s=%q: %w", key, v, ErrInvalidConfiguration)
	}
	*dst = d
	return nil
}

// parseStringList splits a comma-separated string into a slice of strings.
// Example: "a, b, c" -> ["a", "b", "c"]
func parseStringList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseBool accepts "true", "1", "yes", "on" (case-insensitive) as true.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// Functional options

// WithPort sets the HTTP port
func WithPort(port int) Option {
	return func(c *Config) error {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port %d: %w", port, ErrInvalidConfiguration)
		}
		c.Port = port
		return nil
	}
}

// WithAddress sets the bind address
func WithAddress(address string) Option {
	return func(c *Config) error {
		c.Address = address
		return nil
	}
}

// WithCORS enables CORS for the given origins
func WithCORS(origins []string, credentials bool) Option {
	return func(c *Config) error {
		c.HTTP.CORS.Enabled = true
		c.HTTP.CORS.AllowedOrigins = origins
		c.HTTP.CORS.AllowCredentials = credentials
		return nil
	}
}

// WithRedisURL selects the redis storage provider
func WithRedisURL(url string) Option {
	return func(c *Config) error {
		c.Storage.Provider = "redis"
		c.Storage.RedisURL = url
		return nil
	}
}

// WithStorageProvider sets the storage provider ("inmemory" or "redis")
func WithStorageProvider(provider string) Option {
	return func(c *Config) error {
		c.Storage.Provider = provider
		return nil
	}
}

// WithAI configures the assistant provider
func WithAI(provider, apiKey, model string) Option {
	return func(c *Config) error {
		c.AI.Provider = provider
		c.AI.APIKey = apiKey
		if model != "" {
			c.AI.Model = model
		}
		return nil
	}
}

// WithMockAI forces the scripted AI provider
func WithMockAI(enabled bool) Option {
	return func(c *Config) error {
		c.Development.MockAI = enabled
		return nil
	}
}

// WithPaymentDelayScale scales the payment simulator delays, e.g. 0.001 in tests
func WithPaymentDelayScale(scale float64) Option {
	return func(c *Config) error {
		if scale < 0 {
			return fmt.Errorf("negative delay scale: %w", ErrInvalidConfiguration)
		}
		c.Payment.DelayScale = scale
		return nil
	}
}

// WithNotificationTTL sets how long a notification stays visible
func WithNotificationTTL(ttl time.Duration) Option {
	return func(c *Config) error {
		c.Notifications.TTL = ttl
		return nil
	}
}

// WithSearchDebounce sets the search debounce delay
func WithSearchDebounce(d time.Duration) Option {
	return func(c *Config) error {
		c.Search.Debounce = d
		return nil
	}
}

// WithTelemetry enables tracing and metrics export to endpoint
func WithTelemetry(enabled bool, endpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = enabled
		c.Telemetry.Endpoint = endpoint
		return nil
	}
}

// WithLogLevel sets the log level
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = level
		return nil
	}
}

// WithLogFormat sets the log format ("json" or "text")
func WithLogFormat(format string) Option {
	return func(c *Config) error {
		c.Logging.Format = format
		return nil
	}
}

// WithCircuitBreaker configures the AI circuit breaker
func WithCircuitBreaker(threshold int, timeout time.Duration) Option {
	return func(c *Config) error {
		c.Resilience.CircuitBreaker.Enabled = true
		c.Resilience.CircuitBreaker.Threshold = threshold
		c.Resilience.CircuitBreaker.Timeout = timeout
		return nil
	}
}

// WithConfigFile loads a JSON or YAML file on top of the current settings
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}

// WithDevelopmentMode turns on debug text logging
func WithDevelopmentMode(enabled bool) Option {
	return func(c *Config) error {
		c.Development.Enabled = enabled
		if enabled {
			c.Logging.Level = "debug"
			c.Logging.Format = "text"
		}
		return nil
	}
}

// NewConfig creates a new configuration with the given options.
//
//	cfg, err := NewConfig(
//	    WithPort(8080),
//	    WithRedisURL("redis://localhost:6379"),
//	)
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
