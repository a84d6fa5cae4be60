// Package providers holds the plumbing shared by AI provider clients.
package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gemfashion/storefront/core"
	"github.com/gemfashion/storefront/resilience"
	"github.com/gemfashion/storefront/telemetry"
)

// BaseClient provides common functionality for all AI providers
type BaseClient struct {
	HTTPClient *http.Client
	Logger     core.Logger
	Telemetry  core.Telemetry

	MaxRetries int
	RetryDelay time.Duration

	DefaultModel        string
	DefaultTemperature  float32
	DefaultMaxTokens    int
	DefaultSystemPrompt string
}

// NewBaseClient creates a base client with defaults. The HTTP client carries
// trace context; timeout bounds a whole request including a streamed body.
func NewBaseClient(timeout time.Duration, logger core.Logger) *BaseClient {
	return &BaseClient{
		HTTPClient:         telemetry.NewTracedHTTPClient(timeout),
		Logger:             core.ForComponent(logger, "storefront/ai"),
		Telemetry:          &core.NoOpTelemetry{},
		MaxRetries:         3,
		RetryDelay:         time.Second,
		DefaultTemperature: 0.7,
		DefaultMaxTokens:   1024,
	}
}

// SetTelemetry sets the telemetry used for provider spans
func (b *BaseClient) SetTelemetry(t core.Telemetry) {
	if t != nil {
		b.Telemetry = t
	}
}

// StartSpan starts a provider span
func (b *BaseClient) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	return b.Telemetry.StartSpan(ctx, name)
}

// ApplyConfig copies the shared settings onto the client defaults
func (b *BaseClient) ApplyConfig(timeout time.Duration, maxRetries int, model string, temperature float32, maxTokens int, systemPrompt string) {
	if timeout > 0 {
		b.HTTPClient.Timeout = timeout
	}
	if maxRetries > 0 {
		b.MaxRetries = maxRetries
	}
	if model != "" {
		b.DefaultModel = model
	}
	if temperature > 0 {
		b.DefaultTemperature = temperature
	}
	if maxTokens > 0 {
		b.DefaultMaxTokens = maxTokens
	}
	if systemPrompt != "" {
		b.DefaultSystemPrompt = systemPrompt
	}
}

// statusError is a non-2xx provider response
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server error: status %d", e.code)
}

// ExecuteWithRetry sends req, retrying transport errors, 429 and 5xx with
// exponential backoff. Other 4xx responses are returned to the caller as is.
func (b *BaseClient) ExecuteWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = b.MaxRetries + 1
	cfg.InitialDelay = b.RetryDelay
	cfg.MaxDelay = 8 * b.RetryDelay
	cfg.Retryable = func(err error) bool {
		return ctx.Err() == nil
	}

	var resp *http.Response
	attempt := 0
	err := resilience.Retry(ctx, cfg, func() error {
		attempt++
		clone := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return err
			}
			clone.Body = body
		}

		r, err := b.HTTPClient.Do(clone)
		if err != nil {
			b.Logger.Warn("AI request failed", map[string]interface{}{
				"operation": "ai_request_retry",
				"attempt":   attempt,
				"error":     err.Error(),
			})
			return err
		}
		if r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500 {
			_ = r.Body.Close()
			b.Logger.Warn("AI request got retryable status", map[string]interface{}{
				"operation":   "ai_request_retry",
				"attempt":     attempt,
				"status_code": r.StatusCode,
			})
			return &statusError{code: r.StatusCode}
		}
		resp = r
		return nil
	})
	if err != nil {
		b.Logger.Error("AI request failed after all retries", map[string]interface{}{
			"operation":      "ai_request_final_failure",
			"total_attempts": attempt,
			"error":          err.Error(),
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("request failed after %d attempts: %v: %w", attempt, err, core.ErrAIUnavailable)
	}
	if attempt > 1 {
		b.Logger.Info("AI request succeeded after retry", map[string]interface{}{
			"operation": "ai_request_recovery",
			"attempts":  attempt,
		})
	}
	return resp, nil
}

// ApplyDefaults returns a copy of options with unset values filled in
func (b *BaseClient) ApplyDefaults(options *core.AIOptions) *core.AIOptions {
	out := core.AIOptions{}
	if options != nil {
		out = *options
	}
	if out.Model == "" {
		out.Model = b.DefaultModel
	}
	if out.Temperature == 0 {
		out.Temperature = b.DefaultTemperature
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = b.DefaultMaxTokens
	}
	if out.SystemPrompt == "" {
		out.SystemPrompt = b.DefaultSystemPrompt
	}
	return &out
}

// HandleError maps an API error response to a storefront error
func (b *BaseClient) HandleError(statusCode int, body []byte, provider string) error {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s API error: invalid or missing API key: %w", provider, core.ErrInvalidConfiguration)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s API error: rate limit exceeded: %w", provider, core.ErrAIUnavailable)
	case http.StatusBadRequest:
		return fmt.Errorf("%s API error: invalid request - %s", provider, string(body))
	default:
		if statusCode >= 500 {
			return fmt.Errorf("%s API error: service temporarily unavailable (status %d): %w", provider, statusCode, core.ErrAIUnavailable)
		}
		return fmt.Errorf("%s API error (status %d): %s", provider, statusCode, string(body))
	}
}

// LogRequest logs outgoing API requests
func (b *BaseClient) LogRequest(ctx context.Context, provider, model string, prompt string, streaming bool) {
	b.Logger.InfoWithContext(ctx, "AI request initiated", map[string]interface{}{
		"operation":     "ai_request",
		"provider":      provider,
		"model":         model,
		"prompt_length": len(prompt),
		"streaming":     streaming,
	})
}

// LogResponse logs API responses and records latency
func (b *BaseClient) LogResponse(ctx context.Context, provider, model string, tokens core.TokenUsage, duration time.Duration) {
	b.Logger.InfoWithContext(ctx, "AI response received", map[string]interface{}{
		"operation":         "ai_response",
		"provider":          provider,
		"model":             model,
		"prompt_tokens":     tokens.PromptTokens,
		"completion_tokens": tokens.CompletionTokens,
		"total_tokens":      tokens.TotalTokens,
		"duration_ms":       duration.Milliseconds(),
	})
	b.Telemetry.RecordMetric("storefront.ai.request.duration", float64(duration.Milliseconds()), map[string]string{
		"provider": provider,
	})
	b.Telemetry.RecordMetric("storefront.ai.tokens", float64(tokens.TotalTokens), map[string]string{
		"provider": provider,
	})
}

// PartialResponse is returned alongside ErrStreamPartiallyCompleted when a
// stream fails after delivering some content
func PartialResponse(provider, model, content string, usage core.TokenUsage) *core.AIResponse {
	return &core.AIResponse{Content: content, Model: model, Provider: provider, Usage: usage}
}
