// Package gemini talks to the Google Gemini GenerateContent API over plain HTTP.
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gemfashion/storefront/ai/providers"
	"github.com/gemfashion/storefront/core"
)

const (
	// DefaultBaseURL is the default Gemini API endpoint
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	providerName = "gemini"
)

// Client implements core.StreamingAIClient for Google Gemini
type Client struct {
	*providers.BaseClient
	apiKey  string
	baseURL string
}

var _ core.StreamingAIClient = (*Client)(nil)

// NewClient creates a new Gemini client
func NewClient(apiKey, baseURL string, logger core.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	base := providers.NewBaseClient(0, logger)
	base.DefaultModel = DefaultModel

	return &Client{
		BaseClient: base,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// SupportsStreaming returns true; replies are streamed over server-sent events
func (c *Client) SupportsStreaming() bool {
	return true
}

func (c *Client) buildRequest(ctx context.Context, method, prompt string, options *core.AIOptions, query string) (*http.Request, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini API key not configured: %w", core.ErrMissingConfiguration)
	}

	contents := make([]Content, 0, len(options.History)+1)
	for _, turn := range options.History {
		role := "user"
		if turn.Role == "assistant" || turn.Role == "model" {
			role = "model"
		}
		contents = append(contents, Content{Role: role, Parts: []Part{{Text: turn.Content}}})
	}
	contents = append(contents, Content{Role: "user", Parts: []Part{{Text: prompt}}})

	body := GeminiRequest{
		Contents: contents,
		GenerationConfig: &GenerationConfig{
			Temperature:     options.Temperature,
			MaxOutputTokens: options.MaxTokens,
		},
	}
	if options.SystemPrompt != "" {
		body.SystemInstruction = &SystemInstruction{Parts: []Part{{Text: options.SystemPrompt}}}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:%s?%skey=%s", c.baseURL, options.Model, method, query, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var apiErr ErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		body = []byte(apiErr.Error.Message)
	}
	return c.HandleError(resp.StatusCode, body, "Gemini")
}

// GenerateResponse returns a complete reply from GenerateContent
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	ctx, span := c.StartSpan(ctx, "ai.generate_response")
	defer span.End()

	options = c.ApplyDefaults(options)
	options.Model = resolveModel(options.Model)
	span.SetAttribute("ai.provider", providerName)
	span.SetAttribute("ai.model", options.Model)

	req, err := c.buildRequest(ctx, "generateContent", prompt, options, "")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	c.LogRequest(ctx, providerName, options.Model, prompt, false)
	start := time.Now()

	resp, err := c.ExecuteWithRetry(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		apiErr := c.apiError(resp)
		span.SetAttribute("http.status_code", resp.StatusCode)
		span.RecordError(apiErr)
		return nil, apiErr
	}

	var gr GeminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	content := gr.text()
	if content == "" {
		err := fmt.Errorf("no text content in Gemini response: %w", core.ErrAIUnavailable)
		span.RecordError(err)
		return nil, err
	}

	result := &core.AIResponse{
		Content:  content,
		Model:    options.Model,
		Provider: providerName,
		Usage:    usage(gr.UsageMetadata),
	}
	c.LogResponse(ctx, providerName, result.Model, result.Usage, time.Since(start))
	return result, nil
}

// StreamResponse streams a reply from streamGenerateContent. Each SSE event
// becomes one chunk, delivered in arrival order. A failure after some content
// was delivered returns the partial response with ErrStreamPartiallyCompleted.
func (c *Client) StreamResponse(ctx context.Context, prompt string, options *core.AIOptions, callback core.StreamCallback) (*core.AIResponse, error) {
	ctx, span := c.StartSpan(ctx, "ai.stream_response")
	defer span.End()

	options = c.ApplyDefaults(options)
	options.Model = resolveModel(options.Model)
	span.SetAttribute("ai.provider", providerName)
	span.SetAttribute("ai.model", options.Model)
	span.SetAttribute("ai.streaming", true)

	req, err := c.buildRequest(ctx, "streamGenerateContent", prompt, options, "alt=sse&")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	c.LogRequest(ctx, providerName, options.Model, prompt, true)
	start := time.Now()

	resp, err := c.ExecuteWithRetry(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to start stream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		apiErr := c.apiError(resp)
		span.SetAttribute("http.status_code", resp.StatusCode)
		span.RecordError(apiErr)
		return nil, apiErr
	}

	var (
		full         strings.Builder
		tokens       core.TokenUsage
		finishReason string
		index        int
	)

	partial := func(cause error) (*core.AIResponse, error) {
		if full.Len() == 0 {
			span.RecordError(cause)
			return nil, fmt.Errorf("gemini stream error: %v: %w", cause, core.ErrAIUnavailable)
		}
		span.SetAttribute("ai.stream_partial", true)
		c.Logger.WarnWithContext(ctx, "Gemini stream interrupted", map[string]interface{}{
			"operation": "ai_stream_error",
			"provider":  providerName,
			"error":     cause.Error(),
			"chunks":    index,
		})
		return providers.PartialResponse(providerName, options.Model, full.String(), tokens), core.ErrStreamPartiallyCompleted
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		var event GeminiResponse
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return partial(fmt.Errorf("malformed stream event: %w", err))
		}
		if event.UsageMetadata.TotalTokenCount > 0 {
			tokens = usage(event.UsageMetadata)
		}
		if fr := event.finishReason(); fr != "" {
			finishReason = fr
		}

		text := event.text()
		if text == "" {
			continue
		}
		full.WriteString(text)
		if err := callback(core.StreamChunk{Content: text, Delta: true, Index: index, Model: options.Model}); err != nil {
			span.SetAttribute("ai.stream_stopped_by_callback", true)
			return providers.PartialResponse(providerName, options.Model, full.String(), tokens), nil
		}
		index++
	}
	if err := scanner.Err(); err != nil {
		return partial(err)
	}
	if ctx.Err() != nil {
		return partial(ctx.Err())
	}
	if full.Len() == 0 {
		return partial(fmt.Errorf("stream ended without content"))
	}

	_ = callback(core.StreamChunk{Index: index, Model: options.Model, FinishReason: strings.ToLower(finishReason), Usage: &tokens})

	result := &core.AIResponse{
		Content:  full.String(),
		Model:    options.Model,
		Provider: providerName,
		Usage:    tokens,
	}
	span.SetAttribute("ai.chunks_sent", index)
	c.LogResponse(ctx, providerName, result.Model, result.Usage, time.Since(start))
	return result, nil
}

func usage(m UsageMetadata) core.TokenUsage {
	return core.TokenUsage{
		PromptTokens:     m.PromptTokenCount,
		CompletionTokens: m.CandidatesTokenCount,
		TotalTokens:      m.TotalTokenCount,
	}
}
