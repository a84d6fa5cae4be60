// Package openai streams chat replies from any OpenAI-compatible endpoint
// (OpenAI, llama.cpp, vLLM) through the official openai-go SDK.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/gemfashion/storefront/ai/providers"
	"github.com/gemfashion/storefront/core"
)

const (
	// DefaultBaseURL is the public OpenAI endpoint
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is used when neither config nor options name one
	DefaultModel = "gpt-4o-mini"

	providerName = "openai"
)

// Client implements core.StreamingAIClient on top of openai-go
type Client struct {
	*providers.BaseClient
	apiKey  string
	baseURL string
}

var _ core.StreamingAIClient = (*Client)(nil)

// NewClient creates a new OpenAI-compatible client
func NewClient(apiKey, baseURL string, logger core.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base := providers.NewBaseClient(0, logger)
	base.DefaultModel = DefaultModel
	return &Client{
		BaseClient: base,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/") + "/",
	}
}

// SupportsStreaming returns true
func (c *Client) SupportsStreaming() bool {
	return true
}

func (c *Client) sdk() openai.Client {
	return openai.NewClient(
		option.WithAPIKey(c.apiKey),
		option.WithBaseURL(c.baseURL),
		option.WithHTTPClient(c.HTTPClient),
		option.WithMaxRetries(c.MaxRetries),
	)
}

func (c *Client) params(prompt string, options *core.AIOptions) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(options.History)+2)
	if options.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(options.SystemPrompt))
	}
	for _, turn := range options.History {
		if turn.Role == "assistant" || turn.Role == "model" {
			messages = append(messages, openai.AssistantMessage(turn.Content))
		} else {
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	messages = append(messages, openai.UserMessage(prompt))

	p := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       shared.ChatModel(options.Model),
		Temperature: openai.Float(float64(options.Temperature)),
	}
	if options.MaxTokens > 0 {
		p.MaxCompletionTokens = openai.Int(int64(options.MaxTokens))
	}
	return p
}

// mapError converts SDK errors to storefront errors
func (c *Client) mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return c.HandleError(apiErr.StatusCode, []byte(apiErr.Message), "OpenAI")
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("openai request failed: %v: %w", err, core.ErrAIUnavailable)
}

func (c *Client) checkKey() error {
	if c.apiKey == "" && c.baseURL == DefaultBaseURL+"/" {
		return fmt.Errorf("openai API key not configured: %w", core.ErrMissingConfiguration)
	}
	return nil
}

// GenerateResponse returns a complete reply
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	ctx, span := c.StartSpan(ctx, "ai.generate_response")
	defer span.End()

	options = c.ApplyDefaults(options)
	span.SetAttribute("ai.provider", providerName)
	span.SetAttribute("ai.model", options.Model)

	if err := c.checkKey(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	c.LogRequest(ctx, providerName, options.Model, prompt, false)
	start := time.Now()

	sdk := c.sdk()
	completion, err := sdk.Chat.Completions.New(ctx, c.params(prompt, options))
	if err != nil {
		err = c.mapError(err)
		span.RecordError(err)
		return nil, err
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		err := fmt.Errorf("no content in OpenAI response: %w", core.ErrAIUnavailable)
		span.RecordError(err)
		return nil, err
	}

	result := &core.AIResponse{
		Content:  completion.Choices[0].Message.Content,
		Model:    completion.Model,
		Provider: providerName,
		Usage: core.TokenUsage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
	c.LogResponse(ctx, providerName, result.Model, result.Usage, time.Since(start))
	return result, nil
}

// StreamResponse streams a reply chunk by chunk
func (c *Client) StreamResponse(ctx context.Context, prompt string, options *core.AIOptions, callback core.StreamCallback) (*core.AIResponse, error) {
	ctx, span := c.StartSpan(ctx, "ai.stream_response")
	defer span.End()

	options = c.ApplyDefaults(options)
	span.SetAttribute("ai.provider", providerName)
	span.SetAttribute("ai.model", options.Model)
	span.SetAttribute("ai.streaming", true)

	if err := c.checkKey(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	c.LogRequest(ctx, providerName, options.Model, prompt, true)
	start := time.Now()

	params := c.params(prompt, options)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}

	sdk := c.sdk()
	stream := sdk.Chat.Completions.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	var (
		full         strings.Builder
		usage        core.TokenUsage
		finishReason string
		index        int
	)
	for stream.Next() {
		chunk := stream.Current()
		if chunk.Usage.TotalTokens > 0 {
			usage = core.TokenUsage{
				PromptTokens:     int(chunk.Usage.PromptTokens),
				CompletionTokens: int(chunk.Usage.CompletionTokens),
				TotalTokens:      int(chunk.Usage.TotalTokens),
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if fr := chunk.Choices[0].FinishReason; fr != "" {
			finishReason = fr
		}
		text := chunk.Choices[0].Delta.Content
		if text == "" {
			continue
		}
		full.WriteString(text)
		if err := callback(core.StreamChunk{Content: text, Delta: true, Index: index, Model: options.Model}); err != nil {
			span.SetAttribute("ai.stream_stopped_by_callback", true)
			return providers.PartialResponse(providerName, options.Model, full.String(), usage), nil
		}
		index++
	}

	if err := stream.Err(); err != nil {
		if full.Len() > 0 {
			span.SetAttribute("ai.stream_partial", true)
			c.Logger.WarnWithContext(ctx, "OpenAI stream interrupted", map[string]interface{}{
				"operation": "ai_stream_error",
				"provider":  providerName,
				"error":     err.Error(),
				"chunks":    index,
			})
			return providers.PartialResponse(providerName, options.Model, full.String(), usage), core.ErrStreamPartiallyCompleted
		}
		err = c.mapError(err)
		span.RecordError(err)
		return nil, err
	}
	if full.Len() == 0 {
		err := fmt.Errorf("openai stream ended without content: %w", core.ErrAIUnavailable)
		span.RecordError(err)
		return nil, err
	}

	_ = callback(core.StreamChunk{Index: index, Model: options.Model, FinishReason: finishReason, Usage: &usage})

	result := &core.AIResponse{Content: full.String(), Model: options.Model, Provider: providerName, Usage: usage}
	span.SetAttribute("ai.chunks_sent", index)
	c.LogResponse(ctx, providerName, result.Model, result.Usage, time.Since(start))
	return result, nil
}
