// Package bedrock streams chat replies from AWS Bedrock through the Converse API.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/gemfashion/storefront/ai/providers"
	"github.com/gemfashion/storefront/core"
)

const providerName = "bedrock"

// Client implements core.StreamingAIClient for AWS Bedrock
type Client struct {
	*providers.BaseClient
	runtime *bedrockruntime.Client
	region  string
}

var _ core.StreamingAIClient = (*Client)(nil)

// NewClient creates a new Bedrock client from an AWS config
func NewClient(cfg aws.Config, region string, logger core.Logger) *Client {
	base := providers.NewBaseClient(30*time.Second, logger)
	base.DefaultModel = DefaultModel

	return &Client{
		BaseClient: base,
		runtime: bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
			o.HTTPClient = base.HTTPClient
		}),
		region: region,
	}
}

// SupportsStreaming returns true
func (c *Client) SupportsStreaming() bool {
	return true
}

// mapError turns AWS API errors into storefront errors
func (c *Client) mapError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException", "UnrecognizedClientException", "ValidationException", "ResourceNotFoundException":
			return fmt.Errorf("bedrock %s: %s: %w", apiErr.ErrorCode(), apiErr.ErrorMessage(), core.ErrInvalidConfiguration)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("bedrock request failed: %v: %w", err, core.ErrAIUnavailable)
}

// GenerateResponse returns a complete reply from Converse
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	ctx, span := c.StartSpan(ctx, "ai.generate_response")
	defer span.End()

	options = c.ApplyDefaults(options)
	span.SetAttribute("ai.provider", providerName)
	span.SetAttribute("ai.model", options.Model)
	span.SetAttribute("ai.region", c.region)

	c.LogRequest(ctx, providerName, options.Model, prompt, false)
	start := time.Now()

	out, err := c.runtime.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(options.Model),
		Messages:        buildMessages(options.History, prompt),
		System:          systemBlocks(options.SystemPrompt),
		InferenceConfig: inferenceConfig(options),
	})
	if err != nil {
		err = c.mapError(err)
		span.RecordError(err)
		return nil, err
	}

	var content strings.Builder
	if msg, ok := out.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			if text, ok := block.(*types.ContentBlockMemberText); ok {
				content.WriteString(text.Value)
			}
		}
	}
	if content.Len() == 0 {
		err := fmt.Errorf("no text content in Bedrock response: %w", core.ErrAIUnavailable)
		span.RecordError(err)
		return nil, err
	}

	result := &core.AIResponse{Content: content.String(), Model: options.Model, Provider: providerName}
	if out.Usage != nil {
		result.Usage = core.TokenUsage{
			PromptTokens:     int(aws.ToInt32(out.Usage.InputTokens)),
			CompletionTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(out.Usage.TotalTokens)),
		}
	}
	c.LogResponse(ctx, providerName, result.Model, result.Usage, time.Since(start))
	return result, nil
}

// StreamResponse streams a reply from ConverseStream
func (c *Client) StreamResponse(ctx context.Context, prompt string, options *core.AIOptions, callback core.StreamCallback) (*core.AIResponse, error) {
	ctx, span := c.StartSpan(ctx, "ai.stream_response")
	defer span.End()

	options = c.ApplyDefaults(options)
	span.SetAttribute("ai.provider", providerName)
	span.SetAttribute("ai.model", options.Model)
	span.SetAttribute("ai.region", c.region)
	span.SetAttribute("ai.streaming", true)

	c.LogRequest(ctx, providerName, options.Model, prompt, true)
	start := time.Now()

	out, err := c.runtime.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
		ModelId:         aws.String(options.Model),
		Messages:        buildMessages(options.History, prompt),
		System:          systemBlocks(options.SystemPrompt),
		InferenceConfig: inferenceConfig(options),
	})
	if err != nil {
		err = c.mapError(err)
		span.RecordError(err)
		return nil, err
	}

	stream := out.GetStream()
	defer func() { _ = stream.Close() }()

	var (
		full         strings.Builder
		usage        core.TokenUsage
		finishReason string
		index        int
	)
	partial := func(cause error) (*core.AIResponse, error) {
		if full.Len() == 0 {
			cause = c.mapError(cause)
			span.RecordError(cause)
			return nil, cause
		}
		span.SetAttribute("ai.stream_partial", true)
		c.Logger.WarnWithContext(ctx, "Bedrock stream interrupted", map[string]interface{}{
			"operation": "ai_stream_error",
			"provider":  providerName,
			"error":     cause.Error(),
			"chunks":    index,
		})
		return providers.PartialResponse(providerName, options.Model, full.String(), usage), core.ErrStreamPartiallyCompleted
	}

	for event := range stream.Events() {
		switch v := event.(type) {
		case *types.ConverseStreamOutputMemberContentBlockDelta:
			delta, ok := v.Value.Delta.(*types.ContentBlockDeltaMemberText)
			if !ok || delta.Value == "" {
				continue
			}
			full.WriteString(delta.Value)
			if err := callback(core.StreamChunk{Content: delta.Value, Delta: true, Index: index, Model: options.Model}); err != nil {
				span.SetAttribute("ai.stream_stopped_by_callback", true)
				return providers.PartialResponse(providerName, options.Model, full.String(), usage), nil
			}
			index++
		case *types.ConverseStreamOutputMemberMetadata:
			if v.Value.Usage != nil {
				usage = core.TokenUsage{
					PromptTokens:     int(aws.ToInt32(v.Value.Usage.InputTokens)),
					CompletionTokens: int(aws.ToInt32(v.Value.Usage.OutputTokens)),
					TotalTokens:      int(aws.ToInt32(v.Value.Usage.TotalTokens)),
				}
			}
		case *types.ConverseStreamOutputMemberMessageStop:
			finishReason = strings.ToLower(string(v.Value.StopReason))
		}
	}
	if err := stream.Err(); err != nil {
		return partial(err)
	}
	if ctx.Err() != nil {
		return partial(ctx.Err())
	}
	if full.Len() == 0 {
		return partial(errors.New("stream ended without content"))
	}

	_ = callback(core.StreamChunk{Index: index, Model: options.Model, FinishReason: finishReason, Usage: &usage})

	result := &core.AIResponse{Content: full.String(), Model: options.Model, Provider: providerName, Usage: usage}
	span.SetAttribute("ai.chunks_sent", index)
	c.LogResponse(ctx, providerName, result.Model, result.Usage, time.Since(start))
	return result, nil
}

// LoadAWSConfig loads the default credential chain for region, optionally
// overridden by an explicit credentials provider
func LoadAWSConfig(ctx context.Context, region string, creds aws.CredentialsProvider) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if creds != nil {
		opts = append(opts, config.WithCredentialsProvider(creds))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}
