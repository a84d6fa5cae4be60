package bedrock

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/gemfashion/storefront/core"
)

// Model identifiers the storefront has been tried with
const (
	ModelClaude3Haiku  = "anthropic.claude-3-haiku-20240307-v1:0"
	ModelClaude3Sonnet = "anthropic.claude-3-sonnet-20240229-v1:0"
	ModelTitanExpress  = "amazon.titan-text-express-v1"
	ModelLlama3_8B     = "meta.llama3-8b-instruct-v1:0"

	// DefaultModel is the fast, inexpensive chat model
	DefaultModel = ModelClaude3Haiku
)

func textBlock(s string) types.ContentBlock {
	return &types.ContentBlockMemberText{Value: s}
}

// buildMessages maps prior turns and the new prompt onto Converse messages.
// Converse rejects two consecutive turns with the same role, so adjacent
// turns from the same side are merged.
func buildMessages(history []core.ChatTurn, prompt string) []types.Message {
	out := make([]types.Message, 0, len(history)+1)
	add := func(role types.ConversationRole, text string) {
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, textBlock(text))
			return
		}
		out = append(out, types.Message{Role: role, Content: []types.ContentBlock{textBlock(text)}})
	}
	for _, turn := range history {
		role := types.ConversationRoleUser
		if turn.Role == "assistant" || turn.Role == "model" {
			role = types.ConversationRoleAssistant
		}
		add(role, turn.Content)
	}
	add(types.ConversationRoleUser, prompt)
	return out
}

func inferenceConfig(options *core.AIOptions) *types.InferenceConfiguration {
	cfg := &types.InferenceConfiguration{}
	if options.MaxTokens > 0 {
		cfg.MaxTokens = aws.Int32(int32(options.MaxTokens))
	}
	if options.Temperature > 0 {
		cfg.Temperature = aws.Float32(options.Temperature)
	}
	return cfg
}

func systemBlocks(prompt string) []types.SystemContentBlock {
	if prompt == "" {
		return nil
	}
	return []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: prompt}}
}
