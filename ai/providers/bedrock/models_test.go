package bedrock

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemfashion/storefront/ai"
	"github.com/gemfashion/storefront/core"
)

func TestBuildMessages(t *testing.T) {
	msgs := buildMessages([]core.ChatTurn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "Hello!"},
		{Role: "user", Content: "I need shoes"},
	}, "for a wedding")

	require.Len(t, msgs, 3)
	assert.Equal(t, types.ConversationRoleUser, msgs[0].Role)
	assert.Equal(t, types.ConversationRoleAssistant, msgs[1].Role)
	require.Len(t, msgs[2].Content, 2, "adjacent user turns are merged")
	last, ok := msgs[2].Content[1].(*types.ContentBlockMemberText)
	require.True(t, ok)
	assert.Equal(t, "for a wedding", last.Value)
}

func TestInferenceConfig(t *testing.T) {
	cfg := inferenceConfig(&core.AIOptions{MaxTokens: 256, Temperature: 0.4})
	require.NotNil(t, cfg.MaxTokens)
	assert.Equal(t, int32(256), *cfg.MaxTokens)
	assert.Equal(t, float32(0.4), *cfg.Temperature)

	assert.Nil(t, inferenceConfig(&core.AIOptions{}).MaxTokens)
	assert.Nil(t, systemBlocks(""))
}

func TestRegion(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-west-1")
	assert.Equal(t, "eu-west-1", region(&ai.AIConfig{}))
	assert.Equal(t, "af-south-1", region(&ai.AIConfig{Extra: map[string]interface{}{"region": "af-south-1"}}))
}
