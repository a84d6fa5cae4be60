package bedrock

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/gemfashion/storefront/ai"
	"github.com/gemfashion/storefront/core"
)

func init() {
	ai.MustRegister(&Factory{})
}

// Factory creates AWS Bedrock clients
type Factory struct{}

// Name returns the provider name
func (f *Factory) Name() string {
	return providerName
}

// Description returns provider description
func (f *Factory) Description() string {
	return "AWS Bedrock Converse API (Claude, Llama, Titan)"
}

// Priority returns provider priority
func (f *Factory) Priority() int {
	return 50
}

func region(config *ai.AIConfig) string {
	if r, ok := config.Extra["region"].(string); ok && r != "" {
		return r
	}
	if r := os.Getenv("AWS_REGION"); r != "" {
		return r
	}
	if r := os.Getenv("AWS_DEFAULT_REGION"); r != "" {
		return r
	}
	return "us-east-1"
}

// Create creates a new Bedrock client. Explicit keys in Extra take precedence
// over the default AWS credential chain.
func (f *Factory) Create(config *ai.AIConfig) core.AIClient {
	r := region(config)

	var creds aws.CredentialsProvider
	if id, ok := config.Extra["aws_access_key_id"].(string); ok && id != "" {
		secret, _ := config.Extra["aws_secret_access_key"].(string)
		token, _ := config.Extra["aws_session_token"].(string)
		creds = credentials.NewStaticCredentialsProvider(id, secret, token)
	}

	awsCfg, err := LoadAWSConfig(context.Background(), r, creds)
	if err != nil {
		return &errorClient{err: err}
	}

	client := NewClient(awsCfg, r, config.Logger)
	client.SetTelemetry(config.Telemetry)
	client.ApplyConfig(config.Timeout, config.MaxRetries, config.Model, config.Temperature, config.MaxTokens, config.SystemPrompt)
	client.Logger.Info("Bedrock provider initialized", map[string]interface{}{
		"operation": "ai_provider_init",
		"provider":  providerName,
		"region":    r,
		"model":     client.DefaultModel,
	})
	return client
}

// DetectEnvironment checks for AWS credentials
func (f *Factory) DetectEnvironment() (priority int, available bool) {
	if os.Getenv("AWS_ACCESS_KEY_ID") != "" && os.Getenv("AWS_SECRET_ACCESS_KEY") != "" {
		return f.Priority(), true
	}
	if os.Getenv("AWS_PROFILE") != "" {
		return f.Priority(), true
	}
	if os.Getenv("AWS_CONTAINER_CREDENTIALS_RELATIVE_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return f.Priority() + 10, true
	}
	if home, err := os.UserHomeDir(); err == nil {
		if _, err := os.Stat(filepath.Join(home, ".aws", "credentials")); err == nil {
			return f.Priority(), true
		}
	}
	return 0, false
}

// errorClient reports a configuration failure on first use
type errorClient struct {
	err error
}

func (e *errorClient) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	return nil, e.err
}
