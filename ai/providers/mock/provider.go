// Package mock provides a scripted AI provider for tests and offline development
package mock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gemfashion/storefront/ai"
	"github.com/gemfashion/storefront/core"
)

func init() {
	ai.MustRegister(&Factory{})
}

// DefaultReply is streamed when nothing has been scripted
const DefaultReply = "For a polished everyday look, pair a camel trench coat with dark denim and white leather sneakers."

// Factory creates mock AI clients
type Factory struct{}

// Name returns the provider name
func (f *Factory) Name() string {
	return "mock"
}

// Description returns provider description
func (f *Factory) Description() string {
	return "Scripted provider for tests and offline development"
}

// Priority returns provider priority
func (f *Factory) Priority() int {
	return 1
}

// Create creates a new mock client
func (f *Factory) Create(config *ai.AIConfig) core.AIClient {
	return NewClient(config)
}

// DetectEnvironment never reports the mock as available
func (f *Factory) DetectEnvironment() (priority int, available bool) {
	return 0, false
}

// ErrInjected is the default mid-stream failure
var ErrInjected = errors.New("mock: injected stream failure")

// Client implements core.StreamingAIClient. Each scripted reply is a list
// of chunks consumed in order; once the script runs out DefaultReply is
// streamed word by word.
type Client struct {
	mu sync.Mutex

	config     *ai.AIConfig
	replies    [][]string
	startErr   error
	failAfter  int
	failErr    error
	chunkDelay time.Duration

	calls       int
	lastPrompt  string
	lastOptions *core.AIOptions
}

var _ core.StreamingAIClient = (*Client)(nil)

// NewClient creates a new mock client
func NewClient(config *ai.AIConfig) *Client {
	return &Client{config: config, failAfter: -1}
}

// Script queues one reply made of the given chunks
func (c *Client) Script(chunks ...string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, chunks)
	return c
}

// FailToStart makes every call fail before any chunk is delivered
func (c *Client) FailToStart(err error) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startErr = err
	return c
}

// FailAfter makes the stream fail once n chunks were delivered
func (c *Client) FailAfter(n int, err error) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	c.failAfter = n
	c.failErr = err
	return c
}

// WithChunkDelay pauses between chunks
func (c *Client) WithChunkDelay(d time.Duration) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunkDelay = d
	return c
}

// CallCount returns the number of calls made
func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// LastPrompt returns the prompt of the most recent call
func (c *Client) LastPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPrompt
}

// LastOptions returns the options of the most recent call
func (c *Client) LastOptions() *core.AIOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOptions
}

// Reset clears the script, injected failures and counters
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = nil
	c.startErr = nil
	c.failAfter = -1
	c.failErr = nil
	c.calls = 0
	c.lastPrompt = ""
	c.lastOptions = nil
}

// SupportsStreaming returns true
func (c *Client) SupportsStreaming() bool {
	return true
}

type plan struct {
	chunks    []string
	startErr  error
	failAfter int
	failErr   error
	delay     time.Duration
	model     string
}

func (c *Client) next(prompt string, options *core.AIOptions) plan {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	c.lastPrompt = prompt
	c.lastOptions = options

	p := plan{startErr: c.startErr, failAfter: c.failAfter, failErr: c.failErr, delay: c.chunkDelay, model: "mock-model"}
	if c.config != nil && c.config.Model != "" {
		p.model = c.config.Model
	}
	if options != nil && options.Model != "" {
		p.model = options.Model
	}
	if len(c.replies) > 0 {
		p.chunks = c.replies[0]
		c.replies = c.replies[1:]
	} else {
		p.chunks = words(DefaultReply)
	}
	return p
}

func words(s string) []string {
	fields := strings.SplitAfter(s, " ")
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func usageFor(prompt, reply string) core.TokenUsage {
	return core.TokenUsage{
		PromptTokens:     len(prompt) / 4,
		CompletionTokens: len(reply) / 4,
		TotalTokens:      (len(prompt) + len(reply)) / 4,
	}
}

// GenerateResponse returns the next scripted reply in one piece
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	p := c.next(prompt, options)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.startErr != nil {
		return nil, p.startErr
	}
	if p.failAfter >= 0 {
		return nil, p.failErr
	}
	reply := strings.Join(p.chunks, "")
	return &core.AIResponse{Content: reply, Model: p.model, Provider: "mock", Usage: usageFor(prompt, reply)}, nil
}

// StreamResponse delivers the next scripted reply chunk by chunk
func (c *Client) StreamResponse(ctx context.Context, prompt string, options *core.AIOptions, callback core.StreamCallback) (*core.AIResponse, error) {
	p := c.next(prompt, options)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.startErr != nil {
		return nil, p.startErr
	}

	var full strings.Builder
	for i, chunk := range p.chunks {
		if p.failAfter >= 0 && i >= p.failAfter {
			break
		}
		if p.delay > 0 && i > 0 {
			select {
			case <-ctx.Done():
				return &core.AIResponse{Content: full.String(), Model: p.model, Provider: "mock"}, core.ErrStreamPartiallyCompleted
			case <-time.After(p.delay):
			}
		}
		full.WriteString(chunk)
		if err := callback(core.StreamChunk{Content: chunk, Delta: true, Index: i, Model: p.model}); err != nil {
			return &core.AIResponse{Content: full.String(), Model: p.model, Provider: "mock"}, nil
		}
	}

	if p.failAfter >= 0 && p.failAfter < len(p.chunks) {
		if full.Len() == 0 {
			return nil, p.failErr
		}
		return &core.AIResponse{Content: full.String(), Model: p.model, Provider: "mock"}, core.ErrStreamPartiallyCompleted
	}

	usage := usageFor(prompt, full.String())
	_ = callback(core.StreamChunk{Index: len(p.chunks), Model: p.model, FinishReason: "stop", Usage: &usage})
	return &core.AIResponse{Content: full.String(), Model: p.model, Provider: "mock", Usage: usage}, nil
}
