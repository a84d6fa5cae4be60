package mock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gemfashion/storefront/core"
)

func collect(t *testing.T, c *Client) ([]core.StreamChunk, *core.AIResponse, error) {
	t.Helper()
	var chunks []core.StreamChunk
	resp, err := c.StreamResponse(context.Background(), "what should I wear", nil, func(ch core.StreamChunk) error {
		chunks = append(chunks, ch)
		return nil
	})
	return chunks, resp, err
}

func TestStreamResponse_Scripted(t *testing.T) {
	c := NewClient(nil).Script("Try ", "a ", "beret.")

	chunks, resp, err := collect(t, c)
	if err != nil {
		t.Fatalf("StreamResponse failed: %v", err)
	}
	if resp.Content != "Try a beret." {
		t.Errorf("content = %q", resp.Content)
	}
	if len(chunks) != 4 {
		t.Fatalf("expected 3 content chunks and a final chunk, got %d", len(chunks))
	}
	if chunks[3].FinishReason != "stop" || chunks[3].Content != "" {
		t.Errorf("unexpected final chunk %+v", chunks[3])
	}
	if c.CallCount() != 1 || c.LastPrompt() != "what should I wear" {
		t.Errorf("call bookkeeping wrong: %d %q", c.CallCount(), c.LastPrompt())
	}
}

func TestStreamResponse_DefaultReply(t *testing.T) {
	_, resp, err := collect(t, NewClient(nil))
	if err != nil {
		t.Fatalf("StreamResponse failed: %v", err)
	}
	if resp.Content != DefaultReply {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestStreamResponse_FailToStart(t *testing.T) {
	boom := errors.New("connection refused")
	chunks, resp, err := collect(t, NewClient(nil).FailToStart(boom))
	if !errors.Is(err, boom) {
		t.Fatalf("expected start error, got %v", err)
	}
	if resp != nil || len(chunks) != 0 {
		t.Error("no content expected after a start failure")
	}
}

func TestStreamResponse_FailAfter(t *testing.T) {
	c := NewClient(nil).Script("one ", "two ", "three").FailAfter(2, nil)
	chunks, resp, err := collect(t, c)
	if !errors.Is(err, core.ErrStreamPartiallyCompleted) {
		t.Fatalf("expected partial completion, got %v", err)
	}
	if len(chunks) != 2 || resp.Content != "one two " {
		t.Errorf("got %d chunks, content %q", len(chunks), resp.Content)
	}

	c.Reset()
	c.Script("x").FailAfter(0, nil)
	_, _, err = collect(t, c)
	if !errors.Is(err, ErrInjected) {
		t.Errorf("failing before the first chunk should return the injected error, got %v", err)
	}
}

func TestStreamResponse_CallbackStops(t *testing.T) {
	c := NewClient(nil).Script("a", "b", "c")
	n := 0
	resp, err := c.StreamResponse(context.Background(), "p", nil, func(core.StreamChunk) error {
		n++
		return errors.New("stop")
	})
	if err != nil || n != 1 || resp.Content != "a" {
		t.Errorf("n=%d content=%q err=%v", n, resp.Content, err)
	}
}

func TestStreamResponse_DelayHonoursContext(t *testing.T) {
	c := NewClient(nil).Script("a", "b", "c").WithChunkDelay(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	resp, err := c.StreamResponse(ctx, "p", nil, func(core.StreamChunk) error { return nil })
	if !errors.Is(err, core.ErrStreamPartiallyCompleted) {
		t.Fatalf("expected partial completion, got %v", err)
	}
	if resp.Content != "a" {
		t.Errorf("content = %q", resp.Content)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("stream did not stop on cancellation")
	}
}

func TestGenerateResponse(t *testing.T) {
	c := NewClient(nil).Script("Wear ", "linen.")
	resp, err := c.GenerateResponse(context.Background(), "summer?", &core.AIOptions{Model: "m1"})
	if err != nil {
		t.Fatalf("GenerateResponse failed: %v", err)
	}
	if resp.Content != "Wear linen." || resp.Model != "m1" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestClient_ConcurrentUse(t *testing.T) {
	c := NewClient(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var b strings.Builder
			_, _ = c.StreamResponse(context.Background(), "p", nil, func(ch core.StreamChunk) error {
				b.WriteString(ch.Content)
				return nil
			})
		}()
	}
	wg.Wait()
	if c.CallCount() != 20 {
		t.Errorf("CallCount = %d, want 20", c.CallCount())
	}
}

func TestFactory_NeverDetected(t *testing.T) {
	if _, ok := (&Factory{}).DetectEnvironment(); ok {
		t.Error("mock must not be auto-detected")
	}
}
