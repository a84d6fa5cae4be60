package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemfashion/storefront/core"
)

func chunkEvent(content, finish string) string {
	return fmt.Sprintf(`data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":%q},"finish_reason":%s}]}`+"\n\n",
		content, finishJSON(finish))
}

func finishJSON(finish string) string {
	if finish == "" {
		return "null"
	}
	return fmt.Sprintf("%q", finish)
}

const usageEvent = `data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[],"usage":{"prompt_tokens":12,"completion_tokens":4,"total_tokens":16}}` + "\n\n"

func newTestClient(url string) *Client {
	c := NewClient("test-key", url, nil)
	c.MaxRetries = 0
	return c
}

func TestStreamResponse(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, chunkEvent("Pair it ", ""))
		fmt.Fprint(w, chunkEvent("with loafers.", "stop"))
		fmt.Fprint(w, usageEvent)
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	var chunks []core.StreamChunk
	resp, err := newTestClient(srv.URL).StreamResponse(context.Background(), "What shoes?", &core.AIOptions{
		SystemPrompt: "You are a fashion expert",
		History:      []core.ChatTurn{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "Hello!"}},
	}, func(ch core.StreamChunk) error {
		chunks = append(chunks, ch)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "Pair it with loafers.", resp.Content)
	assert.Equal(t, 16, resp.Usage.TotalTokens)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Pair it ", chunks[0].Content)
	assert.Equal(t, "stop", chunks[2].FinishReason)

	assert.Equal(t, true, body["stream"])
	messages, ok := body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
	assert.Equal(t, "assistant", messages[2].(map[string]interface{})["role"])
}

func TestStreamResponse_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	called := false
	_, err := newTestClient(srv.URL).StreamResponse(context.Background(), "hi", nil, func(core.StreamChunk) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
	assert.False(t, called)
}

func TestStreamResponse_PartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, chunkEvent("Half ", ""))
		fmt.Fprint(w, "data: {broken\n\n")
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).StreamResponse(context.Background(), "hi", nil, func(core.StreamChunk) error { return nil })
	assert.True(t, errors.Is(err, core.ErrStreamPartiallyCompleted))
	require.NotNil(t, resp)
	assert.Equal(t, "Half ", resp.Content)
}

func TestStreamResponse_MissingKey(t *testing.T) {
	_, err := NewClient("", "", nil).StreamResponse(context.Background(), "hi", nil, func(core.StreamChunk) error { return nil })
	assert.True(t, errors.Is(err, core.ErrMissingConfiguration))
}

func TestGenerateResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"A silk scarf."},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).GenerateResponse(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "A silk scarf.", resp.Content)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
	assert.Equal(t, "openai", resp.Provider)
}

func TestFactoryDetectEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
	_, ok := (&Factory{}).DetectEnvironment()
	assert.False(t, ok)

	t.Setenv("OPENAI_BASE_URL", "http://localhost:8080/v1")
	priority, ok := (&Factory{}).DetectEnvironment()
	assert.True(t, ok)
	assert.Equal(t, 60, priority)
}
