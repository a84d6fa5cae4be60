package providers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gemfashion/storefront/core"
)

func TestNewBaseClient(t *testing.T) {
	client := NewBaseClient(45*time.Second, nil)
	if client.HTTPClient.Timeout != 45*time.Second {
		t.Errorf("expected timeout 45s, got %v", client.HTTPClient.Timeout)
	}
	if client.Logger == nil {
		t.Error("a nil logger must be replaced by a no-op logger")
	}
	if client.MaxRetries != 3 {
		t.Errorf("expected 3 retries, got %d", client.MaxRetries)
	}
}

func TestBaseClient_ApplyDefaults(t *testing.T) {
	client := NewBaseClient(0, nil)
	client.ApplyConfig(0, 0, "base-model", 0.3, 200, "be brief")

	tests := []struct {
		name     string
		options  *core.AIOptions
		expected core.AIOptions
	}{
		{
			name:     "nil options",
			options:  nil,
			expected: core.AIOptions{Model: "base-model", Temperature: 0.3, MaxTokens: 200, SystemPrompt: "be brief"},
		},
		{
			name:     "explicit values win",
			options:  &core.AIOptions{Model: "m2", Temperature: 0.9, MaxTokens: 50, SystemPrompt: "be bold"},
			expected: core.AIOptions{Model: "m2", Temperature: 0.9, MaxTokens: 50, SystemPrompt: "be bold"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := client.ApplyDefaults(tt.options)
			if got.Model != tt.expected.Model || got.Temperature != tt.expected.Temperature ||
				got.MaxTokens != tt.expected.MaxTokens || got.SystemPrompt != tt.expected.SystemPrompt {
				t.Errorf("ApplyDefaults() = %+v, want %+v", *got, tt.expected)
			}
			if tt.options != nil && got == tt.options {
				t.Error("ApplyDefaults must return a copy")
			}
		})
	}
}

func TestBaseClient_ExecuteWithRetry(t *testing.T) {
	tests := []struct {
		name          string
		statuses      []int
		expectErr     bool
		expectedCalls int32
	}{
		{"success first try", []int{200}, false, 1},
		{"retry on 503", []int{503, 200}, false, 2},
		{"retry on 429", []int{429, 429, 200}, false, 3},
		{"400 returned as is", []int{400}, false, 1},
		{"exhausted", []int{500, 500, 500, 500}, true, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				if string(body) != "payload" {
					t.Errorf("attempt %d got body %q", calls.Load()+1, body)
				}
				n := calls.Add(1)
				w.WriteHeader(tt.statuses[n-1])
			}))
			defer server.Close()

			client := NewBaseClient(5*time.Second, nil)
			client.RetryDelay = time.Millisecond

			req, _ := http.NewRequest(http.MethodPost, server.URL, strings.NewReader("payload"))
			resp, err := client.ExecuteWithRetry(context.Background(), req)
			if tt.expectErr {
				if !errors.Is(err, core.ErrAIUnavailable) {
					t.Errorf("expected ErrAIUnavailable, got %v", err)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				_ = resp.Body.Close()
			}
			if calls.Load() != tt.expectedCalls {
				t.Errorf("expected %d calls, got %d", tt.expectedCalls, calls.Load())
			}
		})
	}
}

func TestBaseClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewBaseClient(5*time.Second, nil)
	client.RetryDelay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	_, err := client.ExecuteWithRetry(ctx, req)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestBaseClient_HandleError(t *testing.T) {
	client := NewBaseClient(0, nil)

	tests := []struct {
		status int
		check  func(error) bool
	}{
		{401, core.IsConfigurationError},
		{403, core.IsConfigurationError},
		{429, func(err error) bool { return errors.Is(err, core.ErrAIUnavailable) }},
		{502, func(err error) bool { return errors.Is(err, core.ErrAIUnavailable) }},
		{400, func(err error) bool { return strings.Contains(err.Error(), "bad prompt") }},
		{418, func(err error) bool { return strings.Contains(err.Error(), "status 418") }},
	}

	for _, tt := range tests {
		err := client.HandleError(tt.status, []byte("bad prompt"), "Test")
		if !tt.check(err) {
			t.Errorf("HandleError(%d) = %v", tt.status, err)
		}
	}
}

func TestBaseClient_SetTelemetry(t *testing.T) {
	client := NewBaseClient(0, nil)
	before := client.Telemetry
	client.SetTelemetry(nil)
	if client.Telemetry != before {
		t.Error("nil telemetry must be ignored")
	}
}
