package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemfashion/storefront/ai/providers/mock"
	"github.com/gemfashion/storefront/core"
	"github.com/gemfashion/storefront/resilience"
)

func TestSend_StreamsIntoPlaceholder(t *testing.T) {
	client := mock.NewClient(nil).Script("Try ", "a ", "linen shirt.")
	s := NewSession("s1", client)

	var fragments []string
	sent, err := s.Send(context.Background(), "  What for summer?  ", func(f string) {
		fragments = append(fragments, f)
	})
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, []string{"Try ", "a ", "linen shirt."}, fragments)

	tr := s.Transcript()
	require.Len(t, tr, 2)
	assert.Equal(t, Message{Role: RoleUser, Content: "What for summer?", At: tr[0].At}, tr[0])
	assert.Equal(t, RoleAssistant, tr[1].Role)
	assert.Equal(t, "Try a linen shirt.", tr[1].Content)

	assert.Equal(t, "What for summer?", client.LastPrompt())
	assert.Equal(t, DefaultSystemPrompt, client.LastOptions().SystemPrompt)
	assert.Empty(t, client.LastOptions().History)
}

func TestSend_IgnoresBlankInput(t *testing.T) {
	client := mock.NewClient(nil)
	s := NewSession("s1", client)

	sent, err := s.Send(context.Background(), "   ", nil)
	assert.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, s.Transcript())
	assert.Equal(t, 0, client.CallCount())
}

func TestSend_PassesHistory(t *testing.T) {
	client := mock.NewClient(nil).Script("Hello!").Script("Sure.")
	s := NewSession("s1", client, WithSystemPrompt("be brief"))

	_, err := s.Send(context.Background(), "hi", nil)
	require.NoError(t, err)
	_, err = s.Send(context.Background(), "shoes?", nil)
	require.NoError(t, err)

	opts := client.LastOptions()
	assert.Equal(t, "be brief", opts.SystemPrompt)
	assert.Equal(t, []core.ChatTurn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "Hello!"},
	}, opts.History)
}

func TestSend_HistoryIsBounded(t *testing.T) {
	client := mock.NewClient(nil)
	s := NewSession("s1", client, WithMaxHistory(2))
	for i := 0; i < 3; i++ {
		_, err := s.Send(context.Background(), "again", nil)
		require.NoError(t, err)
	}
	assert.Len(t, client.LastOptions().History, 2)
}

func TestSend_StartFailureYieldsFallback(t *testing.T) {
	client := mock.NewClient(nil).FailToStart(core.ErrAIUnavailable)
	s := NewSession("s1", client)

	var fragments []string
	sent, err := s.Send(context.Background(), "hi", func(f string) { fragments = append(fragments, f) })
	assert.True(t, sent)
	assert.NoError(t, err)
	assert.Equal(t, []string{FallbackReply}, fragments)
	assert.Equal(t, FallbackReply, s.Transcript()[1].Content)
}

func TestSend_MidStreamFailureShowsError(t *testing.T) {
	client := mock.NewClient(nil).Script("Half ", "a ", "reply").FailAfter(2, nil)
	s := NewSession("s1", client)

	sent, err := s.Send(context.Background(), "hi", nil)
	assert.True(t, sent)
	assert.True(t, errors.Is(err, core.ErrStreamPartiallyCompleted))
	assert.Equal(t, ErrorReply, s.Transcript()[1].Content)
	assert.False(t, s.Sending())
}

func TestSend_SecondSendIgnoredWhileStreaming(t *testing.T) {
	client := mock.NewClient(nil).Script("slow ", "reply").WithChunkDelay(100 * time.Millisecond)
	s := NewSession("s1", client)

	first := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Send(context.Background(), "first", func(string) {
			select {
			case <-first:
			default:
				close(first)
			}
		})
	}()
	<-first

	sent, err := s.Send(context.Background(), "second", nil)
	assert.False(t, sent)
	assert.True(t, errors.Is(err, core.ErrSendInFlight))
	<-done

	tr := s.Transcript()
	require.Len(t, tr, 2)
	assert.Equal(t, "slow reply", tr[1].Content)
	assert.Equal(t, 1, client.CallCount())
}

func TestSend_OpenBreakerYieldsFallback(t *testing.T) {
	cfg := resilience.DefaultConfig()
	cfg.Name = "assistant-test"
	cfg.FailureThreshold = 1
	cfg.SleepWindow = time.Hour
	cb, err := resilience.NewCircuitBreaker(cfg)
	require.NoError(t, err)

	client := mock.NewClient(nil).FailToStart(core.ErrAIUnavailable)
	s := NewSession("s1", client, WithBreaker(cb))

	_, _ = s.Send(context.Background(), "one", nil)
	assert.Equal(t, "open", cb.GetState())

	sent, err := s.Send(context.Background(), "two", nil)
	assert.True(t, sent)
	assert.NoError(t, err)
	assert.Equal(t, 1, client.CallCount(), "an open breaker fails fast")
	assert.Equal(t, FallbackReply, s.Transcript()[3].Content)
}

func TestSend_ConcurrentSessions(t *testing.T) {
	client := mock.NewClient(nil)
	var wg sync.WaitGroup
	sessions := make([]*Session, 8)
	for i := range sessions {
		sessions[i] = NewSession("s", client)
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			_, _ = s.Send(context.Background(), "hi", nil)
		}(sessions[i])
	}
	wg.Wait()
	for _, s := range sessions {
		assert.True(t, strings.HasPrefix(s.Transcript()[1].Content, "For a polished"))
	}
}
