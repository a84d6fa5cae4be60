// Package assistant runs the fashion assistant chat. A Session owns the
// transcript; callers only send the next message and receive the reply as
// it streams in.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gemfashion/storefront/ai"
	"github.com/gemfashion/storefront/core"
)

// Role of a transcript entry
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry
type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// FragmentFunc receives each piece of the reply in arrival order
type FragmentFunc func(fragment string)

// DefaultMaxHistory bounds the number of earlier messages sent to the provider
const DefaultMaxHistory = 20

// Session is one conversation. It is safe for concurrent use; at most one
// Send runs at a time.
type Session struct {
	mu        sync.Mutex
	id        string
	messages  []Message
	createdAt time.Time
	updatedAt time.Time
	sending   bool

	system     string
	maxHistory int
	client     core.AIClient
	breaker    core.CircuitBreaker
	logger     core.Logger
	telemetry  core.Telemetry
	onSaved    func(ctx context.Context, s *Session)
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithSystemPrompt replaces DefaultSystemPrompt
func WithSystemPrompt(prompt string) SessionOption {
	return func(s *Session) {
		if prompt != "" {
			s.system = prompt
		}
	}
}

// WithBreaker guards provider calls with a circuit breaker
func WithBreaker(cb core.CircuitBreaker) SessionOption {
	return func(s *Session) { s.breaker = cb }
}

// WithMaxHistory bounds the history sent with each message
func WithMaxHistory(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.maxHistory = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger core.Logger) SessionOption {
	return func(s *Session) { s.logger = core.ForComponent(logger, "storefront/assistant") }
}

// WithTelemetry sets telemetry for chat spans
func WithTelemetry(t core.Telemetry) SessionOption {
	return func(s *Session) {
		if t != nil {
			s.telemetry = t
		}
	}
}

// NewSession creates an empty conversation backed by client
func NewSession(id string, client core.AIClient, opts ...SessionOption) *Session {
	now := time.Now()
	s := &Session{
		id:         id,
		createdAt:  now,
		updatedAt:  now,
		system:     DefaultSystemPrompt,
		maxHistory: DefaultMaxHistory,
		client:     client,
		logger:     &core.NoOpLogger{},
		telemetry:  &core.NoOpTelemetry{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Transcript returns a copy of the conversation so far
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Sending reports whether a reply is being streamed
func (s *Session) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// historyLocked returns the non-empty earlier turns, newest last
func (s *Session) historyLocked() []core.ChatTurn {
	turns := make([]core.ChatTurn, 0, len(s.messages))
	for _, m := range s.messages {
		if m.Content == "" {
			continue
		}
		turns = append(turns, core.ChatTurn{Role: string(m.Role), Content: m.Content})
	}
	if len(turns) > s.maxHistory {
		turns = turns[len(turns)-s.maxHistory:]
	}
	return turns
}

// Send posts text and streams the reply into the transcript, calling
// onFragment for every piece. Blank input is ignored. A Send while another
// is streaming is ignored and returns ErrSendInFlight.
//
// When the provider cannot be reached at all the reply is FallbackReply,
// delivered as a single fragment, and Send returns nil. When the reply fails
// after it started, the partial reply is replaced by ErrorReply and the cause
// is returned.
func (s *Session) Send(ctx context.Context, text string, onFragment FragmentFunc) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}
	if onFragment == nil {
		onFragment = func(string) {}
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return false, core.ErrSendInFlight
	}
	s.sending = true
	history := s.historyLocked()
	now := time.Now()
	s.messages = append(s.messages,
		Message{Role: RoleUser, Content: text, At: now},
		Message{Role: RoleAssistant, At: now},
	)
	reply := len(s.messages) - 1
	s.updatedAt = now
	s.mu.Unlock()

	ctx, span := s.telemetry.StartSpan(ctx, "assistant.send")
	defer span.End()
	span.SetAttribute("session.id", s.id)
	span.SetAttribute("assistant.history_turns", len(history))

	start := time.Now()
	fragments := 0
	err := s.stream(ctx, text, history, func(fragment string) {
		s.mu.Lock()
		s.messages[reply].Content += fragment
		s.mu.Unlock()
		fragments++
		onFragment(fragment)
	})

	var result error
	switch {
	case err == nil:
	case fragments == 0:
		span.SetAttribute("assistant.fallback", true)
		s.logger.WarnWithContext(ctx, "Assistant provider unreachable, sending fallback reply", map[string]interface{}{
			"session_id": s.id,
			"error":      err.Error(),
		})
		s.mu.Lock()
		s.messages[reply].Content = FallbackReply
		s.mu.Unlock()
		onFragment(FallbackReply)
	default:
		span.RecordError(err)
		s.logger.ErrorWithContext(ctx, "Assistant reply failed mid-stream", map[string]interface{}{
			"session_id": s.id,
			"fragments":  fragments,
			"error":      err.Error(),
		})
		s.mu.Lock()
		s.messages[reply].Content = ErrorReply
		s.mu.Unlock()
		result = err
	}

	s.telemetry.RecordMetric("storefront.assistant.reply.duration_ms", float64(time.Since(start).Milliseconds()), map[string]string{
		"outcome": outcome(err, fragments),
	})

	s.mu.Lock()
	s.sending = false
	s.updatedAt = time.Now()
	saved := s.onSaved
	s.mu.Unlock()

	if saved != nil {
		saved(context.WithoutCancel(ctx), s)
	}
	return true, result
}

func outcome(err error, fragments int) string {
	switch {
	case err == nil:
		return "ok"
	case fragments == 0:
		return "fallback"
	default:
		return "error"
	}
}

// stream calls the provider through the breaker. Only content fragments are
// forwarded; the closing chunk carries no text.
func (s *Session) stream(ctx context.Context, text string, history []core.ChatTurn, emit func(string)) error {
	if s.client == nil {
		return fmt.Errorf("assistant has no AI client: %w", core.ErrMissingConfiguration)
	}
	opts := &core.AIOptions{SystemPrompt: s.system, History: history}

	call := func() error {
		_, err := ai.Stream(ctx, s.client, text, opts, func(chunk core.StreamChunk) error {
			if chunk.Content != "" {
				emit(chunk.Content)
			}
			return nil
		})
		return err
	}
	if s.breaker == nil {
		return call()
	}
	err := s.breaker.Execute(ctx, call)
	if errors.Is(err, core.ErrCircuitBreakerOpen) {
		s.logger.WarnWithContext(ctx, "Assistant circuit open", map[string]interface{}{
			"session_id": s.id,
			"state":      s.breaker.GetState(),
		})
	}
	return err
}

// record is the persisted form of a session
type record struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) snapshot() record {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	return record{ID: s.id, Messages: msgs, CreatedAt: s.createdAt, UpdatedAt: s.updatedAt}
}

// lastActive returns when the session last changed
func (s *Session) lastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}
