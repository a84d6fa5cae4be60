package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gemfashion/storefront/core"
)

// Store creates sessions and keeps their transcripts in a core.Memory.
// Live sessions stay cached so concurrent requests share one Session.
type Store struct {
	mu     sync.Mutex
	live   map[string]*Session
	memory core.Memory
	ttl    time.Duration
	client core.AIClient
	opts   []SessionOption
	logger core.Logger
}

// NewStore creates a session store. ttl bounds how long an idle transcript
// is kept; zero keeps it forever.
func NewStore(memory core.Memory, client core.AIClient, ttl time.Duration, logger core.Logger, opts ...SessionOption) *Store {
	logger = core.ForComponent(logger, "storefront/assistant")
	return &Store{
		live:   make(map[string]*Session),
		memory: memory,
		ttl:    ttl,
		client: client,
		opts:   append([]SessionOption{WithLogger(logger)}, opts...),
		logger: logger,
	}
}

func sessionKey(id string) string {
	return core.SessionKeyPrefix + id
}

// Create starts a new empty session and persists it
func (st *Store) Create(ctx context.Context) (*Session, error) {
	s := st.attach(NewSession(uuid.NewString(), st.client, st.opts...))
	if err := st.Save(ctx, s); err != nil {
		return nil, err
	}

	st.mu.Lock()
	st.live[s.id] = s
	st.mu.Unlock()

	st.logger.InfoWithContext(ctx, "Assistant session created", map[string]interface{}{
		"session_id": s.id,
	})
	return s, nil
}

func (st *Store) attach(s *Session) *Session {
	s.onSaved = func(ctx context.Context, s *Session) {
		if err := st.Save(ctx, s); err != nil {
			st.logger.ErrorWithContext(ctx, "Failed to persist assistant transcript", map[string]interface{}{
				"session_id": s.id,
				"error":      err.Error(),
			})
		}
	}
	return s
}

// Get returns a live session or restores it from memory
func (st *Store) Get(ctx context.Context, id string) (*Session, error) {
	st.mu.Lock()
	if s, ok := st.live[id]; ok {
		st.mu.Unlock()
		return s, nil
	}
	st.mu.Unlock()

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("session %q: %w", id, core.ErrSessionNotFound)
	}

	raw, err := st.memory.Get(ctx, sessionKey(id))
	if err != nil {
		return nil, core.NewStoreError("assistant.Get", core.KindStorage, err)
	}
	if raw == "" {
		return nil, fmt.Errorf("session %q: %w", id, core.ErrSessionNotFound)
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, core.NewStoreError("assistant.Get", core.KindStorage, fmt.Errorf("%v: %w", err, core.ErrCorruptValue))
	}

	s := st.attach(NewSession(rec.ID, st.client, st.opts...))
	s.messages = rec.Messages
	s.createdAt = rec.CreatedAt
	s.updatedAt = rec.UpdatedAt

	st.mu.Lock()
	defer st.mu.Unlock()
	if existing, ok := st.live[id]; ok {
		return existing, nil
	}
	st.live[id] = s
	return s, nil
}

// Save writes the session transcript to memory
func (st *Store) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s.snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := st.memory.Set(ctx, sessionKey(s.id), string(data), st.ttl); err != nil {
		return core.NewStoreError("assistant.Save", core.KindStorage, err)
	}
	return nil
}

// Delete forgets a session
func (st *Store) Delete(ctx context.Context, id string) error {
	st.mu.Lock()
	delete(st.live, id)
	st.mu.Unlock()
	return st.memory.Delete(ctx, sessionKey(id))
}

// Prune drops live sessions idle for longer than idle. Their transcripts
// remain in memory until the TTL expires. Returns the number dropped.
func (st *Store) Prune(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	st.mu.Lock()
	defer st.mu.Unlock()

	n := 0
	for id, s := range st.live {
		if s.Sending() || s.lastActive().After(cutoff) {
			continue
		}
		delete(st.live, id)
		n++
	}
	return n
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.live)
}
