// Package persist binds an in-memory value to a JSON entry in a key-value store.
//
// The in-memory value is authoritative. The store is only ever read once, when
// the binding is created, and every later write is best effort: a failed write
// is logged and the binding keeps serving the in-memory value.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gemfashion/storefront/core"
)

// Binding holds a value of type T mirrored to store under key.
//
// Writes are serialised on writeMu through the store write, so the store
// always ends up holding the last value written to memory.
type Binding[T any] struct {
	writeMu  sync.Mutex
	mu       sync.RWMutex
	value    T
	store    core.Memory
	key      string
	ttl      time.Duration
	logger   core.Logger
	degraded bool
}

// Option configures a Binding
type Option func(*options)

type options struct {
	logger core.Logger
	ttl    time.Duration
}

// WithLogger sets the logger used to report storage problems
func WithLogger(logger core.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTTL expires the persisted entry ttl after the last write
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// New reads key from store once and returns a binding holding the stored value,
// or initial when the entry is missing, unreadable or not valid JSON for T.
// Read problems are logged, never returned.
func New[T any](ctx context.Context, store core.Memory, key string, initial T, opts ...Option) *Binding[T] {
	o := options{logger: &core.NoOpLogger{}}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Binding[T]{
		value:  initial,
		store:  store,
		key:    key,
		ttl:    o.ttl,
		logger: o.logger,
	}

	if store == nil {
		b.degraded = true
		return b
	}

	raw, err := store.Get(ctx, key)
	if err != nil {
		b.logger.ErrorWithContext(ctx, "Failed to read persisted value, using initial value", map[string]interface{}{
			"key":   key,
			"error": err,
		})
		return b
	}
	if raw == "" {
		return b
	}

	var decoded T
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		b.logger.ErrorWithContext(ctx, "Persisted value is corrupt, using initial value", map[string]interface{}{
			"key":   key,
			"error": fmt.Errorf("%v: %w", err, core.ErrCorruptValue),
		})
		return b
	}

	b.value = decoded
	return b
}

// Key returns the store key backing this binding
func (b *Binding[T]) Key() string {
	return b.key
}

// Get returns the current in-memory value
func (b *Binding[T]) Get() T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value
}

// Set replaces the value and then persists it.
// The in-memory value is never rolled back when persisting fails.
func (b *Binding[T]) Set(ctx context.Context, v T) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	b.mu.Lock()
	b.value = v
	b.mu.Unlock()

	b.persist(ctx, v)
}

// Update applies fn to the current value atomically, persists the result and returns it.
func (b *Binding[T]) Update(ctx context.Context, fn func(T) T) T {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	b.mu.Lock()
	next := fn(b.value)
	b.value = next
	b.mu.Unlock()

	b.persist(ctx, next)
	return next
}

// Degraded reports whether the last persist attempt failed, meaning the
// value currently lives in memory only.
func (b *Binding[T]) Degraded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.degraded
}

func (b *Binding[T]) persist(ctx context.Context, v T) {
	if b.store == nil {
		return
	}

	data, err := json.Marshal(v)
	if err == nil {
		err = b.store.Set(ctx, b.key, string(data), b.ttl)
	}

	b.mu.Lock()
	wasDegraded := b.degraded
	b.degraded = err != nil
	b.mu.Unlock()

	switch {
	case err != nil:
		b.logger.ErrorWithContext(ctx, "Failed to persist value, continuing in memory only", map[string]interface{}{
			"key":   b.key,
			"error": err,
		})
	case wasDegraded:
		b.logger.InfoWithContext(ctx, "Persistence recovered", map[string]interface{}{
			"key": b.key,
		})
	}
}
