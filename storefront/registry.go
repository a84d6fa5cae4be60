package storefront

import (
	"context"
	"sync"
	"time"

	"github.com/gemfashion/storefront/checkout"
	"github.com/gemfashion/storefront/core"
)

// Registry lazily creates one Store per client id
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
	deps   Deps
	logger core.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		stores: make(map[string]*Store),
		deps:   deps,
		logger: core.ForComponent(deps.Logger, "storefront/registry"),
	}
}

// Get returns the client's store, loading it on first use. Loading reads
// persisted state, so it runs outside the registry lock; when two requests
// race on a new client the first store inserted wins.
func (r *Registry) Get(ctx context.Context, clientID string) *Store {
	r.mu.Lock()
	if s, ok := r.stores[clientID]; ok {
		s.touch()
		r.mu.Unlock()
		return s
	}
	r.mu.Unlock()

	fresh := New(ctx, clientID, r.deps)

	r.mu.Lock()
	if s, ok := r.stores[clientID]; ok {
		s.touch()
		r.mu.Unlock()
		fresh.Close()
		return s
	}
	r.stores[clientID] = fresh
	r.mu.Unlock()

	r.logger.DebugWithContext(ctx, "Client store loaded", map[string]interface{}{
		"client_id": clientID,
		"degraded":  fresh.Degraded(),
	})
	return fresh
}

// CloseIdle closes stores unused for longer than idle. Get counts as use and
// is ordered against the sweep by the registry lock. Stores with a payment in
// flight are kept. Persisted state survives and is reloaded on next use.
func (r *Registry) CloseIdle(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	r.mu.Lock()
	var stale []*Store
	for id, s := range r.stores {
		if s.LastSeen().After(cutoff) || s.Checkout().State == checkout.Processing {
			continue
		}
		delete(r.stores, id)
		stale = append(stale, s)
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		r.logger.Info("Closed idle client stores", map[string]interface{}{
			"closed":    len(stale),
			"remaining": r.Len(),
		})
	}
	return len(stale)
}

// Len returns the number of loaded stores
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Close closes every store
func (r *Registry) Close() {
	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[string]*Store)
	r.mu.Unlock()

	for _, s := range stores {
		s.Close()
	}
}
