// Package notify keeps the short-lived toast notifications shown to a shopper.
package notify

import (
	"sync"
	"time"

	"github.com/gemfashion/storefront/core"
)

// Severity of a notification
type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Info    Severity = "info"
)

// Notification is one visible toast
type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// EventKind tells subscribers what changed
type EventKind string

const (
	Added   EventKind = "added"
	Removed EventKind = "removed"
)

// Event is delivered to subscribers on every change
type Event struct {
	Kind         EventKind    `json:"kind"`
	Notification Notification `json:"notification"`
}

// Queue holds notifications in insertion order. Each one removes itself after
// the TTL on its own timer; there is no cap on how many are visible.
type Queue struct {
	mu     sync.Mutex
	ttl    time.Duration
	nextID int64
	items  []Notification
	timers map[int64]*time.Timer
	subs   map[chan Event]struct{}
	closed bool
	now    func() time.Time
}

// NewQueue creates a queue whose notifications live for ttl (DefaultNotificationTTL when <= 0)
func NewQueue(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = core.DefaultNotificationTTL
	}
	return &Queue{
		ttl:    ttl,
		timers: make(map[int64]*time.Timer),
		subs:   make(map[chan Event]struct{}),
		now:    time.Now,
	}
}

// Notify appends a notification and schedules its removal
func (q *Queue) Notify(message string, severity Severity) Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	n := Notification{
		ID:        q.nextID,
		Message:   message,
		Severity:  severity,
		CreatedAt: q.now(),
	}
	if q.closed {
		return n
	}

	q.items = append(q.items, n)
	id := n.ID
	q.timers[id] = time.AfterFunc(q.ttl, func() { q.Dismiss(id) })
	q.publish(Event{Kind: Added, Notification: n})
	return n
}

// List returns the visible notifications, oldest first
func (q *Queue) List() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Notification(nil), q.items...)
}

// Dismiss removes a notification early. Unknown ids are ignored.
func (q *Queue) Dismiss(id int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, n := range q.items {
		if n.ID != id {
			continue
		}
		q.items = append(q.items[:i:i], q.items[i+1:]...)
		if t, ok := q.timers[id]; ok {
			t.Stop()
			delete(q.timers, id)
		}
		q.publish(Event{Kind: Removed, Notification: n})
		return true
	}
	return false
}

// Subscribe returns a channel of changes and a function that ends the subscription.
// Slow subscribers miss events rather than block the queue.
func (q *Queue) Subscribe() (<-chan Event, func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch := make(chan Event, 16)
	if q.closed {
		close(ch)
		return ch, func() {}
	}
	q.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			if _, ok := q.subs[ch]; ok {
				delete(q.subs, ch)
				close(ch)
			}
		})
	}
}

// Close stops every pending timer and ends all subscriptions
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	for ch := range q.subs {
		close(ch)
		delete(q.subs, ch)
	}
}

// publish must be called with q.mu held
func (q *Queue) publish(e Event) {
	for ch := range q.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
