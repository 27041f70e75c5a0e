// Package notify is the transient toast queue shown in the page shell.
// Entries expire on their own after a fixed delay; rendering simply dumps
// the active entries in insertion order.
package notify

import (
	"math/rand"
	"strconv"
	"sync"
	"time"
)

// DefaultTTL is how long a notification stays in the queue.
const DefaultTTL = 2500 * time.Millisecond

// Kind selects the toast styling.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Warning Kind = "warning"
)

// Notification is a single queued toast.
type Notification struct {
	ID      string
	Message string
	Kind    Kind
}

// Broadcaster holds the active notifications of one browser session.
type Broadcaster struct {
	ttl time.Duration

	mu      sync.Mutex
	entries []Notification
	timers  map[string]*time.Timer
}

// New returns a broadcaster with the standard 2.5s lifetime.
func New() *Broadcaster {
	return NewWithTTL(DefaultTTL)
}

// NewWithTTL returns a broadcaster with a custom lifetime, used by tests.
func NewWithTTL(ttl time.Duration) *Broadcaster {
	return &Broadcaster{ttl: ttl, timers: make(map[string]*time.Timer)}
}

// Show enqueues a toast and schedules its removal. The id is the enqueue
// timestamp plus a random base-36 suffix; a collision is theoretically
// possible but negligible for this use. Returns the generated id.
func (b *Broadcaster) Show(message string, kind Kind) string {
	id := strconv.FormatInt(time.Now().UnixMilli(), 10) + strconv.FormatInt(rand.Int63(), 36)

	b.mu.Lock()
	b.entries = append(b.entries, Notification{ID: id, Message: message, Kind: kind})
	b.timers[id] = time.AfterFunc(b.ttl, func() { b.Dismiss(id) })
	b.mu.Unlock()
	return id
}

// Dismiss removes a single entry. Each removal is independent; expirations
// of concurrent toasts never batch.
func (b *Broadcaster) Dismiss(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.timers[id]; ok {
		t.Stop()
		delete(b.timers, id)
	}
	kept := b.entries[:0]
	for _, n := range b.entries {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	b.entries = kept
}

// Active returns the live notifications in insertion order.
func (b *Broadcaster) Active() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notification, len(b.entries))
	copy(out, b.entries)
	return out
}
