// internal/events/bus.go
package events

import (
	"sync"
	"time"

	shared "keeper/shared/types"
)

type Type string

const (
	CommitCreated Type = "commit-created"
	BranchCreated Type = "branch-created"
)

// Event is the notification emitted after a pipeline run for downstream
// listeners (UI refresh, persistence) to consume.
type Event struct {
	Type       Type               `json:"type"`
	ProjectID  string             `json:"project_id"`
	CommitHash string             `json:"commit_hash"`
	BranchName string             `json:"branch_name,omitempty"`
	Trigger    shared.TriggerKind `json:"trigger"`
	Timestamp  time.Time          `json:"timestamp"`
}

// Bus fans events out to subscribers. Delivery is synchronous; subscribers
// that need to block must hand off to their own goroutine.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]func(Event)
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers a handler and returns its cancel function.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers the event to every subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.subs {
		fn(e)
	}
}
