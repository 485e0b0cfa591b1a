// Package events provides a best-effort, in-process broadcast channel
// for account mutations. Delivery is fire-and-forget: a slow or absent
// subscriber never blocks or fails the operation that published.
package events

import (
	"sync"
	"time"
)

// Event types published by the account service.
const (
	TypePasswordChanged = "password_changed"
)

// Event is a single account mutation notification.
type Event struct {
	Type       string    `json:"type"`
	AccountID  string    `json:"account_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

const subscriberBuffer = 16

// Broadcaster fans events out to subscribers over buffered channels.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
	closed      bool
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe registers a new subscriber and returns its channel.
func (b *Broadcaster) Subscribe() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// Publish delivers the event to every subscriber that has buffer space.
// Events to full buffers are dropped; Publish never blocks.
func (b *Broadcaster) Publish(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close closes all subscriber channels and rejects further subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, ch)
	}
}
