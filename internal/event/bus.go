// Package event fans out wish activity to in-process subscribers,
// feeding the server-sent events endpoint.
package event

import (
	"context"
	"sync"
	"time"
)

// Wish activity event types.
const (
	TypeWishlistCreated = "wishlist.created"
	TypeWishAdded       = "wish.added"
	TypeWishReserved    = "wish.reserved"
	TypeWishReleased    = "wish.released"
)

// Event describes one change to a wishlist or wish.
type Event struct {
	Type       string    `json:"type"`
	WishlistID string    `json:"wishlist_id"`
	WishID     string    `json:"wish_id,omitempty"`
	ActorID    string    `json:"actor_id"`
	At         time.Time `json:"at"`
}

// Bus delivers events to all active subscribers. Slow subscribers
// lose events rather than block publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber. The returned channel is closed
// when ctx ends.
func (b *Bus) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Publish sends evt to every subscriber, stamping At when unset.
func (b *Bus) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// Drop when the subscriber is slow to avoid blocking.
		}
	}
}
