package stream

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-quake-heatmap/internal/viewer"
)

type subscriber struct {
	session string
	ch      chan *viewer.View
}

// Broadcaster fans session views out to that session's subscribers. Each
// subscriber holds at most one pending view; a newer view replaces it.
type Broadcaster struct {
	subscribers map[uint64]*subscriber
	nextID      atomic.Uint64
	mu          sync.Mutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]*subscriber),
	}
}

func (b *Broadcaster) Subscribe(sessionID string) (uint64, <-chan *viewer.View) {
	id := b.nextID.Add(1)
	ch := make(chan *viewer.View, 1)

	b.mu.Lock()
	b.subscribers[id] = &subscriber{session: sessionID, ch: ch}
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if sub, ok := b.subscribers[id]; ok {
		close(sub.ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Publish never blocks: a subscriber that has not read its previous view
// gets it swapped for v.
func (b *Broadcaster) Publish(v *viewer.View) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscribers {
		if sub.session != v.SessionID {
			continue
		}
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- v
	}
}

// CloseSession drops every subscriber of an expired session.
func (b *Broadcaster) CloseSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subscribers {
		if sub.session == sessionID {
			close(sub.ch)
			delete(b.subscribers, id)
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing streams to exit gracefully
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}
