// Package events provides the in-process publish/subscribe channel that
// replaces a global mutable event emitter: components receive the bus by
// injection, subscribe on startup and unsubscribe on teardown.
package events

import "sync"

// SectionDataUpdated announces that a user's answers for one section were
// persisted. Subscribers recompute completion from scratch; no delta is
// carried.
type SectionDataUpdated struct {
	UserID      string
	SectionID   string
	ProfileType string
}

type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(SectionDataUpdated)
}

func NewBus() *Bus {
	return &Bus{subs: map[int]func(SectionDataUpdated){}}
}

// Subscribe registers fn and returns the matching unsubscribe. Callbacks run
// synchronously on the publishing goroutine and must not block.
func (b *Bus) Subscribe(fn func(SectionDataUpdated)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *Bus) Publish(e SectionDataUpdated) {
	if b == nil {
		return
	}
	b.mu.RLock()
	fns := make([]func(SectionDataUpdated), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(e)
	}
}
