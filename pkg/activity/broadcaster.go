package activity

import (
	"context"
	"sync"
)

// Broadcaster is an ActivityHook that republishes events to in-process
// subscribers, standing in for a global event target. Delivery never blocks:
// a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu     sync.RWMutex
	next   int
	subs   map[int]subscription
	closed bool
}

type subscription struct {
	ch    chan Event
	verbs map[string]struct{}
}

// NewBroadcaster constructs an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: map[int]subscription{}}
}

// Subscribe registers a buffered channel receiving events whose verb is in
// verbs (all events when verbs is empty). The returned cancel func closes the
// channel and is safe to call more than once.
func (b *Broadcaster) Subscribe(buffer int, verbs ...string) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	var filter map[string]struct{}
	if len(verbs) > 0 {
		filter = make(map[string]struct{}, len(verbs))
		for _, verb := range verbs {
			filter[verb] = struct{}{}
		}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = subscription{ch: ch, verbs: filter}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub.ch)
			}
			b.mu.Unlock()
		})
	}
}

// Notify implements ActivityHook.
func (b *Broadcaster) Notify(_ context.Context, event Event) error {
	event = NormalizeEvent(event)
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.verbs != nil {
			if _, ok := sub.verbs[event.Verb]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

// Close closes every subscriber channel. Later subscriptions receive a
// closed channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
