// Package bus is a multi-producer, multi-subscriber broadcast channel for
// lifecycle events.
//
// Publishing never blocks: each subscriber has a fixed-capacity buffer, and
// when it is full the oldest pending event for that subscriber is dropped and
// its drop counter incremented. A stalled WebSocket client or a slow TUI must
// never delay a session supervisor's reconnection.
package bus

import (
	"sync"
	"sync/atomic"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/util"
)

// Bus broadcasts events to all current subscribers.
type Bus struct {
	mu       sync.Mutex
	subs     map[*Subscriber]struct{}
	capacity int
	closed   bool
}

// Subscriber receives events in publication order. Events arrive on the
// channel returned by Events; Dropped reports how many events were discarded
// because the subscriber fell behind.
type Subscriber struct {
	bus     *Bus
	ch      chan model.Event
	dropped atomic.Uint64
}

// New creates a bus. capacity is the per-subscriber buffer size; zero or
// negative selects the default.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = util.DefaultBusCapacity
	}
	return &Bus{
		subs:     make(map[*Subscriber]struct{}),
		capacity: capacity,
	}
}

// Subscribe registers a new subscriber. The caller must Close it when done.
// Subscribing after the bus is closed returns a subscriber whose channel is
// already closed.
func (b *Bus) Subscribe() *Subscriber {
	sub := &Subscriber{bus: b, ch: make(chan model.Event, b.capacity)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish delivers evt to every subscriber without blocking. A subscriber
// with a full buffer loses its oldest pending event.
func (b *Bus) Publish(evt model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for sub := range b.subs {
		select {
		case sub.ch <- evt:
			continue
		default:
		}
		// Buffer full: drop the oldest, then retry once. The second send can
		// still lose the race against the consumer draining the channel, in
		// which case it succeeds immediately.
		select {
		case <-sub.ch:
			sub.dropped.Add(1)
		default:
		}
		select {
		case sub.ch <- evt:
		default:
			sub.dropped.Add(1)
		}
	}
}

// Close shuts the bus down and closes every subscriber channel. Subsequent
// publishes are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.ch)
	}
	b.subs = nil
}

// Events returns the subscriber's receive channel. It is closed when the
// subscription or the bus is closed.
func (s *Subscriber) Events() <-chan model.Event {
	return s.ch
}

// Dropped returns how many events were discarded for this subscriber.
func (s *Subscriber) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unsubscribes and closes the event channel. Calling it again, or
// after the bus itself closed, is a no-op.
func (s *Subscriber) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if s.bus.closed {
		return
	}
	if _, ok := s.bus.subs[s]; ok {
		delete(s.bus.subs, s)
		close(s.ch)
	}
}
