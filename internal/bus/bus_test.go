package bus

import (
	"testing"
	"time"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
)

func recv(t *testing.T, sub *Subscriber) model.Event {
	t.Helper()
	select {
	case evt, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return model.Event{}
}

func TestPublishDeliversInOrder(t *testing.T) {
	b := New(8)
	sub := b.Subscribe()
	defer sub.Close()

	for i := 0; i < 3; i++ {
		b.Publish(model.Event{Type: model.EventSessionOutput, Line: string(rune('a' + i))})
	}
	for i := 0; i < 3; i++ {
		if got := recv(t, sub).Line; got != string(rune('a'+i)) {
			t.Fatalf("event %d out of order: got %q", i, got)
		}
	}
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	b := New(2)
	sub := b.Subscribe()
	defer sub.Close()

	// Publish more than the buffer holds with no consumer draining.
	for i := 0; i < 5; i++ {
		b.Publish(model.Event{Line: string(rune('0' + i))})
	}

	if sub.Dropped() == 0 {
		t.Fatal("expected dropped count to increase")
	}
	// The newest events survive; the oldest are gone.
	first := recv(t, sub)
	if first.Line == "0" {
		t.Fatalf("expected oldest event to be dropped, got %q", first.Line)
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	b := New(1)
	sub := b.Subscribe()
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Publish(model.Event{})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestSubscriberCloseUnregisters(t *testing.T) {
	b := New(4)
	sub := b.Subscribe()
	sub.Close()

	if _, ok := <-sub.Events(); ok {
		t.Fatal("expected closed channel after Close")
	}
	// Publishing after close must not panic.
	b.Publish(model.Event{})
}

func TestBusCloseClosesAllSubscribers(t *testing.T) {
	b := New(4)
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	b.Close()

	for _, sub := range []*Subscriber{s1, s2} {
		if _, ok := <-sub.Events(); ok {
			t.Fatal("expected closed channel after bus Close")
		}
	}
	if sub := b.Subscribe(); sub == nil {
		t.Fatal("subscribe after close should return a closed subscriber, not nil")
	}
}
