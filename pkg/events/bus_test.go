package events

import (
	"sync"
	"testing"
	"time"
)

func TestBus_PublishDelivers(t *testing.T) {
	b := NewBus(16)

	var mu sync.Mutex
	var got []Event
	b.Subscribe(func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})

	e := New(TypeRateLimitExceeded, time.Now())
	e.Subject = "user-1"
	e.Operation = "register"
	if !b.Publish(e) {
		t.Fatal("Publish returned false with room in the queue")
	}

	b.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("Expected 1 delivered event, got %d", len(got))
	}
	if got[0].ID == "" {
		t.Error("Expected event ID to be set")
	}
	if got[0].Type != TypeRateLimitExceeded || got[0].Subject != "user-1" {
		t.Errorf("Unexpected event: %+v", got[0])
	}
}

func TestBus_FanOut(t *testing.T) {
	b := NewBus(16)

	var mu sync.Mutex
	counts := make(map[int]int)
	for i := 0; i < 3; i++ {
		b.Subscribe(func(Event) {
			mu.Lock()
			counts[i]++
			mu.Unlock()
		})
	}

	for i := 0; i < 5; i++ {
		b.Publish(New(TypeAnomalyDetected, time.Now()))
	}
	b.Close()

	mu.Lock()
	defer mu.Unlock()
	for i := 0; i < 3; i++ {
		if counts[i] != 5 {
			t.Errorf("Subscriber %d received %d events, want 5", i, counts[i])
		}
	}
}

func TestBus_DropsWhenFull(t *testing.T) {
	// A bus with no subscribers and a tiny queue: hold the worker by
	// filling faster than dispatch can drain. Use queue size 1 and a
	// blocking handler.
	b := NewBus(1)

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	b.Subscribe(func(Event) {
		once.Do(func() { close(started) })
		<-release
	})

	// First event occupies the worker.
	b.Publish(New(TypeRateLimitExceeded, time.Now()))
	<-started

	// Fill the queue, then overflow it.
	b.Publish(New(TypeRateLimitExceeded, time.Now()))
	overflowed := false
	for i := 0; i < 10; i++ {
		if !b.Publish(New(TypeRateLimitExceeded, time.Now())) {
			overflowed = true
			break
		}
	}

	if !overflowed {
		t.Error("Expected Publish to report a drop on a full queue")
	}
	if b.Dropped() == 0 {
		t.Error("Expected dropped counter to increase")
	}

	close(release)
	b.Close()
}

func TestBus_CloseDrainsQueue(t *testing.T) {
	b := NewBus(64)

	var mu sync.Mutex
	delivered := 0
	b.Subscribe(func(Event) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	for i := 0; i < 20; i++ {
		b.Publish(New(TypeTimelockProposed, time.Now()))
	}
	b.Close()

	mu.Lock()
	defer mu.Unlock()
	if delivered != 20 {
		t.Errorf("Expected all 20 events delivered before Close returned, got %d", delivered)
	}
}
