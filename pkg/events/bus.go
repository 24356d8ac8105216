package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Handler consumes published events. Handlers run on the bus worker
// goroutine and should return quickly.
type Handler func(Event)

// Bus fans events out to subscribers asynchronously.
//
// Publish enqueues and returns immediately; when the queue is full
// the event is dropped and counted rather than blocking the caller.
type Bus struct {
	queue   chan Event
	dropped atomic.Int64

	mu       sync.RWMutex
	handlers []Handler

	done chan struct{}
	wg   sync.WaitGroup
}

// DefaultQueueSize is the publish queue depth used by NewBus.
const DefaultQueueSize = 1024

// NewBus creates and starts an event bus. A non-positive queueSize
// falls back to DefaultQueueSize.
func NewBus(queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	b := &Bus{
		queue: make(chan Event, queueSize),
		done:  make(chan struct{}),
	}
	b.wg.Add(1)
	go b.worker()
	return b
}

// Subscribe registers a handler for all subsequent events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish enqueues an event without blocking. Returns false if the
// queue was full and the event was dropped.
func (b *Bus) Publish(e Event) bool {
	select {
	case b.queue <- e:
		return true
	default:
		b.dropped.Add(1)
		return false
	}
}

// Dropped returns the number of events dropped due to a full queue.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close stops the worker after draining queued events.
func (b *Bus) Close() {
	close(b.done)
	b.wg.Wait()
}

func (b *Bus) worker() {
	defer b.wg.Done()

	for {
		select {
		case <-b.done:
			// Drain whatever is still queued.
			for {
				select {
				case e := <-b.queue:
					b.dispatch(e)
				default:
					return
				}
			}
		case e := <-b.queue:
			b.dispatch(e)
		}
	}
}

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// LogSink returns a handler that writes events to a structured logger.
func LogSink(logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "events")

	return func(e Event) {
		logger.Info("guard event",
			"event_id", e.ID,
			"event_type", string(e.Type),
			"scope", e.Scope,
			"subject", e.Subject,
			"operation", e.Operation,
			"actor", e.Actor,
			"reason", e.Reason,
		)
	}
}
