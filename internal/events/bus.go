package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"deals-portal/utils"
)

// ErrBusClosed is returned by Publish after Close
var ErrBusClosed = errors.New("event bus closed")

// AsyncBus delivers events to a handler on background workers.
// When the queue is full the publisher delivers the event itself, so no
// event goes without a delivery attempt.
type AsyncBus struct {
	handler Handler
	queue   chan Event

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncBus starts workers goroutines draining a queue of size capacity
func NewAsyncBus(handler Handler, workers, capacity int) *AsyncBus {
	if workers < 1 {
		workers = 1
	}
	if capacity < 1 {
		capacity = 1
	}
	b := &AsyncBus{
		handler: handler,
		queue:   make(chan Event, capacity),
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.run()
	}
	return b
}

func (b *AsyncBus) run() {
	defer b.wg.Done()
	for ev := range b.queue {
		b.dispatch(ev)
	}
}

// dispatch isolates handler panics so one bad event cannot stop a worker
func (b *AsyncBus) dispatch(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			utils.Error("event handler panicked", map[string]any{
				"event_id": ev.ID,
				"kind":     string(ev.Kind),
				"panic":    fmt.Sprint(r),
			})
		}
	}()
	b.handler.Handle(context.Background(), ev)
}

// Publish enqueues ev, or handles it on the caller's goroutine when the queue is full
func (b *AsyncBus) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	select {
	case b.queue <- ev:
		b.mu.RUnlock()
		return nil
	default:
	}
	b.mu.RUnlock()

	utils.Warn("event queue full, delivering inline", map[string]any{
		"event_id": ev.ID,
		"kind":     string(ev.Kind),
		"capacity": cap(b.queue),
	})
	b.dispatch(ev)
	return nil
}

// Close stops accepting events and waits for queued ones to be handled
func (b *AsyncBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	b.wg.Wait()
}

// Direct calls the handler synchronously on Publish
type Direct struct {
	Handler Handler
}

// Publish hands ev straight to the handler
func (d Direct) Publish(ctx context.Context, ev Event) error {
	d.Handler.Handle(ctx, ev)
	return nil
}
