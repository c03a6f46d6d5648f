// Package event carries library notifications to in-process listeners.
package event

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Type identifies a category of event.
type Type string

// Known event types.
const (
	// LibraryCommitted follows every transaction that reached the log.
	// Data: id, label, significance, assertions.
	LibraryCommitted Type = "library.committed"
	// LibraryRolledBack follows a rollback. Data: target, before, dropped.
	LibraryRolledBack Type = "library.rolled_back"
	// ScanCompleted follows a library scan. Data: found, imported, removed.
	ScanCompleted Type = "scan.completed"
	// FilesChanged is raised by the watcher after a debounced burst of
	// file system activity. Data: paths.
	FilesChanged Type = "fs.changed"
)

// Any subscribes a handler to every event type.
const Any Type = "*"

// Event is a single notification.
type Event struct {
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Handler processes an event. Handlers run on the bus goroutine one at a
// time and must not block for long.
type Handler func(Event)

type subscription struct {
	id uint64
	h  Handler
}

// Bus is an in-process event bus backed by a buffered channel. Publishing
// never blocks; events are dropped with a warning when the buffer is full.
type Bus struct {
	ch     chan Event
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[Type][]subscription
	nextID uint64

	stopOnce sync.Once
	done     chan struct{}
	finished chan struct{}
}

// NewBus creates a bus with the given buffer size.
func NewBus(logger *slog.Logger, bufSize int) *Bus {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Bus{
		ch:       make(chan Event, bufSize),
		subs:     make(map[Type][]subscription),
		logger:   logger.With(slog.String("component", "event")),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Subscribe registers h for events of type t, or for all events when t is
// Any. The returned func removes the subscription.
func (b *Bus) Subscribe(t Type, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[t] = append(b.subs[t], subscription{id: id, h: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[t]
		for i, s := range subs {
			if s.id == id {
				b.subs[t] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish queues e for delivery, stamping it if it has no timestamp.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	select {
	case b.ch <- e:
	default:
		b.logger.Warn("event bus full, dropping event", "type", string(e.Type))
	}
}

// Run dispatches events until ctx is done or Stop is called, then drains
// what is already buffered. Call it in its own goroutine.
func (b *Bus) Run(ctx context.Context) {
	defer close(b.finished)
	for {
		select {
		case e := <-b.ch:
			b.dispatch(e)
		case <-ctx.Done():
			b.drain()
			return
		case <-b.done:
			b.drain()
			return
		}
	}
}

// Stop ends Run after the buffer is drained and waits for it to return.
// Stop must only be called once Run has been started.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() { close(b.done) })
	<-b.finished
}

func (b *Bus) drain() {
	for {
		select {
		case e := <-b.ch:
			b.dispatch(e)
		default:
			return
		}
	}
}

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Type])+len(b.subs[Any]))
	for _, s := range b.subs[e.Type] {
		handlers = append(handlers, s.h)
	}
	for _, s := range b.subs[Any] {
		handlers = append(handlers, s.h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked", "type", string(e.Type), "panic", r)
				}
			}()
			h(e)
		}()
	}
}
