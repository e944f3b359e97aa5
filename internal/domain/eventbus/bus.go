// Package eventbus fans domain events out to background subscribers.
package eventbus

import (
	"context"
	"sync"
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"

	"alttext-server-go/internal/platform/logging"
)

type job struct {
	topic string
	args  []any
}

// Bus wraps EventBus with a bounded worker pool for asynchronous publishing.
type Bus struct {
	bus     evbus.Bus
	queue   chan job
	workers int
	logger  *logging.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
	pending sync.WaitGroup
	dropped atomic.Int64
}

func New(workers, queueSize int, logger *logging.Logger) *Bus {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Bus{
		bus:     evbus.New(),
		queue:   make(chan job, queueSize),
		workers: workers,
		logger:  logger,
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (b *Bus) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started || b.closed {
		return
	}
	b.started = true
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for j := range b.queue {
		b.dispatch(j)
	}
}

func (b *Bus) dispatch(j job) {
	defer b.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorTag("Event", "subscriber for %s panicked: %v", j.topic, r)
		}
	}()
	b.bus.Publish(j.topic, j.args...)
}

// Stop rejects new events and waits for queued ones until ctx expires.
func (b *Bus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	started := b.started
	b.mu.Unlock()

	if !started {
		// nothing will drain the queue
		for j := range b.queue {
			b.dispatch(j)
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish runs subscribers on the caller's goroutine.
func (b *Bus) Publish(topic string, args ...any) {
	b.bus.Publish(topic, args...)
}

// PublishAsync queues the event. It reports false when the queue is full or
// the bus is stopped; the event is then dropped.
func (b *Bus) PublishAsync(topic string, args ...any) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.dropped.Add(1)
		return false
	}

	b.pending.Add(1)
	select {
	case b.queue <- job{topic: topic, args: args}:
		return true
	default:
		b.pending.Done()
		b.dropped.Add(1)
		b.logger.WarnTag("Event", "queue full, dropped %s", topic)
		return false
	}
}

func (b *Bus) Subscribe(topic string, fn any) error { return b.bus.Subscribe(topic, fn) }

func (b *Bus) Unsubscribe(topic string, fn any) error { return b.bus.Unsubscribe(topic, fn) }

func (b *Bus) HasCallback(topic string) bool { return b.bus.HasCallback(topic) }

// Wait blocks until every queued event has been handled.
func (b *Bus) Wait() { b.pending.Wait() }

// Dropped counts events rejected by PublishAsync.
func (b *Bus) Dropped() int64 { return b.dropped.Load() }
