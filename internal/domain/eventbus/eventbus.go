package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	evbus "github.com/asaskevich/EventBus"

	"medscan-server-go/internal/platform/logging"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 1024
	handlerTimeout   = 30 * time.Second
)

// Bus delivers events synchronously through Publish or on a bounded worker
// pool through PublishAsync. Handlers must be safe for concurrent calls.
type Bus struct {
	bus     evbus.Bus
	logger  *logging.Logger
	workers int
	queue   chan asyncEvent

	stopOnce sync.Once
	stopCh   chan struct{}
	// stopMu orders enqueues before the close of stopCh so that Stop drains
	// every accepted event.
	stopMu  sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
	pending sync.WaitGroup
	dropped atomic.Int64
}

type asyncEvent struct {
	topic string
	args  []any
}

// New builds a bus; call Start before publishing asynchronously.
func New(workers, queueSize int, logger *logging.Logger) *Bus {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Bus{
		bus:     evbus.New(),
		logger:  logger,
		workers: workers,
		queue:   make(chan asyncEvent, queueSize),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the async workers.
func (b *Bus) Start() {
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
}

// Stop delivers what is already queued, then stops the workers.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		b.stopMu.Lock()
		b.stopped = true
		close(b.stopCh)
		b.stopMu.Unlock()
		b.wg.Wait()
	})
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case ev := <-b.queue:
			b.deliver(ev)
		case <-b.stopCh:
			for {
				select {
				case ev := <-b.queue:
					b.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) deliver(ev asyncEvent) {
	defer b.pending.Done()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				b.logger.ErrorTag(logging.TagEvents, "handler panic topic=%s: %v", ev.topic, r)
			}
		}()
		b.bus.Publish(ev.topic, ev.args...)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	select {
	case <-done:
	case <-ctx.Done():
		b.logger.WarnTag(logging.TagEvents, "handler for %s still running after %s", ev.topic, handlerTimeout)
	}
}

// Publish runs every handler of topic before returning.
func (b *Bus) Publish(topic string, args ...any) {
	b.bus.Publish(topic, args...)
}

// PublishAsync queues the event. When the queue is full or the bus is
// stopped the event is dropped and counted.
func (b *Bus) PublishAsync(topic string, args ...any) {
	b.stopMu.RLock()
	defer b.stopMu.RUnlock()
	if b.stopped {
		n := b.dropped.Add(1)
		b.logger.WarnTag(logging.TagEvents, "bus stopped, dropped %s (total dropped %d)", topic, n)
		return
	}

	b.pending.Add(1)
	select {
	case b.queue <- asyncEvent{topic: topic, args: args}:
	default:
		b.pending.Done()
		n := b.dropped.Add(1)
		b.logger.WarnTag(logging.TagEvents, "queue full, dropped %s (total dropped %d)", topic, n)
	}
}

// Subscribe registers fn for topic. fn's parameters must match what
// publishers pass.
func (b *Bus) Subscribe(topic string, fn any) error {
	return b.bus.Subscribe(topic, fn)
}

func (b *Bus) Unsubscribe(topic string, fn any) error {
	return b.bus.Unsubscribe(topic, fn)
}

func (b *Bus) HasCallback(topic string) bool {
	return b.bus.HasCallback(topic)
}

// Flush blocks until every queued event has been delivered.
func (b *Bus) Flush() {
	b.pending.Wait()
}

// Dropped reports how many async events were discarded.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}
