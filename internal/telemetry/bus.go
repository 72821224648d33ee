package telemetry

import (
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Bus collects events from the pipeline and dispatches to subscribers.
// It batches dispatch to reduce downstream churn and stamps every event
// with a sequence number for ordering.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
	enabled     atomic.Bool

	batchWindow time.Duration
	batchLimit  int

	buffer     []Event
	bufferMu   sync.Mutex
	flushTimer *time.Timer

	sequence atomic.Uint64
}

// NewBus creates an enabled event bus with default batching.
func NewBus() *Bus {
	b := &Bus{
		batchWindow: 100 * time.Millisecond,
		batchLimit:  10,
		buffer:      make([]Event, 0, 20),
	}
	b.enabled.Store(true)
	return b
}

// Enable activates the bus.
func (b *Bus) Enable() { b.enabled.Store(true) }

// Disable deactivates the bus and flushes pending events.
func (b *Bus) Disable() {
	b.enabled.Store(false)
	b.Flush()
}

// Subscribe returns a buffered channel receiving events. Slow subscribers
// drop events rather than blocking emitters.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	if ch == nil {
		return
	}
	target := reflect.ValueOf(ch).Pointer()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if reflect.ValueOf(sub).Pointer() == target {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(sub)
			break
		}
	}
}

// Emit queues an event for dispatch. Safe from any goroutine; never blocks.
func (b *Bus) Emit(event Event) {
	if !b.enabled.Load() {
		return
	}

	event.ID = b.sequence.Add(1)
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.bufferMu.Lock()
	b.buffer = append(b.buffer, event)
	if len(b.buffer) >= b.batchLimit {
		b.flushLocked()
	} else if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.batchWindow, func() {
			b.bufferMu.Lock()
			b.flushLocked()
			b.bufferMu.Unlock()
		})
	}
	b.bufferMu.Unlock()
}

// Flush dispatches all buffered events immediately.
func (b *Bus) Flush() {
	b.bufferMu.Lock()
	b.flushLocked()
	b.bufferMu.Unlock()
}

// flushLocked sends buffered events; caller holds bufferMu.
func (b *Bus) flushLocked() {
	if len(b.buffer) == 0 {
		return
	}
	if b.flushTimer != nil {
		b.flushTimer.Stop()
		b.flushTimer = nil
	}

	sort.Slice(b.buffer, func(i, j int) bool { return b.buffer[i].ID < b.buffer[j].ID })

	b.mu.RLock()
	for _, sub := range b.subscribers {
		for _, event := range b.buffer {
			select {
			case sub <- event:
			default: // drop if subscriber is full
			}
		}
	}
	b.mu.RUnlock()

	b.buffer = b.buffer[:0]
}

// Close shuts down the bus and all subscriber channels.
func (b *Bus) Close() {
	b.Disable()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil
}

// Stats reports bus counters. The two locks are taken one at a time:
// flushLocked holds bufferMu while acquiring mu, so grabbing them in the
// opposite order here could deadlock against a pending writer.
func (b *Bus) Stats() BusStats {
	b.bufferMu.Lock()
	buffered := len(b.buffer)
	b.bufferMu.Unlock()

	b.mu.RLock()
	subscribers := len(b.subscribers)
	b.mu.RUnlock()

	return BusStats{
		Enabled:         b.enabled.Load(),
		SubscriberCount: subscribers,
		BufferedEvents:  buffered,
		TotalEmitted:    b.sequence.Load(),
	}
}

// BusStats holds event bus counters.
type BusStats struct {
	Enabled         bool
	SubscriberCount int
	BufferedEvents  int
	TotalEmitted    uint64
}
