package recorder

import (
	"sync"

	"muster/internal/event"
)

// ringBuffer is a bounded, thread-safe retry buffer for events whose store
// append failed. It never blocks: when full, enqueue is refused and the
// caller decides whether to fail the recording.
type ringBuffer struct {
	mu       sync.Mutex
	events   []*event.Event
	head     int // next write position
	tail     int // next read position
	count    int
	capacity int

	dropped int64
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &ringBuffer{
		events:   make([]*event.Event, capacity),
		capacity: capacity,
	}
}

// TryEnqueue adds an event unless the buffer is full.
func (b *ringBuffer) TryEnqueue(e *event.Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.capacity {
		b.dropped++
		return false
	}

	b.events[b.head] = e
	b.head = (b.head + 1) % b.capacity
	b.count++
	return true
}

// DequeueBatch removes up to n events, oldest first.
func (b *ringBuffer) DequeueBatch(n int) []*event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	result := make([]*event.Event, n)
	for i := 0; i < n; i++ {
		result[i] = b.events[b.tail]
		b.events[b.tail] = nil
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return result
}

// Requeue puts events back into the buffer after a failed drain, dropping
// any that no longer fit.
func (b *ringBuffer) Requeue(events []*event.Event) {
	for _, e := range events {
		if !b.TryEnqueue(e) {
			return
		}
	}
}

func (b *ringBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *ringBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
