//
//
package telemetry

import "sync"

// EventBuffer is a fixed-size ring of the most recent published events,
// used to replay missed events to reconnecting clients.
type EventBuffer struct {
	mu   sync.RWMutex
	ring []Event
	head int // index of the oldest event
	n    int
}

// NewEventBuffer creates a ring holding up to size events.
func NewEventBuffer(size int) *EventBuffer {
	return &EventBuffer{ring: make([]Event, size)}
}

// Add stores event, overwriting the oldest once the ring is full.
func (b *EventBuffer) Add(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.ring) == 0 {
		return
	}
	if b.n < len(b.ring) {
		b.ring[(b.head+b.n)%len(b.ring)] = event
		b.n++
		return
	}
	b.ring[b.head] = event
	b.head = (b.head + 1) % len(b.ring)
}

// After returns, oldest first, the buffered events whose ID exceeds lastID.
func (b *EventBuffer) After(lastID int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for i := 0; i < b.n; i++ {
		if ev := b.ring[(b.head+i)%len(b.ring)]; ev.ID > lastID {
			out = append(out, ev)
		}
	}
	return out
}

// Cap is the ring size.
func (b *EventBuffer) Cap() int {
	return len(b.ring)
}

// Len is the number of buffered events.
func (b *EventBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.n
}
