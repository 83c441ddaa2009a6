package event

import (
	"sync"
	"sync/atomic"
	"time"
)

const defaultSubscriberBuffer = 16

// Bus fans changes out to in-process subscribers of a session. Delivery is
// advisory: a subscriber whose buffer is full misses the change and is
// expected to reload on the next one.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	buffer int
	seq    atomic.Uint64
}

type subscription struct {
	ch   chan Change
	once sync.Once
}

// NewBus creates a bus whose subscriber channels hold buffer changes.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Bus{
		subs:   make(map[string]map[*subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers for changes of one session. The returned cancel
// function unregisters and closes the channel; it is safe to call twice.
func (b *Bus) Subscribe(sessionID string) (<-chan Change, func()) {
	sub := &subscription{ch: make(chan Change, b.buffer)}

	b.mu.Lock()
	set, ok := b.subs[sessionID]
	if !ok {
		set = make(map[*subscription]struct{})
		b.subs[sessionID] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()
	busSubscribers.Inc()

	cancel := func() {
		sub.once.Do(func() {
			b.mu.Lock()
			if set, ok := b.subs[sessionID]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(b.subs, sessionID)
				}
			}
			close(sub.ch)
			b.mu.Unlock()
			busSubscribers.Dec()
		})
	}
	return sub.ch, cancel
}

// Emit delivers the change to every subscriber of its session without
// blocking. It returns the number of subscribers reached.
func (b *Bus) Emit(c Change) int {
	c.Seq = b.seq.Add(1)
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for sub := range b.subs[c.SessionID] {
		select {
		case sub.ch <- c:
			delivered++
		default:
			busDropped.WithLabelValues(c.Name).Inc()
		}
	}
	return delivered
}

// Subscribers returns the number of live subscriptions for a session.
func (b *Bus) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}
