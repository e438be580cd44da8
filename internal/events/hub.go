// Package events fans engine activity out to SSE subscribers.
package events

import "sync"

const (
	subscriberBuffer = 16
	historySize      = 64
)

// Hub broadcasts events. Slow subscribers miss events rather than block
// publishers. The last historySize events are kept so a reconnecting client
// can resume from its Last-Event-ID. A nil *Hub discards everything.
type Hub struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
	seq     uint64
	history []Event
	dropped int
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan Event]struct{})}
}

// Subscribe returns a receive channel for new events and the func that releases it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	return h.SubscribeFrom(0)
}

// SubscribeFrom is Subscribe with a replay of retained events whose Seq is
// greater than after. after == 0 replays nothing.
func (h *Hub) SubscribeFrom(after uint64) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if after > 0 {
		var missed []Event
		for _, e := range h.history {
			if e.Seq > after {
				missed = append(missed, e)
			}
		}
		if len(missed) > subscriberBuffer {
			h.dropped += len(missed) - subscriberBuffer
			missed = missed[len(missed)-subscriberBuffer:]
		}
		for _, e := range missed {
			ch <- e
		}
	}
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(e Event) {
	if h == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	e.Seq = h.seq
	h.history = append(h.history, e)
	if len(h.history) > historySize {
		h.history = h.history[len(h.history)-historySize:]
	}

	for ch := range h.clients {
		select {
		case ch <- e:
		default:
			h.dropped++
		}
	}
}

// Emit publishes an event with no request id.
func (h *Hub) Emit(typ string, data any) {
	if h == nil {
		return
	}
	h.Publish(New("", typ, data))
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped counts deliveries skipped because a subscriber's buffer was full.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
