package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/onnwee/vote-tender/tally"
	"github.com/onnwee/vote-tender/telemetry"
)

// subscriberBuffer is the number of events a slow subscriber may lag behind.
const subscriberBuffer = 16

// Hub fans tally events out to event-stream subscribers. It implements tally.Sink.
// The latest event of each type is replayed to new subscribers.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan []byte]struct{}
	latest map[tally.EventType][]byte
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan []byte]struct{}), latest: make(map[tally.EventType][]byte)}
}

// Publish encodes e once and offers it to every subscriber. Subscribers whose buffer is
// full miss the event.
func (h *Hub) Publish(e tally.Event) {
	b, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to encode event", slog.String("type", string(e.Type)), slog.Any("err", err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest[e.Type] = b
	for ch := range h.subs {
		select {
		case ch <- b:
		default:
			slog.Debug("event subscriber lagging; event skipped", slog.String("type", string(e.Type)))
		}
	}
}

// Subscribe registers a subscriber primed with the latest events. The returned function
// unregisters it and must be called exactly once.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	for _, t := range []tally.EventType{tally.EventRound, tally.EventTally, tally.EventLeaderboard} {
		if b, ok := h.latest[t]; ok {
			ch <- b
		}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	telemetry.AddSSESubscribers(1)
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		telemetry.AddSSESubscribers(-1)
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
