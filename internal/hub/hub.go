// Package hub fans order events out to every subscribed admin connection.
package hub

import (
	"encoding/json"
	"log"
	"sync"
)

// Message is one named frame queued for a subscriber.
type Message struct {
	Event string
	Data  []byte
}

// Subscriber is one live admin connection. Reads come off C; the channel is
// closed on unsubscribe.
type Subscriber struct {
	C      chan Message
	closed bool
}

// Hub keeps the registry of live subscribers. Subscribe, Unsubscribe and
// Broadcast may run concurrently; delivery is best-effort so one slow or
// dead connection never blocks the rest.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

const subscriberBuffer = 16

func New() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers a new connection and immediately queues the
// "connected" acknowledgment on it.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{C: make(chan Message, subscriberBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[s] = struct{}{}
	s.C <- Message{Event: "connected", Data: []byte(`{"ok":true}`)}
	return s
}

// Unsubscribe removes a connection and closes its channel. Safe to call
// more than once.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	if !s.closed {
		s.closed = true
		close(s.C)
	}
}

// Broadcast serializes the payload once and queues it on every subscriber.
// A subscriber whose buffer is full is dropped rather than waited on.
func (h *Hub) Broadcast(event string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("hub: marshal %s event: %v", event, err)
		return
	}
	m := Message{Event: event, Data: b}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.C <- m:
		default:
			delete(h.subs, s)
			s.closed = true
			close(s.C)
		}
	}
}

// Count reports the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
