package chat

import (
	"sync"

	"elitehub/web/db"
)

const subscriberBuffer = 32

// Subscription receives messages published to one room.
type Subscription struct {
	C    <-chan db.ChatMessage
	ch   chan db.ChatMessage
	room string
}

// Hub fans persisted messages out to the subscribers of their room.
// Delivery is best effort: a subscriber whose buffer is full misses the
// message and can reload history.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Subscription]struct{})}
}

func (h *Hub) Subscribe(room string) *Subscription {
	ch := make(chan db.ChatMessage, subscriberBuffer)
	sub := &Subscription{C: ch, ch: ch, room: room}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[room]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.rooms[room] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.rooms[sub.room]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(h.rooms, sub.room)
	}
}

// Publish returns the number of subscribers the message reached.
func (h *Hub) Publish(msg db.ChatMessage) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for sub := range h.rooms[msg.ChatID] {
		select {
		case sub.ch <- msg:
			sent++
		default:
		}
	}
	return sent
}

func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
