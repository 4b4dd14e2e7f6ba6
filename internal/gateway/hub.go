package gateway

import (
	"sync"

	"github.com/chessit-app/chessit-server/internal/broadcast"
)

// Hub tracks which local connections are joined to which room and fans bus
// envelopes out to them. Only membership lives here; seat assignment belongs
// to the coordinator.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*Client
	byConn map[string]string // connection id → room id
}

func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]*Client),
		byConn: make(map[string]string),
	}
}

// Join moves a client into a room, leaving its previous room if any.
func (h *Hub) Join(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c)
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[roomID] = members
	}
	members[c.id] = c
	h.byConn[c.id] = roomID
}

// Leave drops a client from whatever room it is in.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c)
}

func (h *Hub) leaveLocked(c *Client) {
	id, ok := h.byConn[c.id]
	if !ok {
		return
	}
	delete(h.byConn, c.id)
	if members, ok := h.rooms[id]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, id)
		}
	}
}

// Count reports the number of local connections in a room.
func (h *Hub) Count(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Dispatch delivers a bus envelope to every local member of its room.
func (h *Hub) Dispatch(env broadcast.Envelope) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[env.Room]))
	for _, c := range h.rooms[env.Room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	ev := Event{Type: env.Event, Payload: env.Data}
	for _, c := range members {
		c.send(ev)
	}
}
