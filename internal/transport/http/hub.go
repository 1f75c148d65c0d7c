package http

import (
	"encoding/json"
	"log"
	"sync"

	"quiz-room-service/internal/domain"
	"github.com/gorilla/websocket"
)

// conn wraps a websocket connection with a write lock, since the game loop
// and answer path broadcast from different goroutines.
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *conn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Hub is the per-room connection registry. It implements room.Broadcaster:
// payloads are serialized once and fanned out best-effort, silently dropping
// connections whose send fails.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*conn]string
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*conn]string)}
}

func (h *Hub) add(roomID, playerID string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*conn]string)
	}
	h.rooms[roomID][c] = playerID
}

func (h *Hub) remove(roomID string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.rooms, roomID)
	}
}

// Broadcast sends the event to every connection in the room. Iterates a
// snapshot so concurrent joins and leaves cannot invalidate the walk.
func (h *Hub) Broadcast(roomID string, event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("room %s: marshal %s event: %v", roomID, event.Type, err)
		return
	}

	h.mu.RLock()
	targets := make([]*conn, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(data); err != nil {
			h.remove(roomID, c)
		}
	}
}

// Count reports the number of live connections for a room.
func (h *Hub) Count(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
