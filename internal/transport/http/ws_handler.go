package http

import (
	"encoding/json"
	"log"
	"net/http"

	"quiz-room-service/internal/domain"
	"quiz-room-service/internal/room"
	"github.com/gorilla/websocket"
)

// WSHandler upgrades per-player connections and pumps their frames into the
// room manager.
type WSHandler struct {
	manager  *room.Manager
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(manager *room.Manager, hub *Hub) *WSHandler {
	return &WSHandler{
		manager: manager,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// inboundFrame is the union of client messages. Malformed or unknown frames
// are ignored, never treated as errors: client timing races are expected.
type inboundFrame struct {
	Type        string `json:"type"`
	AnswerIndex *int   `json:"answer_index"`
	Ready       *bool  `json:"ready"`
}

// ServeWS handles GET /ws/{room_id}?player_id=...: it registers the
// connection under the room, sends the current snapshot, then reads answer
// and ready frames until the client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		http.Error(w, "missing player_id", http.StatusBadRequest)
		return
	}

	rm, ok := h.manager.GetRoom(roomID)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	state := rm.State()
	known := false
	for _, p := range state.Players {
		if p.ID == playerID {
			known = true
			break
		}
	}
	if !known {
		http.Error(w, "player not found", http.StatusNotFound)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	c := &conn{ws: ws}
	h.hub.add(roomID, playerID, c)
	defer func() {
		h.hub.remove(roomID, c)
		_ = ws.Close()
	}()

	if err := c.writeJSON(domain.Event{Type: "room_state", Data: state}); err != nil {
		return
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		switch frame.Type {
		case "answer":
			if frame.AnswerIndex == nil {
				continue
			}
			if _, err := h.manager.SubmitAnswer(r.Context(), roomID, playerID, *frame.AnswerIndex); err != nil {
				log.Printf("room %s: submit answer: %v", roomID, err)
			}
		case "ready":
			ready := true
			if frame.Ready != nil {
				ready = *frame.Ready
			}
			if _, err := h.manager.SetReady(r.Context(), roomID, playerID, ready); err != nil {
				log.Printf("room %s: set ready: %v", roomID, err)
			}
		default:
			// Unknown frame types are a no-op.
		}
	}
}
