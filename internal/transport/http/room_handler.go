package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"quiz-room-service/internal/domain"
	"quiz-room-service/internal/room"
)

// RoomHandler exposes the room lifecycle over plain JSON endpoints.
type RoomHandler struct {
	manager *room.Manager
	source  room.QuestionSource
}

func NewRoomHandler(manager *room.Manager, source room.QuestionSource) *RoomHandler {
	return &RoomHandler{manager: manager, source: source}
}

// Register mounts all room routes plus the websocket endpoint on mux.
func Register(mux *http.ServeMux, rooms *RoomHandler, ws *WSHandler) {
	mux.HandleFunc("POST /rooms", rooms.CreateRoom)
	mux.HandleFunc("GET /rooms", rooms.ListRooms)
	mux.HandleFunc("GET /rooms/{room_id}", rooms.GetRoom)
	mux.HandleFunc("POST /rooms/{room_id}/join", rooms.JoinRoom)
	mux.HandleFunc("POST /rooms/{room_id}/start", rooms.StartRoom)
	mux.HandleFunc("POST /rooms/{room_id}/players/{player_id}/ready", rooms.SetReady)
	mux.HandleFunc("GET /ws/{room_id}", ws.ServeWS)
}

type createRoomRequest struct {
	HostName            string   `json:"host_name"`
	Mode                string   `json:"mode"`
	Topic               string   `json:"topic"`
	NumQuestions        int      `json:"num_questions"`
	TimePerQuestionSec  int      `json:"time_per_question_sec"`
	MathOps             []string `json:"math_ops"`
	MinValue            int      `json:"min_value"`
	MaxValue            int      `json:"max_value"`
	DivisionIntegerOnly *bool    `json:"division_integer_only"`
}

type createRoomResponse struct {
	RoomID   string           `json:"room_id"`
	PlayerID string           `json:"player_id"`
	WSURL    string           `json:"ws_url"`
	State    domain.RoomState `json:"state"`
}

type joinRoomRequest struct {
	DisplayName string `json:"display_name"`
}

type joinRoomResponse struct {
	PlayerID string           `json:"player_id"`
	WSURL    string           `json:"ws_url"`
	State    domain.RoomState `json:"state"`
}

type startRoomResponse struct {
	OK    bool             `json:"ok"`
	State domain.RoomState `json:"state"`
}

type stateResponse struct {
	State domain.RoomState `json:"state"`
}

// buildSpec clamps request values into a valid spec.
func buildSpec(req createRoomRequest) domain.QuizSpec {
	mode := domain.QuizMode(req.Mode)
	if mode != domain.ModeMath {
		mode = domain.ModeTopicAI
	}
	spec := domain.QuizSpec{
		Mode:                mode,
		Topic:               req.Topic,
		NumQuestions:        req.NumQuestions,
		TimePerQuestionSec:  req.TimePerQuestionSec,
		MathOps:             req.MathOps,
		MinValue:            req.MinValue,
		MaxValue:            req.MaxValue,
		DivisionIntegerOnly: req.DivisionIntegerOnly == nil || *req.DivisionIntegerOnly,
	}
	if spec.NumQuestions < 1 {
		spec.NumQuestions = 10
	}
	if spec.TimePerQuestionSec < 5 {
		spec.TimePerQuestionSec = 30
	}
	if len(spec.MathOps) == 0 {
		spec.MathOps = []string{"add", "div"}
	}
	if spec.MinValue < 1 {
		spec.MinValue = 1
	}
	if spec.MaxValue <= spec.MinValue {
		spec.MaxValue = 99
	}
	return spec
}

// CreateRoom allocates a room and pre-generates its questions best-effort;
// a failed supplier leaves the room startable later.
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HostName == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	spec := buildSpec(req)
	rm, host := h.manager.CreateRoom(r.Context(), req.HostName, spec)

	if h.source != nil {
		if questions, err := h.source.Questions(r.Context(), spec); err != nil {
			log.Printf("room %s: pre-generation failed: %v", rm.ID(), err)
		} else if err := h.manager.AssignQuestions(rm.ID(), questions); err != nil {
			log.Printf("room %s: assign questions: %v", rm.ID(), err)
		}
	}

	writeJSON(w, http.StatusCreated, createRoomResponse{
		RoomID:   rm.ID(),
		PlayerID: host.ID,
		WSURL:    wsURL(rm.ID(), host.ID),
		State:    rm.State(),
	})
}

func (h *RoomHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	player, err := h.manager.JoinRoom(r.Context(), roomID, req.DisplayName)
	if err != nil {
		writeManagerError(w, err)
		return
	}
	rm, _ := h.manager.GetRoom(roomID)
	writeJSON(w, http.StatusOK, joinRoomResponse{
		PlayerID: player.ID,
		WSURL:    wsURL(roomID, player.ID),
		State:    rm.State(),
	})
}

func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.manager.GetRoom(r.PathValue("room_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: rm.State()})
}

func (h *RoomHandler) ListRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.ListRooms())
}

// StartRoom starts the game, generating questions if none were assigned.
func (h *RoomHandler) StartRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	rm, ok := h.manager.GetRoom(roomID)
	if !ok {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	questions := rm.Questions()
	if len(questions) == 0 && h.source != nil {
		generated, err := h.source.Questions(r.Context(), rm.Spec())
		if err != nil {
			log.Printf("room %s: generation on start failed: %v", roomID, err)
		} else {
			questions = generated
		}
	}
	if len(questions) == 0 {
		topic := rm.Spec().Topic
		if topic == "" {
			topic = "this quiz"
		}
		questions = []domain.Question{{
			Prompt:       "Which topic are we studying?",
			Choices:      []string{topic, "Math", "Science", "History"},
			CorrectIndex: 0,
		}}
	}

	if err := h.manager.StartRoom(r.Context(), roomID, questions); err != nil {
		writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startRoomResponse{OK: true, State: rm.State()})
}

func (h *RoomHandler) SetReady(w http.ResponseWriter, r *http.Request) {
	ready := true
	if v := r.URL.Query().Get("ready"); v == "false" {
		ready = false
	}
	state, err := h.manager.SetReady(r.Context(), r.PathValue("room_id"), r.PathValue("player_id"), ready)
	if err != nil {
		writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: state})
}

func wsURL(roomID, playerID string) string {
	return fmt.Sprintf("/ws/%s?player_id=%s", roomID, playerID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeManagerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "room not found")
	case errors.Is(err, domain.ErrPlayerNotFound):
		writeError(w, http.StatusNotFound, "player not found")
	case errors.Is(err, domain.ErrRoomFull):
		writeError(w, http.StatusConflict, "room is full")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
