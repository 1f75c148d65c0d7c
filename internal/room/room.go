package room

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"quiz-room-service/internal/domain"
)

// Player is one room participant. Owned by its Room and mutated only under
// the room lock.
type Player struct {
	ID       string
	Name     string
	Score    int
	Ready    bool
	JoinedAt time.Time
}

// Room is one trivia session: spec, roster, question list, scoring state,
// and the handle of its single game-loop goroutine. All fields after mu are
// guarded by it; the Manager never touches them directly.
type Room struct {
	id        string
	spec      domain.QuizSpec
	hostID    string
	createdAt time.Time
	now       func() time.Time

	mu           sync.Mutex
	status       domain.RoomStatus
	players      map[string]*Player
	joinOrder    []string
	questions    []domain.Question
	currentIndex int
	expiresAt    time.Time
	questionOpen bool
	answered     map[string]struct{}
	startedAt    time.Time
	endedAt      time.Time
	lastActivity time.Time

	cancelRun context.CancelFunc
	runDone   chan struct{}
}

func newRoom(id string, spec domain.QuizSpec, hostID string, now func() time.Time) *Room {
	return &Room{
		id:           id,
		spec:         spec,
		hostID:       hostID,
		createdAt:    now(),
		now:          now,
		status:       domain.StatusWaiting,
		players:      make(map[string]*Player),
		answered:     make(map[string]struct{}),
		lastActivity: now(),
	}
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// Spec returns the immutable room configuration.
func (r *Room) Spec() domain.QuizSpec { return r.spec }

// Questions returns a copy of the assigned question list.
func (r *Room) Questions() []domain.Question {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Question(nil), r.questions...)
}

// State returns a full snapshot for clients.
func (r *Room) State() domain.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

func (r *Room) stateLocked() domain.RoomState {
	players := make([]domain.PlayerSummary, 0, len(r.players))
	readyCount := 0
	for _, id := range r.joinOrder {
		p := r.players[id]
		players = append(players, domain.PlayerSummary{
			ID:    p.ID,
			Name:  p.Name,
			Score: p.Score,
			Ready: p.Ready,
		})
		if p.Ready {
			readyCount++
		}
	}
	var expires *string
	if r.questionOpen {
		expires = domain.ISOTimePtr(r.expiresAt)
	}
	return domain.RoomState{
		ID:                   r.id,
		Spec:                 r.spec,
		Status:               r.status,
		HostID:               r.hostID,
		Players:              players,
		CurrentQuestionIndex: r.currentIndex,
		TotalQuestions:       len(r.questions),
		QuestionExpiresAt:    expires,
		CreatedAt:            domain.ISOTime(r.createdAt),
		StartedAt:            domain.ISOTimePtr(r.startedAt),
		EndedAt:              domain.ISOTimePtr(r.endedAt),
		ReadyCount:           readyCount,
		MaxPlayers:           domain.MaxPlayers,
	}
}

func (r *Room) scoreboardLocked() []domain.ScoreEntry {
	board := make([]domain.ScoreEntry, 0, len(r.players))
	for _, id := range r.joinOrder {
		p := r.players[id]
		board = append(board, domain.ScoreEntry{PlayerID: p.ID, Name: p.Name, Score: p.Score})
	}
	return board
}

// Scoreboard returns the current scores in player join order.
func (r *Room) Scoreboard() []domain.ScoreEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scoreboardLocked()
}

func (r *Room) addPlayerLocked(p *Player) {
	r.players[p.ID] = p
	r.joinOrder = append(r.joinOrder, p.ID)
}

func (r *Room) touchLocked() {
	r.lastActivity = r.now()
}

func (r *Room) touch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchLocked()
}

// openNextQuestion marks the next question open and arms its deadline.
// The second return is false once the question list is exhausted.
func (r *Room) openNextQuestion() (domain.QuestionEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentIndex >= len(r.questions) {
		return domain.QuestionEvent{}, false
	}
	q := r.questions[r.currentIndex]
	r.expiresAt = r.now().Add(r.spec.QuestionDuration())
	r.questionOpen = true
	r.answered = make(map[string]struct{})
	r.touchLocked()
	return domain.QuestionEvent{
		Index:     r.currentIndex,
		Question:  q.Prompt,
		Choices:   q.Choices,
		ExpiresAt: domain.ISOTime(r.expiresAt),
	}, true
}

// questionStatus reports whether the current question is still open and its
// deadline.
func (r *Room) questionStatus() (bool, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.questionOpen, r.expiresAt
}

// closeQuestion shuts the current question; returns false if it was closed
// already (an answer beat the deadline check).
func (r *Room) closeQuestion() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.questionOpen {
		return false
	}
	r.questionOpen = false
	r.touchLocked()
	return true
}

// advance steps to the next question index and returns the fresh snapshot.
func (r *Room) advance() domain.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentIndex++
	r.expiresAt = time.Time{}
	r.touchLocked()
	return r.stateLocked()
}

// end transitions the room to its terminal state. Returns false when the
// room already ended, so the terminal broadcast fires exactly once.
func (r *Room) end() (domain.RoomState, []domain.ScoreEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == domain.StatusEnded {
		return domain.RoomState{}, nil, false
	}
	r.status = domain.StatusEnded
	r.questionOpen = false
	r.endedAt = r.now()
	r.touchLocked()
	return r.stateLocked(), r.scoreboardLocked(), true
}

// runnerActive reports whether a game loop goroutine is still live.
func (r *Room) runnerActive() bool {
	if r.runDone == nil {
		return false
	}
	select {
	case <-r.runDone:
		return false
	default:
		return true
	}
}

// cancelRunner stops the game loop, if any, and waits for it to unwind.
func (r *Room) cancelRunner() {
	r.mu.Lock()
	cancel, done := r.cancelRun, r.runDone
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}

// newShortID returns a 6-hex-char random token for room and player ids.
func newShortID() string {
	var buf [3]byte
	_, _ = rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}
