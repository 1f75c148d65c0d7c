package room

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"quiz-room-service/internal/domain"
)

// Broadcaster delivers events to every connection subscribed to a room.
// Delivery is best-effort; dead connections are dropped by the implementation.
type Broadcaster interface {
	Broadcast(roomID string, event domain.Event)
	Count(roomID string) int
}

// QuestionSource supplies the ordered question list for a spec. The engine
// does not care how questions are produced, only that a finite list arrives.
type QuestionSource interface {
	Questions(ctx context.Context, spec domain.QuizSpec) ([]domain.Question, error)
}

// ResultStore persists the final scoreboard of an ended room.
type ResultStore interface {
	SaveResult(ctx context.Context, result domain.GameResult) error
}

// RoomIndex mirrors room liveness into an external store (e.g. Redis).
type RoomIndex interface {
	Touch(ctx context.Context, roomID string) error
	Remove(ctx context.Context, roomID string) error
}

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultAdvanceDelay = 500 * time.Millisecond
)

// SubmitOutcome reports how an answer submission was resolved.
type SubmitOutcome struct {
	Ignored bool
	Correct bool
}

// Manager is the process-wide room registry. It owns the rooms table;
// each Room guards its own fields, so cross-room operations never contend.
type Manager struct {
	conns  Broadcaster
	source QuestionSource
	now    func() time.Time

	pollInterval time.Duration
	advanceDelay time.Duration

	results ResultStore
	index   RoomIndex

	mu    sync.RWMutex
	rooms map[string]*Room

	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
}

func NewManager(conns Broadcaster, source QuestionSource) *Manager {
	return NewManagerWithClock(conns, source, time.Now)
}

// NewManagerWithClock is test-only for deterministic timestamps.
func NewManagerWithClock(conns Broadcaster, source QuestionSource, now func() time.Time) *Manager {
	return &Manager{
		conns:        conns,
		source:       source,
		now:          now,
		pollInterval: defaultPollInterval,
		advanceDelay: defaultAdvanceDelay,
		rooms:        make(map[string]*Room),
	}
}

// SetTimings overrides the game-loop poll interval and the pause between
// questions. Intended for tests; defaults are 100ms and 500ms.
func (m *Manager) SetTimings(poll, advance time.Duration) {
	m.pollInterval = poll
	m.advanceDelay = advance
}

// UseResultStore enables persistence of final scoreboards.
func (m *Manager) UseResultStore(store ResultStore) {
	m.results = store
}

// UseRoomIndex enables external room liveness markers.
func (m *Manager) UseRoomIndex(index RoomIndex) {
	m.index = index
}

// CreateRoom allocates a room with the caller as host and sole player.
func (m *Manager) CreateRoom(ctx context.Context, hostName string, spec domain.QuizSpec) (*Room, *Player) {
	host := &Player{ID: newShortID(), Name: hostName, JoinedAt: m.now()}

	m.mu.Lock()
	id := newShortID()
	for _, taken := m.rooms[id]; taken; _, taken = m.rooms[id] {
		id = newShortID()
	}
	r := newRoom(id, spec, host.ID, m.now)
	r.addPlayerLocked(host)
	m.rooms[id] = r
	m.mu.Unlock()

	m.touchIndex(ctx, id)
	return r, host
}

// GetRoom looks up a room by id.
func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// JoinRoom adds a second player to a waiting room.
func (m *Manager) JoinRoom(ctx context.Context, id, name string) (*Player, error) {
	r, ok := m.GetRoom(id)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	r.mu.Lock()
	if len(r.players) >= domain.MaxPlayers {
		r.mu.Unlock()
		return nil, domain.ErrRoomFull
	}
	p := &Player{ID: newShortID(), Name: name, JoinedAt: m.now()}
	r.addPlayerLocked(p)
	r.touchLocked()
	r.mu.Unlock()

	m.touchIndex(ctx, id)
	return p, nil
}

// AssignQuestions seeds a waiting room's question list ahead of start.
// Calls against started rooms are no-ops.
func (m *Manager) AssignQuestions(id string, questions []domain.Question) error {
	r, ok := m.GetRoom(id)
	if !ok {
		return domain.ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != domain.StatusWaiting {
		return nil
	}
	r.questions = append([]domain.Question(nil), questions...)
	return nil
}

// StartRoom transitions a waiting room to in-progress and guarantees exactly
// one game loop is running for it. Duplicate calls are no-ops.
func (m *Manager) StartRoom(ctx context.Context, id string, questions []domain.Question) error {
	r, ok := m.GetRoom(id)
	if !ok {
		return domain.ErrRoomNotFound
	}

	r.mu.Lock()
	if r.status != domain.StatusWaiting {
		r.mu.Unlock()
		return nil
	}
	r.questions = append([]domain.Question(nil), questions...)
	r.currentIndex = 0
	r.startedAt = m.now()
	r.status = domain.StatusInProgress
	r.touchLocked()
	m.ensureRunnerLocked(r)
	r.mu.Unlock()

	m.touchIndex(ctx, id)
	return nil
}

// ensureRunnerLocked spawns the game loop unless one is already active.
// Caller holds r.mu.
func (m *Manager) ensureRunnerLocked(r *Room) {
	if r.runnerActive() {
		return
	}
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancelRun = cancel
	r.runDone = done
	go m.runRoom(runCtx, r, done)
}

// SetReady toggles a player's ready flag, broadcasts the updated snapshot,
// and evaluates auto-start.
func (m *Manager) SetReady(ctx context.Context, id, playerID string, ready bool) (domain.RoomState, error) {
	r, ok := m.GetRoom(id)
	if !ok {
		return domain.RoomState{}, domain.ErrRoomNotFound
	}

	r.mu.Lock()
	p, ok := r.players[playerID]
	if !ok {
		r.mu.Unlock()
		return domain.RoomState{}, domain.ErrPlayerNotFound
	}
	p.Ready = ready
	r.touchLocked()
	state := r.stateLocked()
	r.mu.Unlock()

	m.conns.Broadcast(id, domain.Event{Type: "room_state", Data: state})
	m.touchIndex(ctx, id)
	m.maybeAutoStart(ctx, id)
	return r.State(), nil
}

// SubmitAnswer resolves one answer under the room lock. Late, duplicate, or
// out-of-phase submissions are ignored rather than rejected; the first
// correct answer closes the question and scores the point.
func (m *Manager) SubmitAnswer(ctx context.Context, id, playerID string, answerIndex int) (SubmitOutcome, error) {
	r, ok := m.GetRoom(id)
	if !ok {
		return SubmitOutcome{}, domain.ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != domain.StatusInProgress || !r.questionOpen {
		return SubmitOutcome{Ignored: true}, nil
	}
	if _, dup := r.answered[playerID]; dup {
		return SubmitOutcome{Ignored: true}, nil
	}
	r.answered[playerID] = struct{}{}

	q := r.questions[r.currentIndex]
	correct := answerIndex == q.CorrectIndex
	if correct {
		// First correct answer wins: close immediately, even if the other
		// player has not answered yet.
		r.questionOpen = false
		if p, ok := r.players[playerID]; ok {
			p.Score++
		}
		m.conns.Broadcast(id, domain.Event{Type: "answer_result", Data: domain.AnswerResultEvent{
			Index:        r.currentIndex,
			PlayerID:     playerID,
			Correct:      boolPtr(true),
			CorrectIndex: intPtr(q.CorrectIndex),
			Scoreboard:   r.scoreboardLocked(),
		}})
		r.touchLocked()
		return SubmitOutcome{Correct: true}, nil
	}

	m.conns.Broadcast(id, domain.Event{Type: "answer_result", Data: domain.AnswerResultEvent{
		Index:    r.currentIndex,
		PlayerID: playerID,
		Correct:  boolPtr(false),
	}})
	if len(r.answered) >= len(r.players) {
		// Everyone answered and nobody was right: reveal and close.
		r.questionOpen = false
		m.conns.Broadcast(id, domain.Event{Type: "answer_result", Data: domain.AnswerResultEvent{
			Index:        r.currentIndex,
			Result:       "all_answered",
			CorrectIndex: intPtr(q.CorrectIndex),
			Scoreboard:   r.scoreboardLocked(),
		}})
	}
	r.touchLocked()
	return SubmitOutcome{}, nil
}

// maybeAutoStart starts the room once every current player is ready,
// generating questions if none were assigned. Supplier failures skip the
// attempt; the next ready toggle retries.
func (m *Manager) maybeAutoStart(ctx context.Context, id string) {
	r, ok := m.GetRoom(id)
	if !ok {
		return
	}

	r.mu.Lock()
	if r.status != domain.StatusWaiting || len(r.players) == 0 {
		r.mu.Unlock()
		return
	}
	for _, p := range r.players {
		if !p.Ready {
			r.mu.Unlock()
			return
		}
	}
	questions := append([]domain.Question(nil), r.questions...)
	spec := r.spec
	r.mu.Unlock()

	if len(questions) == 0 && m.source != nil {
		generated, err := m.source.Questions(ctx, spec)
		if err != nil {
			log.Printf("room %s: question generation failed, auto-start skipped: %v", id, err)
			return
		}
		questions = generated
	}
	if len(questions) == 0 {
		questions = fallbackQuestions()
	}
	if err := m.StartRoom(ctx, id, questions); err != nil {
		log.Printf("room %s: auto-start failed: %v", id, err)
	}
}

// DeleteRoom cancels the room's game loop and removes it from the registry.
func (m *Manager) DeleteRoom(ctx context.Context, id string) {
	m.mu.Lock()
	r, ok := m.rooms[id]
	delete(m.rooms, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	r.cancelRunner()
	m.removeIndex(ctx, id)
}

// ListRooms snapshots every room: waiting first, then in-progress, then
// ended; newest first within each group.
func (m *Manager) ListRooms() []domain.RoomState {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	states := make([]domain.RoomState, 0, len(rooms))
	for _, r := range rooms {
		states = append(states, r.State())
	}
	rank := map[domain.RoomStatus]int{
		domain.StatusWaiting:    0,
		domain.StatusInProgress: 1,
		domain.StatusEnded:      2,
	}
	sort.Slice(states, func(i, j int) bool {
		if rank[states[i].Status] != rank[states[j].Status] {
			return rank[states[i].Status] < rank[states[j].Status]
		}
		return states[i].CreatedAt > states[j].CreatedAt
	})
	return states
}

func (m *Manager) touchIndex(ctx context.Context, id string) {
	if m.index == nil {
		return
	}
	if err := m.index.Touch(ctx, id); err != nil {
		log.Printf("room %s: index touch failed: %v", id, err)
	}
}

func (m *Manager) removeIndex(ctx context.Context, id string) {
	if m.index == nil {
		return
	}
	if err := m.index.Remove(ctx, id); err != nil {
		log.Printf("room %s: index remove failed: %v", id, err)
	}
}

// fallbackQuestions keeps a room from stalling when no supplier output is
// usable.
func fallbackQuestions() []domain.Question {
	return []domain.Question{{
		Prompt:       "Ready check: continue?",
		Choices:      []string{"Yes", "No", "Maybe", "Skip"},
		CorrectIndex: 0,
	}}
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }
