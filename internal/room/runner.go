package room

import (
	"context"
	"log"
	"time"

	"quiz-room-service/internal/domain"
)

// runRoom is the per-room game loop. It owns question pacing for the whole
// in-progress lifetime: announce, wait for first-correct or deadline, pause,
// advance, and finally broadcast the end event. Cancellation can arrive at
// any sleep and must leave no lock held.
func (m *Manager) runRoom(ctx context.Context, r *Room, done chan struct{}) {
	defer close(done)
	defer func() {
		if rec := recover(); rec != nil {
			// Unexpected failures still produce a terminal broadcast.
			log.Printf("room %s: game loop panic: %v", r.id, rec)
			m.endRoom(r)
		}
	}()

	for {
		event, ok := r.openNextQuestion()
		if !ok {
			m.endRoom(r)
			return
		}
		m.conns.Broadcast(r.id, domain.Event{Type: "question", Data: event})

		// Poll until an answer closes the question or the deadline passes.
		// Wall-clock polling keeps worst-case timeout latency at one poll
		// interval, acceptable for multi-second question windows.
		for {
			if !sleep(ctx, m.pollInterval) {
				return
			}
			open, deadline := r.questionStatus()
			if !open {
				break
			}
			if !deadline.IsZero() && !m.now().Before(deadline) {
				if r.closeQuestion() {
					m.conns.Broadcast(r.id, domain.Event{Type: "answer_result", Data: domain.AnswerResultEvent{
						Index:  event.Index,
						Result: "timeout",
					}})
				}
				break
			}
		}

		// Let clients render the result before moving on.
		if !sleep(ctx, m.advanceDelay) {
			return
		}
		state := r.advance()
		m.conns.Broadcast(r.id, domain.Event{Type: "room_state", Data: state})
	}
}

// endRoom performs the terminal transition and broadcast, then hands the
// result to the store if one is configured. Safe to call more than once.
func (m *Manager) endRoom(r *Room) {
	state, board, first := r.end()
	if !first {
		return
	}
	m.conns.Broadcast(r.id, domain.Event{Type: "end", Data: domain.EndEvent{
		State:      state,
		Scoreboard: board,
	}})
	if m.results == nil {
		return
	}
	r.mu.Lock()
	result := domain.GameResult{
		RoomID:     r.id,
		Mode:       r.spec.Mode,
		Topic:      r.spec.Topic,
		StartedAt:  r.startedAt,
		EndedAt:    r.endedAt,
		Scoreboard: board,
	}
	r.mu.Unlock()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.results.SaveResult(ctx, result); err != nil {
			log.Printf("room %s: persisting result failed: %v", r.id, err)
		}
	}()
}

// sleep waits for d or until ctx is cancelled; reports whether to continue.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
