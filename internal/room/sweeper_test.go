package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"quiz-room-service/internal/domain"
)

type nopBroadcaster struct {
	mu     sync.Mutex
	counts map[string]int
}

func (b *nopBroadcaster) Broadcast(string, domain.Event) {}

func (b *nopBroadcaster) Count(roomID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[roomID]
}

func (b *nopBroadcaster) setCount(roomID string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts[roomID] = n
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestSweepEvictsEndedAndAgedRooms(t *testing.T) {
	conns := &nopBroadcaster{counts: make(map[string]int)}
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManagerWithClock(conns, nil, clock.now)
	m.SetTimings(time.Millisecond, time.Millisecond)
	defer m.Stop()
	ctx := context.Background()

	rm, _ := m.CreateRoom(ctx, "Alice", domain.QuizSpec{Mode: domain.ModeMath, TimePerQuestionSec: 5})
	// Start with no questions: the loop ends the room immediately.
	if err := m.StartRoom(ctx, rm.ID(), nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	rm.cancelRunner() // wait for the loop to finish
	if rm.State().Status != domain.StatusEnded {
		t.Fatalf("expected ended room, got %s", rm.State().Status)
	}

	m.sweepOnce(ctx, 10*time.Minute)
	if _, ok := m.GetRoom(rm.ID()); !ok {
		t.Fatalf("freshly ended room must survive the sweep")
	}

	clock.advance(11 * time.Minute)
	m.sweepOnce(ctx, 10*time.Minute)
	if _, ok := m.GetRoom(rm.ID()); ok {
		t.Fatalf("aged ended room should be evicted")
	}
}

func TestSweepEvictsIdleDisconnectedRooms(t *testing.T) {
	conns := &nopBroadcaster{counts: make(map[string]int)}
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManagerWithClock(conns, nil, clock.now)
	defer m.Stop()
	ctx := context.Background()

	idle, _ := m.CreateRoom(ctx, "Alice", domain.QuizSpec{Mode: domain.ModeMath, TimePerQuestionSec: 5})
	watched, _ := m.CreateRoom(ctx, "Bob", domain.QuizSpec{Mode: domain.ModeMath, TimePerQuestionSec: 5})
	conns.setCount(watched.ID(), 1)

	clock.advance(11 * time.Minute)
	m.sweepOnce(ctx, 10*time.Minute)

	if _, ok := m.GetRoom(idle.ID()); ok {
		t.Fatalf("idle disconnected room should be evicted")
	}
	if _, ok := m.GetRoom(watched.ID()); !ok {
		t.Fatalf("room with live connections must be kept")
	}
}

func TestDeleteRoomCancelsRunner(t *testing.T) {
	conns := &nopBroadcaster{counts: make(map[string]int)}
	m := NewManager(conns, nil)
	m.SetTimings(time.Millisecond, time.Millisecond)
	defer m.Stop()
	ctx := context.Background()

	rm, _ := m.CreateRoom(ctx, "Alice", domain.QuizSpec{Mode: domain.ModeMath, TimePerQuestionSec: 60})
	q := domain.Question{Prompt: "q", Choices: []string{"a", "b", "c", "d"}, CorrectIndex: 0}
	if err := m.StartRoom(ctx, rm.ID(), []domain.Question{q}); err != nil {
		t.Fatalf("start: %v", err)
	}
	rm.mu.Lock()
	done := rm.runDone
	rm.mu.Unlock()
	if done == nil {
		t.Fatalf("expected a running game loop")
	}

	m.DeleteRoom(ctx, rm.ID())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("game loop did not stop after delete")
	}
	if _, ok := m.GetRoom(rm.ID()); ok {
		t.Fatalf("room should be gone")
	}
}
