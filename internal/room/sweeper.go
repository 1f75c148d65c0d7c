package room

import (
	"context"
	"time"

	"quiz-room-service/internal/domain"
)

const (
	// DefaultIdleTTL is how long a room may sit terminated or abandoned
	// before eviction.
	DefaultIdleTTL = 10 * time.Minute
	// DefaultSweepInterval is how often the sweeper scans the registry.
	DefaultSweepInterval = time.Minute

	minIdleTTL       = time.Minute
	minSweepInterval = 5 * time.Second
)

// StartSweeper launches the background eviction loop. Windows below the
// minimums are clamped. Calling it again while a sweeper runs is a no-op.
func (m *Manager) StartSweeper(idleTTL, interval time.Duration) {
	if idleTTL < minIdleTTL {
		idleTTL = minIdleTTL
	}
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sweepDone != nil {
		select {
		case <-m.sweepDone:
		default:
			return
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.sweepCancel = cancel
	m.sweepDone = done
	go m.sweepLoop(ctx, done, idleTTL, interval)
}

// Stop cancels the sweeper and every running game loop.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.sweepCancel, m.sweepDone
	m.sweepCancel, m.sweepDone = nil, nil
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	for _, r := range rooms {
		r.cancelRunner()
	}
}

func (m *Manager) sweepLoop(ctx context.Context, done chan struct{}, idleTTL, interval time.Duration) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweepOnce(ctx, idleTTL)
		}
	}
}

// sweepOnce evicts rooms that are terminated-and-aged, or idle with no live
// connections. Game loops are cancelled before removal.
func (m *Manager) sweepOnce(ctx context.Context, idleTTL time.Duration) {
	now := m.now()

	m.mu.RLock()
	candidates := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		candidates = append(candidates, r)
	}
	m.mu.RUnlock()

	for _, r := range candidates {
		r.mu.Lock()
		status := r.status
		endedAt := r.endedAt
		idle := now.Sub(r.lastActivity)
		r.mu.Unlock()

		evict := false
		if status == domain.StatusEnded && !endedAt.IsZero() {
			evict = now.Sub(endedAt) > idleTTL
		} else if idle > idleTTL && m.conns.Count(r.id) == 0 {
			evict = true
		}
		if evict {
			m.DeleteRoom(ctx, r.id)
		}
	}
}
