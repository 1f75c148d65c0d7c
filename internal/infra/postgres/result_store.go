package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-room-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultStore persists final scoreboards of ended rooms.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.GameResult) error {
	board, err := json.Marshal(result.Scoreboard)
	if err != nil {
		return fmt.Errorf("marshal scoreboard: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_results (room_id, mode, topic, started_at, ended_at, scoreboard)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		result.RoomID, string(result.Mode), result.Topic, result.StartedAt, result.EndedAt, board,
	)
	if err != nil {
		return fmt.Errorf("insert quiz result: %w", err)
	}
	return nil
}
