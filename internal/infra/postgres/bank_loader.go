package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-room-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// BankLoader serves topic question sets from the question_bank table, which
// stores each set as JSONB.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadSet(ctx context.Context, topic string, _ int) ([]domain.Question, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT questions FROM question_bank WHERE topic=$1`, topic).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("load question set: %w", err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("unmarshal question set: %w", err)
	}
	return questions, nil
}
