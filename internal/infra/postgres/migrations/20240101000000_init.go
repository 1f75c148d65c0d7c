package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

const createQuestionBankSQL = `
CREATE TABLE IF NOT EXISTS question_bank (
	topic TEXT PRIMARY KEY,
	questions JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createQuizResultsSQL = `
CREATE TABLE IF NOT EXISTS quiz_results (
	id BIGSERIAL PRIMARY KEY,
	room_id TEXT NOT NULL,
	mode TEXT NOT NULL,
	topic TEXT,
	started_at TIMESTAMPTZ,
	ended_at TIMESTAMPTZ,
	scoreboard JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS quiz_results_room_id_idx ON quiz_results (room_id)`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			if _, err := db.ExecContext(ctx, createQuestionBankSQL); err != nil {
				return err
			}
			_, err := db.ExecContext(ctx, createQuizResultsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS quiz_results`); err != nil {
				return err
			}
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS question_bank`)
			return err
		},
	)
}
