package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"quiz-room-service/internal/domain"
	pgstore "quiz-room-service/internal/infra/postgres"
	pgmigrations "quiz-room-service/internal/infra/postgres/migrations"
	infraredis "quiz-room-service/internal/infra/redis"
	"quiz-room-service/internal/room"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(roomID string, event domain.Event) {}
func (nopBroadcaster) Count(roomID string) int                     { return 0 }

func TestGameEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedBank(t, ctx, pgURL, "Astronomy", sampleQuestions())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	loader := pgstore.NewBankLoader(pool)
	cache := infraredis.NewQuestionCache(redisClient, loader, 5*time.Minute)

	spec := domain.QuizSpec{
		Mode:               domain.ModeTopicAI,
		Topic:              "Astronomy",
		NumQuestions:       1,
		TimePerQuestionSec: 5,
	}
	questions, err := cache.Questions(ctx, spec)
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}
	if len(questions) != 1 || questions[0].Prompt != "Which planet is largest?" {
		t.Fatalf("unexpected questions %+v", questions)
	}
	if n, err := redisClient.Exists(ctx, "quizroom:bank:Astronomy").Result(); err != nil || n != 1 {
		t.Fatalf("expected cached set in redis, exists=%d err=%v", n, err)
	}

	manager := room.NewManager(nopBroadcaster{}, cache)
	manager.SetTimings(5*time.Millisecond, 10*time.Millisecond)
	manager.UseResultStore(pgstore.NewResultStore(pool))
	manager.UseRoomIndex(infraredis.NewRoomIndex(redisClient, time.Minute))
	defer manager.Stop()

	rm, host := manager.CreateRoom(ctx, "Alice", spec)
	guest, err := manager.JoinRoom(ctx, rm.ID(), "Bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := manager.SetReady(ctx, rm.ID(), host.ID, true); err != nil {
		t.Fatalf("ready host: %v", err)
	}
	state, err := manager.SetReady(ctx, rm.ID(), guest.ID, true)
	if err != nil {
		t.Fatalf("ready guest: %v", err)
	}
	if state.Status != domain.StatusInProgress {
		t.Fatalf("expected game to start, got %s", state.Status)
	}
	if n, err := redisClient.Exists(ctx, "quizroom:room:"+rm.ID()).Result(); err != nil || n != 1 {
		t.Fatalf("expected room index entry, exists=%d err=%v", n, err)
	}

	outcome := waitForOpenSubmit(t, ctx, manager, rm.ID(), guest.ID, 1)
	if !outcome.Correct {
		t.Fatalf("expected correct answer, got %+v", outcome)
	}

	var board []byte
	deadline := time.Now().Add(5 * time.Second)
	for {
		err := pool.QueryRow(ctx,
			`SELECT scoreboard FROM quiz_results WHERE room_id=$1`, rm.ID()).Scan(&board)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("result row never appeared: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	var entries []domain.ScoreEntry
	if err := json.Unmarshal(board, &entries); err != nil {
		t.Fatalf("unmarshal scoreboard: %v", err)
	}
	if len(entries) != 2 || entries[1].PlayerID != guest.ID || entries[1].Score != 1 {
		t.Fatalf("expected bob with 1 point, got %+v", entries)
	}
	if entries[0].PlayerID != host.ID || entries[0].Score != 0 {
		t.Fatalf("expected alice with 0 points, got %+v", entries)
	}
}

// waitForOpenSubmit retries until the question window is open and the
// submission lands.
func waitForOpenSubmit(t *testing.T, ctx context.Context, m *room.Manager, roomID, playerID string, index int) room.SubmitOutcome {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		outcome, err := m.SubmitAnswer(ctx, roomID, playerID, index)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if !outcome.Ignored {
			return outcome
		}
		if time.Now().After(deadline) {
			t.Fatalf("question never opened")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedBank(t *testing.T, ctx context.Context, dsn, topic string, questions []domain.Question) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(questions)
	if err != nil {
		t.Fatalf("marshal questions: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO question_bank (topic, questions) VALUES (?, ?::jsonb) ON CONFLICT (topic) DO UPDATE SET questions=EXCLUDED.questions`, topic, string(data)); err != nil {
		t.Fatalf("insert question set: %v", err)
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Prompt:       "Which planet is largest?",
			Choices:      []string{"Mars", "Jupiter", "Venus", "Saturn"},
			CorrectIndex: 1,
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
