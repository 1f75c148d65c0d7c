package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-room-service/internal/config"
	"quiz-room-service/internal/domain"
	pginfra "quiz-room-service/internal/infra/postgres"
	redisinfra "quiz-room-service/internal/infra/redis"
	"quiz-room-service/internal/question"
	"quiz-room-service/internal/room"
	transport "quiz-room-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// Topic questions come from the Postgres bank when available, cached in
	// Redis or in-process; otherwise a small built-in demo set.
	var loader question.SetLoader = question.NewStaticSource(sampleSets())
	if pool != nil {
		loader = pginfra.NewBankLoader(pool)
	}
	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var topicSource room.QuestionSource
	if redisClient != nil {
		topicSource = redisinfra.NewQuestionCache(redisClient, loader, questionTTL)
	} else {
		topicSource = question.NewCachedSource(loader, questionTTL)
	}
	source := question.NewModeSource(topicSource)

	hub := transport.NewHub()
	manager := room.NewManager(hub, source)
	if cfg.Rooms.PollInterval != "" || cfg.Rooms.AdvanceDelay != "" {
		manager.SetTimings(
			config.TTLDuration(cfg.Rooms.PollInterval, 100*time.Millisecond),
			config.TTLDuration(cfg.Rooms.AdvanceDelay, 500*time.Millisecond),
		)
	}
	if pool != nil {
		manager.UseResultStore(pginfra.NewResultStore(pool))
	}
	if redisClient != nil {
		roomTTL := config.TTLDuration(cfg.Redis.TTL, room.DefaultIdleTTL)
		manager.UseRoomIndex(redisinfra.NewRoomIndex(redisClient, roomTTL))
	}

	idleTTL := config.TTLDuration(cfg.Rooms.IdleTTL, room.DefaultIdleTTL)
	sweepInterval := config.TTLDuration(cfg.Rooms.SweepInterval, room.DefaultSweepInterval)
	manager.StartSweeper(idleTTL, sweepInterval)
	defer manager.Stop()

	roomHandler := transport.NewRoomHandler(manager, source)
	wsHandler := transport.NewWSHandler(manager, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.Register(mux, roomHandler, wsHandler)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz room service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleSets provides a minimal question bank for running without Postgres.
func sampleSets() map[string][]domain.Question {
	return map[string][]domain.Question{
		question.DefaultTopic: {
			{
				Prompt:       "Which planet is known as the Red Planet?",
				Choices:      []string{"Venus", "Mars", "Jupiter", "Saturn"},
				CorrectIndex: 1,
			},
			{
				Prompt:       "What is the largest ocean on Earth?",
				Choices:      []string{"Atlantic", "Indian", "Pacific", "Arctic"},
				CorrectIndex: 2,
			},
			{
				Prompt:       "Who wrote Romeo and Juliet?",
				Choices:      []string{"Dickens", "Shakespeare", "Austen", "Tolstoy"},
				CorrectIndex: 1,
			},
		},
	}
}
