package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/config"
	"lms-progress-service/internal/domain"
	"lms-progress-service/internal/infra/memory"
	pginfra "lms-progress-service/internal/infra/postgres"
	redisinfra "lms-progress-service/internal/infra/redis"
	transport "lms-progress-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the progress ledger server",
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

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var quizLoader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	var lessons app.LessonCatalog = memory.NewStaticLessonCatalog(sampleLessons())
	var badgeCatalog app.BadgeCatalog = memory.NewStaticBadgeCatalog(sampleBadges())
	var progress app.ProgressStore = memory.NewProgressStore()
	var attempts app.AttemptStore = memory.NewAttemptStore()
	var projector app.Projector = memory.NewProjection()

	if pool != nil {
		quizLoader = pginfra.NewQuizLoader(pool)
		lessons = pginfra.NewLessonCatalog(pool)
		badgeCatalog = pginfra.NewBadgeCatalog(pool)
		progress = pginfra.NewProgressStore(pool)
		attempts = pginfra.NewAttemptStore(pool)
		projector = pginfra.NewProjection(pool)
	} else if redisClient != nil {
		projector = redisinfra.NewProjection(redisClient)
	}

	var quizzes app.QuizCatalog
	if redisClient != nil {
		quizzes = redisinfra.NewQuizCatalog(redisClient, quizLoader, quizTTL)
	} else {
		quizzes = memory.NewQuizCatalog(quizLoader, quizTTL)
	}

	evaluator := app.NewRuleEvaluator(badgeCatalog)
	ledger := app.NewLedgerService(progress, lessons, quizzes, attempts, evaluator, projector, app.Options{
		LessonXP:              cfg.Gamification.LessonXP,
		QuizMaxXP:             cfg.Gamification.QuizMaxXP,
		AllowMultipleAttempts: cfg.Gamification.AllowMultipleAttempts,
		OpIDRetention:         cfg.Gamification.OpIDRetention,
		ApplyRetries:          cfg.Gamification.ApplyRetries,
	})
	wsHandler := transport.NewWSHandler(ledger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting progress service on :%s", finalPort)
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

// sampleLessons, sampleQuizzes, and sampleBadges seed the in-memory catalogs
// for demo mode; production deployments load these from Postgres.
func sampleLessons() map[string]domain.Lesson {
	return map[string]domain.Lesson{
		"lesson-1": {ID: "lesson-1", Title: "Getting Started"},
		"lesson-2": {ID: "lesson-2", Title: "Core Concepts"},
	}
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Basics Check",
			Questions: []domain.Question{
				{
					ID:           "q1",
					Type:         domain.QuestionChoice,
					Prompt:       "What is 2 + 2?",
					Options:      []string{"3", "4", "5"},
					CorrectIndex: 1,
					Marks:        1,
				},
				{
					ID:     "q2",
					Type:   domain.QuestionShort,
					Prompt: "Explain your reasoning.",
					Marks:  2,
				},
			},
		},
	}
}

func sampleBadges() []domain.Badge {
	return []domain.Badge{
		{ID: "first-steps", Name: "First Steps", Description: "Complete a lesson", Criteria: domain.BadgeCriteria{Type: "lessons", Threshold: 1}},
		{ID: "centurion", Name: "Centurion", Description: "Reach 100 XP", Criteria: domain.BadgeCriteria{Type: "xp", Threshold: 100}},
		{ID: "sharp-shooter", Name: "Sharp Shooter", Description: "Score 80% on a quiz", Criteria: domain.BadgeCriteria{Type: "quiz_ratio", Ratio: 0.8}},
	}
}
