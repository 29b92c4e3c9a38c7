package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/somaedu/soma-backend/internal/attempt"
	"github.com/somaedu/soma-backend/internal/config"
	"github.com/somaedu/soma-backend/internal/database"
	"github.com/somaedu/soma-backend/internal/handler"
	"github.com/somaedu/soma-backend/internal/logger"
	"github.com/somaedu/soma-backend/internal/repository"
	"github.com/somaedu/soma-backend/internal/router"
	"github.com/somaedu/soma-backend/internal/service"
	"github.com/somaedu/soma-backend/internal/validator"
	"github.com/somaedu/soma-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting SOMA Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	tutorRepo := repository.NewTutorRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	rosterRepo := repository.NewTutorStudentRepository(pool)
	quizRepo := repository.NewQuizRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	tutorService := service.NewTutorService(tutorRepo, authService)
	quizService := service.NewQuizService(quizRepo, questionRepo, rdb, log)
	submissionService := service.NewSubmissionService(submissionRepo, quizService, rdb, log)
	studentService := service.NewStudentService(studentRepo, submissionRepo, rosterRepo, log)
	mediaService := service.NewMediaService(cfg)

	// ─── Attempt Manager ──────────────────────────────────────────────
	// Each exam client gets a Redis-backed store scoped to its sid, so
	// reloads find their start time and answers again.
	stores := func(sid string) attempt.Store {
		return attempt.NewRedisStore(rdb, config.CacheKey.AttemptNamespace(sid), cfg.AttemptStateTTL)
	}
	manager := attempt.NewManager(stores, quizService, submissionService, studentService, studentService, log, nil)
	go manager.Start(ctx)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(tutorService),
		Attempt: handler.NewAttemptHandler(manager, quizService, log),
		Quiz:    handler.NewQuizHandler(quizService),
		Student: handler.NewStudentHandler(studentService),
		Report:  handler.NewReportHandler(submissionService, quizService),
		Tutor:   handler.NewTutorHandler(tutorService),
		Media:   handler.NewMediaHandler(mediaService),
		WS:      handler.NewWSHandler(manager, quizService, log, cfg.AllowedOrigins),
		System:  handler.NewSystemHandler(pool, rdb, manager),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	answerWorker := worker.NewAnswerWorker(pool, rdb, log)
	statsWorker := worker.NewStatsWorker(pool, rdb, log)

	go answerWorker.Start(workerCtx)
	go statsWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all published quizzes into Redis BEFORE accepting traffic so
	// exam clients never lazy-load under a thundering herd.
	if err := quizService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
