package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/result-portal/internal/cache"
	"github.com/stemsi/result-portal/internal/config"
	"github.com/stemsi/result-portal/internal/database"
	"github.com/stemsi/result-portal/internal/handler"
	"github.com/stemsi/result-portal/internal/logger"
	"github.com/stemsi/result-portal/internal/repository"
	"github.com/stemsi/result-portal/internal/router"
	"github.com/stemsi/result-portal/internal/scoring"
	"github.com/stemsi/result-portal/internal/service"
	"github.com/stemsi/result-portal/internal/validator"
	"github.com/stemsi/result-portal/internal/worker"
)

const prewarmTimeout = 30 * time.Second

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting result portal")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	// ─── Load Exam Layout ──────────────────────────────────────────────
	layout, err := config.LoadLayout(cfg.ExamLayoutPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load exam layout")
	}
	subjects, err := scoring.NewSubjectMap(layout)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid exam layout")
	}
	log.Info().
		Str("version", layout.Version).
		Int("subjects", len(layout.Subjects)).
		Int("rounds", len(layout.Rounds)).
		Int("total_max", subjects.TotalMax()).
		Msg("Exam layout loaded")

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
	recordRepo := repository.NewSessionRecordRepository(pool, cfg.StoreTimeout)
	summaryRepo := repository.NewSummaryRepository(pool, cfg.StoreTimeout)

	// ─── Background Context ────────────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	// ─── Population Cache ──────────────────────────────────────────────
	bus := cache.NewRoundEventBus(rdb, log)
	var populations cache.PopulationCache
	switch cfg.PopulationCache {
	case "memory":
		mem := cache.NewMemoryPopulationCache(cfg.PopulationCacheTTL)
		workers.Add(1)
		go func() {
			defer workers.Done()
			bus.Listen(workerCtx, mem)
		}()
		populations = mem
	default:
		populations = cache.NewRedisPopulationCache(rdb, cfg.PopulationCacheTTL)
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	rankingService := service.NewRankingService(subjects, recordRepo, populations, bus, summaryRepo, log)
	resultService := service.NewResultService(
		subjects,
		recordRepo,
		summaryRepo,
		worker.NewSummaryQueue(rdb),
		rankingService,
		service.ResultOptions{
			FastPath: cfg.SummaryFastPath,
			RankMode: scoring.ParseRankMode(cfg.RankMode),
		},
		log,
	)
	recordService := service.NewRecordService(subjects, recordRepo, summaryRepo, rankingService, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	defaultMode := scoring.ParseRankMode(cfg.RankMode)
	handlers := &router.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"postgres": pool.Ping,
			"redis":    database.RedisPing(rdb),
		}),
		Layout:     handler.NewLayoutHandler(layout),
		Result:     handler.NewResultHandler(resultService, defaultMode, log),
		AdminRound: handler.NewAdminRoundHandler(subjects, rankingService, recordService, defaultMode, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	summaryWorker := worker.NewSummaryWorker(summaryRepo, rdb, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		summaryWorker.Start(workerCtx)
	}()

	// ─── Prewarm Populations ──────────────────────────────────────────
	// Build every round population BEFORE accepting traffic so the first
	// wave of students does not rebuild it concurrently.
	prewarmCtx, prewarmCancel := context.WithTimeout(ctx, prewarmTimeout)
	rankingService.PrewarmPopulations(prewarmCtx)
	prewarmCancel()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(workerCtx, authService, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	// 2. Stop background workers and wait for the summary queue to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
