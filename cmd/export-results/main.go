package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/result-portal/internal/cache"
	"github.com/stemsi/result-portal/internal/config"
	"github.com/stemsi/result-portal/internal/database"
	"github.com/stemsi/result-portal/internal/export"
	"github.com/stemsi/result-portal/internal/logger"
	"github.com/stemsi/result-portal/internal/repository"
	"github.com/stemsi/result-portal/internal/scoring"
	"github.com/stemsi/result-portal/internal/service"
)

func main() {
	var (
		roundID string
		mode    string
		out     string
		timeout time.Duration
	)
	flag.StringVar(&roundID, "round", "", "Round id to export (required)")
	flag.StringVar(&mode, "mode", "", "Ranking population: valid or inclusive (default RANK_MODE)")
	flag.StringVar(&out, "out", "", "Output file (default round-<id>-results.xlsx)")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Overall time limit")
	flag.Parse()

	if roundID == "" {
		flag.Usage()
		os.Exit(2)
	}
	if out == "" {
		out = fmt.Sprintf("round-%s-results.xlsx", roundID)
	}

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if mode == "" {
		mode = cfg.RankMode
	}

	layout, err := config.LoadLayout(cfg.ExamLayoutPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load exam layout")
	}
	subjects, err := scoring.NewSubjectMap(layout)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid exam layout")
	}
	round, ok := subjects.Round(roundID)
	if !ok {
		log.Fatal().Str("round_id", roundID).Msg("Unknown round")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// A one-shot export has no use for a shared population cache.
	ranking := service.NewRankingService(
		subjects,
		repository.NewSessionRecordRepository(pool, cfg.StoreTimeout),
		cache.NewMemoryPopulationCache(0),
		nil,
		nil,
		log,
	)

	results, err := ranking.RoundResults(ctx, round.ID, scoring.ParseRankMode(mode))
	if err != nil {
		log.Fatal().Err(err).Str("round_id", round.ID).Msg("Failed to evaluate round")
	}

	f, err := os.Create(out)
	if err != nil {
		log.Fatal().Err(err).Str("path", out).Msg("Failed to create output file")
	}
	if err := export.WriteRoundResults(f, layout, round, results); err != nil {
		_ = f.Close()
		log.Fatal().Err(err).Msg("Failed to write workbook")
	}
	if err := f.Close(); err != nil {
		log.Fatal().Err(err).Msg("Failed to close output file")
	}

	log.Info().
		Str("round_id", round.ID).
		Int("students", len(results)).
		Str("path", out).
		Msg("Results exported")
}
