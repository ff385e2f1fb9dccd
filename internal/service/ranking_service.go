package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/stemsi/result-portal/internal/cache"
	"github.com/stemsi/result-portal/internal/model"
	"github.com/stemsi/result-portal/internal/scoring"
	"golang.org/x/sync/errgroup"
)

// RankingService owns round populations: building them from raw records,
// caching them and ranking students against them.
type RankingService struct {
	subjects *scoring.SubjectMap
	sessions SessionStore
	cache    cache.PopulationCache
	notifier RoundNotifier
	purger   SummaryPurger
	log      zerolog.Logger
}

// NewRankingService creates a new RankingService. notifier and purger are optional.
func NewRankingService(
	subjects *scoring.SubjectMap,
	sessions SessionStore,
	populations cache.PopulationCache,
	notifier RoundNotifier,
	purger SummaryPurger,
	log zerolog.Logger,
) *RankingService {
	return &RankingService{
		subjects: subjects,
		sessions: sessions,
		cache:    populations,
		notifier: notifier,
		purger:   purger,
		log:      log.With().Str("component", "ranking_service").Logger(),
	}
}

// Population returns every student of the round with a total and attendance,
// served from cache when possible.
func (s *RankingService) Population(ctx context.Context, roundID string) ([]model.PopulationEntry, error) {
	round, ok := s.subjects.Round(roundID)
	if !ok {
		return nil, ErrUnknownRound
	}

	entries, hit, err := s.cache.Get(ctx, round.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("round_id", round.ID).Msg("Population cache read failed, rebuilding")
	}
	if hit {
		return entries, nil
	}

	results, err := s.evaluateAll(ctx, round)
	if err != nil {
		return nil, err
	}
	entries = populationOf(results)
	s.store(ctx, round.ID, entries)
	return entries, nil
}

// RankStudent ranks a total within the round population of mode. A student
// outside the population still gets the population size, with nil rank.
func (s *RankingService) RankStudent(ctx context.Context, roundID string, total int, attendance model.AttendanceStatus, mode model.RankMode) (model.Rank, error) {
	population, err := s.Population(ctx, roundID)
	if err != nil {
		return model.Rank{Mode: mode}, err
	}

	rank := scoring.Rank(population, total, mode)
	if !scoring.Rankable(mode, attendance) {
		rank.Rank = nil
		rank.Percentile = nil
	}
	return rank, nil
}

// RoundResults evaluates every student of a round, ranked in mode, ordered by
// student id. It refreshes the cached population as a side effect.
func (s *RankingService) RoundResults(ctx context.Context, roundID string, mode model.RankMode) ([]model.RoundResult, error) {
	round, ok := s.subjects.Round(roundID)
	if !ok {
		return nil, ErrUnknownRound
	}

	results, err := s.evaluateAll(ctx, round)
	if err != nil {
		return nil, err
	}
	population := populationOf(results)
	s.store(ctx, round.ID, population)

	for i := range results {
		rank := scoring.Rank(population, results[i].TotalScore, mode)
		if !scoring.Rankable(mode, results[i].Attendance) {
			rank.Rank = nil
			rank.Percentile = nil
		}
		results[i].Rank = &rank
	}
	return results, nil
}

// FinalizeRound drops every cached artefact of a round, tells the other
// instances about it and rebuilds the population. It returns the new
// population size.
func (s *RankingService) FinalizeRound(ctx context.Context, roundID string) (int, error) {
	round, ok := s.subjects.Round(roundID)
	if !ok {
		return 0, ErrUnknownRound
	}

	if err := s.cache.Invalidate(ctx, round.ID); err != nil {
		return 0, fmt.Errorf("invalidate population: %w", err)
	}
	if s.purger != nil {
		purged, err := s.purger.DeleteRound(ctx, round.ID)
		if err != nil {
			return 0, fmt.Errorf("%w: purge summaries: %w", ErrStoreUnavailable, err)
		}
		s.log.Info().Str("round_id", round.ID).Int64("purged", purged).Msg("Stored summaries purged")
	}
	if s.notifier != nil {
		if err := s.notifier.PublishFinalized(ctx, round.ID); err != nil {
			s.log.Warn().Err(err).Str("round_id", round.ID).Msg("Finalization broadcast failed")
		}
	}

	population, err := s.Population(ctx, round.ID)
	if err != nil {
		return 0, err
	}
	s.log.Info().Str("round_id", round.ID).Int("population", len(population)).Msg("Round finalized")
	return len(population), nil
}

// InvalidateRound drops the cached population of a round after its records
// changed, here and on every other instance.
func (s *RankingService) InvalidateRound(ctx context.Context, roundID string) {
	if err := s.cache.Invalidate(ctx, roundID); err != nil {
		s.log.Warn().Err(err).Str("round_id", roundID).Msg("Invalidate population failed")
	}
	if s.notifier != nil {
		if err := s.notifier.PublishChanged(ctx, roundID); err != nil {
			s.log.Warn().Err(err).Str("round_id", roundID).Msg("Round change broadcast failed")
		}
	}
}

// PrewarmPopulations builds the population of every round so that the first
// student requests hit the cache.
func (s *RankingService) PrewarmPopulations(ctx context.Context) {
	for _, round := range s.subjects.Rounds() {
		population, err := s.Population(ctx, round.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("round_id", round.ID).Msg("Population prewarm failed")
			continue
		}
		s.log.Info().Str("round_id", round.ID).Int("population", len(population)).Msg("Population prewarmed")
	}
}

func (s *RankingService) store(ctx context.Context, roundID string, entries []model.PopulationEntry) {
	if err := s.cache.Set(ctx, roundID, entries); err != nil {
		s.log.Warn().Err(err).Str("round_id", roundID).Msg("Population cache write failed")
	}
}

// evaluateAll loads every session of a round and evaluates each student who
// has at least one record.
func (s *RankingService) evaluateAll(ctx context.Context, round model.Round) ([]model.RoundResult, error) {
	sessions := s.subjects.Sessions()
	lists := make([][]model.SessionRecord, len(sessions))

	g, gctx := errgroup.WithContext(ctx)
	for i, sessionID := range sessions {
		g.Go(func() error {
			recs, err := s.sessions.ListBySession(gctx, round.ID, sessionID)
			if err != nil {
				return fmt.Errorf("session %s: %w", sessionID, err)
			}
			lists[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: round %s: %w", ErrStoreUnavailable, round.ID, err)
	}

	byStudent := make(map[string]map[model.SessionID]*model.SessionRecord)
	for i, recs := range lists {
		for j := range recs {
			rec := &recs[j]
			if byStudent[rec.StudentID] == nil {
				byStudent[rec.StudentID] = make(map[model.SessionID]*model.SessionRecord, len(sessions))
			}
			byStudent[rec.StudentID][sessions[i]] = rec
		}
	}

	ids := make([]string, 0, len(byStudent))
	for id := range byStudent {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := make([]model.RoundResult, 0, len(ids))
	for _, id := range ids {
		ev := s.subjects.Evaluate(round, id, byStudent[id])
		if len(ev.OutOfRange) > 0 {
			s.log.Warn().
				Str("round_id", round.ID).
				Str("student_id", id).
				Int("count", len(ev.OutOfRange)).
				Msg("Wrong answers outside every subject range, ignored")
		}
		results = append(results, ev.Result)
	}
	return results, nil
}

func populationOf(results []model.RoundResult) []model.PopulationEntry {
	entries := make([]model.PopulationEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, model.PopulationEntry{
			StudentID:  r.StudentID,
			Total:      r.TotalScore,
			Attendance: r.Attendance,
		})
	}
	return entries
}
