package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/result-portal/internal/model"
	"github.com/stemsi/result-portal/internal/scoring"
	"golang.org/x/sync/errgroup"
)

// ResultOptions tunes the result service.
type ResultOptions struct {
	// FastPath reuses stored summaries instead of reconstructing scores.
	FastPath bool
	// RankMode is the population attached to every result.
	RankMode model.RankMode
}

// ResultService assembles round results for a student.
type ResultService struct {
	subjects  *scoring.SubjectMap
	sessions  SessionStore
	summaries SummaryStore
	queue     SummaryQueue
	ranking   *RankingService
	opts      ResultOptions
	log       zerolog.Logger
}

// NewResultService creates a new ResultService. summaries, queue and ranking are optional.
func NewResultService(
	subjects *scoring.SubjectMap,
	sessions SessionStore,
	summaries SummaryStore,
	queue SummaryQueue,
	ranking *RankingService,
	opts ResultOptions,
	log zerolog.Logger,
) *ResultService {
	if opts.RankMode == "" {
		opts.RankMode = model.RankModeValid
	}
	return &ResultService{
		subjects:  subjects,
		sessions:  sessions,
		summaries: summaries,
		queue:     queue,
		ranking:   ranking,
		opts:      opts,
		log:       log.With().Str("component", "result_service").Logger(),
	}
}

// Layout returns the exam layout results are computed against.
func (s *ResultService) Layout() *model.ExamLayout {
	return s.subjects.Layout()
}

// DiscoverRounds returns the results of every round the student has data for,
// in round order. Rounds without any record are omitted; rounds the store
// could not serve are returned with Available=false.
func (s *ResultService) DiscoverRounds(ctx context.Context, studentID string) ([]model.RoundResult, error) {
	rounds := s.subjects.Rounds()
	slots := make([]*model.RoundResult, len(rounds))

	var g errgroup.Group
	for i, round := range rounds {
		g.Go(func() error {
			res, err := s.roundResult(ctx, round, studentID)
			switch {
			case err == nil:
				slots[i] = res
			case errors.Is(err, ErrRoundNotFound):
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				s.log.Warn().Err(err).
					Str("round_id", round.ID).
					Str("student_id", studentID).
					Msg("Round unavailable")
				slots[i] = &model.RoundResult{
					RoundID:    round.ID,
					RoundLabel: round.Label,
					StudentID:  studentID,
					Available:  false,
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]model.RoundResult, 0, len(rounds))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results, nil
}

// GetRoundResult returns one round's result with the default rank attached.
func (s *ResultService) GetRoundResult(ctx context.Context, roundID, studentID string) (*model.RoundResult, error) {
	round, ok := s.subjects.Round(roundID)
	if !ok {
		return nil, ErrUnknownRound
	}
	return s.roundResult(ctx, round, studentID)
}

// GetRank ranks the student's round total within the population of mode.
func (s *ResultService) GetRank(ctx context.Context, roundID, studentID string, mode model.RankMode) (*model.Rank, error) {
	round, ok := s.subjects.Round(roundID)
	if !ok {
		return nil, ErrUnknownRound
	}
	if s.ranking == nil {
		return nil, errors.New("ranking is not configured")
	}

	records, err := s.fetchRecords(ctx, round.ID, studentID)
	if err != nil {
		return nil, err
	}
	res := s.evaluate(ctx, round, studentID, records)

	rank, err := s.ranking.RankStudent(ctx, round.ID, res.TotalScore, res.Attendance, mode)
	if err != nil {
		return nil, err
	}
	return &rank, nil
}

func (s *ResultService) roundResult(ctx context.Context, round model.Round, studentID string) (*model.RoundResult, error) {
	records, err := s.fetchRecords(ctx, round.ID, studentID)
	if err != nil {
		return nil, err
	}

	res := s.evaluate(ctx, round, studentID, records)

	if s.ranking != nil {
		rank, err := s.ranking.RankStudent(ctx, round.ID, res.TotalScore, res.Attendance, s.opts.RankMode)
		if err != nil {
			s.log.Warn().Err(err).Str("round_id", round.ID).Msg("Ranking failed, result returned without rank")
		} else {
			res.Rank = &rank
		}
	}
	return &res, nil
}

// fetchRecords loads all sessions of a round concurrently. It returns
// ErrRoundNotFound when none exists.
func (s *ResultService) fetchRecords(ctx context.Context, roundID, studentID string) (map[model.SessionID]*model.SessionRecord, error) {
	sessions := s.subjects.Sessions()
	found := make([]*model.SessionRecord, len(sessions))

	g, gctx := errgroup.WithContext(ctx)
	for i, sessionID := range sessions {
		g.Go(func() error {
			rec, err := s.sessions.Get(gctx, roundID, sessionID, studentID)
			if err != nil {
				return fmt.Errorf("session %s: %w", sessionID, err)
			}
			found[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: round %s: %w", ErrStoreUnavailable, roundID, err)
	}

	records := make(map[model.SessionID]*model.SessionRecord, len(sessions))
	for i, rec := range found {
		if rec != nil {
			records[sessions[i]] = rec
		}
	}
	if len(records) == 0 {
		return nil, ErrRoundNotFound
	}
	return records, nil
}

// evaluate produces the result from a stored summary when allowed, otherwise
// by reconstruction. Attendance always comes from records.
func (s *ResultService) evaluate(ctx context.Context, round model.Round, studentID string, records map[model.SessionID]*model.SessionRecord) model.RoundResult {
	if summary := s.loadSummary(ctx, round.ID, studentID, records); summary != nil {
		return s.subjects.Finish(round, studentID, summary.SubjectScores, summary.TotalScore, summary.Groups, records)
	}

	ev := s.subjects.Evaluate(round, studentID, records)
	for _, q := range ev.OutOfRange {
		s.log.Warn().
			Str("round_id", round.ID).
			Str("session_id", string(q.Session)).
			Str("student_id", studentID).
			Int("question", q.Question).
			Msg("Wrong answer outside every subject range, ignored")
	}

	s.writeBack(ctx, ev.Result, records)
	return ev.Result
}

func (s *ResultService) loadSummary(ctx context.Context, roundID, studentID string, records map[model.SessionID]*model.SessionRecord) *model.RoundSummary {
	if !s.opts.FastPath || s.summaries == nil {
		return nil
	}
	summary, err := s.summaries.Get(ctx, roundID, studentID)
	if err != nil {
		s.log.Warn().Err(err).Str("round_id", roundID).Msg("Summary lookup failed, reconstructing")
		return nil
	}
	// A summary from a different layout version is useless.
	if summary == nil || summary.TotalMax != s.subjects.TotalMax() || len(summary.Groups) != len(s.subjects.Groups()) {
		return nil
	}
	// So is one built from records other than the current ones.
	if summary.RecordsVersion != s.recordsVersion(records) {
		return nil
	}
	return summary
}

func (s *ResultService) writeBack(ctx context.Context, res model.RoundResult, records map[model.SessionID]*model.SessionRecord) {
	if s.queue == nil {
		return
	}
	err := s.queue.Enqueue(ctx, model.RoundSummary{
		RoundID:        res.RoundID,
		StudentID:      res.StudentID,
		SubjectScores:  res.SubjectScores,
		TotalScore:     res.TotalScore,
		TotalMax:       res.TotalMax,
		Groups:         res.Groups,
		ComputedAt:     newestUpdate(records),
		RecordsVersion: s.recordsVersion(records),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("round_id", res.RoundID).Msg("Summary write-back failed")
	}
}

// recordsVersion identifies the exact records a result is built from, one
// session@unix-nanos entry per session in layout order.
func (s *ResultService) recordsVersion(records map[model.SessionID]*model.SessionRecord) string {
	var b strings.Builder
	for i, id := range s.subjects.Sessions() {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(string(id))
		b.WriteByte('@')
		if rec := records[id]; rec != nil {
			b.WriteString(strconv.FormatInt(rec.UpdatedAt.UTC().UnixNano(), 10))
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

func newestUpdate(records map[model.SessionID]*model.SessionRecord) time.Time {
	var newest time.Time
	for _, rec := range records {
		if rec != nil && rec.UpdatedAt.After(newest) {
			newest = rec.UpdatedAt
		}
	}
	return newest.UTC()
}
