package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/result-portal/internal/model"
	"github.com/stemsi/result-portal/internal/scoring"
)

// RecordService ingests raw session records and drops whatever was derived
// from the previous version of a record.
type RecordService struct {
	subjects *scoring.SubjectMap
	records  RecordWriter
	purger   SummaryPurger
	ranking  *RankingService
	log      zerolog.Logger
	now      func() time.Time
}

// NewRecordService creates a new RecordService. purger and ranking are optional.
func NewRecordService(subjects *scoring.SubjectMap, records RecordWriter, purger SummaryPurger, ranking *RankingService, log zerolog.Logger) *RecordService {
	return &RecordService{
		subjects: subjects,
		records:  records,
		purger:   purger,
		ranking:  ranking,
		log:      log.With().Str("component", "record_service").Logger(),
		now:      time.Now,
	}
}

// UpsertRecord stores the record of one student for one session of a round.
func (s *RecordService) UpsertRecord(ctx context.Context, roundID string, sessionID model.SessionID, studentID string, req *model.UpsertSessionRecordRequest) (*model.SessionRecord, error) {
	if _, ok := s.subjects.Round(roundID); !ok {
		return nil, ErrUnknownRound
	}
	if !s.subjects.HasSession(sessionID) {
		return nil, ErrUnknownSession
	}

	rec := &model.SessionRecord{
		RoundID:        roundID,
		SessionID:      sessionID,
		StudentID:      studentID,
		Responses:      req.Responses,
		WrongQuestions: req.WrongQuestions,
		UpdatedAt:      s.now().UTC(),
	}
	if rec.WrongQuestions == nil {
		rec.WrongQuestions = []int{}
	}

	if err := s.records.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: upsert record: %w", ErrStoreUnavailable, err)
	}

	if s.purger != nil {
		if err := s.purger.Delete(ctx, roundID, studentID); err != nil {
			s.log.Warn().Err(err).
				Str("round_id", roundID).
				Str("student_id", studentID).
				Msg("Stale summary not purged")
		}
	}
	if s.ranking != nil {
		s.ranking.InvalidateRound(ctx, roundID)
	}

	s.log.Info().
		Str("round_id", roundID).
		Str("session_id", string(sessionID)).
		Str("student_id", studentID).
		Int("wrong", len(rec.WrongQuestions)).
		Msg("Session record stored")
	return rec, nil
}
