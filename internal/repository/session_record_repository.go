package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/result-portal/internal/model"
)

// SessionRecordRepository reads and writes raw per-session answer records.
type SessionRecordRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewSessionRecordRepository creates a new SessionRecordRepository.
// timeout bounds every single call; zero means no bound beyond ctx.
func NewSessionRecordRepository(pool *pgxpool.Pool, timeout time.Duration) *SessionRecordRepository {
	return &SessionRecordRepository{pool: pool, timeout: timeout}
}

// Get returns the record of one student for one session, or nil when the
// student has no record for it.
func (r *SessionRecordRepository) Get(ctx context.Context, roundID string, sessionID model.SessionID, studentID string) (*model.SessionRecord, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	row := r.pool.QueryRow(ctx,
		`SELECT round_id, session_id, student_id, responses, wrong_questions, updated_at
		 FROM session_records
		 WHERE round_id = $1 AND session_id = $2 AND student_id = $3`,
		roundID, string(sessionID), studentID,
	)

	rec, err := scanSessionRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session record: %w", err)
	}
	return rec, nil
}

// ListBySession returns every student's record for one session of a round.
func (r *SessionRecordRepository) ListBySession(ctx context.Context, roundID string, sessionID model.SessionID) ([]model.SessionRecord, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT round_id, session_id, student_id, responses, wrong_questions, updated_at
		 FROM session_records
		 WHERE round_id = $1 AND session_id = $2
		 ORDER BY student_id`,
		roundID, string(sessionID),
	)
	if err != nil {
		return nil, fmt.Errorf("list session records: %w", err)
	}
	defer rows.Close()

	var records []model.SessionRecord
	for rows.Next() {
		rec, err := scanSessionRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Upsert inserts or replaces a raw record.
func (r *SessionRecordRepository) Upsert(ctx context.Context, rec *model.SessionRecord) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var responses []byte
	if rec.Responses != nil {
		raw, err := json.Marshal(rec.Responses)
		if err != nil {
			return fmt.Errorf("encode responses: %w", err)
		}
		responses = raw
	}

	wrong := rec.WrongQuestions
	if wrong == nil {
		wrong = []int{}
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO session_records (round_id, session_id, student_id, responses, wrong_questions, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5, NOW())
		 ON CONFLICT (round_id, session_id, student_id)
		 DO UPDATE SET responses = EXCLUDED.responses,
		               wrong_questions = EXCLUDED.wrong_questions,
		               updated_at = EXCLUDED.updated_at
		 RETURNING updated_at`,
		rec.RoundID, string(rec.SessionID), rec.StudentID, responses, wrong,
	).Scan(&rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert session record: %w", err)
	}
	return nil
}

func scanSessionRecord(row pgx.Row) (*model.SessionRecord, error) {
	var (
		rec       model.SessionRecord
		sessionID string
		responses []byte
	)
	if err := row.Scan(&rec.RoundID, &sessionID, &rec.StudentID, &responses, &rec.WrongQuestions, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.SessionID = model.SessionID(sessionID)

	if responses != nil {
		if err := json.Unmarshal(responses, &rec.Responses); err != nil {
			return nil, fmt.Errorf("decode responses: %w", err)
		}
	}
	return &rec, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
