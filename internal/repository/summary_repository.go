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

// SummaryRepository stores precomputed round summaries. Summaries are a cache
// of reconstructions and are never authoritative.
type SummaryRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewSummaryRepository creates a new SummaryRepository.
func NewSummaryRepository(pool *pgxpool.Pool, timeout time.Duration) *SummaryRepository {
	return &SummaryRepository{pool: pool, timeout: timeout}
}

// Get returns the stored summary, or nil when none exists.
func (r *SummaryRepository) Get(ctx context.Context, roundID, studentID string) (*model.RoundSummary, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var payload []byte
	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM round_summaries WHERE round_id = $1 AND student_id = $2`,
		roundID, studentID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}

	var s model.RoundSummary
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &s, nil
}

// BulkUpsert writes a batch of summaries in one statement using UNNEST.
func (r *SummaryRepository) BulkUpsert(ctx context.Context, batch []model.RoundSummary) error {
	if len(batch) == 0 {
		return nil
	}
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	n := len(batch)
	rounds := make([]string, 0, n)
	students := make([]string, 0, n)
	payloads := make([]string, 0, n)
	computedAts := make([]time.Time, 0, n)

	for _, s := range batch {
		raw, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		rounds = append(rounds, s.RoundID)
		students = append(students, s.StudentID)
		payloads = append(payloads, string(raw))
		computedAts = append(computedAts, s.ComputedAt)
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO round_summaries (round_id, student_id, payload, computed_at)
		SELECT u.round_id, u.student_id, u.payload, u.computed_at
		FROM UNNEST(
			$1::varchar[],
			$2::varchar[],
			$3::jsonb[],
			$4::timestamptz[]
		) AS u (round_id, student_id, payload, computed_at)
		ON CONFLICT (round_id, student_id)
		DO UPDATE SET payload = EXCLUDED.payload,
		              computed_at = EXCLUDED.computed_at
		WHERE round_summaries.computed_at <= EXCLUDED.computed_at`,
		rounds, students, payloads, computedAts,
	)
	if err != nil {
		return fmt.Errorf("bulk upsert summaries: %w", err)
	}
	return nil
}

// Upsert writes one summary unless a newer one is already stored.
func (r *SummaryRepository) Upsert(ctx context.Context, s model.RoundSummary) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO round_summaries (round_id, student_id, payload, computed_at)
		 VALUES ($1, $2, $3::jsonb, $4)
		 ON CONFLICT (round_id, student_id)
		 DO UPDATE SET payload = EXCLUDED.payload, computed_at = EXCLUDED.computed_at
		 WHERE round_summaries.computed_at <= EXCLUDED.computed_at`,
		s.RoundID, s.StudentID, string(raw), s.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

// Delete drops the summary of one student, e.g. after their raw records changed.
func (r *SummaryRepository) Delete(ctx context.Context, roundID, studentID string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.pool.Exec(ctx,
		`DELETE FROM round_summaries WHERE round_id = $1 AND student_id = $2`,
		roundID, studentID,
	); err != nil {
		return fmt.Errorf("delete summary: %w", err)
	}
	return nil
}

// DeleteRound drops every summary of a round.
func (r *SummaryRepository) DeleteRound(ctx context.Context, roundID string) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM round_summaries WHERE round_id = $1`, roundID)
	if err != nil {
		return 0, fmt.Errorf("delete round summaries: %w", err)
	}
	return tag.RowsAffected(), nil
}
