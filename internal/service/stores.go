package service

import (
	"context"

	"github.com/stemsi/result-portal/internal/model"
)

// SessionStore reads raw per-session records. A nil record with a nil error
// means the student has no record for that session.
type SessionStore interface {
	Get(ctx context.Context, roundID string, sessionID model.SessionID, studentID string) (*model.SessionRecord, error)
	ListBySession(ctx context.Context, roundID string, sessionID model.SessionID) ([]model.SessionRecord, error)
}

// SummaryStore reads precomputed summaries; nil, nil on a miss.
type SummaryStore interface {
	Get(ctx context.Context, roundID, studentID string) (*model.RoundSummary, error)
}

// SummaryQueue schedules a summary for write-back.
type SummaryQueue interface {
	Enqueue(ctx context.Context, s model.RoundSummary) error
}

// RoundNotifier tells other instances that a round was finalized or that
// one of its records changed.
type RoundNotifier interface {
	PublishFinalized(ctx context.Context, roundID string) error
	PublishChanged(ctx context.Context, roundID string) error
}

// RecordWriter stores raw session records.
type RecordWriter interface {
	Upsert(ctx context.Context, rec *model.SessionRecord) error
}

// SummaryPurger drops stored summaries.
type SummaryPurger interface {
	Delete(ctx context.Context, roundID, studentID string) error
	DeleteRound(ctx context.Context, roundID string) (int64, error)
}
