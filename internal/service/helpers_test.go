package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stemsi/result-portal/internal/config"
	"github.com/stemsi/result-portal/internal/model"
	"github.com/stemsi/result-portal/internal/scoring"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	s1 model.SessionID = "1교시"
	s2 model.SessionID = "2교시"
	s3 model.SessionID = "3교시"
	s4 model.SessionID = "4교시"
)

var allSessions = []model.SessionID{s1, s2, s3, s4}

func newTestMap(t *testing.T) *scoring.SubjectMap {
	t.Helper()
	layout, err := config.LoadLayout("")
	require.NoError(t, err)
	m, err := scoring.NewSubjectMap(layout)
	require.NoError(t, err)
	return m
}

// memorySessions is an in-memory SessionStore keyed by round, session and student.
type memorySessions struct {
	mu      sync.Mutex
	records map[string]*model.SessionRecord
	// failRound makes every call for that round fail.
	failRound string
	listed    int
}

func newMemorySessions() *memorySessions {
	return &memorySessions{records: make(map[string]*model.SessionRecord)}
}

func sessionKey(roundID string, sessionID model.SessionID, studentID string) string {
	return roundID + "|" + string(sessionID) + "|" + studentID
}

func (s *memorySessions) put(roundID, studentID string, sessionID model.SessionID, wrong ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wrong == nil {
		wrong = []int{}
	}
	s.records[sessionKey(roundID, sessionID, studentID)] = &model.SessionRecord{
		RoundID:        roundID,
		SessionID:      sessionID,
		StudentID:      studentID,
		Responses:      map[int]int{1: 2},
		WrongQuestions: wrong,
	}
}

// attendAll stores a record for every session of the round.
func (s *memorySessions) attendAll(roundID, studentID string, wrongInFirst ...int) {
	for i, sess := range allSessions {
		if i == 0 {
			s.put(roundID, studentID, sess, wrongInFirst...)
			continue
		}
		s.put(roundID, studentID, sess)
	}
}

func (s *memorySessions) Get(_ context.Context, roundID string, sessionID model.SessionID, studentID string) (*model.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if roundID == s.failRound {
		return nil, fmt.Errorf("connection refused")
	}
	rec, ok := s.records[sessionKey(roundID, sessionID, studentID)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *memorySessions) ListBySession(_ context.Context, roundID string, sessionID model.SessionID) ([]model.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if roundID == s.failRound {
		return nil, fmt.Errorf("connection refused")
	}
	s.listed++
	var out []model.SessionRecord
	for _, rec := range s.records {
		if rec.RoundID == roundID && rec.SessionID == sessionID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// snapshot returns the records of one student for a round, keyed by session.
func (s *memorySessions) snapshot(roundID, studentID string) map[model.SessionID]*model.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[model.SessionID]*model.SessionRecord)
	for _, sess := range allSessions {
		if rec, ok := s.records[sessionKey(roundID, sess, studentID)]; ok {
			cp := *rec
			out[sess] = &cp
		}
	}
	return out
}

func (s *memorySessions) listCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listed
}

type mockSummaryStore struct {
	mock.Mock
}

func (m *mockSummaryStore) Get(ctx context.Context, roundID, studentID string) (*model.RoundSummary, error) {
	args := m.Called(ctx, roundID, studentID)
	s, _ := args.Get(0).(*model.RoundSummary)
	return s, args.Error(1)
}

type mockSummaryQueue struct {
	mock.Mock
}

func (m *mockSummaryQueue) Enqueue(ctx context.Context, s model.RoundSummary) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) PublishFinalized(ctx context.Context, roundID string) error {
	args := m.Called(ctx, roundID)
	return args.Error(0)
}

func (m *mockNotifier) PublishChanged(ctx context.Context, roundID string) error {
	args := m.Called(ctx, roundID)
	return args.Error(0)
}

type mockPurger struct {
	mock.Mock
}

func (m *mockPurger) Delete(ctx context.Context, roundID, studentID string) error {
	args := m.Called(ctx, roundID, studentID)
	return args.Error(0)
}

func (m *mockPurger) DeleteRound(ctx context.Context, roundID string) (int64, error) {
	args := m.Called(ctx, roundID)
	return args.Get(0).(int64), args.Error(1)
}

type mockRecordWriter struct {
	mock.Mock
}

func (m *mockRecordWriter) Upsert(ctx context.Context, rec *model.SessionRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}
