package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/result-portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSummaryWriter struct {
	mock.Mock
}

func (m *mockSummaryWriter) BulkUpsert(ctx context.Context, batch []model.RoundSummary) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *mockSummaryWriter) Upsert(ctx context.Context, s model.RoundSummary) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func TestDedupeSummariesKeepsNewest(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	batch := []model.RoundSummary{
		{RoundID: "1", StudentID: "a", TotalScore: 200, ComputedAt: t0},
		{RoundID: "1", StudentID: "b", TotalScore: 250, ComputedAt: t0},
		{RoundID: "1", StudentID: "a", TotalScore: 210, ComputedAt: t0.Add(time.Second)},
		{RoundID: "2", StudentID: "a", TotalScore: 300, ComputedAt: t0},
		{RoundID: "1", StudentID: "a", TotalScore: 190, ComputedAt: t0.Add(-time.Second)},
	}

	got := dedupeSummaries(batch)

	assert.Len(t, got, 3)
	assert.Equal(t, 210, got[0].TotalScore)
	assert.Equal(t, "b", got[1].StudentID)
	assert.Equal(t, "2", got[2].RoundID)
}

func TestFlushSafeUsesBulkUpsert(t *testing.T) {
	store := new(mockSummaryWriter)
	w := NewSummaryWorker(store, nil, zerolog.Nop())
	batch := []model.RoundSummary{{RoundID: "1", StudentID: "a"}, {RoundID: "1", StudentID: "b"}}

	store.On("BulkUpsert", mock.Anything, batch).Return(nil).Once()

	w.flushSafe(context.Background(), batch)

	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestFlushSafeFallsBackToSingleUpserts(t *testing.T) {
	store := new(mockSummaryWriter)
	w := NewSummaryWorker(store, nil, zerolog.Nop())
	batch := []model.RoundSummary{{RoundID: "1", StudentID: "a"}, {RoundID: "1", StudentID: "b"}}

	store.On("BulkUpsert", mock.Anything, batch).Return(errors.New("deadlock detected")).Once()
	store.On("Upsert", mock.Anything, batch[0]).Return(nil).Once()
	store.On("Upsert", mock.Anything, batch[1]).Return(nil).Once()

	w.flushSafe(context.Background(), batch)

	store.AssertExpectations(t)
}

func TestFlushSafeIgnoresEmptyBatch(t *testing.T) {
	store := new(mockSummaryWriter)
	w := NewSummaryWorker(store, nil, zerolog.Nop())

	w.flushSafe(context.Background(), nil)

	store.AssertNotCalled(t, "BulkUpsert", mock.Anything, mock.Anything)
}

func TestFlushSafeFallbackWritesNewestOnly(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := model.RoundSummary{RoundID: "1", StudentID: "a", TotalScore: 330, ComputedAt: t0.Add(time.Second)}
	older := model.RoundSummary{RoundID: "1", StudentID: "a", TotalScore: 340, ComputedAt: t0}
	other := model.RoundSummary{RoundID: "1", StudentID: "b", TotalScore: 300, ComputedAt: t0}

	store := new(mockSummaryWriter)
	w := NewSummaryWorker(store, nil, zerolog.Nop())

	store.On("BulkUpsert", mock.Anything, []model.RoundSummary{newer, other}).Return(errors.New("deadlock detected")).Once()
	store.On("Upsert", mock.Anything, newer).Return(nil).Once()
	store.On("Upsert", mock.Anything, other).Return(nil).Once()

	w.flushSafe(context.Background(), []model.RoundSummary{newer, other, older})

	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Upsert", mock.Anything, older)
	store.AssertNumberOfCalls(t, "Upsert", 2)
}
