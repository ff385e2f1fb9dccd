package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/result-portal/internal/cache"
	"github.com/stemsi/result-portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPopulationIsCached(t *testing.T) {
	sessions := newMemorySessions()
	sessions.attendAll("1", "S1")
	sessions.attendAll("1", "S2", 1)
	svc := NewRankingService(newTestMap(t), sessions, cache.NewMemoryPopulationCache(time.Minute), nil, nil, zerolog.Nop())

	first, err := svc.Population(context.Background(), "1")
	require.NoError(t, err)
	calls := sessions.listCalls()

	second, err := svc.Population(context.Background(), "1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, calls, sessions.listCalls())
	assert.Equal(t, []model.PopulationEntry{
		{StudentID: "S1", Total: 340, Attendance: model.AttendanceFull},
		{StudentID: "S2", Total: 339, Attendance: model.AttendanceFull},
	}, first)
}

func TestPopulationUnknownRound(t *testing.T) {
	svc := NewRankingService(newTestMap(t), newMemorySessions(), cache.NewMemoryPopulationCache(0), nil, nil, zerolog.Nop())

	_, err := svc.Population(context.Background(), "x")

	assert.ErrorIs(t, err, ErrUnknownRound)
}

func TestRankStudentAbsentIsNeverRanked(t *testing.T) {
	sessions := newMemorySessions()
	sessions.attendAll("1", "S1")
	svc := NewRankingService(newTestMap(t), sessions, cache.NewMemoryPopulationCache(0), nil, nil, zerolog.Nop())

	rank, err := svc.RankStudent(context.Background(), "1", 0, model.AttendanceAbsent, model.RankModeInclusive)

	require.NoError(t, err)
	assert.Nil(t, rank.Rank)
	assert.Nil(t, rank.Percentile)
	assert.Equal(t, 1, rank.PopulationSize)
}

func TestRankStudentEmptyPopulation(t *testing.T) {
	sessions := newMemorySessions()
	sessions.put("1", "S1", s1)
	svc := NewRankingService(newTestMap(t), sessions, cache.NewMemoryPopulationCache(0), nil, nil, zerolog.Nop())

	rank, err := svc.RankStudent(context.Background(), "1", 80, model.AttendancePartial, model.RankModeValid)

	require.NoError(t, err)
	assert.Nil(t, rank.Rank)
	assert.Equal(t, 0, rank.PopulationSize)
}

func TestRoundResultsRanksEveryone(t *testing.T) {
	sessions := newMemorySessions()
	sessions.attendAll("1", "S2", 1, 2)
	sessions.attendAll("1", "S1")
	sessions.put("1", "S3", s1)
	svc := NewRankingService(newTestMap(t), sessions, cache.NewMemoryPopulationCache(0), nil, nil, zerolog.Nop())

	results, err := svc.RoundResults(context.Background(), "1", model.RankModeValid)

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "S1", results[0].StudentID)
	assert.Equal(t, 1, *results[0].Rank.Rank)
	assert.Equal(t, "S2", results[1].StudentID)
	assert.Equal(t, 2, *results[1].Rank.Rank)
	assert.Equal(t, 100, *results[1].Rank.Percentile)
	assert.Equal(t, "S3", results[2].StudentID)
	assert.Nil(t, results[2].Rank.Rank)
	assert.Equal(t, model.ReasonDropout, results[2].Reason)
}

func TestRoundResultsStoreFailure(t *testing.T) {
	sessions := newMemorySessions()
	sessions.failRound = "1"
	svc := NewRankingService(newTestMap(t), sessions, cache.NewMemoryPopulationCache(0), nil, nil, zerolog.Nop())

	_, err := svc.RoundResults(context.Background(), "1", model.RankModeValid)

	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestFinalizeRoundRebuildsPopulation(t *testing.T) {
	sessions := newMemorySessions()
	sessions.attendAll("1", "S1")
	populations := cache.NewMemoryPopulationCache(0)
	notifier := new(mockNotifier)
	notifier.On("PublishFinalized", mock.Anything, "1").Return(errors.New("redis down")).Once()
	purger := new(mockPurger)
	purger.On("DeleteRound", mock.Anything, "1").Return(int64(4), nil).Once()

	svc := NewRankingService(newTestMap(t), sessions, populations, notifier, purger, zerolog.Nop())

	_, err := svc.Population(context.Background(), "1")
	require.NoError(t, err)

	// A late record must show up after finalization.
	sessions.attendAll("1", "S2")

	size, err := svc.FinalizeRound(context.Background(), "1")

	require.NoError(t, err)
	assert.Equal(t, 2, size)
	notifier.AssertExpectations(t)
	purger.AssertExpectations(t)

	cached, hit, err := populations.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, cached, 2)
}

func TestFinalizeRoundPurgeFailure(t *testing.T) {
	purger := new(mockPurger)
	purger.On("DeleteRound", mock.Anything, "1").Return(int64(0), errors.New("timeout"))
	svc := NewRankingService(newTestMap(t), newMemorySessions(), cache.NewMemoryPopulationCache(0), nil, purger, zerolog.Nop())

	_, err := svc.FinalizeRound(context.Background(), "1")

	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestInvalidateRoundSurvivesBroadcastFailure(t *testing.T) {
	populations := cache.NewMemoryPopulationCache(0)
	require.NoError(t, populations.Set(context.Background(), "1", []model.PopulationEntry{{StudentID: "S1"}}))
	notifier := new(mockNotifier)
	notifier.On("PublishChanged", mock.Anything, "1").Return(errors.New("redis down")).Once()

	svc := NewRankingService(newTestMap(t), newMemorySessions(), populations, notifier, nil, zerolog.Nop())
	svc.InvalidateRound(context.Background(), "1")

	_, hit, err := populations.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, hit)
	notifier.AssertExpectations(t)
}
