package scoring

import (
	"math/rand"
	"testing"

	"github.com/stemsi/result-portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconstruct(t *testing.T) {
	m := newTestMap(t)

	t.Run("no sessions keeps full marks", func(t *testing.T) {
		rec := m.Reconstruct("1", nil)
		assert.Equal(t, 340, rec.Total)
		assert.Empty(t, rec.OutOfRange)
	})

	t.Run("wrong answers decrement their subject", func(t *testing.T) {
		rec := m.Reconstruct("1", map[model.SessionID][]int{
			s1: {1, 2, 3},
			s2: {33, 81},
		})
		assert.Equal(t, 13, rec.Scores["LIV"])
		assert.Equal(t, 47, rec.Scores["ACU"])
		assert.Equal(t, 19, rec.Scores["LAW"])
		assert.Equal(t, 335, rec.Total)
	})

	t.Run("same numbers hit different subjects per round", func(t *testing.T) {
		wrong := map[model.SessionID][]int{s2: {1}}
		assert.Equal(t, 15, m.Reconstruct("1", wrong).Scores["SHL"])
		assert.Equal(t, 47, m.Reconstruct("3", wrong).Scores["ACU"])
	})

	t.Run("out of range numbers are reported and ignored", func(t *testing.T) {
		rec := m.Reconstruct("1", map[model.SessionID][]int{
			s1:      {0, 81, -4},
			"5교시": {1},
		})
		assert.Equal(t, 340, rec.Total)
		assert.Equal(t, []OutOfRangeQuestion{
			{Session: s1, Question: 0},
			{Session: s1, Question: 81},
			{Session: s1, Question: -4},
			{Session: "5교시", Question: 1},
		}, rec.OutOfRange)
	})

	t.Run("repeated numbers count once", func(t *testing.T) {
		rec := m.Reconstruct("1", map[model.SessionID][]int{s1: {5, 5, 5}})
		assert.Equal(t, 15, rec.Scores["LIV"])
	})

	t.Run("every question wrong floors at zero", func(t *testing.T) {
		rec := m.Reconstruct("1", map[model.SessionID][]int{
			s1: span(1, 80), s2: span(1, 100), s3: span(1, 80), s4: span(1, 80),
		})
		assert.Equal(t, 0, rec.Total)
		for code, v := range rec.Scores {
			assert.Zero(t, v, code)
		}
	})
}

func TestReconstructStaysInBounds(t *testing.T) {
	m := newTestMap(t)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		wrong := make(map[model.SessionID][]int)
		for _, s := range m.Sessions() {
			if rng.Intn(5) == 0 {
				continue
			}
			n := rng.Intn(150)
			for j := 0; j < n; j++ {
				wrong[s] = append(wrong[s], rng.Intn(130)-10)
			}
		}

		round := m.Rounds()[rng.Intn(len(m.Rounds()))].ID
		first := m.Reconstruct(round, wrong)
		second := m.Reconstruct(round, wrong)
		require.Equal(t, first, second, "reconstruction must be idempotent")

		sum := 0
		for _, subject := range m.Subjects() {
			v := first.Scores[subject.Code]
			require.GreaterOrEqual(t, v, 0)
			require.LessOrEqual(t, v, subject.Max)
			sum += v
		}
		require.Equal(t, sum, first.Total)
	}
}
