package scoring

import (
	"testing"

	"github.com/stemsi/result-portal/internal/config"
	"github.com/stemsi/result-portal/internal/model"
	"github.com/stretchr/testify/require"
)

const (
	s1 model.SessionID = "1교시"
	s2 model.SessionID = "2교시"
	s3 model.SessionID = "3교시"
	s4 model.SessionID = "4교시"
)

func newTestMap(t *testing.T) *SubjectMap {
	t.Helper()
	layout, err := config.LoadLayout("")
	require.NoError(t, err)
	m, err := NewSubjectMap(layout)
	require.NoError(t, err)
	return m
}

func mustRound(t *testing.T, m *SubjectMap, id string) model.Round {
	t.Helper()
	r, ok := m.Round(id)
	require.True(t, ok, "round %s", id)
	return r
}

// answered builds a record whose responses hold one valid choice.
func answered(session model.SessionID, wrong ...int) *model.SessionRecord {
	return &model.SessionRecord{
		SessionID:      session,
		Responses:      map[int]int{1: 3},
		WrongQuestions: wrong,
	}
}

func span(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for q := from; q <= to; q++ {
		out = append(out, q)
	}
	return out
}

func verdict(t *testing.T, groups []model.GroupVerdict, name string) model.GroupVerdict {
	t.Helper()
	for _, g := range groups {
		if g.Name == name {
			return g
		}
	}
	t.Fatalf("group %q not found", name)
	return model.GroupVerdict{}
}
