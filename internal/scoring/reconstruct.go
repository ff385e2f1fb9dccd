package scoring

import (
	"github.com/stemsi/result-portal/internal/model"
)

// OutOfRangeQuestion is a wrong-answer number that no subject range covers.
type OutOfRangeQuestion struct {
	Session  model.SessionID
	Question int
}

// Reconstruction is the outcome of rebuilding subject scores from wrong answers.
type Reconstruction struct {
	Scores     model.SubjectScores
	Total      int
	OutOfRange []OutOfRangeQuestion
}

// Reconstruct starts every subject at its maximum and takes one point off the
// owning subject for each wrong question. Scores never drop below zero.
//
// Sessions missing from wrongBySession cost nothing; repeated numbers within a
// session count once. Numbers that match no range are collected in OutOfRange
// and otherwise ignored.
func (m *SubjectMap) Reconstruct(roundID string, wrongBySession map[model.SessionID][]int) Reconstruction {
	scores := make(model.SubjectScores, len(m.maxima))
	for code, full := range m.maxima {
		scores[code] = full
	}

	var outOfRange []OutOfRangeQuestion

	// Layout order first so the result does not depend on map iteration.
	for _, session := range m.orderedSessions(wrongBySession) {
		seen := make(map[int]struct{}, len(wrongBySession[session]))
		for _, q := range wrongBySession[session] {
			if _, dup := seen[q]; dup {
				continue
			}
			seen[q] = struct{}{}

			code, ok := m.Lookup(roundID, session, q)
			if !ok {
				outOfRange = append(outOfRange, OutOfRangeQuestion{Session: session, Question: q})
				continue
			}
			if scores[code] > 0 {
				scores[code]--
			}
		}
	}

	total := 0
	for _, v := range scores {
		total += v
	}

	return Reconstruction{Scores: scores, Total: total, OutOfRange: outOfRange}
}

// orderedSessions lists the keys of input: known sessions in layout order, then unknown ones sorted.
func (m *SubjectMap) orderedSessions(input map[model.SessionID][]int) []model.SessionID {
	out := make([]model.SessionID, 0, len(input))
	for _, s := range m.sessions {
		if _, ok := input[s]; ok {
			out = append(out, s)
		}
	}
	var unknown []model.SessionID
	for s := range input {
		if !m.HasSession(s) {
			unknown = append(unknown, s)
		}
	}
	sortSessions(unknown)
	return append(out, unknown...)
}
