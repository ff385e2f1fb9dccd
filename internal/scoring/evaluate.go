package scoring

import (
	"github.com/stemsi/result-portal/internal/model"
)

// Evaluation is a full round result together with the out-of-range numbers
// met while reconstructing it.
type Evaluation struct {
	Result     model.RoundResult
	OutOfRange []OutOfRangeQuestion
}

// Evaluate runs the whole pipeline for one student and round: reconstruction,
// group gates, attendance and the final verdict. records holds only the
// sessions that have a record.
func (m *SubjectMap) Evaluate(round model.Round, studentID string, records map[model.SessionID]*model.SessionRecord) Evaluation {
	wrong := make(map[model.SessionID][]int, len(records))
	for id, rec := range records {
		if rec != nil {
			wrong[id] = rec.WrongQuestions
		}
	}

	rec := m.Reconstruct(round.ID, wrong)
	groups := m.EvaluateGroups(rec.Scores)

	result := m.Finish(round, studentID, rec.Scores, rec.Total, groups, records)
	return Evaluation{Result: result, OutOfRange: rec.OutOfRange}
}

// Finish classifies attendance from records and applies the eligibility table
// to already reconstructed scores.
func (m *SubjectMap) Finish(round model.Round, studentID string, scores model.SubjectScores, total int, groups []model.GroupVerdict, records map[model.SessionID]*model.SessionRecord) model.RoundResult {
	attendance, missed := ClassifyAttendance(records, m.sessions)
	pass, reason := EvaluateEligibility(EligibilityInput{
		TotalScore: total,
		TotalMax:   m.totalMax,
		Groups:     groups,
		Attendance: attendance,
	})

	return model.RoundResult{
		RoundID:        round.ID,
		RoundLabel:     round.Label,
		StudentID:      studentID,
		Available:      true,
		SubjectScores:  scores,
		TotalScore:     total,
		TotalMax:       m.totalMax,
		Groups:         groups,
		Pass:           pass,
		Reason:         reason,
		Attendance:     attendance,
		MissedSessions: missed,
	}
}
