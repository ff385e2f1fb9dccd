package scoring

import (
	"sort"

	"github.com/stemsi/result-portal/internal/model"
)

// Valid answer choices of a five-option question.
const (
	MinChoice = 1
	MaxChoice = 5
)

// Attended reports whether rec shows the student sat the session: the record
// exists and holds at least one valid choice. Legacy records without a
// responses map count on presence alone.
func Attended(rec *model.SessionRecord) bool {
	if rec == nil {
		return false
	}
	if rec.Responses == nil {
		return true
	}
	for _, choice := range rec.Responses {
		if choice >= MinChoice && choice <= MaxChoice {
			return true
		}
	}
	return false
}

// ClassifyAttendance counts attended sessions among sessions and returns the
// status plus the sessions that were not attended.
func ClassifyAttendance(records map[model.SessionID]*model.SessionRecord, sessions []model.SessionID) (model.AttendanceStatus, []model.SessionID) {
	attended := 0
	var missed []model.SessionID
	for _, s := range sessions {
		if Attended(records[s]) {
			attended++
			continue
		}
		missed = append(missed, s)
	}

	switch {
	case len(sessions) > 0 && attended == len(sessions):
		return model.AttendanceFull, nil
	case attended > 0:
		return model.AttendancePartial, missed
	default:
		return model.AttendanceAbsent, missed
	}
}

func sortSessions(ids []model.SessionID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
