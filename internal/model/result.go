package model

import "time"

// AttendanceStatus classifies how many sessions of a round a student attended.
type AttendanceStatus string

const (
	AttendanceFull    AttendanceStatus = "full"
	AttendancePartial AttendanceStatus = "partial"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// ReasonCode explains a pass/fail verdict.
type ReasonCode string

const (
	ReasonPass          ReasonCode = "PASS"
	ReasonAbsent        ReasonCode = "ABSENT"
	ReasonDropout       ReasonCode = "DROPOUT"
	ReasonFailedBoth    ReasonCode = "FAILED_BOTH"
	ReasonFailedOverall ReasonCode = "FAILED_OVERALL"
	ReasonFailedGroup   ReasonCode = "FAILED_GROUP"
)

// RankMode selects which attendees are part of the ranking population.
type RankMode string

const (
	// RankModeValid ranks among fully attended students only.
	RankModeValid RankMode = "valid"
	// RankModeInclusive also ranks partial attendees.
	RankModeInclusive RankMode = "inclusive"
)

// SubjectScores maps a subject to its number of correct answers.
type SubjectScores map[SubjectCode]int

// SessionRecord is the raw per-session answer data of a student.
// A nil Responses map marks a legacy record that only carries wrong answers.
type SessionRecord struct {
	RoundID        string      `json:"round_id"`
	SessionID      SessionID   `json:"session_id"`
	StudentID      string      `json:"student_id"`
	Responses      map[int]int `json:"responses,omitempty"`
	WrongQuestions []int       `json:"wrong_questions"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// GroupVerdict is the pass/fail outcome of one subject group.
type GroupVerdict struct {
	Name   string `json:"name"`
	Layout string `json:"layout,omitempty"`
	Score  int    `json:"score"`
	Max    int    `json:"max"`
	Cutoff int    `json:"cutoff"`
	Rate   int    `json:"rate"`
	Pass   bool   `json:"pass"`
}

// Rank is a student's standing within a round population.
// Rank and Percentile are nil when the student cannot be ranked.
type Rank struct {
	Mode           RankMode `json:"mode"`
	Rank           *int     `json:"rank"`
	Percentile     *int     `json:"percentile"`
	PopulationSize int      `json:"population_size"`
}

// PopulationEntry is one student's total within a round population.
type PopulationEntry struct {
	StudentID  string           `json:"student_id"`
	Total      int              `json:"total"`
	Attendance AttendanceStatus `json:"attendance"`
}

// RoundResult is the derived result of one student for one round.
// It is computed per request and never authoritative.
type RoundResult struct {
	RoundID        string           `json:"round_id"`
	RoundLabel     string           `json:"round_label"`
	StudentID      string           `json:"student_id"`
	Available      bool             `json:"available"`
	SubjectScores  SubjectScores    `json:"subject_scores,omitempty"`
	TotalScore     int              `json:"total_score"`
	TotalMax       int              `json:"total_max"`
	Groups         []GroupVerdict   `json:"groups,omitempty"`
	Pass           bool             `json:"pass"`
	Reason         ReasonCode       `json:"reason,omitempty"`
	Attendance     AttendanceStatus `json:"attendance,omitempty"`
	MissedSessions []SessionID      `json:"missed_sessions,omitempty"`
	Rank           *Rank            `json:"rank,omitempty"`
}

// RoundSummary is the persisted fast-path snapshot of a reconstruction.
// Attendance is not stored; it is recomputed from raw records on every read.
//
// ComputedAt is the newest UpdatedAt of the records the summary was built
// from, and RecordsVersion lists every (session, updated_at) pair of them.
// A summary is only valid while RecordsVersion matches the current records.
type RoundSummary struct {
	RoundID        string         `json:"round_id"`
	StudentID      string         `json:"student_id"`
	SubjectScores  SubjectScores  `json:"subject_scores"`
	TotalScore     int            `json:"total_score"`
	TotalMax       int            `json:"total_max"`
	Groups         []GroupVerdict `json:"groups"`
	ComputedAt     time.Time      `json:"computed_at"`
	RecordsVersion string         `json:"records_version"`
}

// UpsertSessionRecordRequest is the payload for ingesting a raw session record.
type UpsertSessionRecordRequest struct {
	Responses      map[int]int `json:"responses" binding:"omitempty,dive,min=0,max=5"`
	WrongQuestions []int       `json:"wrong_questions" binding:"required,dive,min=1"`
}

// RankQuery selects the ranking population of a rank request.
type RankQuery struct {
	Mode RankMode `form:"mode" binding:"omitempty,oneof=valid inclusive"`
}

// RoundResultsQuery pages through the results of a round.
type RoundResultsQuery struct {
	Mode    RankMode `form:"mode" binding:"omitempty,oneof=valid inclusive"`
	Page    int      `form:"page" binding:"omitempty,min=1"`
	PerPage int      `form:"per_page" binding:"omitempty,min=1,max=500"`
}
