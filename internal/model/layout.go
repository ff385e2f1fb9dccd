package model

// SubjectCode identifies an examinable subject.
type SubjectCode string

// SessionID identifies one of the timed sessions of a round (e.g. "1교시").
type SessionID string

// Subject is a subject with its fixed maximum attainable score.
type Subject struct {
	Code SubjectCode `yaml:"code" json:"code"`
	Name string      `yaml:"name" json:"name"`
	Max  int         `yaml:"max" json:"max"`
}

// Group is a set of subjects sharing a combined minimum-score gate.
type Group struct {
	Name     string        `yaml:"name" json:"name"`
	Subjects []SubjectCode `yaml:"subjects" json:"subjects"`
	Layout   string        `yaml:"layout,omitempty" json:"layout,omitempty"`
}

// Session describes a timed sub-exam and its question count.
type Session struct {
	ID        SessionID `yaml:"id" json:"id"`
	Questions int       `yaml:"questions" json:"questions"`
}

// QuestionRange maps the inclusive question interval [From, To] of a session to a subject.
type QuestionRange struct {
	From    int         `yaml:"from" json:"from"`
	To      int         `yaml:"to" json:"to"`
	Subject SubjectCode `yaml:"subject" json:"subject"`
}

// Mapping is a named question-to-subject table, per session.
type Mapping struct {
	Name     string                        `yaml:"name" json:"name"`
	Sessions map[SessionID][]QuestionRange `yaml:"sessions" json:"sessions"`
}

// Round is one administration of the exam and the mapping table it was graded with.
type Round struct {
	ID      string `yaml:"id" json:"id"`
	Label   string `yaml:"label" json:"label"`
	Mapping string `yaml:"mapping" json:"mapping"`
}

// ExamLayout is the versioned, process-wide exam design loaded at startup.
type ExamLayout struct {
	Version  string    `yaml:"version" json:"version"`
	Subjects []Subject `yaml:"subjects" json:"subjects"`
	Groups   []Group   `yaml:"groups" json:"groups"`
	Sessions []Session `yaml:"sessions" json:"sessions"`
	Mappings []Mapping `yaml:"mappings" json:"-"`
	Rounds   []Round   `yaml:"rounds" json:"rounds"`
}
