// Package scoring reconstructs exam results from raw per-session answer data.
//
// Everything in this package is pure: a SubjectMap is built once from the exam
// layout and is safe for concurrent use by any number of requests.
package scoring

import (
	"errors"
	"fmt"
	"sort"

	"github.com/stemsi/result-portal/internal/model"
)

// ErrInvalidLayout is returned when an exam layout fails validation.
var ErrInvalidLayout = errors.New("invalid exam layout")

// SubjectMap is the compiled, immutable form of an exam layout.
type SubjectMap struct {
	layout   *model.ExamLayout
	maxima   map[model.SubjectCode]int
	sessions []model.SessionID
	rounds   map[string]model.Round
	tables   map[string]map[model.SessionID][]model.QuestionRange
	totalMax int
}

// NewSubjectMap validates layout and compiles it for lookups.
func NewSubjectMap(layout *model.ExamLayout) (*SubjectMap, error) {
	if layout == nil {
		return nil, fmt.Errorf("%w: nil layout", ErrInvalidLayout)
	}

	m := &SubjectMap{
		layout: layout,
		maxima: make(map[model.SubjectCode]int, len(layout.Subjects)),
		rounds: make(map[string]model.Round, len(layout.Rounds)),
		tables: make(map[string]map[model.SessionID][]model.QuestionRange, len(layout.Mappings)),
	}

	for _, s := range layout.Subjects {
		if s.Code == "" || s.Max <= 0 {
			return nil, fmt.Errorf("%w: subject %q needs a code and a positive max", ErrInvalidLayout, s.Code)
		}
		if _, dup := m.maxima[s.Code]; dup {
			return nil, fmt.Errorf("%w: duplicate subject %q", ErrInvalidLayout, s.Code)
		}
		m.maxima[s.Code] = s.Max
		m.totalMax += s.Max
	}

	if err := m.validateGroups(); err != nil {
		return nil, err
	}

	questions := make(map[model.SessionID]int, len(layout.Sessions))
	for _, s := range layout.Sessions {
		if _, dup := questions[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate session %q", ErrInvalidLayout, s.ID)
		}
		questions[s.ID] = s.Questions
		m.sessions = append(m.sessions, s.ID)
	}

	for _, mp := range layout.Mappings {
		table, err := m.compileMapping(mp, questions)
		if err != nil {
			return nil, err
		}
		m.tables[mp.Name] = table
	}

	for _, r := range layout.Rounds {
		if _, dup := m.rounds[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate round %q", ErrInvalidLayout, r.ID)
		}
		if _, ok := m.tables[r.Mapping]; !ok {
			return nil, fmt.Errorf("%w: round %q references unknown mapping %q", ErrInvalidLayout, r.ID, r.Mapping)
		}
		m.rounds[r.ID] = r
	}

	return m, nil
}

// validateGroups checks that groups partition the subject set.
func (m *SubjectMap) validateGroups() error {
	seen := make(map[model.SubjectCode]string, len(m.maxima))
	for _, g := range m.layout.Groups {
		if len(g.Subjects) == 0 {
			return fmt.Errorf("%w: group %q has no subjects", ErrInvalidLayout, g.Name)
		}
		for _, code := range g.Subjects {
			if _, ok := m.maxima[code]; !ok {
				return fmt.Errorf("%w: group %q references unknown subject %q", ErrInvalidLayout, g.Name, code)
			}
			if other, dup := seen[code]; dup {
				return fmt.Errorf("%w: subject %q is in groups %q and %q", ErrInvalidLayout, code, other, g.Name)
			}
			seen[code] = g.Name
		}
	}
	if len(seen) != len(m.maxima) {
		for code := range m.maxima {
			if _, ok := seen[code]; !ok {
				return fmt.Errorf("%w: subject %q belongs to no group", ErrInvalidLayout, code)
			}
		}
	}
	return nil
}

func (m *SubjectMap) compileMapping(mp model.Mapping, questions map[model.SessionID]int) (map[model.SessionID][]model.QuestionRange, error) {
	table := make(map[model.SessionID][]model.QuestionRange, len(mp.Sessions))
	covered := make(map[model.SubjectCode]int, len(m.maxima))

	for session, ranges := range mp.Sessions {
		count, ok := questions[session]
		if !ok {
			return nil, fmt.Errorf("%w: mapping %q references unknown session %q", ErrInvalidLayout, mp.Name, session)
		}

		sorted := append([]model.QuestionRange(nil), ranges...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })

		for i, r := range sorted {
			if r.From < 1 || r.To < r.From || r.To > count {
				return nil, fmt.Errorf("%w: mapping %q session %q range %d-%d outside 1-%d",
					ErrInvalidLayout, mp.Name, session, r.From, r.To, count)
			}
			if i > 0 && r.From <= sorted[i-1].To {
				return nil, fmt.Errorf("%w: mapping %q session %q ranges overlap at %d",
					ErrInvalidLayout, mp.Name, session, r.From)
			}
			if _, ok := m.maxima[r.Subject]; !ok {
				return nil, fmt.Errorf("%w: mapping %q references unknown subject %q", ErrInvalidLayout, mp.Name, r.Subject)
			}
			covered[r.Subject] += r.To - r.From + 1
		}
		table[session] = sorted
	}

	for code, want := range m.maxima {
		if covered[code] != want {
			return nil, fmt.Errorf("%w: mapping %q covers %d questions of %q, want %d",
				ErrInvalidLayout, mp.Name, covered[code], code, want)
		}
	}
	return table, nil
}

// Lookup returns the subject that question belongs to in the given round and session.
func (m *SubjectMap) Lookup(roundID string, session model.SessionID, question int) (model.SubjectCode, bool) {
	round, ok := m.rounds[roundID]
	if !ok {
		return "", false
	}
	for _, r := range m.tables[round.Mapping][session] {
		if question < r.From {
			break
		}
		if question <= r.To {
			return r.Subject, true
		}
	}
	return "", false
}

// Layout returns the layout the map was compiled from.
func (m *SubjectMap) Layout() *model.ExamLayout { return m.layout }

// Subjects returns the subjects in layout order.
func (m *SubjectMap) Subjects() []model.Subject { return m.layout.Subjects }

// Groups returns the subject groups in layout order.
func (m *SubjectMap) Groups() []model.Group { return m.layout.Groups }

// Rounds returns the rounds in their fixed order.
func (m *SubjectMap) Rounds() []model.Round { return m.layout.Rounds }

// Round looks up a round by id.
func (m *SubjectMap) Round(id string) (model.Round, bool) {
	r, ok := m.rounds[id]
	return r, ok
}

// Sessions returns the session ids in layout order.
func (m *SubjectMap) Sessions() []model.SessionID { return m.sessions }

// HasSession reports whether id is a session of the exam.
func (m *SubjectMap) HasSession(id model.SessionID) bool {
	for _, s := range m.sessions {
		if s == id {
			return true
		}
	}
	return false
}

// SubjectMax returns the maximum attainable score of a subject, 0 if unknown.
func (m *SubjectMap) SubjectMax(code model.SubjectCode) int { return m.maxima[code] }

// TotalMax is the sum of all subject maxima.
func (m *SubjectMap) TotalMax() int { return m.totalMax }
