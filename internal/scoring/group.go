package scoring

import (
	"github.com/stemsi/result-portal/internal/model"
)

// GroupCutoff is the minimum group score, ceil(groupMax * 0.4).
func GroupCutoff(groupMax int) int {
	return ceilTenths(groupMax, 4)
}

// EvaluateGroups aggregates subject scores into their groups, in layout order,
// and applies each group's cutoff.
func (m *SubjectMap) EvaluateGroups(scores model.SubjectScores) []model.GroupVerdict {
	verdicts := make([]model.GroupVerdict, 0, len(m.layout.Groups))
	for _, g := range m.layout.Groups {
		v := model.GroupVerdict{Name: g.Name, Layout: g.Layout}
		for _, code := range g.Subjects {
			v.Score += scores[code]
			v.Max += m.maxima[code]
		}
		v.Cutoff = GroupCutoff(v.Max)
		v.Pass = v.Score >= v.Cutoff
		v.Rate = percentRounded(v.Score, v.Max)
		verdicts = append(verdicts, v)
	}
	return verdicts
}

// ceilTenths returns ceil(n * tenths / 10) for non-negative n.
func ceilTenths(n, tenths int) int {
	return (n*tenths + 9) / 10
}

// percentRounded returns round(part / whole * 100), halves rounded up.
func percentRounded(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return (part*200 + whole) / (2 * whole)
}
