package scoring

import (
	"github.com/stemsi/result-portal/internal/model"
)

// ParseRankMode maps a config or query value to a RankMode, falling back to valid.
func ParseRankMode(s string) model.RankMode {
	if model.RankMode(s) == model.RankModeInclusive {
		return model.RankModeInclusive
	}
	return model.RankModeValid
}

// Rankable reports whether a student with the given attendance belongs to the
// ranking population of mode. Absent students never do.
func Rankable(mode model.RankMode, attendance model.AttendanceStatus) bool {
	switch attendance {
	case model.AttendanceFull:
		return true
	case model.AttendancePartial:
		return mode == model.RankModeInclusive
	default:
		return false
	}
}

// Rank places myTotal within the rankable part of population.
//
// Rank is one plus the number of members with a strictly greater total, so
// equal totals share a rank. The percentile is ceil(rank / size * 100); lower is
// better. An empty population yields nil rank and percentile.
func Rank(population []model.PopulationEntry, myTotal int, mode model.RankMode) model.Rank {
	out := model.Rank{Mode: mode}

	greater := 0
	for _, p := range population {
		if !Rankable(mode, p.Attendance) {
			continue
		}
		out.PopulationSize++
		if p.Total > myTotal {
			greater++
		}
	}
	if out.PopulationSize == 0 {
		return out
	}

	rank := greater + 1
	if rank > out.PopulationSize {
		// Only reachable when myTotal is not itself part of the population.
		// Clamping keeps 1 <= rank <= size and so percentile within 1..100.
		rank = out.PopulationSize
	}
	percentile := (rank*100 + out.PopulationSize - 1) / out.PopulationSize

	out.Rank = &rank
	out.Percentile = &percentile
	return out
}
