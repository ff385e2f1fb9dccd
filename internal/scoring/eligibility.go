package scoring

import (
	"github.com/stemsi/result-portal/internal/model"
)

// EligibilityInput is everything the final verdict depends on.
type EligibilityInput struct {
	TotalScore int
	TotalMax   int
	Groups     []model.GroupVerdict
	Attendance model.AttendanceStatus
}

// EligibilityRule is one row of the verdict decision table.
type EligibilityRule struct {
	Reason  model.ReasonCode
	Matches func(in EligibilityInput) bool
}

// Rules are evaluated top to bottom; the first match decides the reason.
// Attendance comes first: without every session a pass is impossible.
var eligibilityRules = []EligibilityRule{
	{Reason: model.ReasonAbsent, Matches: func(in EligibilityInput) bool {
		return in.Attendance == model.AttendanceAbsent
	}},
	{Reason: model.ReasonDropout, Matches: func(in EligibilityInput) bool {
		return in.Attendance != model.AttendanceFull
	}},
	{Reason: model.ReasonFailedBoth, Matches: func(in EligibilityInput) bool {
		return belowOverall(in) && anyGroupFailed(in.Groups)
	}},
	{Reason: model.ReasonFailedOverall, Matches: belowOverall},
	{Reason: model.ReasonFailedGroup, Matches: func(in EligibilityInput) bool {
		return anyGroupFailed(in.Groups)
	}},
}

// EligibilityRules returns a copy of the decision table, in evaluation order.
func EligibilityRules() []EligibilityRule {
	return append([]EligibilityRule(nil), eligibilityRules...)
}

// EvaluateEligibility returns the overall verdict and the reason behind it.
func EvaluateEligibility(in EligibilityInput) (bool, model.ReasonCode) {
	for _, rule := range eligibilityRules {
		if rule.Matches(in) {
			return false, rule.Reason
		}
	}
	return true, model.ReasonPass
}

// OverallCutoff is the minimum total score, ceil(totalMax * 0.6).
func OverallCutoff(totalMax int) int {
	return ceilTenths(totalMax, 6)
}

func belowOverall(in EligibilityInput) bool {
	return in.TotalScore < OverallCutoff(in.TotalMax)
}

func anyGroupFailed(groups []model.GroupVerdict) bool {
	for _, g := range groups {
		if !g.Pass {
			return true
		}
	}
	return false
}
