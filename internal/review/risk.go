package review

import (
	"encoding/json"
	"fmt"

	"renewal-review/backend/internal/diff"
)

// RiskLevel orders review urgency from no action up to urgent review. The
// ordering is used for monotonic escalation: aggregation may only raise a
// level, never lower it.
type RiskLevel int

const (
	RiskNoActionNeeded RiskLevel = iota
	RiskReviewRecommended
	RiskActionRequired
	RiskUrgentReview
)

var riskNames = map[RiskLevel]string{
	RiskNoActionNeeded:    "no_action_needed",
	RiskReviewRecommended: "review_recommended",
	RiskActionRequired:    "action_required",
	RiskUrgentReview:      "urgent_review",
}

func (r RiskLevel) String() string {
	if name, ok := riskNames[r]; ok {
		return name
	}
	return fmt.Sprintf("risk_level(%d)", int(r))
}

func (r RiskLevel) MarshalJSON() ([]byte, error) {
	name, ok := riskNames[r]
	if !ok {
		return nil, fmt.Errorf("unknown risk level %d", int(r))
	}
	return json.Marshal(name)
}

func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseRiskLevel(name)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func ParseRiskLevel(name string) (RiskLevel, error) {
	for level, n := range riskNames {
		if n == name {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown risk level %q", name)
}

func maxRisk(a, b RiskLevel) RiskLevel {
	if b > a {
		return b
	}
	return a
}

var urgentReviewFlags = map[diff.Flag]struct{}{
	diff.FlagPremiumIncreaseCritical: {},
	diff.FlagLiabilityLimitDecrease:  {},
	diff.FlagSR22Filing:              {},
}

var actionRequiredFlags = map[diff.Flag]struct{}{
	diff.FlagPremiumIncreaseHigh: {},
	diff.FlagCoverageDropped:     {},
	diff.FlagDriverViolations:    {},
	diff.FlagCoverageGap:         {},
	diff.FlagClaimsHistory:       {},
}

// AssignRiskLevel maps a flag set to the rule-based risk level. The most
// severe matching tier wins; any remaining flags still warrant a look.
func AssignRiskLevel(flags []diff.Flag) RiskLevel {
	for _, f := range flags {
		if _, ok := urgentReviewFlags[f]; ok {
			return RiskUrgentReview
		}
	}
	for _, f := range flags {
		if _, ok := actionRequiredFlags[f]; ok {
			return RiskActionRequired
		}
	}
	if len(flags) > 0 {
		return RiskReviewRecommended
	}
	return RiskNoActionNeeded
}
