package review

import (
	"fmt"
	"strings"

	"renewal-review/backend/internal/diff"
	"renewal-review/backend/internal/llm"
)

// Aggregate folds LLM insights into the rule-based risk level. Escalation is
// monotonic: insights can only raise the level.
func Aggregate(policyNumber string, ruleRisk RiskLevel, d diff.Result, insights []LLMInsight) ReviewResult {
	finalRisk := ruleRisk

	var equivalenceBreaks int
	for _, i := range insights {
		if i.Confidence >= 0.8 && strings.Contains(i.Finding, "NOT equivalent") {
			equivalenceBreaks++
		}
	}
	if equivalenceBreaks > 0 {
		finalRisk = maxRisk(finalRisk, RiskActionRequired)
	}

	var riskSignals int
	for _, i := range insights {
		if i.AnalysisType == llm.TraceRiskSignalExtractor && i.Confidence >= 0.7 {
			riskSignals++
		}
	}
	if riskSignals >= 2 {
		finalRisk = maxRisk(finalRisk, RiskActionRequired)
	}

	var restrictions int
	for _, i := range insights {
		if i.Confidence >= 0.75 && strings.Contains(strings.ToLower(i.Finding), "restriction") {
			restrictions++
		}
	}
	if restrictions > 0 {
		finalRisk = maxRisk(finalRisk, RiskActionRequired)
	}

	// combined strong signals escalate all the way
	if restrictions > 0 && riskSignals >= 2 {
		finalRisk = maxRisk(finalRisk, RiskUrgentReview)
	}

	parts := []string{fmt.Sprintf("Risk: %s", finalRisk)}
	if len(d.Flags) > 0 {
		parts = append(parts, fmt.Sprintf("Flags: %d", len(d.Flags)))
	}
	if len(insights) > 0 {
		parts = append(parts, fmt.Sprintf("LLM insights: %d", len(insights)))
	}
	if finalRisk != ruleRisk {
		parts = append(parts, fmt.Sprintf("Upgraded from %s by LLM analysis", ruleRisk))
	}

	return ReviewResult{
		PolicyNumber: policyNumber,
		RiskLevel:    finalRisk,
		Diff:         d,
		LLMInsights:  insights,
		Summary:      strings.Join(parts, " | "),
	}
}
