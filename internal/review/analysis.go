package review

import (
	"context"
	"fmt"
	"strings"

	"renewal-review/backend/internal/diff"
	"renewal-review/backend/internal/llm"
	"renewal-review/backend/internal/policy"
)

// ShouldAnalyze decides whether a pair warrants LLM analysis: notes that
// changed to something non-empty, or endorsement description rewording that
// rules cannot judge on their own.
func ShouldAnalyze(d diff.Result, pair policy.RenewalPair) bool {
	if pair.Prior.Notes != pair.Renewal.Notes && pair.Renewal.Notes != "" {
		return true
	}
	for _, c := range d.Changes {
		if strings.HasPrefix(c.Field, "endorsement_description_") {
			return true
		}
	}
	return false
}

func analyzeNotes(ctx context.Context, client llm.Client, notes string) []LLMInsight {
	failed := func(msg string) []LLMInsight {
		return []LLMInsight{{
			AnalysisType: llm.TraceRiskSignalExtractor,
			Finding:      msg,
			Confidence:   0.0,
		}}
	}

	result, err := client.Complete(ctx, llm.RiskSignalExtractorPrompt(notes), llm.TraceRiskSignalExtractor)
	if err != nil {
		return failed(fmt.Sprintf("Analysis failed: %v", err))
	}
	if msg, ok := llm.IsErrorResult(result); ok {
		return failed(fmt.Sprintf("Analysis failed: %s", msg))
	}

	parsed, err := llm.DecodeRiskSignals(result)
	if err != nil {
		return failed("Malformed LLM response")
	}

	insights := make([]LLMInsight, 0, len(parsed.Signals))
	for _, signal := range parsed.Signals {
		insights = append(insights, LLMInsight{
			AnalysisType: llm.TraceRiskSignalExtractor,
			Finding:      signal.Description,
			Confidence:   parsed.Confidence,
			Reasoning:    parsed.Summary,
		})
	}
	return insights
}

func analyzeEndorsement(ctx context.Context, client llm.Client, priorDesc, renewalDesc string) LLMInsight {
	failed := func(msg string) LLMInsight {
		return LLMInsight{
			AnalysisType: llm.TraceEndorsementComparison,
			Finding:      msg,
			Confidence:   0.0,
		}
	}

	result, err := client.Complete(ctx, llm.EndorsementComparisonPrompt(priorDesc, renewalDesc), llm.TraceEndorsementComparison)
	if err != nil {
		return failed(fmt.Sprintf("Analysis failed: %v", err))
	}
	if msg, ok := llm.IsErrorResult(result); ok {
		return failed(fmt.Sprintf("Analysis failed: %s", msg))
	}

	parsed, err := llm.DecodeEndorsementComparison(result)
	if err != nil {
		return failed("Malformed LLM response")
	}

	return LLMInsight{
		AnalysisType: llm.TraceEndorsementComparison,
		Finding:      fmt.Sprintf("Change type: %s", parsed.ChangeType),
		Confidence:   parsed.Confidence,
		Reasoning:    parsed.Reasoning,
	}
}

// AnalyzePair runs every applicable analysis task for the pair. A failed
// task degrades to a zero-confidence insight rather than aborting the
// review.
func AnalyzePair(ctx context.Context, client llm.Client, d diff.Result, pair policy.RenewalPair) []LLMInsight {
	var insights []LLMInsight

	if pair.Renewal.Notes != "" && pair.Prior.Notes != pair.Renewal.Notes {
		insights = append(insights, analyzeNotes(ctx, client, pair.Renewal.Notes)...)
	}

	for _, change := range d.Changes {
		if strings.HasPrefix(change.Field, "endorsement_description_") {
			insights = append(insights, analyzeEndorsement(ctx, client, change.PriorValue, change.RenewalValue))
		}
	}

	return insights
}

// GenerateSummary asks the LLM for a broker-facing summary of the review.
// Returns "" when the pair is unavailable or the call fails; the caller
// keeps the rule-based summary in that case.
func GenerateSummary(ctx context.Context, client llm.Client, result ReviewResult) string {
	if result.Pair == nil {
		return ""
	}

	pair := result.Pair
	priorPremium := pair.Prior.Premium
	renewalPremium := pair.Renewal.Premium
	premiumChange := "N/A"
	if priorPremium > 0 {
		pct := (renewalPremium - priorPremium) / priorPremium * 100
		premiumChange = fmt.Sprintf("%+.1f%%", pct)
	}

	var flagged, other []diff.FieldChange
	for _, c := range result.Diff.Changes {
		if c.Flag != "" {
			flagged = append(flagged, c)
		} else {
			other = append(other, c)
		}
	}
	keyChangeList := append(flagged, other...)
	if len(keyChangeList) > 5 {
		keyChangeList = keyChangeList[:5]
	}
	lines := make([]string, 0, len(keyChangeList))
	for _, c := range keyChangeList {
		line := fmt.Sprintf("- %s: %s -> %s", c.Field, c.PriorValue, c.RenewalValue)
		if c.Flag != "" {
			line += fmt.Sprintf(" [%s]", c.Flag)
		}
		lines = append(lines, line)
	}
	keyChanges := strings.Join(lines, "\n")
	if keyChanges == "" {
		keyChanges = "None"
	}

	insightsSection := ""
	if len(result.LLMInsights) > 0 {
		findings := make([]string, 0, len(result.LLMInsights))
		for _, i := range result.LLMInsights {
			findings = append(findings, "- "+i.Finding)
		}
		insightsSection = "LLM insights:\n" + strings.Join(findings, "\n")
	}

	flagNames := make([]string, 0, len(result.Diff.Flags))
	for _, f := range result.Diff.Flags {
		flagNames = append(flagNames, string(f))
	}

	prompt := llm.ReviewSummaryPrompt(llm.ReviewSummaryInput{
		PolicyNumber:       pair.Prior.PolicyNumber,
		PolicyType:         string(pair.Prior.PolicyType),
		PriorPremium:       fmt.Sprintf("%.2f", priorPremium),
		RenewalPremium:     fmt.Sprintf("%.2f", renewalPremium),
		PremiumChange:      premiumChange,
		RiskLevel:          result.RiskLevel.String(),
		Flags:              strings.Join(flagNames, ", "),
		KeyChanges:         keyChanges,
		LLMInsightsSection: insightsSection,
	})

	response, err := client.Complete(ctx, prompt, llm.TraceReviewSummary)
	if err != nil {
		return ""
	}
	if _, failed := llm.IsErrorResult(response); failed {
		return ""
	}
	parsed, err := llm.DecodeReviewSummary(response)
	if err != nil {
		return ""
	}
	return parsed.Summary
}
