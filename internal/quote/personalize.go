package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"renewal-review/backend/internal/llm"
	"renewal-review/backend/internal/policy"
)

func buildPolicyContext(pair policy.RenewalPair) string {
	var sections []string
	sections = append(sections, fmt.Sprintf("Policy: %s (%s)", pair.Prior.PolicyNumber, pair.Prior.PolicyType))
	sections = append(sections, fmt.Sprintf("Premium: $%.2f -> $%.2f", pair.Prior.Premium, pair.Renewal.Premium))

	if cov := pair.Renewal.AutoCoverages; cov != nil {
		sections = append(sections, fmt.Sprintf(
			"Auto coverages: collision_deductible=$%.0f, comprehensive_deductible=$%.0f, medical_payments=$%.0f, rental=%t, roadside=%t",
			cov.CollisionDeductible, cov.ComprehensiveDeductible, cov.MedicalPayments,
			cov.RentalReimbursement, cov.RoadsideAssistance,
		))
	}
	if cov := pair.Renewal.HomeCoverages; cov != nil {
		sections = append(sections, fmt.Sprintf(
			"Home coverages: deductible=$%.0f, water_backup=%t, coverage_c=$%.0f",
			cov.Deductible, cov.WaterBackup, cov.CoverageCPersonalProperty,
		))
	}

	for _, v := range pair.Renewal.Vehicles {
		sections = append(sections, fmt.Sprintf("Vehicle: %d %s %s (%s)", v.Year, v.Make, v.Model, v.Usage))
	}
	for _, d := range pair.Renewal.Drivers {
		line := fmt.Sprintf("Driver: %s, age %d, violations=%d", d.Name, d.Age, d.Violations)
		if d.SR22 {
			line += ", SR-22"
		}
		sections = append(sections, line)
	}

	if pair.Renewal.Notes != "" {
		sections = append(sections, "Notes: "+pair.Renewal.Notes)
	}

	return strings.Join(sections, "\n")
}

func buildQuotesJSON(quotes []Recommendation) (string, error) {
	type quoteSketch struct {
		QuoteID  string `json:"quote_id"`
		Strategy string `json:"strategy"`
		TradeOff string `json:"trade_off"`
	}
	sketches := make([]quoteSketch, 0, len(quotes))
	for _, q := range quotes {
		strategy := ""
		if len(q.Adjustments) > 0 {
			strategy = string(q.Adjustments[0].Strategy)
		}
		sketches = append(sketches, quoteSketch{
			QuoteID:  q.QuoteID,
			Strategy: strategy,
			TradeOff: q.TradeOff,
		})
	}
	data, err := json.MarshalIndent(sketches, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Personalize rewrites quote trade-offs and adds broker tips using the LLM.
// On any failure the quotes are returned unchanged.
func Personalize(ctx context.Context, client llm.Client, quotes []Recommendation, pair policy.RenewalPair) []Recommendation {
	if len(quotes) == 0 || client == nil || !client.Enabled() {
		return quotes
	}

	quotesJSON, err := buildQuotesJSON(quotes)
	if err != nil {
		return quotes
	}
	prompt := llm.QuotePersonalizationPrompt(buildPolicyContext(pair), quotesJSON)

	response, err := client.Complete(ctx, prompt, llm.TraceQuotePersonalization)
	if err != nil {
		return quotes
	}
	if _, failed := llm.IsErrorResult(response); failed {
		return quotes
	}
	parsed, err := llm.DecodeQuotePersonalization(response)
	if err != nil {
		return quotes
	}

	byID := make(map[string]llm.PersonalizedQuote, len(parsed.Quotes))
	for _, q := range parsed.Quotes {
		byID[q.QuoteID] = q
	}
	for i := range quotes {
		if llmQuote, ok := byID[quotes[i].QuoteID]; ok {
			quotes[i].TradeOff = llmQuote.TradeOff
			quotes[i].BrokerTip = llmQuote.BrokerTip
		}
	}
	return quotes
}
