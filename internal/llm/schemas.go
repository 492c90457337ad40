package llm

import (
	"encoding/json"
	"fmt"
)

// Structured response shapes for each completion task. Decoding is strict
// about required keys so a model that drifted off-schema is caught rather
// than silently zero-filled.

type RiskSignal struct {
	SignalType  string `json:"signal_type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

type RiskSignalExtractorResponse struct {
	Signals    []RiskSignal `json:"signals"`
	Confidence float64      `json:"confidence"`
	Summary    string       `json:"summary"`
}

type EndorsementComparisonResponse struct {
	MaterialChange bool    `json:"material_change"`
	ChangeType     string  `json:"change_type"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
}

type ReviewSummaryResponse struct {
	Summary string `json:"summary"`
}

type PersonalizedQuote struct {
	QuoteID   string `json:"quote_id"`
	TradeOff  string `json:"trade_off"`
	BrokerTip string `json:"broker_tip"`
}

type QuotePersonalizationResponse struct {
	Quotes []PersonalizedQuote `json:"quotes"`
}

func decodeInto(raw map[string]any, required []string, out any) error {
	for _, key := range required {
		if _, ok := raw[key]; !ok {
			return fmt.Errorf("missing field %q", key)
		}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("re-encode response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func DecodeRiskSignals(raw map[string]any) (RiskSignalExtractorResponse, error) {
	var resp RiskSignalExtractorResponse
	err := decodeInto(raw, []string{"signals", "confidence", "summary"}, &resp)
	return resp, err
}

func DecodeEndorsementComparison(raw map[string]any) (EndorsementComparisonResponse, error) {
	var resp EndorsementComparisonResponse
	err := decodeInto(raw, []string{"material_change", "change_type", "confidence", "reasoning"}, &resp)
	return resp, err
}

func DecodeReviewSummary(raw map[string]any) (ReviewSummaryResponse, error) {
	var resp ReviewSummaryResponse
	err := decodeInto(raw, []string{"summary"}, &resp)
	return resp, err
}

func DecodeQuotePersonalization(raw map[string]any) (QuotePersonalizationResponse, error) {
	var resp QuotePersonalizationResponse
	err := decodeInto(raw, []string{"quotes"}, &resp)
	return resp, err
}
