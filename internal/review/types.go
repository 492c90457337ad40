package review

import (
	"time"

	"renewal-review/backend/internal/diff"
	"renewal-review/backend/internal/policy"
)

// LLMInsight is one finding produced by an analysis task.
type LLMInsight struct {
	AnalysisType string  `json:"analysis_type"`
	Finding      string  `json:"finding"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning,omitempty"`
}

// ReviewResult is the full outcome of reviewing one renewal pair, including
// the broker workflow state that accumulates after the batch run.
type ReviewResult struct {
	PolicyNumber        string              `json:"policy_number"`
	RiskLevel           RiskLevel           `json:"risk_level"`
	Diff                diff.Result         `json:"diff"`
	LLMInsights         []LLMInsight        `json:"llm_insights,omitempty"`
	Summary             string              `json:"summary"`
	Pair                *policy.RenewalPair `json:"pair,omitempty"`
	ReviewedAt          *time.Time          `json:"reviewed_at,omitempty"`
	BrokerContacted     bool                `json:"broker_contacted"`
	QuoteGenerated      bool                `json:"quote_generated"`
	LLMSummaryGenerated bool                `json:"llm_summary_generated"`
}

// BatchSummary aggregates one batch run.
type BatchSummary struct {
	Total             int     `json:"total"`
	NoActionNeeded    int     `json:"no_action_needed"`
	ReviewRecommended int     `json:"review_recommended"`
	ActionRequired    int     `json:"action_required"`
	UrgentReview      int     `json:"urgent_review"`
	LLMAnalyzed       int     `json:"llm_analyzed"`
	ProcessingTimeMs  float64 `json:"processing_time_ms"`
}
