package store

import (
	"encoding/json"
	"strings"
	"time"

	"renewal-review/backend/internal/diff"
	"renewal-review/backend/internal/policy"
	"renewal-review/backend/internal/review"
)

// PairRecord persists one renewal pair. The full snapshots are stored as
// JSON blobs; the hoisted columns exist for filtering and listing.
type PairRecord struct {
	ID             uint   `gorm:"primaryKey"`
	PolicyNumber   string `gorm:"size:50;uniqueIndex"`
	PolicyType     string `gorm:"size:10;index"`
	Carrier        string `gorm:"size:100"`
	PremiumPrior   float64
	PremiumRenewal float64
	State          string `gorm:"size:2"`
	PriorJSON      string `gorm:"type:text"`
	RenewalJSON    string `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewPairRecord builds a record from a parsed renewal pair.
func NewPairRecord(pair policy.RenewalPair) (*PairRecord, error) {
	prior, err := json.Marshal(pair.Prior)
	if err != nil {
		return nil, err
	}
	renewal, err := json.Marshal(pair.Renewal)
	if err != nil {
		return nil, err
	}
	return &PairRecord{
		PolicyNumber:   pair.Renewal.PolicyNumber,
		PolicyType:     string(pair.Renewal.PolicyType),
		Carrier:        pair.Renewal.Carrier,
		PremiumPrior:   pair.Prior.Premium,
		PremiumRenewal: pair.Renewal.Premium,
		State:          pair.Renewal.State,
		PriorJSON:      string(prior),
		RenewalJSON:    string(renewal),
	}, nil
}

// Pair reconstructs the renewal pair from the stored JSON blobs.
func (p *PairRecord) Pair() (policy.RenewalPair, error) {
	var pair policy.RenewalPair
	if err := json.Unmarshal([]byte(p.PriorJSON), &pair.Prior); err != nil {
		return policy.RenewalPair{}, err
	}
	if err := json.Unmarshal([]byte(p.RenewalJSON), &pair.Renewal); err != nil {
		return policy.RenewalPair{}, err
	}
	return pair, nil
}

// ReviewRecord is the persisted review output for one policy. Diff changes
// and LLM insights are stored as JSON; broker workflow columns are updated
// independently of review runs and survive re-processing.
type ReviewRecord struct {
	ID                  uint   `gorm:"primaryKey"`
	PolicyNumber        string `gorm:"size:50;uniqueIndex"`
	JobID               string `gorm:"size:8;index"`
	RiskLevel           string `gorm:"size:30;index"`
	FlagsJSON           string `gorm:"type:text"`
	ChangesJSON         string `gorm:"type:text"`
	InsightsJSON        string `gorm:"type:text"`
	SummaryText         string `gorm:"type:text"`
	LLMSummaryGenerated bool
	BrokerContacted     bool
	QuoteGenerated      bool
	ReviewedAt          *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewReviewRecord builds a record from a review result. The embedded pair is
// not stored here; it lives in PairRecord keyed by the same policy number.
func NewReviewRecord(jobID string, r review.ReviewResult) (*ReviewRecord, error) {
	flags, err := json.Marshal(r.Diff.Flags)
	if err != nil {
		return nil, err
	}
	changes, err := json.Marshal(r.Diff.Changes)
	if err != nil {
		return nil, err
	}
	insights, err := json.Marshal(r.LLMInsights)
	if err != nil {
		return nil, err
	}
	return &ReviewRecord{
		PolicyNumber:        r.PolicyNumber,
		JobID:               jobID,
		RiskLevel:           r.RiskLevel.String(),
		FlagsJSON:           string(flags),
		ChangesJSON:         string(changes),
		InsightsJSON:        string(insights),
		SummaryText:         r.Summary,
		LLMSummaryGenerated: r.LLMSummaryGenerated,
		BrokerContacted:     r.BrokerContacted,
		QuoteGenerated:      r.QuoteGenerated,
		ReviewedAt:          r.ReviewedAt,
	}, nil
}

// Result reconstructs the review result. The pair pointer is left nil; the
// caller joins it back from PairRecord when needed.
func (r *ReviewRecord) Result() (review.ReviewResult, error) {
	risk, err := review.ParseRiskLevel(r.RiskLevel)
	if err != nil {
		return review.ReviewResult{}, err
	}
	result := review.ReviewResult{
		PolicyNumber:        r.PolicyNumber,
		RiskLevel:           risk,
		Summary:             r.SummaryText,
		LLMSummaryGenerated: r.LLMSummaryGenerated,
		BrokerContacted:     r.BrokerContacted,
		QuoteGenerated:      r.QuoteGenerated,
		ReviewedAt:          r.ReviewedAt,
	}
	result.Diff.PolicyNumber = r.PolicyNumber
	if s := strings.TrimSpace(r.FlagsJSON); s != "" {
		if err := json.Unmarshal([]byte(s), &result.Diff.Flags); err != nil {
			return review.ReviewResult{}, err
		}
	}
	if s := strings.TrimSpace(r.ChangesJSON); s != "" {
		if err := json.Unmarshal([]byte(s), &result.Diff.Changes); err != nil {
			return review.ReviewResult{}, err
		}
	}
	if s := strings.TrimSpace(r.InsightsJSON); s != "" {
		if err := json.Unmarshal([]byte(s), &result.LLMInsights); err != nil {
			return review.ReviewResult{}, err
		}
	}
	return result, nil
}

// Flags decodes the stored flag list.
func (r *ReviewRecord) Flags() []diff.Flag {
	if strings.TrimSpace(r.FlagsJSON) == "" {
		return nil
	}
	var out []diff.Flag
	if err := json.Unmarshal([]byte(r.FlagsJSON), &out); err != nil {
		return nil
	}
	return out
}

// BatchRun stores the aggregate outcome of one batch review run.
type BatchRun struct {
	ID                uint   `gorm:"primaryKey"`
	JobID             string `gorm:"size:8;uniqueIndex"`
	Total             int
	NoActionNeeded    int
	ReviewRecommended int
	ActionRequired    int
	UrgentReview      int
	ProcessingTimeMs  float64
	CreatedAt         time.Time
}
