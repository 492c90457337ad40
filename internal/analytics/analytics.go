package analytics

import (
	"math"
	"sort"
	"time"

	"renewal-review/backend/internal/review"
)

// BatchRunRecord is the persisted outcome of one batch run.
type BatchRunRecord struct {
	JobID             string    `json:"job_id"`
	Total             int       `json:"total"`
	NoActionNeeded    int       `json:"no_action_needed"`
	ReviewRecommended int       `json:"review_recommended"`
	ActionRequired    int       `json:"action_required"`
	UrgentReview      int       `json:"urgent_review"`
	ProcessingTimeMs  float64   `json:"processing_time_ms"`
	CreatedAt         time.Time `json:"created_at"`
}

// TrendPoint aggregates the runs of one calendar day.
type TrendPoint struct {
	Date              string  `json:"date"`
	TotalRuns         int     `json:"total_runs"`
	UrgentReviewRatio float64 `json:"urgent_review_ratio"`
}

// Summary rolls up the history of batch runs.
type Summary struct {
	TotalRuns             int            `json:"total_runs"`
	TotalPoliciesReviewed int            `json:"total_policies_reviewed"`
	RiskDistribution      map[string]int `json:"risk_distribution"`
	Trends                []TrendPoint   `json:"trends"`
}

// BrokerMetrics tracks the broker workflow backlog.
type BrokerMetrics struct {
	Total           int `json:"total"`
	Pending         int `json:"pending"`
	ContactNeeded   int `json:"contact_needed"`
	Contacted       int `json:"contacted"`
	QuotesGenerated int `json:"quotes_generated"`
	Reviewed        int `json:"reviewed"`
}

func emptyDistribution() map[string]int {
	return map[string]int{
		"no_action_needed":   0,
		"review_recommended": 0,
		"action_required":    0,
		"urgent_review":      0,
	}
}

// ComputeTrends summarizes batch run history with per-day trend points.
func ComputeTrends(records []BatchRunRecord) Summary {
	if len(records) == 0 {
		return Summary{
			RiskDistribution: emptyDistribution(),
			Trends:           []TrendPoint{},
		}
	}

	totalPolicies := 0
	dist := emptyDistribution()
	byDate := make(map[string][]BatchRunRecord)
	for _, r := range records {
		totalPolicies += r.Total
		dist["no_action_needed"] += r.NoActionNeeded
		dist["review_recommended"] += r.ReviewRecommended
		dist["action_required"] += r.ActionRequired
		dist["urgent_review"] += r.UrgentReview

		day := r.CreatedAt.Format("2006-01-02")
		byDate[day] = append(byDate[day], r)
	}

	days := make([]string, 0, len(byDate))
	for day := range byDate {
		days = append(days, day)
	}
	sort.Strings(days)

	trends := make([]TrendPoint, 0, len(days))
	for _, day := range days {
		dayRecords := byDate[day]
		dayTotal := 0
		dayUrgent := 0
		for _, r := range dayRecords {
			dayTotal += r.Total
			dayUrgent += r.UrgentReview
		}
		ratio := 0.0
		if dayTotal > 0 {
			ratio = math.Round(float64(dayUrgent)/float64(dayTotal)*10000) / 10000
		}
		trends = append(trends, TrendPoint{
			Date:              day,
			TotalRuns:         len(dayRecords),
			UrgentReviewRatio: ratio,
		})
	}

	return Summary{
		TotalRuns:             len(records),
		TotalPoliciesReviewed: totalPolicies,
		RiskDistribution:      dist,
		Trends:                trends,
	}
}

// ComputeBrokerMetrics derives workflow counts from stored reviews.
// totalPolicies lets the caller report pending work beyond the reviewed set.
func ComputeBrokerMetrics(results []review.ReviewResult, totalPolicies int) BrokerMetrics {
	reviewed := 0
	contactNeeded := 0
	contacted := 0
	quotesGenerated := 0
	for _, r := range results {
		if r.ReviewedAt != nil {
			reviewed++
		}
		if len(r.Diff.Flags) > 0 && !r.BrokerContacted {
			contactNeeded++
		}
		if r.BrokerContacted {
			contacted++
		}
		if r.QuoteGenerated {
			quotesGenerated++
		}
	}

	total := totalPolicies
	if reviewed > total {
		total = reviewed
	}

	return BrokerMetrics{
		Total:           total,
		Pending:         total - reviewed,
		ContactNeeded:   contactNeeded,
		Contacted:       contacted,
		QuotesGenerated: quotesGenerated,
		Reviewed:        reviewed,
	}
}
