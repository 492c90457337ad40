package api

import (
	"time"

	"renewal-review/backend/internal/review"
)

// PortfolioRequest selects the policies to analyze as one client portfolio.
type PortfolioRequest struct {
	PolicyNumbers []string `json:"policy_numbers"`
}

// ReviewSelectedRequest restricts a batch run to specific policies.
type ReviewSelectedRequest struct {
	PolicyNumbers []string `json:"policy_numbers"`
}

// BatchStartResponse acknowledges an accepted batch job.
type BatchStartResponse struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Total     int       `json:"total"`
	StartedAt time.Time `json:"started_at"`
}

// JobStatusResponse reports the progress of a batch job.
type JobStatusResponse struct {
	JobID     string               `json:"job_id"`
	Status    string               `json:"status"`
	Processed int                  `json:"processed"`
	Total     int                  `json:"total"`
	Summary   *review.BatchSummary `json:"summary"`
	Error     string               `json:"error,omitempty"`
}

// ResultsResponse is a page of stored reviews.
type ResultsResponse struct {
	Items []review.ReviewResult `json:"items"`
	Total int64                 `json:"total"`
}
