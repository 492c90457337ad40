package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"renewal-review/backend/internal/llm"
	"renewal-review/backend/internal/review"
)

func pairJSON(policyNumber string, priorPremium, renewalPremium float64) string {
	return fmt.Sprintf(`{
	  "prior": {"policy_number": %q, "policy_type": "auto", "carrier": "StateFarm", "premium": %g,
	    "auto_coverages": {"bodily_injury_limit": "100/300", "collision_deductible": 500}},
	  "renewal": {"policy_number": %q, "policy_type": "auto", "carrier": "StateFarm", "premium": %g,
	    "auto_coverages": {"bodily_injury_limit": "100/300", "collision_deductible": 500}}
	}`, policyNumber, priorPremium, policyNumber, renewalPremium)
}

func newTestServer(t *testing.T, client llm.Client) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	dataPath := filepath.Join(dir, "renewals.json")
	dataset := "[" + strings.Join([]string{
		pairJSON("AUTO-2024-0001", 1200, 1500),
		pairJSON("AUTO-2024-0002", 1000, 1000),
	}, ",") + "]"
	if err := os.WriteFile(dataPath, []byte(dataset), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}

	server, err := NewServer(Config{
		DBPath:   filepath.Join(dir, "test.db"),
		DataPath: dataPath,
		SilentDB: true,
		Client:   client,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { _ = server.Close() })

	router, err := server.Router()
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return server, router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	_, router := newTestServer(t, nil)
	rec := doJSON(t, router, http.MethodGet, "/api/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCompareAssignsRisk(t *testing.T) {
	_, router := newTestServer(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/reviews/compare", pairJSON("AUTO-2024-0001", 1200, 1500))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result review.ReviewResult
	decodeBody(t, rec, &result)
	if result.PolicyNumber != "AUTO-2024-0001" {
		t.Fatalf("unexpected policy number %s", result.PolicyNumber)
	}
	// 25% premium increase
	if result.RiskLevel != review.RiskUrgentReview {
		t.Fatalf("expected urgent_review, got %s", result.RiskLevel)
	}
}

func TestCompareRejectsInvalidPair(t *testing.T) {
	_, router := newTestServer(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/reviews/compare", `{"prior": {"policy_type": "auto"}}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if !strings.Contains(body["error"], "Invalid renewal pair") {
		t.Fatalf("unexpected error %q", body["error"])
	}
}

func TestGetReviewNotFound(t *testing.T) {
	_, router := newTestServer(t, nil)
	rec := doJSON(t, router, http.MethodGet, "/api/reviews/MISSING", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["error"] != "No review found for MISSING" {
		t.Fatalf("unexpected error %q", body["error"])
	}
}

func TestReviewWorkflowToggles(t *testing.T) {
	_, router := newTestServer(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/reviews/compare", pairJSON("AUTO-2024-0001", 1200, 1500))
	if rec.Code != http.StatusOK {
		t.Fatalf("compare: %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPatch, "/api/reviews/AUTO-2024-0001/broker-contacted", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle broker: %d %s", rec.Code, rec.Body.String())
	}
	var toggled map[string]bool
	decodeBody(t, rec, &toggled)
	if !toggled["broker_contacted"] {
		t.Fatal("expected broker_contacted true after first toggle")
	}

	rec = doJSON(t, router, http.MethodPatch, "/api/reviews/AUTO-2024-0001/broker-contacted", "")
	decodeBody(t, rec, &toggled)
	if toggled["broker_contacted"] {
		t.Fatal("expected broker_contacted false after second toggle")
	}

	rec = doJSON(t, router, http.MethodPatch, "/api/reviews/AUTO-2024-0001/quote-generated", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle quote: %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPatch, "/api/reviews/AUTO-2024-0001/reviewed-at", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("mark reviewed: %d", rec.Code)
	}
	var marked map[string]string
	decodeBody(t, rec, &marked)
	if marked["reviewed_at"] == "" {
		t.Fatal("expected reviewed_at timestamp")
	}

	// workflow state shows up on subsequent reads
	rec = doJSON(t, router, http.MethodGet, "/api/reviews/AUTO-2024-0001", "")
	var result review.ReviewResult
	decodeBody(t, rec, &result)
	if !result.QuoteGenerated || result.ReviewedAt == nil {
		t.Fatalf("expected workflow state persisted, got %+v", result)
	}
}

func TestPatchUnknownPolicy(t *testing.T) {
	_, router := newTestServer(t, nil)
	for _, path := range []string{
		"/api/reviews/NOPE/broker-contacted",
		"/api/reviews/NOPE/quote-generated",
		"/api/reviews/NOPE/reviewed-at",
	} {
		rec := doJSON(t, router, http.MethodPatch, path, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for %s, got %d", path, rec.Code)
		}
	}
}

func waitForJob(t *testing.T, router *gin.Engine, jobID string) JobStatusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := doJSON(t, router, http.MethodGet, "/api/batch/status/"+jobID, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status: %d %s", rec.Code, rec.Body.String())
		}
		var status JobStatusResponse
		decodeBody(t, rec, &status)
		if status.Status != "running" {
			return status
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("batch job did not finish in time")
	return JobStatusResponse{}
}

func TestBatchRunLifecycle(t *testing.T) {
	_, router := newTestServer(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/batch/run", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var started BatchStartResponse
	decodeBody(t, rec, &started)
	if started.JobID == "" || started.Total != 2 {
		t.Fatalf("unexpected start response %+v", started)
	}

	status := waitForJob(t, router, started.JobID)
	if status.Status != "completed" {
		t.Fatalf("expected completed, got %+v", status)
	}
	if status.Summary == nil || status.Summary.Total != 2 {
		t.Fatalf("unexpected summary %+v", status.Summary)
	}
	// AUTO-2024-0001 is a 25% increase, AUTO-2024-0002 is unchanged
	if status.Summary.UrgentReview != 1 || status.Summary.NoActionNeeded != 1 {
		t.Fatalf("unexpected distribution %+v", status.Summary)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/batch/summary", "")
	var summary review.BatchSummary
	decodeBody(t, rec, &summary)
	if summary.Total != 2 {
		t.Fatalf("unexpected last summary %+v", summary)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/results?flagged=true", "")
	var results ResultsResponse
	decodeBody(t, rec, &results)
	if results.Total != 1 || results.Items[0].PolicyNumber != "AUTO-2024-0001" {
		t.Fatalf("unexpected flagged results %+v", results)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/analytics/trends", "")
	var trends map[string]any
	decodeBody(t, rec, &trends)
	if trends["total_runs"].(float64) != 1 {
		t.Fatalf("unexpected trends %v", trends)
	}
}

func TestBatchStatusUnknownJob(t *testing.T) {
	_, router := newTestServer(t, nil)
	rec := doJSON(t, router, http.MethodGet, "/api/batch/status/ffffffff", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestReviewSelected(t *testing.T) {
	_, router := newTestServer(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/batch/review-selected", `{"policy_numbers": ["AUTO-2024-0002"]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var started BatchStartResponse
	decodeBody(t, rec, &started)
	if started.Total != 1 {
		t.Fatalf("expected 1 selected pair, got %d", started.Total)
	}
	status := waitForJob(t, router, started.JobID)
	if status.Status != "completed" || status.Summary.Total != 1 {
		t.Fatalf("unexpected status %+v", status)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/batch/review-selected", `{"policy_numbers": ["NOPE"]}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown selection, got %d", rec.Code)
	}
}

func TestGenerateQuotes(t *testing.T) {
	_, router := newTestServer(t, llm.NewMock())

	rec := doJSON(t, router, http.MethodPost, "/api/quotes/generate", pairJSON("AUTO-2024-0001", 1200, 1500))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var quotes []map[string]any
	decodeBody(t, rec, &quotes)
	if len(quotes) == 0 {
		t.Fatalf("expected quotes for flagged pair, got %s", rec.Body.String())
	}
	// mock advisor rewrites Q1
	if quotes[0]["broker_tip"] == "" {
		t.Fatal("expected personalized broker tip")
	}

	rec = doJSON(t, router, http.MethodPost, "/api/quotes/generate", pairJSON("AUTO-2024-0002", 1000, 1000))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	decodeBody(t, rec, &quotes)
	if len(quotes) != 0 {
		t.Fatalf("expected no quotes without flags, got %d", len(quotes))
	}
}

func TestPortfolioAnalyze(t *testing.T) {
	_, router := newTestServer(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/portfolio/analyze", `{"policy_numbers": ["AUTO-2024-0001"]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for single policy, got %d", rec.Code)
	}

	for _, pn := range []string{"AUTO-2024-0001", "AUTO-2024-0002"} {
		var premium float64 = 1000
		renewal := premium
		if pn == "AUTO-2024-0001" {
			premium, renewal = 1200, 1500
		}
		rec := doJSON(t, router, http.MethodPost, "/api/reviews/compare", pairJSON(pn, premium, renewal))
		if rec.Code != http.StatusOK {
			t.Fatalf("compare %s: %d", pn, rec.Code)
		}
	}

	rec = doJSON(t, router, http.MethodPost, "/api/portfolio/analyze", `{"policy_numbers": ["AUTO-2024-0001", "AUTO-2024-0002"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary map[string]any
	decodeBody(t, rec, &summary)
	if summary["total_premium"].(float64) != 2500 {
		t.Fatalf("unexpected portfolio summary %v", summary)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/portfolio/analyze", `{"policy_numbers": ["AUTO-2024-0001", "MISSING"]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing review, got %d", rec.Code)
	}
}

func TestBrokerMetrics(t *testing.T) {
	_, router := newTestServer(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/reviews/compare", pairJSON("AUTO-2024-0001", 1200, 1500))
	if rec.Code != http.StatusOK {
		t.Fatalf("compare: %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/analytics/broker-metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var metrics map[string]int
	decodeBody(t, rec, &metrics)
	// dataset has 2 pairs, one ad-hoc review with flags and no broker contact
	if metrics["total"] != 2 || metrics["contact_needed"] != 1 {
		t.Fatalf("unexpected metrics %v", metrics)
	}
}
