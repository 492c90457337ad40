package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"renewal-review/backend/internal/analytics"
	"renewal-review/backend/internal/diff"
	"renewal-review/backend/internal/policy"
	"renewal-review/backend/internal/review"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), true)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testPair(policyNumber string) policy.RenewalPair {
	prior := policy.PolicySnapshot{
		PolicyNumber: policyNumber,
		PolicyType:   policy.TypeAuto,
		Carrier:      "StateFarm",
		Premium:      1200,
		State:        "CA",
		AutoCoverages: &policy.AutoCoverages{
			BodilyInjuryLimit:   "100/300",
			CollisionDeductible: 500,
		},
	}
	renewal := prior
	renewal.Premium = 1500
	return policy.RenewalPair{Prior: prior, Renewal: renewal}
}

func testReview(policyNumber string, risk review.RiskLevel, flags ...diff.Flag) review.ReviewResult {
	return review.ReviewResult{
		PolicyNumber: policyNumber,
		RiskLevel:    risk,
		Diff: diff.Result{
			PolicyNumber: policyNumber,
			Changes: []diff.FieldChange{
				{Field: "premium", PriorValue: "1200", RenewalValue: "1500"},
			},
			Flags: flags,
		},
		Summary: "Flags: premium_increase_critical | Risk: " + risk.String(),
	}
}

func TestPairRoundTrip(t *testing.T) {
	db := openTestDB(t)

	pair := testPair("AUTO-2024-0001")
	if err := db.UpsertPair(pair); err != nil {
		t.Fatalf("upsert pair: %v", err)
	}

	loaded, err := db.GetPair("AUTO-2024-0001")
	if err != nil {
		t.Fatalf("get pair: %v", err)
	}
	if loaded.Renewal.Premium != 1500 || loaded.Prior.AutoCoverages == nil {
		t.Fatalf("unexpected pair %+v", loaded)
	}
	if loaded.Prior.AutoCoverages.BodilyInjuryLimit != "100/300" {
		t.Fatalf("coverage block lost in round trip: %+v", loaded.Prior.AutoCoverages)
	}

	// second upsert for the same policy replaces, never duplicates
	pair.Renewal.Premium = 1600
	if err := db.UpsertPair(pair); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	count, err := db.CountPairs()
	if err != nil {
		t.Fatalf("count pairs: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 pair, got %d", count)
	}
	loaded, err = db.GetPair("AUTO-2024-0001")
	if err != nil {
		t.Fatalf("get pair after upsert: %v", err)
	}
	if loaded.Renewal.Premium != 1600 {
		t.Fatalf("expected refreshed premium, got %v", loaded.Renewal.Premium)
	}
}

func TestGetPairNotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetPair("MISSING"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReplacePairs(t *testing.T) {
	db := openTestDB(t)
	if err := db.UpsertPair(testPair("AUTO-2024-0001")); err != nil {
		t.Fatalf("seed pair: %v", err)
	}

	replacement := []policy.RenewalPair{testPair("AUTO-2024-0002"), testPair("AUTO-2024-0003")}
	if err := db.ReplacePairs(replacement); err != nil {
		t.Fatalf("replace pairs: %v", err)
	}

	pairs, total, err := db.ListPairs(0, 0)
	if err != nil {
		t.Fatalf("list pairs: %v", err)
	}
	if total != 2 || len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got total=%d len=%d", total, len(pairs))
	}
	if _, err := db.GetPair("AUTO-2024-0001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected old pair removed, got %v", err)
	}
}

func TestSaveReviewPreservesWorkflowColumns(t *testing.T) {
	db := openTestDB(t)

	first := testReview("AUTO-2024-0001", review.RiskActionRequired, diff.FlagPremiumIncreaseHigh)
	if err := db.SaveReview("aaaa1111", first); err != nil {
		t.Fatalf("save review: %v", err)
	}
	if err := db.UpdateBrokerContacted("AUTO-2024-0001", true); err != nil {
		t.Fatalf("update broker contacted: %v", err)
	}
	when := time.Now().Truncate(time.Second)
	if err := db.UpdateReviewedAt("AUTO-2024-0001", when); err != nil {
		t.Fatalf("update reviewed at: %v", err)
	}

	// re-running a batch upserts the review but keeps workflow state
	second := testReview("AUTO-2024-0001", review.RiskUrgentReview, diff.FlagPremiumIncreaseCritical)
	if err := db.SaveReview("bbbb2222", second); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := db.GetReview("AUTO-2024-0001")
	if err != nil {
		t.Fatalf("get review: %v", err)
	}
	if loaded.RiskLevel != review.RiskUrgentReview {
		t.Fatalf("expected refreshed risk level, got %s", loaded.RiskLevel)
	}
	if !loaded.Diff.HasFlag(diff.FlagPremiumIncreaseCritical) {
		t.Fatalf("expected refreshed flags, got %v", loaded.Diff.Flags)
	}
	if !loaded.BrokerContacted {
		t.Fatal("expected broker_contacted preserved across upsert")
	}
	if loaded.ReviewedAt == nil {
		t.Fatal("expected reviewed_at preserved across upsert")
	}
}

func TestUpdateUnknownPolicy(t *testing.T) {
	db := openTestDB(t)
	if err := db.UpdateBrokerContacted("MISSING", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := db.UpdateQuoteGenerated("MISSING", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := db.UpdateReviewedAt("MISSING", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListReviewsFilters(t *testing.T) {
	db := openTestDB(t)

	seed := []review.ReviewResult{
		testReview("AUTO-2024-0001", review.RiskNoActionNeeded),
		testReview("AUTO-2024-0002", review.RiskUrgentReview, diff.FlagPremiumIncreaseCritical),
		testReview("HOME-2024-0001", review.RiskActionRequired, diff.FlagCoverageDropped),
	}
	for _, r := range seed {
		if err := db.SaveReview("aaaa1111", r); err != nil {
			t.Fatalf("save review %s: %v", r.PolicyNumber, err)
		}
	}

	tests := []struct {
		name     string
		query    ReviewQuery
		expected []string
	}{
		{"all sorted by policy", ReviewQuery{}, []string{"AUTO-2024-0001", "AUTO-2024-0002", "HOME-2024-0001"}},
		{"risk level filter", ReviewQuery{RiskLevel: "urgent_review"}, []string{"AUTO-2024-0002"}},
		{"flagged only", ReviewQuery{FlaggedOnly: true}, []string{"AUTO-2024-0002", "HOME-2024-0001"}},
		{"paged", ReviewQuery{Offset: 1, Limit: 1}, []string{"AUTO-2024-0002"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			results, _, err := db.ListReviews(tc.query)
			if err != nil {
				t.Fatalf("list reviews: %v", err)
			}
			if len(results) != len(tc.expected) {
				t.Fatalf("expected %d results, got %d", len(tc.expected), len(results))
			}
			for i, pn := range tc.expected {
				if results[i].PolicyNumber != pn {
					t.Fatalf("expected %s at %d, got %s", pn, i, results[i].PolicyNumber)
				}
			}
		})
	}
}

func TestRiskCounts(t *testing.T) {
	db := openTestDB(t)
	seed := []review.ReviewResult{
		testReview("AUTO-2024-0001", review.RiskNoActionNeeded),
		testReview("AUTO-2024-0002", review.RiskNoActionNeeded),
		testReview("HOME-2024-0001", review.RiskUrgentReview, diff.FlagPremiumIncreaseCritical),
	}
	for _, r := range seed {
		if err := db.SaveReview("aaaa1111", r); err != nil {
			t.Fatalf("save review: %v", err)
		}
	}

	counts, err := db.RiskCounts()
	if err != nil {
		t.Fatalf("risk counts: %v", err)
	}
	if counts["no_action_needed"] != 2 || counts["urgent_review"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestBatchRunHistory(t *testing.T) {
	db := openTestDB(t)

	first := analytics.BatchRunRecord{
		JobID: "aaaa1111", Total: 100, UrgentReview: 5, NoActionNeeded: 95,
		ProcessingTimeMs: 120.5, CreatedAt: time.Now().Add(-time.Hour),
	}
	second := analytics.BatchRunRecord{
		JobID: "bbbb2222", Total: 50, NoActionNeeded: 50,
		ProcessingTimeMs: 60.2, CreatedAt: time.Now(),
	}
	for _, record := range []analytics.BatchRunRecord{first, second} {
		if err := db.SaveBatchRun(record); err != nil {
			t.Fatalf("save batch run: %v", err)
		}
	}

	runs, err := db.ListBatchRuns()
	if err != nil {
		t.Fatalf("list batch runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].JobID != "aaaa1111" || runs[1].JobID != "bbbb2222" {
		t.Fatalf("expected runs ordered by creation, got %+v", runs)
	}
	if runs[0].UrgentReview != 5 || runs[0].ProcessingTimeMs != 120.5 {
		t.Fatalf("unexpected run %+v", runs[0])
	}
}
