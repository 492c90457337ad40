package portfolio

import (
	"strings"
	"testing"

	"renewal-review/backend/internal/policy"
	"renewal-review/backend/internal/review"
)

func autoReview(policyNumber, carrier, biLimit string, premium, priorPremium float64, risk review.RiskLevel) review.ReviewResult {
	prior := policy.PolicySnapshot{
		PolicyNumber: policyNumber,
		PolicyType:   policy.TypeAuto,
		Carrier:      carrier,
		Premium:      priorPremium,
		AutoCoverages: &policy.AutoCoverages{
			BodilyInjuryLimit: biLimit,
			MedicalPayments:   5000,
		},
	}
	renewal := prior
	renewal.Premium = premium
	pair := policy.RenewalPair{Prior: prior, Renewal: renewal}
	return review.ReviewResult{PolicyNumber: policyNumber, RiskLevel: risk, Pair: &pair}
}

func homeReview(policyNumber, carrier string, liability, premium, priorPremium float64, risk review.RiskLevel) review.ReviewResult {
	prior := policy.PolicySnapshot{
		PolicyNumber: policyNumber,
		PolicyType:   policy.TypeHome,
		Carrier:      carrier,
		Premium:      priorPremium,
		HomeCoverages: &policy.HomeCoverages{
			CoverageELiability: liability,
			CoverageFMedical:   2500,
		},
	}
	renewal := prior
	renewal.Premium = premium
	pair := policy.RenewalPair{Prior: prior, Renewal: renewal}
	return review.ReviewResult{PolicyNumber: policyNumber, RiskLevel: risk, Pair: &pair}
}

func storeOf(results ...review.ReviewResult) func(string) (review.ReviewResult, bool) {
	byNumber := make(map[string]review.ReviewResult, len(results))
	for _, r := range results {
		byNumber[r.PolicyNumber] = r
	}
	return func(pn string) (review.ReviewResult, bool) {
		r, ok := byNumber[pn]
		return r, ok
	}
}

func findFlag(flags []CrossPolicyFlag, ft FlagType) (CrossPolicyFlag, bool) {
	for _, f := range flags {
		if f.FlagType == ft {
			return f, true
		}
	}
	return CrossPolicyFlag{}, false
}

func TestAnalyzeMissingReview(t *testing.T) {
	_, err := Analyze([]string{"NOPE-1"}, storeOf(), DefaultThresholds())
	if err == nil || !strings.Contains(err.Error(), "no review found for policy: NOPE-1") {
		t.Fatalf("expected missing review error, got %v", err)
	}
}

func TestAnalyzeDeduplicatesPreservingOrder(t *testing.T) {
	a := autoReview("A1", "StateFarm", "100/300", 1200, 1200, review.RiskNoActionNeeded)
	h := homeReview("H1", "StateFarm", 300000, 2400, 2400, review.RiskNoActionNeeded)

	summary, err := Analyze([]string{"H1", "A1", "H1"}, storeOf(a, h), DefaultThresholds())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(summary.ClientPolicies) != 2 || summary.ClientPolicies[0] != "H1" || summary.ClientPolicies[1] != "A1" {
		t.Fatalf("unexpected client policies %v", summary.ClientPolicies)
	}
}

func TestBundleAnalysis(t *testing.T) {
	tests := []struct {
		name             string
		results          []review.ReviewResult
		eligible         bool
		mismatch         bool
		expectedUnbundle UnbundleRisk
	}{
		{
			"same carrier bundle",
			[]review.ReviewResult{
				autoReview("A1", "StateFarm", "100/300", 1200, 1200, review.RiskNoActionNeeded),
				homeReview("H1", "StateFarm", 300000, 2400, 2400, review.RiskNoActionNeeded),
			},
			true, false, UnbundleLow,
		},
		{
			"carrier mismatch",
			[]review.ReviewResult{
				autoReview("A1", "StateFarm", "100/300", 1200, 1200, review.RiskNoActionNeeded),
				homeReview("H1", "Allstate", 300000, 2400, 2400, review.RiskNoActionNeeded),
			},
			false, true, UnbundleLow,
		},
		{
			"urgent review raises unbundle risk",
			[]review.ReviewResult{
				autoReview("A1", "StateFarm", "100/300", 1200, 1200, review.RiskUrgentReview),
				homeReview("H1", "StateFarm", 300000, 2400, 2400, review.RiskNoActionNeeded),
			},
			true, false, UnbundleHigh,
		},
		{
			"review recommended is medium",
			[]review.ReviewResult{
				autoReview("A1", "StateFarm", "100/300", 1200, 1200, review.RiskReviewRecommended),
				homeReview("H1", "StateFarm", 300000, 2400, 2400, review.RiskNoActionNeeded),
			},
			true, false, UnbundleMedium,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			numbers := make([]string, 0, len(tc.results))
			for _, r := range tc.results {
				numbers = append(numbers, r.PolicyNumber)
			}
			summary, err := Analyze(numbers, storeOf(tc.results...), DefaultThresholds())
			if err != nil {
				t.Fatalf("analyze: %v", err)
			}
			ba := summary.BundleAnalysis
			if !ba.IsBundle {
				t.Fatal("expected bundle")
			}
			if ba.BundleDiscountEligible != tc.eligible || ba.CarrierMismatch != tc.mismatch {
				t.Fatalf("unexpected bundle analysis %+v", ba)
			}
			if ba.UnbundleRisk != tc.expectedUnbundle {
				t.Fatalf("expected unbundle %s, got %s", tc.expectedUnbundle, ba.UnbundleRisk)
			}
		})
	}
}

func TestDuplicateMedicalFlag(t *testing.T) {
	a := autoReview("A1", "StateFarm", "100/300", 1200, 1200, review.RiskNoActionNeeded)
	h := homeReview("H1", "StateFarm", 300000, 2400, 2400, review.RiskNoActionNeeded)

	summary, err := Analyze([]string{"A1", "H1"}, storeOf(a, h), DefaultThresholds())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	flag, ok := findFlag(summary.CrossPolicyFlags, FlagDuplicateMedical)
	if !ok {
		t.Fatalf("expected duplicate_medical, got %+v", summary.CrossPolicyFlags)
	}
	if flag.Severity != SeverityWarning || len(flag.AffectedPolicies) != 2 {
		t.Fatalf("unexpected flag %+v", flag)
	}
}

func TestLiabilityExposureFlags(t *testing.T) {
	// home 300k + auto 250k = 550k > 500k
	a := autoReview("A1", "StateFarm", "250/500", 1200, 1200, review.RiskNoActionNeeded)
	h := homeReview("H1", "StateFarm", 300000, 2400, 2400, review.RiskNoActionNeeded)

	summary, err := Analyze([]string{"A1", "H1"}, storeOf(a, h), DefaultThresholds())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	flag, ok := findFlag(summary.CrossPolicyFlags, FlagHighLiabilityExposure)
	if !ok {
		t.Fatalf("expected high_liability_exposure, got %+v", summary.CrossPolicyFlags)
	}
	if !strings.Contains(flag.Description, "$550,000") {
		t.Fatalf("expected formatted total in description, got %q", flag.Description)
	}

	// single low-limit auto policy: 50k < 200k
	low := autoReview("A2", "Geico", "50/100", 800, 800, review.RiskNoActionNeeded)
	summary, err = Analyze([]string{"A2"}, storeOf(low), DefaultThresholds())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if _, ok := findFlag(summary.CrossPolicyFlags, FlagLowLiabilityExposure); !ok {
		t.Fatalf("expected low_liability_exposure, got %+v", summary.CrossPolicyFlags)
	}
}

func TestPremiumConcentrationAndPortfolioIncrease(t *testing.T) {
	big := homeReview("H1", "StateFarm", 300000, 8000, 6000, review.RiskNoActionNeeded)
	small := autoReview("A1", "StateFarm", "100/300", 2000, 2000, review.RiskNoActionNeeded)

	summary, err := Analyze([]string{"H1", "A1"}, storeOf(big, small), DefaultThresholds())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	conc, ok := findFlag(summary.CrossPolicyFlags, FlagPremiumConcentration)
	if !ok {
		t.Fatalf("expected premium_concentration, got %+v", summary.CrossPolicyFlags)
	}
	if !strings.Contains(conc.Description, "H1") || !strings.Contains(conc.Description, "80%") {
		t.Fatalf("unexpected description %q", conc.Description)
	}

	// 10000 vs 8000 prior = +25%
	incr, ok := findFlag(summary.CrossPolicyFlags, FlagHighPortfolioIncrease)
	if !ok {
		t.Fatalf("expected high_portfolio_increase, got %+v", summary.CrossPolicyFlags)
	}
	if incr.Severity != SeverityCritical || !strings.Contains(incr.Description, "+25.0%") {
		t.Fatalf("unexpected flag %+v", incr)
	}
	if summary.PremiumChangePct != 25.0 {
		t.Fatalf("expected change pct 25.0, got %v", summary.PremiumChangePct)
	}
}

func TestRiskBreakdown(t *testing.T) {
	a := autoReview("A1", "StateFarm", "100/300", 1200, 1200, review.RiskUrgentReview)
	h := homeReview("H1", "StateFarm", 300000, 2400, 2400, review.RiskUrgentReview)

	summary, err := Analyze([]string{"A1", "H1"}, storeOf(a, h), DefaultThresholds())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if summary.RiskBreakdown["urgent_review"] != 2 {
		t.Fatalf("unexpected breakdown %v", summary.RiskBreakdown)
	}
}
