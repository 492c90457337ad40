package portfolio

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"renewal-review/backend/internal/policy"
	"renewal-review/backend/internal/review"
)

// Severity grades a cross-policy flag.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// UnbundleRisk estimates how likely a client is to split their bundle.
type UnbundleRisk string

const (
	UnbundleLow    UnbundleRisk = "low"
	UnbundleMedium UnbundleRisk = "medium"
	UnbundleHigh   UnbundleRisk = "high"
)

// FlagType identifies a cross-policy finding.
type FlagType string

const (
	FlagDuplicateMedical      FlagType = "duplicate_medical"
	FlagDuplicateRoadside     FlagType = "duplicate_roadside"
	FlagHighLiabilityExposure FlagType = "high_liability_exposure"
	FlagLowLiabilityExposure  FlagType = "low_liability_exposure"
	FlagPremiumConcentration  FlagType = "premium_concentration"
	FlagHighPortfolioIncrease FlagType = "high_portfolio_increase"
)

// Thresholds tune the portfolio-level exposure rules.
type Thresholds struct {
	HighLiability      float64
	LowLiability       float64
	ConcentrationPct   float64
	PortfolioChangePct float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		HighLiability:      500_000,
		LowLiability:       200_000,
		ConcentrationPct:   0.70,
		PortfolioChangePct: 15.0,
	}
}

// BundleAnalysis describes auto/home bundling across a client's policies.
type BundleAnalysis struct {
	HasAuto                bool         `json:"has_auto"`
	HasHome                bool         `json:"has_home"`
	IsBundle               bool         `json:"is_bundle"`
	BundleDiscountEligible bool         `json:"bundle_discount_eligible"`
	CarrierMismatch        bool         `json:"carrier_mismatch"`
	UnbundleRisk           UnbundleRisk `json:"unbundle_risk"`
}

// CrossPolicyFlag is one finding that spans policies.
type CrossPolicyFlag struct {
	FlagType         FlagType `json:"flag_type"`
	Severity         Severity `json:"severity"`
	Description      string   `json:"description"`
	AffectedPolicies []string `json:"affected_policies"`
}

// Summary is the full portfolio analysis for one client.
type Summary struct {
	ClientPolicies    []string          `json:"client_policies"`
	TotalPremium      float64           `json:"total_premium"`
	TotalPriorPremium float64           `json:"total_prior_premium"`
	PremiumChangePct  float64           `json:"premium_change_pct"`
	RiskBreakdown     map[string]int    `json:"risk_breakdown"`
	BundleAnalysis    BundleAnalysis    `json:"bundle_analysis"`
	CrossPolicyFlags  []CrossPolicyFlag `json:"cross_policy_flags"`
}

func buildBundleAnalysis(results []review.ReviewResult) BundleAnalysis {
	var hasAuto, hasHome bool
	carriers := make(map[string]struct{})
	for _, r := range results {
		if r.Pair == nil {
			continue
		}
		switch r.Pair.Renewal.PolicyType {
		case policy.TypeAuto:
			hasAuto = true
		case policy.TypeHome:
			hasHome = true
		}
		carriers[r.Pair.Renewal.Carrier] = struct{}{}
	}

	isBundle := hasAuto && hasHome
	carrierMismatch := len(carriers) > 1

	unbundleRisk := UnbundleLow
	if isBundle {
		for _, r := range results {
			switch r.RiskLevel {
			case review.RiskActionRequired, review.RiskUrgentReview:
				unbundleRisk = UnbundleHigh
			case review.RiskReviewRecommended:
				if unbundleRisk == UnbundleLow {
					unbundleRisk = UnbundleMedium
				}
			}
		}
	}

	return BundleAnalysis{
		HasAuto:                hasAuto,
		HasHome:                hasHome,
		IsBundle:               isBundle,
		BundleDiscountEligible: isBundle && !carrierMismatch,
		CarrierMismatch:        carrierMismatch,
		UnbundleRisk:           unbundleRisk,
	}
}

func detectDuplicateCoverage(results []review.ReviewResult) []CrossPolicyFlag {
	var flags []CrossPolicyFlag
	var autoWithMedical, homeWithMedical, autoWithRoadside, homeWithRoadside []string

	for _, r := range results {
		if r.Pair == nil {
			continue
		}
		snap := r.Pair.Renewal
		switch {
		case snap.PolicyType == policy.TypeAuto && snap.AutoCoverages != nil:
			if snap.AutoCoverages.MedicalPayments > 0 {
				autoWithMedical = append(autoWithMedical, r.PolicyNumber)
			}
			if snap.AutoCoverages.RoadsideAssistance {
				autoWithRoadside = append(autoWithRoadside, r.PolicyNumber)
			}
		case snap.PolicyType == policy.TypeHome && snap.HomeCoverages != nil:
			if snap.HomeCoverages.CoverageFMedical > 0 {
				homeWithMedical = append(homeWithMedical, r.PolicyNumber)
			}
			for _, endo := range snap.Endorsements {
				desc := strings.ToLower(endo.Description)
				if strings.Contains(desc, "roadside") || strings.Contains(desc, "towing") {
					homeWithRoadside = append(homeWithRoadside, r.PolicyNumber)
					break
				}
			}
		}
	}

	if len(autoWithMedical) > 0 && len(homeWithMedical) > 0 {
		flags = append(flags, CrossPolicyFlag{
			FlagType:         FlagDuplicateMedical,
			Severity:         SeverityWarning,
			Description:      "Both auto medical payments and home medical coverage (Coverage F) are active. Review for potential overlap.",
			AffectedPolicies: append(autoWithMedical, homeWithMedical...),
		})
	}
	if len(autoWithRoadside) > 0 && len(homeWithRoadside) > 0 {
		flags = append(flags, CrossPolicyFlag{
			FlagType:         FlagDuplicateRoadside,
			Severity:         SeverityInfo,
			Description:      "Roadside assistance is present on both auto policy and home endorsements. Consider consolidating.",
			AffectedPolicies: append(autoWithRoadside, homeWithRoadside...),
		})
	}
	return flags
}

func calculateExposureFlags(results []review.ReviewResult, t Thresholds) []CrossPolicyFlag {
	var totalLiability float64
	var affected []string

	for _, r := range results {
		if r.Pair == nil {
			continue
		}
		snap := r.Pair.Renewal
		switch {
		case snap.PolicyType == policy.TypeHome && snap.HomeCoverages != nil:
			totalLiability += snap.HomeCoverages.CoverageELiability
			affected = append(affected, r.PolicyNumber)
		case snap.PolicyType == policy.TypeAuto && snap.AutoCoverages != nil:
			// split BI limit "100/300": per-person figure is in thousands
			biStr := strings.SplitN(snap.AutoCoverages.BodilyInjuryLimit, "/", 2)[0]
			if bi, err := strconv.ParseFloat(strings.TrimSpace(biStr), 64); err == nil {
				totalLiability += bi * 1000
			}
			affected = append(affected, r.PolicyNumber)
		}
	}

	if len(affected) == 0 {
		return nil
	}

	if totalLiability > t.HighLiability {
		return []CrossPolicyFlag{{
			FlagType: FlagHighLiabilityExposure,
			Severity: SeverityInfo,
			Description: fmt.Sprintf(
				"Total liability exposure is $%s, exceeding $%s. Consider umbrella policy review.",
				formatThousands(totalLiability), formatThousands(t.HighLiability),
			),
			AffectedPolicies: affected,
		}}
	}
	if totalLiability < t.LowLiability {
		return []CrossPolicyFlag{{
			FlagType: FlagLowLiabilityExposure,
			Severity: SeverityWarning,
			Description: fmt.Sprintf(
				"Total liability exposure is $%s, below $%s. Client may be underinsured.",
				formatThousands(totalLiability), formatThousands(t.LowLiability),
			),
			AffectedPolicies: affected,
		}}
	}
	return nil
}

func detectPremiumConcentration(results []review.ReviewResult, totalPremium, premiumChangePct float64, t Thresholds) []CrossPolicyFlag {
	var flags []CrossPolicyFlag

	if totalPremium > 0 {
		for _, r := range results {
			if r.Pair == nil {
				continue
			}
			pct := r.Pair.Renewal.Premium / totalPremium
			if pct >= t.ConcentrationPct {
				flags = append(flags, CrossPolicyFlag{
					FlagType: FlagPremiumConcentration,
					Severity: SeverityWarning,
					Description: fmt.Sprintf(
						"Policy %s represents %.0f%% of total portfolio premium. Loss of this policy significantly impacts revenue.",
						r.PolicyNumber, pct*100,
					),
					AffectedPolicies: []string{r.PolicyNumber},
				})
			}
		}
	}

	if math.Abs(premiumChangePct) >= t.PortfolioChangePct {
		all := make([]string, 0, len(results))
		for _, r := range results {
			all = append(all, r.PolicyNumber)
		}
		flags = append(flags, CrossPolicyFlag{
			FlagType: FlagHighPortfolioIncrease,
			Severity: SeverityCritical,
			Description: fmt.Sprintf(
				"Total portfolio premium changed by %+.1f%%. Review all policies for retention risk.",
				premiumChangePct,
			),
			AffectedPolicies: all,
		})
	}
	return flags
}

func formatThousands(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}

// Analyze reviews a client's policies as a portfolio. Every policy number
// must have a stored review; duplicates are dropped while preserving order.
func Analyze(policyNumbers []string, lookup func(string) (review.ReviewResult, bool), t Thresholds) (Summary, error) {
	seen := make(map[string]struct{}, len(policyNumbers))
	unique := make([]string, 0, len(policyNumbers))
	for _, pn := range policyNumbers {
		if _, ok := seen[pn]; ok {
			continue
		}
		seen[pn] = struct{}{}
		unique = append(unique, pn)
	}

	results := make([]review.ReviewResult, 0, len(unique))
	for _, pn := range unique {
		result, ok := lookup(pn)
		if !ok {
			return Summary{}, fmt.Errorf("no review found for policy: %s", pn)
		}
		results = append(results, result)
	}

	var totalPremium, totalPriorPremium float64
	for _, r := range results {
		if r.Pair == nil {
			continue
		}
		totalPremium += r.Pair.Renewal.Premium
		totalPriorPremium += r.Pair.Prior.Premium
	}
	premiumChangePct := 0.0
	if totalPriorPremium > 0 {
		premiumChangePct = (totalPremium - totalPriorPremium) / totalPriorPremium * 100
	}

	riskBreakdown := make(map[string]int)
	for _, r := range results {
		riskBreakdown[r.RiskLevel.String()]++
	}

	var flags []CrossPolicyFlag
	flags = append(flags, detectDuplicateCoverage(results)...)
	flags = append(flags, calculateExposureFlags(results, t)...)
	flags = append(flags, detectPremiumConcentration(results, totalPremium, premiumChangePct, t)...)

	return Summary{
		ClientPolicies:    unique,
		TotalPremium:      totalPremium,
		TotalPriorPremium: totalPriorPremium,
		PremiumChangePct:  math.Round(premiumChangePct*100) / 100,
		RiskBreakdown:     riskBreakdown,
		BundleAnalysis:    buildBundleAnalysis(results),
		CrossPolicyFlags:  flags,
	}, nil
}
