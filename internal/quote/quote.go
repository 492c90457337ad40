package quote

import (
	"fmt"
	"math"

	"renewal-review/backend/internal/diff"
	"renewal-review/backend/internal/policy"
)

// Strategy identifies the kind of savings lever a quote pulls.
type Strategy string

const (
	StrategyRaiseDeductible        Strategy = "raise_deductible"
	StrategyDropOptional           Strategy = "drop_optional"
	StrategyReduceMedical          Strategy = "reduce_medical"
	StrategyDropWaterBackup        Strategy = "drop_water_backup"
	StrategyReducePersonalProperty Strategy = "reduce_personal_property"
)

// ProtectedFields are liability coverages a quote must never reduce.
var ProtectedFields = map[string]struct{}{
	"bodily_injury_limit":   {},
	"property_damage_limit": {},
	"coverage_e_liability":  {},
	"uninsured_motorist":    {},
	"coverage_a_dwelling":   {},
}

// Config tunes quote strategies and their estimated savings percentages.
type Config struct {
	AutoCollisionDeductible     float64
	AutoComprehensiveDeductible float64
	AutoMedicalMin              float64
	HomeDeductible              float64
	HomePersonalPropertyRatio   float64

	SavingsRaiseDeductibleAuto     float64
	SavingsDropOptional            float64
	SavingsReduceMedical           float64
	SavingsRaiseDeductibleHome     float64
	SavingsDropWaterBackup         float64
	SavingsReducePersonalProperty  float64
}

func DefaultConfig() Config {
	return Config{
		AutoCollisionDeductible:     1000,
		AutoComprehensiveDeductible: 500,
		AutoMedicalMin:              2000,
		HomeDeductible:              2500,
		HomePersonalPropertyRatio:   0.5,

		SavingsRaiseDeductibleAuto:    10.0,
		SavingsDropOptional:           4.0,
		SavingsReduceMedical:          2.5,
		SavingsRaiseDeductibleHome:    12.5,
		SavingsDropWaterBackup:        3.0,
		SavingsReducePersonalProperty: 4.0,
	}
}

// CoverageAdjustment is one proposed field change within a quote.
type CoverageAdjustment struct {
	Field         string   `json:"field"`
	OriginalValue string   `json:"original_value"`
	ProposedValue string   `json:"proposed_value"`
	Strategy      Strategy `json:"strategy"`
}

// Recommendation is one cost-saving quote built from the renewal terms.
type Recommendation struct {
	QuoteID                string               `json:"quote_id"`
	Adjustments            []CoverageAdjustment `json:"adjustments"`
	EstimatedSavingsPct    float64              `json:"estimated_savings_pct"`
	EstimatedSavingsDollar float64              `json:"estimated_savings_dollar"`
	TradeOff               string               `json:"trade_off"`
	BrokerTip              string               `json:"broker_tip,omitempty"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func buildRecommendation(pair policy.RenewalPair, adjustments []CoverageAdjustment, savingsPct float64, tradeOff string) *Recommendation {
	if len(adjustments) == 0 {
		return nil
	}
	return &Recommendation{
		Adjustments:            adjustments,
		EstimatedSavingsPct:    savingsPct,
		EstimatedSavingsDollar: round2(pair.Renewal.Premium * savingsPct / 100),
		TradeOff:               tradeOff,
	}
}

func autoRaiseDeductible(pair policy.RenewalPair, cfg Config) *Recommendation {
	cov := pair.Renewal.AutoCoverages
	if cov == nil {
		return nil
	}

	var adjustments []CoverageAdjustment
	if cov.CollisionDeductible < cfg.AutoCollisionDeductible {
		adjustments = append(adjustments, CoverageAdjustment{
			Field:         "collision_deductible",
			OriginalValue: diff.FormatNumber(cov.CollisionDeductible),
			ProposedValue: diff.FormatNumber(cfg.AutoCollisionDeductible),
			Strategy:      StrategyRaiseDeductible,
		})
	}
	if cov.ComprehensiveDeductible < cfg.AutoComprehensiveDeductible {
		adjustments = append(adjustments, CoverageAdjustment{
			Field:         "comprehensive_deductible",
			OriginalValue: diff.FormatNumber(cov.ComprehensiveDeductible),
			ProposedValue: diff.FormatNumber(cfg.AutoComprehensiveDeductible),
			Strategy:      StrategyRaiseDeductible,
		})
	}

	return buildRecommendation(pair, adjustments, cfg.SavingsRaiseDeductibleAuto,
		"Higher deductibles mean more out-of-pocket cost per claim")
}

func autoDropOptional(pair policy.RenewalPair, cfg Config) *Recommendation {
	cov := pair.Renewal.AutoCoverages
	if cov == nil {
		return nil
	}

	var adjustments []CoverageAdjustment
	if cov.RentalReimbursement {
		adjustments = append(adjustments, CoverageAdjustment{
			Field:         "rental_reimbursement",
			OriginalValue: "True",
			ProposedValue: "False",
			Strategy:      StrategyDropOptional,
		})
	}
	if cov.RoadsideAssistance {
		adjustments = append(adjustments, CoverageAdjustment{
			Field:         "roadside_assistance",
			OriginalValue: "True",
			ProposedValue: "False",
			Strategy:      StrategyDropOptional,
		})
	}

	return buildRecommendation(pair, adjustments, cfg.SavingsDropOptional,
		"No rental car or roadside help if needed after an incident")
}

func autoReduceMedical(pair policy.RenewalPair, cfg Config) *Recommendation {
	cov := pair.Renewal.AutoCoverages
	if cov == nil || cov.MedicalPayments <= cfg.AutoMedicalMin {
		return nil
	}

	adjustments := []CoverageAdjustment{{
		Field:         "medical_payments",
		OriginalValue: diff.FormatNumber(cov.MedicalPayments),
		ProposedValue: diff.FormatNumber(cfg.AutoMedicalMin),
		Strategy:      StrategyReduceMedical,
	}}
	return buildRecommendation(pair, adjustments, cfg.SavingsReduceMedical,
		"Lower medical payment limit may not cover all injury costs")
}

func homeRaiseDeductible(pair policy.RenewalPair, cfg Config) *Recommendation {
	cov := pair.Renewal.HomeCoverages
	if cov == nil || cov.Deductible >= cfg.HomeDeductible {
		return nil
	}

	adjustments := []CoverageAdjustment{{
		Field:         "deductible",
		OriginalValue: diff.FormatNumber(cov.Deductible),
		ProposedValue: diff.FormatNumber(cfg.HomeDeductible),
		Strategy:      StrategyRaiseDeductible,
	}}
	return buildRecommendation(pair, adjustments, cfg.SavingsRaiseDeductibleHome,
		"Higher deductible means more out-of-pocket cost per claim")
}

func homeDropWaterBackup(pair policy.RenewalPair, cfg Config) *Recommendation {
	cov := pair.Renewal.HomeCoverages
	if cov == nil || !cov.WaterBackup {
		return nil
	}

	adjustments := []CoverageAdjustment{{
		Field:         "water_backup",
		OriginalValue: "True",
		ProposedValue: "False",
		Strategy:      StrategyDropWaterBackup,
	}}
	return buildRecommendation(pair, adjustments, cfg.SavingsDropWaterBackup,
		"No coverage for water backup or sump overflow damage")
}

func homeReducePersonalProperty(pair policy.RenewalPair, cfg Config) *Recommendation {
	cov := pair.Renewal.HomeCoverages
	if cov == nil {
		return nil
	}
	target := cov.CoverageADwelling * cfg.HomePersonalPropertyRatio
	if cov.CoverageCPersonalProperty <= target {
		return nil
	}

	adjustments := []CoverageAdjustment{{
		Field:         "coverage_c_personal_property",
		OriginalValue: diff.FormatNumber(cov.CoverageCPersonalProperty),
		ProposedValue: diff.FormatNumber(target),
		Strategy:      StrategyReducePersonalProperty,
	}}
	return buildRecommendation(pair, adjustments, cfg.SavingsReducePersonalProperty,
		"Less coverage for personal belongings in case of loss")
}

type strategyFunc func(policy.RenewalPair, Config) *Recommendation

var autoStrategies = []strategyFunc{
	autoRaiseDeductible,
	autoDropOptional,
	autoReduceMedical,
}

var homeStrategies = []strategyFunc{
	homeRaiseDeductible,
	homeDropWaterBackup,
	homeReducePersonalProperty,
}

// Generate builds cost-saving quotes for a flagged renewal. Unflagged
// renewals get no quotes; protected liability fields are never touched.
func Generate(pair policy.RenewalPair, d diff.Result, cfg Config) []Recommendation {
	if len(d.Flags) == 0 {
		return nil
	}

	strategies := homeStrategies
	if pair.Prior.PolicyType == policy.TypeAuto {
		strategies = autoStrategies
	}

	var quotes []Recommendation
	for _, strategy := range strategies {
		if q := strategy(pair, cfg); q != nil {
			quotes = append(quotes, *q)
		}
	}

	if len(quotes) > 3 {
		quotes = quotes[:3]
	}
	for i := range quotes {
		quotes[i].QuoteID = fmt.Sprintf("Q%d", i+1)
	}
	return quotes
}
