package diff

import "strconv"

// Flag is a typed signal describing one kind of material change between a
// policy's prior and renewal terms. The string values are part of the
// persisted/API contract and must stay stable.
type Flag string

const (
	FlagPremiumIncreaseHigh     Flag = "premium_increase_high"
	FlagPremiumIncreaseCritical Flag = "premium_increase_critical"
	FlagPremiumDecrease         Flag = "premium_decrease"
	FlagCarrierChange           Flag = "carrier_change"
	FlagLiabilityLimitDecrease  Flag = "liability_limit_decrease"
	FlagDeductibleIncrease      Flag = "deductible_increase"
	FlagCoverageDropped         Flag = "coverage_dropped"
	FlagCoverageAdded           Flag = "coverage_added"
	FlagCoverageGap             Flag = "coverage_gap"
	FlagVehicleAdded            Flag = "vehicle_added"
	FlagVehicleRemoved          Flag = "vehicle_removed"
	FlagDriverAdded             Flag = "driver_added"
	FlagDriverRemoved           Flag = "driver_removed"
	FlagDriverViolations        Flag = "driver_violations"
	FlagSR22Filing              Flag = "sr22_filing"
	FlagEndorsementAdded        Flag = "endorsement_added"
	FlagEndorsementRemoved      Flag = "endorsement_removed"
	FlagNotesChanged            Flag = "notes_changed"
	FlagClaimsHistory           Flag = "claims_history"
	FlagPropertyRisk            Flag = "property_risk"
	FlagRegulatory              Flag = "regulatory"
	FlagDriverRiskNote          Flag = "driver_risk_note"
)

// FieldChange is one detected difference between prior and renewal. Values
// are carried as strings so heterogeneous field types share one shape;
// ChangePct is set only for numeric fields with a non-zero prior value.
type FieldChange struct {
	Field        string   `json:"field"`
	PriorValue   string   `json:"prior_value"`
	RenewalValue string   `json:"renewal_value"`
	ChangePct    *float64 `json:"change_pct,omitempty"`
	Flag         Flag     `json:"flag,omitempty"`
}

// Result is the diff of one renewal pair. Flags is the de-duplicated union
// of all flags fired across changes plus pair-level computations; every flag
// must be traceable to a contributing change or pair-level rule.
type Result struct {
	PolicyNumber string        `json:"policy_number"`
	Changes      []FieldChange `json:"changes"`
	Flags        []Flag        `json:"flags"`
}

// HasFlag reports whether the flag set contains f.
func (r Result) HasFlag(f Flag) bool {
	for _, flag := range r.Flags {
		if flag == f {
			return true
		}
	}
	return false
}

// FormatNumber renders numeric field values canonically (no trailing zeros).
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatBool renders boolean field values as "True"/"False"; these literals
// are part of the change-value contract.
func FormatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
