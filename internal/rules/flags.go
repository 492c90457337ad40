package rules

import (
	"strconv"
	"strings"

	"renewal-review/backend/internal/diff"
	"renewal-review/backend/internal/policy"
)

// Thresholds tune the premium flagging rules. Percent values compare against
// the premium change relative to the prior term.
type Thresholds struct {
	PremiumHighPct     float64
	PremiumCriticalPct float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{PremiumHighPct: 10, PremiumCriticalPct: 20}
}

var liabilityFields = map[string]struct{}{
	"bodily_injury_limit":   {},
	"property_damage_limit": {},
	"coverage_e_liability":  {},
	"uninsured_motorist":    {},
}

var deductibleFields = map[string]struct{}{
	"collision_deductible":     {},
	"comprehensive_deductible": {},
	"deductible":               {},
	"wind_hail_deductible":     {},
}

var coverageDropFields = map[string]struct{}{
	"coverage_a_dwelling":          {},
	"coverage_b_other_structures":  {},
	"coverage_c_personal_property": {},
	"coverage_d_loss_of_use":       {},
	"coverage_f_medical":           {},
	"medical_payments":             {},
}

var structuralFields = map[string]diff.Flag{
	"vehicle_added":       diff.FlagVehicleAdded,
	"vehicle_removed":     diff.FlagVehicleRemoved,
	"driver_added":        diff.FlagDriverAdded,
	"driver_removed":      diff.FlagDriverRemoved,
	"endorsement_added":   diff.FlagEndorsementAdded,
	"endorsement_removed": diff.FlagEndorsementRemoved,
	"notes":               diff.FlagNotesChanged,
}

var boolDropFields = map[string]struct{}{
	"water_backup":         {},
	"replacement_cost":     {},
	"rental_reimbursement": {},
}

var boolAddFields = map[string]struct{}{
	"water_backup":         {},
	"replacement_cost":     {},
	"rental_reimbursement": {},
	"roadside_assistance":  {},
}

// parseLimit reads liability limit strings such as "100/300" or "250,000"
// and reduces them to a single comparable number (split limits are summed).
func parseLimit(val string) (float64, error) {
	parts := strings.Split(strings.ReplaceAll(val, ",", ""), "/")
	var total float64
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, err
		}
		total += f
	}
	return total, nil
}

// detectFlag maps one field change to at most one flag. Unparseable numeric
// values never fire a flag.
func detectFlag(c diff.FieldChange) (diff.Flag, bool) {
	if _, ok := liabilityFields[c.Field]; ok {
		prior, errP := parseLimit(c.PriorValue)
		renewal, errR := parseLimit(c.RenewalValue)
		if errP == nil && errR == nil && renewal < prior {
			return diff.FlagLiabilityLimitDecrease, true
		}
		return "", false
	}

	if _, ok := deductibleFields[c.Field]; ok {
		prior, errP := strconv.ParseFloat(c.PriorValue, 64)
		renewal, errR := strconv.ParseFloat(c.RenewalValue, 64)
		if errP == nil && errR == nil && renewal > prior {
			return diff.FlagDeductibleIncrease, true
		}
		return "", false
	}

	if _, ok := coverageDropFields[c.Field]; ok {
		prior, errP := strconv.ParseFloat(c.PriorValue, 64)
		renewal, errR := strconv.ParseFloat(c.RenewalValue, 64)
		if errP == nil && errR == nil && renewal < prior {
			return diff.FlagCoverageDropped, true
		}
		return "", false
	}

	if flag, ok := structuralFields[c.Field]; ok {
		return flag, true
	}

	if c.PriorValue == "True" && c.RenewalValue == "False" {
		if _, ok := boolDropFields[c.Field]; ok {
			return diff.FlagCoverageDropped, true
		}
	}
	if c.PriorValue == "False" && c.RenewalValue == "True" {
		if _, ok := boolAddFields[c.Field]; ok {
			return diff.FlagCoverageAdded, true
		}
	}

	return "", false
}

func premiumFlags(pair policy.RenewalPair, t Thresholds) []diff.Flag {
	priorP, renewalP := pair.Prior.Premium, pair.Renewal.Premium
	if priorP == 0 {
		return nil
	}
	pct := (renewalP - priorP) / priorP * 100

	var flags []diff.Flag
	if pct >= t.PremiumCriticalPct {
		flags = append(flags, diff.FlagPremiumIncreaseCritical)
	} else if pct >= t.PremiumHighPct {
		flags = append(flags, diff.FlagPremiumIncreaseHigh)
	}
	if pct < 0 {
		flags = append(flags, diff.FlagPremiumDecrease)
	}
	return flags
}

func driverFlags(pair policy.RenewalPair) []diff.Flag {
	priorByLicense := make(map[string]policy.Driver, len(pair.Prior.Drivers))
	for _, d := range pair.Prior.Drivers {
		priorByLicense[d.LicenseNumber] = d
	}

	var flags []diff.Flag
	for _, d := range pair.Renewal.Drivers {
		prior, matched := priorByLicense[d.LicenseNumber]
		if d.SR22 && (!matched || !prior.SR22) {
			flags = append(flags, diff.FlagSR22Filing)
		}
		if matched && d.Violations > prior.Violations {
			flags = append(flags, diff.FlagDriverViolations)
		}
	}
	return flags
}

func coverageGapFlags(pair policy.RenewalPair) []diff.Flag {
	var flags []diff.Flag
	switch pair.Prior.PolicyType {
	case policy.TypeAuto:
		if pair.Prior.AutoCoverages != nil && pair.Renewal.AutoCoverages == nil {
			flags = append(flags, diff.FlagCoverageGap)
		}
	case policy.TypeHome:
		if pair.Prior.HomeCoverages != nil && pair.Renewal.HomeCoverages == nil {
			flags = append(flags, diff.FlagCoverageGap)
		}
	}
	return flags
}

var premiumFlagSet = map[diff.Flag]struct{}{
	diff.FlagPremiumIncreaseHigh:     {},
	diff.FlagPremiumIncreaseCritical: {},
	diff.FlagPremiumDecrease:         {},
}

func dedupeFlags(flags []diff.Flag) []diff.Flag {
	seen := make(map[diff.Flag]struct{}, len(flags))
	out := make([]diff.Flag, 0, len(flags))
	for _, f := range flags {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// FlagDiff evaluates every flagging rule against a computed diff and returns
// a new result carrying the de-duplicated flag set. Changes that fired a rule
// are annotated with their flag; the input result is left untouched.
func FlagDiff(result diff.Result, pair policy.RenewalPair, t Thresholds) diff.Result {
	var flags []diff.Flag
	flags = append(flags, premiumFlags(pair, t)...)
	if pair.Prior.Carrier != pair.Renewal.Carrier {
		flags = append(flags, diff.FlagCarrierChange)
	}

	changes := make([]diff.FieldChange, len(result.Changes))
	copy(changes, result.Changes)
	for i := range changes {
		if flag, ok := detectFlag(changes[i]); ok {
			changes[i].Flag = flag
			flags = append(flags, flag)
		}
	}

	flags = append(flags, driverFlags(pair)...)
	flags = append(flags, coverageGapFlags(pair)...)

	// premium flags also annotate the premium change
	for i := range changes {
		if changes[i].Field != "premium" || changes[i].Flag != "" {
			continue
		}
		for _, f := range flags {
			if _, ok := premiumFlagSet[f]; ok {
				changes[i].Flag = f
				break
			}
		}
	}

	return diff.Result{
		PolicyNumber: result.PolicyNumber,
		Changes:      changes,
		Flags:        dedupeFlags(flags),
	}
}
