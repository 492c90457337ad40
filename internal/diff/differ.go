package diff

import (
	"fmt"
	"math"

	"renewal-review/backend/internal/policy"
)

// PctChange returns round((renewal-prior)/prior*100, 2), or nil when the
// prior value is zero (no defined percent change).
func PctChange(prior, renewal float64) *float64 {
	if prior == 0 {
		return nil
	}
	pct := math.Round((renewal-prior)/prior*100*100) / 100
	return &pct
}

func strChange(field, prior, renewal string) *FieldChange {
	if prior == renewal {
		return nil
	}
	return &FieldChange{Field: field, PriorValue: prior, RenewalValue: renewal}
}

func numChange(field string, prior, renewal float64) *FieldChange {
	if prior == renewal {
		return nil
	}
	return &FieldChange{
		Field:        field,
		PriorValue:   FormatNumber(prior),
		RenewalValue: FormatNumber(renewal),
		ChangePct:    PctChange(prior, renewal),
	}
}

func boolChange(field string, prior, renewal bool) *FieldChange {
	if prior == renewal {
		return nil
	}
	return &FieldChange{Field: field, PriorValue: FormatBool(prior), RenewalValue: FormatBool(renewal)}
}

func appendChange(changes []FieldChange, c *FieldChange) []FieldChange {
	if c == nil {
		return changes
	}
	return append(changes, *c)
}

func diffUniversalFields(prior, renewal policy.PolicySnapshot) []FieldChange {
	var changes []FieldChange
	changes = appendChange(changes, numChange("premium", prior.Premium, renewal.Premium))
	changes = appendChange(changes, strChange("carrier", prior.Carrier, renewal.Carrier))
	changes = appendChange(changes, strChange("notes", prior.Notes, renewal.Notes))
	return changes
}

func diffAutoCoverages(prior, renewal *policy.AutoCoverages) []FieldChange {
	if prior == nil || renewal == nil {
		return nil
	}

	var changes []FieldChange
	changes = appendChange(changes, strChange("bodily_injury_limit", prior.BodilyInjuryLimit, renewal.BodilyInjuryLimit))
	changes = appendChange(changes, strChange("property_damage_limit", prior.PropertyDamageLimit, renewal.PropertyDamageLimit))
	changes = appendChange(changes, strChange("uninsured_motorist", prior.UninsuredMotorist, renewal.UninsuredMotorist))

	changes = appendChange(changes, numChange("collision_deductible", prior.CollisionDeductible, renewal.CollisionDeductible))
	changes = appendChange(changes, numChange("comprehensive_deductible", prior.ComprehensiveDeductible, renewal.ComprehensiveDeductible))
	changes = appendChange(changes, numChange("medical_payments", prior.MedicalPayments, renewal.MedicalPayments))

	changes = appendChange(changes, boolChange("rental_reimbursement", prior.RentalReimbursement, renewal.RentalReimbursement))
	changes = appendChange(changes, boolChange("roadside_assistance", prior.RoadsideAssistance, renewal.RoadsideAssistance))
	return changes
}

func diffHomeCoverages(prior, renewal *policy.HomeCoverages) []FieldChange {
	if prior == nil || renewal == nil {
		return nil
	}

	var changes []FieldChange
	changes = appendChange(changes, numChange("coverage_a_dwelling", prior.CoverageADwelling, renewal.CoverageADwelling))
	changes = appendChange(changes, numChange("coverage_b_other_structures", prior.CoverageBOtherStructures, renewal.CoverageBOtherStructures))
	changes = appendChange(changes, numChange("coverage_c_personal_property", prior.CoverageCPersonalProperty, renewal.CoverageCPersonalProperty))
	changes = appendChange(changes, numChange("coverage_d_loss_of_use", prior.CoverageDLossOfUse, renewal.CoverageDLossOfUse))
	changes = appendChange(changes, numChange("coverage_e_liability", prior.CoverageELiability, renewal.CoverageELiability))
	changes = appendChange(changes, numChange("coverage_f_medical", prior.CoverageFMedical, renewal.CoverageFMedical))
	changes = appendChange(changes, numChange("deductible", prior.Deductible, renewal.Deductible))

	// absent wind/hail deductible compares as zero
	priorWHD := 0.0
	if prior.WindHailDeductible != nil {
		priorWHD = *prior.WindHailDeductible
	}
	renewalWHD := 0.0
	if renewal.WindHailDeductible != nil {
		renewalWHD = *renewal.WindHailDeductible
	}
	changes = appendChange(changes, numChange("wind_hail_deductible", priorWHD, renewalWHD))

	changes = appendChange(changes, boolChange("water_backup", prior.WaterBackup, renewal.WaterBackup))
	changes = appendChange(changes, boolChange("replacement_cost", prior.ReplacementCost, renewal.ReplacementCost))
	return changes
}

// diffKeyed emits added/removed changes for entities matched by natural key.
func diffKeyed(priorKeys, renewalKeys []string, labels map[string]string, addedField, removedField string) []FieldChange {
	priorSet := make(map[string]struct{}, len(priorKeys))
	for _, k := range priorKeys {
		priorSet[k] = struct{}{}
	}
	renewalSet := make(map[string]struct{}, len(renewalKeys))
	for _, k := range renewalKeys {
		renewalSet[k] = struct{}{}
	}

	var changes []FieldChange
	for _, k := range renewalKeys {
		if _, ok := priorSet[k]; !ok {
			changes = append(changes, FieldChange{Field: addedField, RenewalValue: labels[k]})
		}
	}
	for _, k := range priorKeys {
		if _, ok := renewalSet[k]; !ok {
			changes = append(changes, FieldChange{Field: removedField, PriorValue: labels[k]})
		}
	}
	return changes
}

func diffVehicles(prior, renewal policy.PolicySnapshot) []FieldChange {
	labels := make(map[string]string)
	priorKeys := make([]string, 0, len(prior.Vehicles))
	for _, v := range prior.Vehicles {
		priorKeys = append(priorKeys, v.VIN)
		labels[v.VIN] = vehicleLabel(v)
	}
	renewalKeys := make([]string, 0, len(renewal.Vehicles))
	for _, v := range renewal.Vehicles {
		renewalKeys = append(renewalKeys, v.VIN)
		labels[v.VIN] = vehicleLabel(v)
	}
	return diffKeyed(priorKeys, renewalKeys, labels, "vehicle_added", "vehicle_removed")
}

func vehicleLabel(v policy.Vehicle) string {
	return fmt.Sprintf("%d %s %s (%s)", v.Year, v.Make, v.Model, v.VIN)
}

func diffDrivers(prior, renewal policy.PolicySnapshot) []FieldChange {
	labels := make(map[string]string)
	priorKeys := make([]string, 0, len(prior.Drivers))
	for _, d := range prior.Drivers {
		priorKeys = append(priorKeys, d.LicenseNumber)
		labels[d.LicenseNumber] = driverLabel(d)
	}
	renewalKeys := make([]string, 0, len(renewal.Drivers))
	for _, d := range renewal.Drivers {
		renewalKeys = append(renewalKeys, d.LicenseNumber)
		labels[d.LicenseNumber] = driverLabel(d)
	}
	return diffKeyed(priorKeys, renewalKeys, labels, "driver_added", "driver_removed")
}

func driverLabel(d policy.Driver) string {
	return fmt.Sprintf("%s (%s)", d.Name, d.LicenseNumber)
}

func diffEndorsements(prior, renewal policy.PolicySnapshot) []FieldChange {
	priorByCode := make(map[string]policy.Endorsement, len(prior.Endorsements))
	for _, e := range prior.Endorsements {
		priorByCode[e.Code] = e
	}
	renewalByCode := make(map[string]policy.Endorsement, len(renewal.Endorsements))
	for _, e := range renewal.Endorsements {
		renewalByCode[e.Code] = e
	}

	var changes []FieldChange
	for _, e := range renewal.Endorsements {
		if _, ok := priorByCode[e.Code]; !ok {
			changes = append(changes, FieldChange{
				Field:        "endorsement_added",
				RenewalValue: fmt.Sprintf("%s: %s", e.Code, e.Description),
			})
		}
	}
	for _, e := range prior.Endorsements {
		if _, ok := renewalByCode[e.Code]; !ok {
			changes = append(changes, FieldChange{
				Field:      "endorsement_removed",
				PriorValue: fmt.Sprintf("%s: %s", e.Code, e.Description),
			})
		}
	}

	// matched codes: description and premium diff independently
	for _, pe := range prior.Endorsements {
		re, ok := renewalByCode[pe.Code]
		if !ok {
			continue
		}
		if pe.Description != re.Description {
			changes = append(changes, FieldChange{
				Field:        "endorsement_description_" + pe.Code,
				PriorValue:   pe.Description,
				RenewalValue: re.Description,
			})
		}
		if pe.Premium != re.Premium {
			changes = append(changes, FieldChange{
				Field:        "endorsement_premium_" + pe.Code,
				PriorValue:   FormatNumber(pe.Premium),
				RenewalValue: FormatNumber(re.Premium),
				ChangePct:    PctChange(pe.Premium, re.Premium),
			})
		}
	}
	return changes
}

// Compute produces the field-level diff of a renewal pair. Pure and
// deterministic; the input pair is never mutated. Change ordering follows
// the comparison category order, which downstream summary truncation
// depends on.
func Compute(pair policy.RenewalPair) Result {
	prior, renewal := pair.Prior, pair.Renewal

	var changes []FieldChange
	changes = append(changes, diffUniversalFields(prior, renewal)...)
	changes = append(changes, diffAutoCoverages(prior.AutoCoverages, renewal.AutoCoverages)...)
	changes = append(changes, diffHomeCoverages(prior.HomeCoverages, renewal.HomeCoverages)...)
	changes = append(changes, diffVehicles(prior, renewal)...)
	changes = append(changes, diffDrivers(prior, renewal)...)
	changes = append(changes, diffEndorsements(prior, renewal)...)

	return Result{PolicyNumber: prior.PolicyNumber, Changes: changes}
}
