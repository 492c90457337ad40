package policy

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Raw wire shapes. Defaultable coverage fields are pointers so absent keys
// can be told apart from explicit zero values.
type rawAutoCoverages struct {
	BodilyInjuryLimit       *string  `json:"bodily_injury_limit"`
	PropertyDamageLimit     *string  `json:"property_damage_limit"`
	CollisionDeductible     *float64 `json:"collision_deductible"`
	ComprehensiveDeductible *float64 `json:"comprehensive_deductible"`
	UninsuredMotorist       *string  `json:"uninsured_motorist"`
	MedicalPayments         *float64 `json:"medical_payments"`
	RentalReimbursement     *bool    `json:"rental_reimbursement"`
	RoadsideAssistance      *bool    `json:"roadside_assistance"`
}

type rawHomeCoverages struct {
	CoverageADwelling         *float64 `json:"coverage_a_dwelling"`
	CoverageBOtherStructures  *float64 `json:"coverage_b_other_structures"`
	CoverageCPersonalProperty *float64 `json:"coverage_c_personal_property"`
	CoverageDLossOfUse        *float64 `json:"coverage_d_loss_of_use"`
	CoverageELiability        *float64 `json:"coverage_e_liability"`
	CoverageFMedical          *float64 `json:"coverage_f_medical"`
	Deductible                *float64 `json:"deductible"`
	WindHailDeductible        *float64 `json:"wind_hail_deductible"`
	WaterBackup               *bool    `json:"water_backup"`
	ReplacementCost           *bool    `json:"replacement_cost"`
}

type rawVehicle struct {
	VIN   string `json:"vin"`
	Year  int    `json:"year"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Usage string `json:"usage"`
}

type rawDriver struct {
	LicenseNumber string `json:"license_number"`
	Name          string `json:"name"`
	Age           int    `json:"age"`
	Violations    int    `json:"violations"`
	SR22          bool   `json:"sr22"`
}

type rawEndorsement struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Premium     float64 `json:"premium"`
}

type rawSnapshot struct {
	PolicyNumber   string            `json:"policy_number"`
	PolicyType     string            `json:"policy_type"`
	Carrier        string            `json:"carrier"`
	EffectiveDate  string            `json:"effective_date"`
	ExpirationDate string            `json:"expiration_date"`
	Premium        float64           `json:"premium"`
	State          string            `json:"state"`
	Notes          string            `json:"notes"`
	AutoCoverages  *rawAutoCoverages `json:"auto_coverages"`
	HomeCoverages  *rawHomeCoverages `json:"home_coverages"`
	Vehicles       []rawVehicle      `json:"vehicles"`
	Drivers        []rawDriver       `json:"drivers"`
	Endorsements   []rawEndorsement  `json:"endorsements"`
}

type rawPair struct {
	Prior   *rawSnapshot `json:"prior"`
	Renewal *rawSnapshot `json:"renewal"`
}

// ValidationError marks unparseable raw input at the ingestion boundary.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid renewal pair: " + e.Reason
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func normalizeDate(val string) string {
	return strings.ReplaceAll(strings.TrimSpace(val), "/", "-")
}

func stringOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func parseSnapshot(raw *rawSnapshot) (PolicySnapshot, error) {
	if raw == nil {
		return PolicySnapshot{}, validationErrorf("snapshot missing")
	}

	var policyType PolicyType
	switch strings.ToLower(strings.TrimSpace(raw.PolicyType)) {
	case string(TypeAuto):
		policyType = TypeAuto
	case string(TypeHome):
		policyType = TypeHome
	default:
		return PolicySnapshot{}, validationErrorf("unknown policy type %q", raw.PolicyType)
	}

	policyNumber := strings.TrimSpace(raw.PolicyNumber)
	if policyNumber == "" {
		return PolicySnapshot{}, validationErrorf("policy_number is required")
	}
	if raw.Premium < 0 {
		return PolicySnapshot{}, validationErrorf("premium must be non-negative")
	}

	snap := PolicySnapshot{
		PolicyNumber:   policyNumber,
		PolicyType:     policyType,
		Carrier:        strings.TrimSpace(raw.Carrier),
		EffectiveDate:  normalizeDate(raw.EffectiveDate),
		ExpirationDate: normalizeDate(raw.ExpirationDate),
		Premium:        raw.Premium,
		State:          strings.ToUpper(strings.TrimSpace(raw.State)),
		Notes:          strings.TrimSpace(raw.Notes),
	}
	if snap.State == "" {
		snap.State = "CA"
	}

	if policyType == TypeAuto && raw.AutoCoverages != nil {
		ac := raw.AutoCoverages
		snap.AutoCoverages = &AutoCoverages{
			BodilyInjuryLimit:       stringOr(ac.BodilyInjuryLimit, "100/300"),
			PropertyDamageLimit:     stringOr(ac.PropertyDamageLimit, "100"),
			CollisionDeductible:     floatOr(ac.CollisionDeductible, 500),
			ComprehensiveDeductible: floatOr(ac.ComprehensiveDeductible, 250),
			UninsuredMotorist:       stringOr(ac.UninsuredMotorist, "100/300"),
			MedicalPayments:         floatOr(ac.MedicalPayments, 5000),
			RentalReimbursement:     boolOr(ac.RentalReimbursement, false),
			RoadsideAssistance:      boolOr(ac.RoadsideAssistance, false),
		}
	}

	if policyType == TypeHome && raw.HomeCoverages != nil {
		hc := raw.HomeCoverages
		home := &HomeCoverages{
			CoverageADwelling:         floatOr(hc.CoverageADwelling, 300000),
			CoverageBOtherStructures:  floatOr(hc.CoverageBOtherStructures, 30000),
			CoverageCPersonalProperty: floatOr(hc.CoverageCPersonalProperty, 150000),
			CoverageDLossOfUse:        floatOr(hc.CoverageDLossOfUse, 60000),
			CoverageELiability:        floatOr(hc.CoverageELiability, 100000),
			CoverageFMedical:          floatOr(hc.CoverageFMedical, 5000),
			Deductible:                floatOr(hc.Deductible, 1000),
			WaterBackup:               boolOr(hc.WaterBackup, false),
			ReplacementCost:           boolOr(hc.ReplacementCost, true),
		}
		if hc.WindHailDeductible != nil && *hc.WindHailDeductible != 0 {
			whd := *hc.WindHailDeductible
			home.WindHailDeductible = &whd
		}
		snap.HomeCoverages = home
	}

	for _, v := range raw.Vehicles {
		usage := strings.TrimSpace(v.Usage)
		if usage == "" {
			usage = "personal"
		}
		snap.Vehicles = append(snap.Vehicles, Vehicle{
			VIN:   strings.ToUpper(strings.TrimSpace(v.VIN)),
			Year:  v.Year,
			Make:  strings.TrimSpace(v.Make),
			Model: strings.TrimSpace(v.Model),
			Usage: usage,
		})
	}
	for _, d := range raw.Drivers {
		snap.Drivers = append(snap.Drivers, Driver{
			LicenseNumber: strings.ToUpper(strings.TrimSpace(d.LicenseNumber)),
			Name:          strings.TrimSpace(d.Name),
			Age:           d.Age,
			Violations:    d.Violations,
			SR22:          d.SR22,
		})
	}
	for _, e := range raw.Endorsements {
		snap.Endorsements = append(snap.Endorsements, Endorsement{
			Code:        strings.ToUpper(strings.TrimSpace(e.Code)),
			Description: strings.TrimSpace(e.Description),
			Premium:     e.Premium,
		})
	}

	return snap, nil
}

// ParsePair decodes and normalizes a raw prior/renewal payload. The prior
// and renewal snapshots must share the same policy number and type.
func ParsePair(data []byte) (RenewalPair, error) {
	var raw rawPair
	if err := json.Unmarshal(data, &raw); err != nil {
		return RenewalPair{}, validationErrorf("decode: %v", err)
	}

	prior, err := parseSnapshot(raw.Prior)
	if err != nil {
		return RenewalPair{}, fmt.Errorf("prior: %w", err)
	}
	renewal, err := parseSnapshot(raw.Renewal)
	if err != nil {
		return RenewalPair{}, fmt.Errorf("renewal: %w", err)
	}

	if prior.PolicyNumber != renewal.PolicyNumber {
		return RenewalPair{}, validationErrorf("policy numbers differ: %s vs %s", prior.PolicyNumber, renewal.PolicyNumber)
	}
	if prior.PolicyType != renewal.PolicyType {
		return RenewalPair{}, validationErrorf("policy types differ: %s vs %s", prior.PolicyType, renewal.PolicyType)
	}

	return RenewalPair{Prior: prior, Renewal: renewal}, nil
}

// ParsePairs decodes an array of raw pairs, e.g. a generated dataset file.
func ParsePairs(data []byte) ([]RenewalPair, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, validationErrorf("decode pair list: %v", err)
	}
	pairs := make([]RenewalPair, 0, len(raws))
	for i, r := range raws {
		pair, err := ParsePair(r)
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}
