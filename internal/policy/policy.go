package policy

// PolicyType distinguishes personal auto policies from homeowners policies.
type PolicyType string

const (
	TypeAuto PolicyType = "auto"
	TypeHome PolicyType = "home"
)

// Vehicle is keyed by VIN (uppercase) for set comparison across terms.
type Vehicle struct {
	VIN   string `json:"vin"`
	Year  int    `json:"year"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Usage string `json:"usage"`
}

// Driver is keyed by license number (uppercase).
type Driver struct {
	LicenseNumber string `json:"license_number"`
	Name          string `json:"name"`
	Age           int    `json:"age"`
	Violations    int    `json:"violations"`
	SR22          bool   `json:"sr22"`
}

// Endorsement is keyed by form code (uppercase); description and premium are
// independently diffable once codes match.
type Endorsement struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Premium     float64 `json:"premium"`
}

// AutoCoverages holds the personal auto coverage block.
type AutoCoverages struct {
	BodilyInjuryLimit       string  `json:"bodily_injury_limit"`
	PropertyDamageLimit     string  `json:"property_damage_limit"`
	CollisionDeductible     float64 `json:"collision_deductible"`
	ComprehensiveDeductible float64 `json:"comprehensive_deductible"`
	UninsuredMotorist       string  `json:"uninsured_motorist"`
	MedicalPayments         float64 `json:"medical_payments"`
	RentalReimbursement     bool    `json:"rental_reimbursement"`
	RoadsideAssistance      bool    `json:"roadside_assistance"`
}

// HomeCoverages holds the homeowners coverage block. WindHailDeductible is
// nil when the state does not require a separate wind/hail deductible.
type HomeCoverages struct {
	CoverageADwelling         float64  `json:"coverage_a_dwelling"`
	CoverageBOtherStructures  float64  `json:"coverage_b_other_structures"`
	CoverageCPersonalProperty float64  `json:"coverage_c_personal_property"`
	CoverageDLossOfUse        float64  `json:"coverage_d_loss_of_use"`
	CoverageELiability        float64  `json:"coverage_e_liability"`
	CoverageFMedical          float64  `json:"coverage_f_medical"`
	Deductible                float64  `json:"deductible"`
	WindHailDeductible        *float64 `json:"wind_hail_deductible,omitempty"`
	WaterBackup               bool     `json:"water_backup"`
	ReplacementCost           bool     `json:"replacement_cost"`
}

// PolicySnapshot is one side (prior or renewal) of a policy at a point in
// time. Exactly one of AutoCoverages/HomeCoverages is present, matching the
// policy type. Snapshots are constructed once by the parser and never
// mutated afterwards.
type PolicySnapshot struct {
	PolicyNumber   string         `json:"policy_number"`
	PolicyType     PolicyType     `json:"policy_type"`
	Carrier        string         `json:"carrier"`
	EffectiveDate  string         `json:"effective_date"`
	ExpirationDate string         `json:"expiration_date"`
	Premium        float64        `json:"premium"`
	State          string         `json:"state"`
	Notes          string         `json:"notes"`
	AutoCoverages  *AutoCoverages `json:"auto_coverages,omitempty"`
	HomeCoverages  *HomeCoverages `json:"home_coverages,omitempty"`
	Vehicles       []Vehicle      `json:"vehicles"`
	Drivers        []Driver       `json:"drivers"`
	Endorsements   []Endorsement  `json:"endorsements"`
}

// RenewalPair is the unit of comparison: the prior term and the renewal term
// of the same policy.
type RenewalPair struct {
	Prior   PolicySnapshot `json:"prior"`
	Renewal PolicySnapshot `json:"renewal"`
}
