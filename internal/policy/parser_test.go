package policy

import (
	"errors"
	"testing"
)

const autoPairJSON = `{
  "prior": {
    "policy_number": " AUTO-2024-0001 ",
    "policy_type": "AUTO",
    "carrier": "StateFarm",
    "effective_date": "2024/01/15",
    "expiration_date": "2025/01/15",
    "premium": 1200.0,
    "state": "ca",
    "auto_coverages": {"bodily_injury_limit": "100/300"},
    "vehicles": [{"vin": "1hgbh41jxmn109186", "year": 2020, "make": "Honda", "model": "Civic"}],
    "drivers": [{"license_number": "d1234567", "name": "Driver One", "age": 40}]
  },
  "renewal": {
    "policy_number": "AUTO-2024-0001",
    "policy_type": "auto",
    "carrier": "StateFarm",
    "effective_date": "2025-01-15",
    "expiration_date": "2026-01-15",
    "premium": 1356.0,
    "auto_coverages": {}
  }
}`

func TestParsePairNormalizes(t *testing.T) {
	pair, err := ParsePair([]byte(autoPairJSON))
	if err != nil {
		t.Fatalf("parse pair: %v", err)
	}

	prior := pair.Prior
	if prior.PolicyNumber != "AUTO-2024-0001" {
		t.Fatalf("expected trimmed policy number, got %q", prior.PolicyNumber)
	}
	if prior.PolicyType != TypeAuto {
		t.Fatalf("expected auto type, got %q", prior.PolicyType)
	}
	if prior.EffectiveDate != "2024-01-15" {
		t.Fatalf("expected normalized date, got %q", prior.EffectiveDate)
	}
	if prior.State != "CA" {
		t.Fatalf("expected uppercase state, got %q", prior.State)
	}
	if prior.Vehicles[0].VIN != "1HGBH41JXMN109186" {
		t.Fatalf("expected uppercase VIN, got %q", prior.Vehicles[0].VIN)
	}
	if prior.Vehicles[0].Usage != "personal" {
		t.Fatalf("expected default usage, got %q", prior.Vehicles[0].Usage)
	}
	if prior.Drivers[0].LicenseNumber != "D1234567" {
		t.Fatalf("expected uppercase license, got %q", prior.Drivers[0].LicenseNumber)
	}
}

func TestParseAutoCoverageDefaults(t *testing.T) {
	pair, err := ParsePair([]byte(autoPairJSON))
	if err != nil {
		t.Fatalf("parse pair: %v", err)
	}
	cov := pair.Renewal.AutoCoverages
	if cov == nil {
		t.Fatal("expected auto coverages present")
	}
	if cov.BodilyInjuryLimit != "100/300" {
		t.Fatalf("expected default BI limit, got %q", cov.BodilyInjuryLimit)
	}
	if cov.CollisionDeductible != 500 {
		t.Fatalf("expected default collision deductible 500, got %v", cov.CollisionDeductible)
	}
	if cov.MedicalPayments != 5000 {
		t.Fatalf("expected default medical payments 5000, got %v", cov.MedicalPayments)
	}
}

func TestParseHomeCoverageDefaults(t *testing.T) {
	raw := `{
	  "prior": {
	    "policy_number": "HOME-2024-0001", "policy_type": "home", "carrier": "Allstate",
	    "effective_date": "2024-03-01", "expiration_date": "2025-03-01", "premium": 2400,
	    "home_coverages": {"wind_hail_deductible": 2500}
	  },
	  "renewal": {
	    "policy_number": "HOME-2024-0001", "policy_type": "home", "carrier": "Allstate",
	    "effective_date": "2025-03-01", "expiration_date": "2026-03-01", "premium": 2600,
	    "home_coverages": {}
	  }
	}`
	pair, err := ParsePair([]byte(raw))
	if err != nil {
		t.Fatalf("parse pair: %v", err)
	}
	cov := pair.Prior.HomeCoverages
	if cov == nil {
		t.Fatal("expected home coverages present")
	}
	if cov.CoverageADwelling != 300000 {
		t.Fatalf("expected default dwelling 300000, got %v", cov.CoverageADwelling)
	}
	if !cov.ReplacementCost {
		t.Fatal("expected replacement cost default true")
	}
	if cov.WindHailDeductible == nil || *cov.WindHailDeductible != 2500 {
		t.Fatalf("expected wind/hail deductible 2500, got %v", cov.WindHailDeductible)
	}
	if pair.Renewal.HomeCoverages.WindHailDeductible != nil {
		t.Fatal("expected absent wind/hail deductible to stay nil")
	}
}

func TestParsePairValidation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown type", `{"prior": {"policy_number": "P1", "policy_type": "boat", "carrier": "X", "effective_date": "2024-01-01", "expiration_date": "2025-01-01", "premium": 100}, "renewal": {"policy_number": "P1", "policy_type": "boat", "carrier": "X", "effective_date": "2025-01-01", "expiration_date": "2026-01-01", "premium": 100}}`},
		{"missing renewal", `{"prior": {"policy_number": "P1", "policy_type": "auto", "carrier": "X", "effective_date": "2024-01-01", "expiration_date": "2025-01-01", "premium": 100}}`},
		{"mismatched numbers", `{"prior": {"policy_number": "P1", "policy_type": "auto", "carrier": "X", "effective_date": "2024-01-01", "expiration_date": "2025-01-01", "premium": 100}, "renewal": {"policy_number": "P2", "policy_type": "auto", "carrier": "X", "effective_date": "2025-01-01", "expiration_date": "2026-01-01", "premium": 100}}`},
		{"negative premium", `{"prior": {"policy_number": "P1", "policy_type": "auto", "carrier": "X", "effective_date": "2024-01-01", "expiration_date": "2025-01-01", "premium": -5}, "renewal": {"policy_number": "P1", "policy_type": "auto", "carrier": "X", "effective_date": "2025-01-01", "expiration_date": "2026-01-01", "premium": 100}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePair([]byte(tc.raw))
			if err == nil {
				t.Fatal("expected validation error")
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %T: %v", err, err)
			}
		})
	}
}
