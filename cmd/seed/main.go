package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"renewal-review/backend/internal/policy"
	"renewal-review/backend/internal/store"
)

var carriers = []string{
	"StateFarm",
	"Allstate",
	"GEICO",
	"Progressive",
	"USAA",
	"Liberty Mutual",
	"Farmers",
	"Nationwide",
	"Travelers",
	"American Family",
}

type endorsementCode struct {
	code        string
	description string
}

var autoEndorsements = []endorsementCode{
	{"UM100", "Uninsured motorist coverage enhancement"},
	{"RSA01", "Roadside assistance package"},
	{"GAP01", "Gap insurance coverage"},
	{"RNT01", "Rental reimbursement"},
	{"ACC01", "Accident forgiveness"},
}

var homeEndorsements = []endorsementCode{
	{"HO 04 61", "Scheduled personal property"},
	{"HO 04 95", "Water backup and sump overflow coverage"},
	{"ID01", "Identity theft protection"},
	{"EQ01", "Earthquake coverage endorsement"},
	{"FL01", "Flood insurance supplement"},
}

var states = []string{"CA", "TX", "FL", "NY", "IL", "PA", "OH", "GA", "NC", "MI"}

type makeModel struct {
	make  string
	model string
}

var makesModels = []makeModel{
	{"Honda", "Civic"},
	{"Toyota", "Camry"},
	{"Ford", "F-150"},
	{"Chevrolet", "Equinox"},
	{"Tesla", "Model 3"},
	{"Hyundai", "Tucson"},
	{"BMW", "X3"},
	{"Nissan", "Altima"},
	{"Subaru", "Outback"},
	{"Mazda", "CX-5"},
}

var notesPool = []string{
	"Premium increase due to regional rate adjustment",
	"Inflation guard applied to dwelling coverage",
	"Claim filed last year for water damage - monitor for rate impact",
	"New teen driver added - high risk profile",
	"SR-22 filing required per state mandate",
	"Roof age exceeds 20 years - consider replacement discount eligibility",
	"Bundle discount removed - auto policy moved to different carrier",
	"Credit score improvement - may qualify for preferred tier next renewal",
	"Hail damage claim pending from Q3 - watch for surcharge",
	"Dog breed exclusion may apply - verify liability coverage adequacy",
	"Home security system installed - potential discount next term",
	"Swimming pool added - liability exposure increased",
	"Policy was non-renewed by prior carrier due to loss history",
	"Underwriting review recommended for consecutive claim years",
	"Garage kept vehicle - usage verified via telematics data",
}

const vinChars = "0123456789ABCDEFGHJKLMNPRSTUVWXYZ"

type generator struct {
	rng *rand.Rand
}

func (g *generator) vin() string {
	out := make([]byte, 17)
	for i := range out {
		out[i] = vinChars[g.rng.Intn(len(vinChars))]
	}
	return string(out)
}

func (g *generator) date2024() time.Time {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return start.AddDate(0, 0, g.rng.Intn(365))
}

func (g *generator) round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func (g *generator) uniform(low, high float64) float64 {
	return low + g.rng.Float64()*(high-low)
}

func (g *generator) gauss(mean, stddev float64) float64 {
	return g.rng.NormFloat64()*stddev + mean
}

func (g *generator) choiceString(options []string) string {
	return options[g.rng.Intn(len(options))]
}

func (g *generator) choiceFloat(options []float64) float64 {
	return options[g.rng.Intn(len(options))]
}

func (g *generator) sampleEndorsements(pool []endorsementCode, n int) []endorsementCode {
	if n > len(pool) {
		n = len(pool)
	}
	perm := g.rng.Perm(len(pool))
	out := make([]endorsementCode, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, pool[idx])
	}
	return out
}

func clonePair(prior policy.PolicySnapshot) policy.PolicySnapshot {
	renewal := prior
	if prior.AutoCoverages != nil {
		ac := *prior.AutoCoverages
		renewal.AutoCoverages = &ac
	}
	if prior.HomeCoverages != nil {
		hc := *prior.HomeCoverages
		if prior.HomeCoverages.WindHailDeductible != nil {
			whd := *prior.HomeCoverages.WindHailDeductible
			hc.WindHailDeductible = &whd
		}
		renewal.HomeCoverages = &hc
	}
	renewal.Vehicles = append([]policy.Vehicle(nil), prior.Vehicles...)
	renewal.Drivers = append([]policy.Driver(nil), prior.Drivers...)
	renewal.Endorsements = append([]policy.Endorsement(nil), prior.Endorsements...)
	return renewal
}

func (g *generator) autoPair(idx int) policy.RenewalPair {
	policyNum := fmt.Sprintf("AUTO-2024-%04d", idx)
	state := g.choiceString(states)
	carrier := g.choiceString(carriers)
	eff := g.date2024()
	exp := eff.AddDate(0, 0, 365)

	basePremium := g.round2(g.uniform(600, 4000))
	bi := g.choiceString([]string{"25/50", "50/100", "100/300", "250/500"})
	collDed := g.choiceFloat([]float64{250, 500, 1000})

	prior := policy.PolicySnapshot{
		PolicyNumber:   policyNum,
		PolicyType:     policy.TypeAuto,
		Carrier:        carrier,
		EffectiveDate:  eff.Format("2006-01-02"),
		ExpirationDate: exp.Format("2006-01-02"),
		Premium:        basePremium,
		State:          state,
		AutoCoverages: &policy.AutoCoverages{
			BodilyInjuryLimit:       bi,
			PropertyDamageLimit:     g.choiceString([]string{"25", "50", "100"}),
			CollisionDeductible:     collDed,
			ComprehensiveDeductible: g.choiceFloat([]float64{100, 250, 500}),
			UninsuredMotorist:       bi,
			MedicalPayments:         g.choiceFloat([]float64{1000, 2000, 5000, 10000}),
			RentalReimbursement:     g.rng.Float64() < 0.4,
			RoadsideAssistance:      g.rng.Float64() < 0.3,
		},
	}

	for i := 0; i < 1+g.rng.Intn(3); i++ {
		mm := makesModels[g.rng.Intn(len(makesModels))]
		prior.Vehicles = append(prior.Vehicles, policy.Vehicle{
			VIN:   g.vin(),
			Year:  2015 + g.rng.Intn(10),
			Make:  mm.make,
			Model: mm.model,
			Usage: g.choiceString([]string{"personal", "commute", "business"}),
		})
	}

	violationOptions := []int{0, 0, 0, 1, 1, 2, 3}
	for j := 0; j < 1+g.rng.Intn(3); j++ {
		prior.Drivers = append(prior.Drivers, policy.Driver{
			LicenseNumber: fmt.Sprintf("D%d", 1000000+g.rng.Intn(9000000)),
			Name:          fmt.Sprintf("Driver %d-%d", idx, j),
			Age:           16 + g.rng.Intn(60),
			Violations:    violationOptions[g.rng.Intn(len(violationOptions))],
			SR22:          g.rng.Float64() < 0.03,
		})
	}

	for _, ec := range g.sampleEndorsements(autoEndorsements, g.rng.Intn(4)) {
		prior.Endorsements = append(prior.Endorsements, policy.Endorsement{
			Code:        ec.code,
			Description: ec.description,
			Premium:     g.round2(g.uniform(10, 80)),
		})
	}

	renewal := clonePair(prior)
	renewal.EffectiveDate = exp.Format("2006-01-02")
	renewal.ExpirationDate = exp.AddDate(0, 0, 365).Format("2006-01-02")

	// premium always changes
	pct := g.gauss(6, 8)
	renewal.Premium = g.round2(basePremium * (1 + pct/100))

	// carrier change (5%)
	if g.rng.Float64() < 0.05 {
		for {
			next := g.choiceString(carriers)
			if next != carrier {
				renewal.Carrier = next
				break
			}
		}
	}

	// liability decrease (8%)
	if g.rng.Float64() < 0.08 {
		renewal.AutoCoverages.BodilyInjuryLimit = g.choiceString([]string{"25/50", "50/100"})
	}

	// deductible increase (12%)
	if g.rng.Float64() < 0.12 {
		renewal.AutoCoverages.CollisionDeductible = collDed + 250
	}

	// vehicle churn (10% add, 5% remove)
	if g.rng.Float64() < 0.10 {
		mm := makesModels[g.rng.Intn(len(makesModels))]
		renewal.Vehicles = append(renewal.Vehicles, policy.Vehicle{
			VIN:   g.vin(),
			Year:  2023 + g.rng.Intn(3),
			Make:  mm.make,
			Model: mm.model,
			Usage: "personal",
		})
	}
	if len(renewal.Vehicles) > 1 && g.rng.Float64() < 0.05 {
		renewal.Vehicles = renewal.Vehicles[1:]
	}

	g.churnEndorsements(&renewal, autoEndorsements, 15, 60)

	// notes (30%)
	if g.rng.Float64() < 0.30 {
		renewal.Notes = g.choiceString(notesPool)
	}

	return policy.RenewalPair{Prior: prior, Renewal: renewal}
}

func (g *generator) homePair(idx int) policy.RenewalPair {
	policyNum := fmt.Sprintf("HOME-2024-%04d", idx)
	state := g.choiceString(states)
	carrier := g.choiceString(carriers)
	eff := g.date2024()
	exp := eff.AddDate(0, 0, 365)

	basePremium := g.round2(g.uniform(1200, 6000))
	dwelling := float64(int(g.uniform(150000, 800000)/1000)) * 1000

	hc := &policy.HomeCoverages{
		CoverageADwelling:         dwelling,
		CoverageBOtherStructures:  float64(int(dwelling * 0.10)),
		CoverageCPersonalProperty: float64(int(dwelling * 0.50)),
		CoverageDLossOfUse:        float64(int(dwelling * 0.20)),
		CoverageELiability:        g.choiceFloat([]float64{100000, 300000, 500000}),
		CoverageFMedical:          g.choiceFloat([]float64{1000, 2500, 5000}),
		Deductible:                g.choiceFloat([]float64{500, 1000, 1500, 2500}),
		WaterBackup:               g.rng.Float64() < 0.5,
		ReplacementCost:           g.rng.Float64() < 0.8,
	}
	// separate wind/hail deductible only in coastal states
	if state == "TX" || state == "FL" || state == "NC" {
		whd := g.choiceFloat([]float64{1000, 2500, 5000})
		hc.WindHailDeductible = &whd
	}

	prior := policy.PolicySnapshot{
		PolicyNumber:   policyNum,
		PolicyType:     policy.TypeHome,
		Carrier:        carrier,
		EffectiveDate:  eff.Format("2006-01-02"),
		ExpirationDate: exp.Format("2006-01-02"),
		Premium:        basePremium,
		State:          state,
		HomeCoverages:  hc,
	}

	for _, ec := range g.sampleEndorsements(homeEndorsements, g.rng.Intn(4)) {
		prior.Endorsements = append(prior.Endorsements, policy.Endorsement{
			Code:        ec.code,
			Description: ec.description,
			Premium:     g.round2(g.uniform(30, 150)),
		})
	}

	renewal := clonePair(prior)
	renewal.EffectiveDate = exp.Format("2006-01-02")
	renewal.ExpirationDate = exp.AddDate(0, 0, 365).Format("2006-01-02")

	pct := g.gauss(8, 10)
	renewal.Premium = g.round2(basePremium * (1 + pct/100))

	// inflation guard (70%)
	if g.rng.Float64() < 0.70 {
		guardPct := g.uniform(2, 6)
		rc := renewal.HomeCoverages
		rc.CoverageADwelling = float64(int(dwelling * (1 + guardPct/100)))
		rc.CoverageBOtherStructures = float64(int(rc.CoverageADwelling * 0.10))
		rc.CoverageCPersonalProperty = float64(int(rc.CoverageADwelling * 0.50))
		rc.CoverageDLossOfUse = float64(int(rc.CoverageADwelling * 0.20))
	}

	// deductible increase (15%)
	if g.rng.Float64() < 0.15 {
		renewal.HomeCoverages.Deductible += 500
	}

	// wind/hail deductible increase (10% where applicable)
	if renewal.HomeCoverages.WindHailDeductible != nil && g.rng.Float64() < 0.10 {
		bumped := *renewal.HomeCoverages.WindHailDeductible + 2500
		renewal.HomeCoverages.WindHailDeductible = &bumped
	}

	// coverage drops (8%)
	if g.rng.Float64() < 0.08 {
		renewal.HomeCoverages.WaterBackup = false
	}

	// carrier change (5%)
	if g.rng.Float64() < 0.05 {
		for {
			next := g.choiceString(carriers)
			if next != carrier {
				renewal.Carrier = next
				break
			}
		}
	}

	g.churnEndorsements(&renewal, homeEndorsements, 30, 150)

	// notes (30%)
	if g.rng.Float64() < 0.30 {
		renewal.Notes = g.choiceString(notesPool)
	}

	return policy.RenewalPair{Prior: prior, Renewal: renewal}
}

// churnEndorsements adds a new endorsement 20% of the time and drops a random
// one 10% of the time.
func (g *generator) churnEndorsements(snap *policy.PolicySnapshot, pool []endorsementCode, premiumLow, premiumHigh float64) {
	if g.rng.Float64() < 0.20 {
		existing := make(map[string]struct{}, len(snap.Endorsements))
		for _, e := range snap.Endorsements {
			existing[e.Code] = struct{}{}
		}
		var available []endorsementCode
		for _, ec := range pool {
			if _, ok := existing[ec.code]; !ok {
				available = append(available, ec)
			}
		}
		if len(available) > 0 {
			ec := available[g.rng.Intn(len(available))]
			snap.Endorsements = append(snap.Endorsements, policy.Endorsement{
				Code:        ec.code,
				Description: ec.description,
				Premium:     g.round2(g.uniform(premiumLow, premiumHigh)),
			})
		}
	}
	if len(snap.Endorsements) > 0 && g.rng.Float64() < 0.10 {
		idx := g.rng.Intn(len(snap.Endorsements))
		snap.Endorsements = append(snap.Endorsements[:idx], snap.Endorsements[idx+1:]...)
	}
}

func main() {
	var (
		outPath   = flag.String("out", filepath.Join("data", "renewals.json"), "output dataset path")
		dbPath    = flag.String("db", "", "also load the dataset into this sqlite database")
		autoCount = flag.Int("auto", 4800, "number of auto renewal pairs")
		homeCount = flag.Int("home", 3200, "number of home renewal pairs")
		seed      = flag.Int64("seed", 42, "random seed")
	)
	flag.Parse()

	g := &generator{rng: rand.New(rand.NewSource(*seed))}

	pairs := make([]policy.RenewalPair, 0, *autoCount+*homeCount)
	for i := 0; i < *autoCount; i++ {
		pairs = append(pairs, g.autoPair(i))
	}
	for i := 0; i < *homeCount; i++ {
		pairs = append(pairs, g.homePair(i))
	}
	g.rng.Shuffle(len(pairs), func(i, j int) {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	})

	payload, err := json.Marshal(pairs)
	if err != nil {
		logrus.Fatalf("encode dataset: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		logrus.Fatalf("create output directory: %v", err)
	}
	if err := os.WriteFile(*outPath, payload, 0o644); err != nil {
		logrus.Fatalf("write dataset: %v", err)
	}

	if *dbPath != "" {
		db, err := store.Open(*dbPath, false)
		if err != nil {
			logrus.Fatalf("open database: %v", err)
		}
		if err := db.ReplacePairs(pairs); err != nil {
			logrus.Fatalf("load pairs into database: %v", err)
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("close database")
		}
		logrus.WithField("path", *dbPath).Info("database seeded")
	}

	withNotes := 0
	for _, pair := range pairs {
		if pair.Renewal.Notes != "" {
			withNotes++
		}
	}
	logrus.WithFields(logrus.Fields{
		"pairs":      len(pairs),
		"auto":       *autoCount,
		"home":       *homeCount,
		"with_notes": withNotes,
		"path":       *outPath,
		"size_mb":    fmt.Sprintf("%.1f", float64(len(payload))/(1024*1024)),
	}).Info("generated renewal dataset")
}
