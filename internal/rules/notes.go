package rules

import (
	"strings"

	"renewal-review/backend/internal/diff"
)

// NotesKeywords configures the keyword lists scanned per risk category.
// Matching is case-insensitive substring search; the first hit in a category
// fires that category's flag and stops scanning it.
type NotesKeywords struct {
	ClaimsHistory []string
	PropertyRisk  []string
	Regulatory    []string
	DriverRisk    []string
}

func DefaultNotesKeywords() NotesKeywords {
	return NotesKeywords{
		ClaimsHistory: []string{"claim", "loss history", "surcharge"},
		PropertyRisk:  []string{"roof", "flood", "hail", "wildfire", "water damage"},
		Regulatory:    []string{"non-renewal", "non-renewed", "state mandate"},
		DriverRisk:    []string{"dui", "sr-22", "teen driver", "license suspension"},
	}
}

type notesCategory struct {
	keywords []string
	flag     diff.Flag
}

// FlagNotesKeywords scans free-form notes for risk keywords and returns the
// flags of every matching category, in category order.
func FlagNotesKeywords(notes string, kw NotesKeywords) []diff.Flag {
	if notes == "" {
		return nil
	}

	lower := strings.ToLower(notes)
	categories := []notesCategory{
		{kw.ClaimsHistory, diff.FlagClaimsHistory},
		{kw.PropertyRisk, diff.FlagPropertyRisk},
		{kw.Regulatory, diff.FlagRegulatory},
		{kw.DriverRisk, diff.FlagDriverRiskNote},
	}

	var flags []diff.Flag
	for _, cat := range categories {
		for _, keyword := range cat.keywords {
			if strings.Contains(lower, strings.ToLower(keyword)) {
				flags = append(flags, cat.flag)
				break
			}
		}
	}
	return flags
}
