package pipeline

import (
	"math"
	"strings"
	"unicode"
)

const metersPerFoot = 0.3048

// Units captures the DSM's linear unit for output labeling and for
// converting the feet-denominated inputs into native units.
type Units struct {
	Name          string // "feet" or "meters", as emitted in properties
	MetersPerUnit float64
	Authoritative bool // false when guessed from the CRS description
}

// InferUnits prefers the CRS's declared linear-unit factor. The substring
// heuristic the legacy scripts relied on survives only as a fallback for
// rasters whose CRS carries no unit metadata.
func InferUnits(metersPerUnit float64, haveUnits bool, crsText string) Units {
	if haveUnits && metersPerUnit > 0 {
		name := "meters"
		// covers both the international and the US survey foot
		if math.Abs(metersPerUnit-metersPerFoot) < 1e-4 {
			name = "feet"
		}
		return Units{Name: name, MetersPerUnit: metersPerUnit, Authoritative: true}
	}
	lower := strings.ToLower(crsText)
	if strings.Contains(lower, "foot") || hasFootToken(lower) {
		return Units{Name: "feet", MetersPerUnit: metersPerFoot}
	}
	return Units{Name: "meters", MetersPerUnit: 1}
}

// hasFootToken looks for foot abbreviations as whole words, so
// "+units=us-ft" and "(ftUS)" match but "Delft" does not.
func hasFootToken(s string) bool {
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }) {
		switch tok {
		case "ft", "ftus", "usft":
			return true
		}
	}
	return false
}

// FromFeet converts a feet-denominated input value into native units.
func (u Units) FromFeet(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v * metersPerFoot / u.MetersPerUnit
}
