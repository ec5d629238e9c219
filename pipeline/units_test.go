package pipeline

import (
	"math"
	"testing"
)

func TestInferUnits(t *testing.T) {
	tests := []struct {
		name          string
		metersPerUnit float64
		haveUnits     bool
		crsText       string
		wantName      string
		wantAuth      bool
	}{
		{"declared meters", 1.0, true, `PROJCS["UTM",UNIT["metre",1]]`, "meters", true},
		{"declared international foot", 0.3048, true, "", "feet", true},
		{"declared US survey foot", 0.30480060960121924, true, "", "feet", true},
		{"no metadata, foot in description", 0, false, `PROJCS["NAD83 / ftUS",UNIT["US survey foot"]]`, "feet", false},
		{"no metadata, ft abbreviation", 0, false, `+proj=lcc +units=us-ft +no_defs`, "feet", false},
		{"no metadata, ftUS suffix", 0, false, `PROJCS["NAD83 / California zone 3 (ftUS)"]`, "feet", false},
		{"no metadata, plain description", 0, false, `GEOGCS["WGS 84"]`, "meters", false},
		{"no metadata, ft inside a word", 0, false, `PROJCS["Amersfoort / RD New, Delft"]`, "meters", false},
		{"no metadata, shifted datum wording", 0, false, `GEOGCS["WGS 84 shifted"]`, "meters", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := InferUnits(tc.metersPerUnit, tc.haveUnits, tc.crsText)
			if u.Name != tc.wantName {
				t.Errorf("Name=%q want=%q", u.Name, tc.wantName)
			}
			if u.Authoritative != tc.wantAuth {
				t.Errorf("Authoritative=%v want=%v", u.Authoritative, tc.wantAuth)
			}
		})
	}
}

func TestFromFeet(t *testing.T) {
	meters := Units{Name: "meters", MetersPerUnit: 1, Authoritative: true}
	if got := meters.FromFeet(10); math.Abs(got-3.048) > 1e-12 {
		t.Errorf("10 ft in meters = %v, want 3.048", got)
	}
	if got := meters.FromFeet(500); math.Abs(got-152.4) > 1e-9 {
		t.Errorf("500 ft in meters = %v, want 152.4", got)
	}

	feet := Units{Name: "feet", MetersPerUnit: 0.3048, Authoritative: true}
	if got := feet.FromFeet(500); math.Abs(got-500) > 1e-9 {
		t.Errorf("500 ft in a feet CRS = %v, want 500", got)
	}

	if got := meters.FromFeet(0); got != 0 {
		t.Errorf("0 ft = %v, want 0", got)
	}
}
