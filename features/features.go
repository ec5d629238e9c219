// Package features assembles the GeoJSON FeatureCollection: one observer
// point, one polygon per connected visible region, and optionally the
// analysis-range circle. All geometry is WGS84 by the time it gets here.
package features

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/dsmtools/dsmshed/latlon"
)

// CirclePointCount matches the legacy output: 64 samples with the last
// duplicating the first, so the ring closes exactly.
const CirclePointCount = 64

// Params carries everything the collection needs. RangeCircle and the
// centroid properties are the extended variant's additions.
type Params struct {
	Observer       latlon.LL
	TotalElevation float64 // surface + equipment, native units
	Units          string
	UnitsInferred  bool // the unit label was guessed, not declared by the CRS
	Polygons       []orb.Polygon
	WithCentroid   bool
	RangeCircle    orb.LineString // empty = omit
	RadiusFt       float64
}

// Collection builds the FeatureCollection in a fixed order (observer,
// polygons, circle) so identical inputs marshal to identical bytes.
func Collection(p Params) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	obs := geojson.NewFeature(orb.Point{p.Observer.Lon, p.Observer.Lat})
	obs.Properties = geojson.Properties{
		"type":          "observer",
		"elevation":     p.TotalElevation,
		"units":         p.Units,
		"marker-color":  "#ff0000",
		"marker-size":   "medium",
		"marker-symbol": "camera",
	}
	if p.UnitsInferred {
		obs.Properties["units_inferred"] = true
	}
	fc.Append(obs)

	for _, poly := range p.Polygons {
		f := geojson.NewFeature(poly)
		f.Properties = geojson.Properties{
			"type":         "viewshed",
			"visible":      true,
			"fill":         "#00ff00",
			"fill-opacity": 0.2,
			"stroke":       "#00ff00",
			"stroke-width": 1,
		}
		if p.WithCentroid && len(poly) > 0 {
			lons := make([]float64, len(poly[0]))
			lats := make([]float64, len(poly[0]))
			for i, pt := range poly[0] {
				lons[i] = pt[0]
				lats[i] = pt[1]
			}
			if lon, lat, ok := latlon.RingCentroid(lons, lats); ok {
				f.Properties["latitude"] = lat
				f.Properties["longitude"] = lon
			}
		}
		fc.Append(f)
	}

	if len(p.RangeCircle) > 0 {
		f := geojson.NewFeature(p.RangeCircle)
		f.Properties = geojson.Properties{
			"type":             "analysis_range",
			"radius":           p.RadiusFt,
			"units":            p.Units,
			"stroke":           "#0000ff",
			"stroke-width":     2,
			"stroke-dasharray": []int{5, 5},
			"stroke-opacity":   0.8,
		}
		if p.UnitsInferred {
			f.Properties["units_inferred"] = true
		}
		fc.Append(f)
	}

	return fc
}

// CirclePoints samples n points on the circle of radius r around (cx, cy),
// first and last coinciding. Coordinates are in the caller's CRS.
func CirclePoints(cx, cy, r float64, n int) (xs, ys []float64) {
	xs = make([]float64, n)
	ys = make([]float64, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n-1)
		xs[i] = cx + r*math.Cos(a)
		ys[i] = cy + r*math.Sin(a)
	}
	return xs, ys
}
