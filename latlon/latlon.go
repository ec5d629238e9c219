// Package latlon holds the WGS84 point type shared across the pipeline.
package latlon

import m "math"

type LL struct {
	Lon float64
	Lat float64
}

// Wrap normalizes the longitude into [-180, 180).
func (ll LL) Wrap() LL {
	if ll.Lon >= -180 && ll.Lon < 180 {
		return ll
	}
	ll.Lon = m.Remainder(ll.Lon, 360)
	if ll.Lon == 180 {
		ll.Lon = -180
	}
	return ll
}

// Valid reports whether the point is a representable WGS84 coordinate.
func (ll LL) Valid() bool {
	return ll.Lat >= -90 && ll.Lat <= 90 && !m.IsNaN(ll.Lon) && !m.IsNaN(ll.Lat)
}

// RingCentroid returns the arithmetic mean of the ring's vertices,
// closing vertex included. This is the label anchor the legacy output
// carried, not an area centroid.
func RingCentroid(lons, lats []float64) (lon, lat float64, ok bool) {
	if len(lons) == 0 || len(lons) != len(lats) {
		return 0, 0, false
	}
	for i := range lons {
		lon += lons[i]
		lat += lats[i]
	}
	n := float64(len(lons))
	return lon / n, lat / n, true
}
