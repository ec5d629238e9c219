// Package pipeline runs the viewshed sequence: transform the observer,
// sample the surface, invoke the engine, vectorize the result, assemble
// GeoJSON. One linear pass, no state kept between runs.
package pipeline

import (
	"context"
	"log/slog"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/dsmtools/dsmshed/conf"
	"github.com/dsmtools/dsmshed/features"
	"github.com/dsmtools/dsmshed/latlon"
	"github.com/dsmtools/dsmshed/mask"
	"github.com/dsmtools/dsmshed/viewshed"
)

// Pipeline ties the raster backend and the engine runner together.
type Pipeline struct {
	open Opener
	run  Runner
}

func New(open Opener, run Runner) *Pipeline {
	return &Pipeline{open: open, run: run}
}

// Execute computes one viewshed and returns the FeatureCollection. The
// intermediate raster is released on every path, success or failure.
func (p *Pipeline) Execute(ctx context.Context, dsmPath string, obs latlon.LL, opt conf.Options) (*geojson.FeatureCollection, error) {
	if err := opt.Validate(); err != nil {
		return nil, wrap(KindInput, "options", err)
	}
	if !obs.Valid() {
		return nil, errf(KindInput, "observer", "coordinate out of range: lon=%v lat=%v", obs.Lon, obs.Lat)
	}
	obs = obs.Wrap()

	dsm, err := p.open.OpenDSM(dsmPath)
	if err != nil {
		return nil, wrap(KindData, "open dsm", err)
	}
	defer dsm.Close()

	mpu, haveUnits := dsm.LinearUnits()
	units := InferUnits(mpu, haveUnits, dsm.ProjectionText())
	if !units.Authoritative {
		slog.Warn("CRS declares no linear unit; guessed from its description", "units", units.Name)
	}
	heightNative := units.FromFeet(opt.EquipmentHeightFt)
	maxDistNative := units.FromFeet(opt.MaxDistanceFt)

	xs, ys := []float64{obs.Lon}, []float64{obs.Lat}
	if err := dsm.ToNative(xs, ys); err != nil {
		return nil, wrap(KindData, "transform observer", err)
	}
	ox, oy := xs[0], ys[0]

	minX, minY, maxX, maxY := dsm.Bounds()
	if ox < minX || ox > maxX || oy < minY || oy > maxY {
		return nil, errf(KindData, "observer", "point (%v, %v) is outside the DSM extent", ox, oy)
	}

	surface, err := dsm.Sample(ox, oy)
	if err != nil {
		return nil, wrap(KindData, "sample elevation", err)
	}
	slog.Info("surface elevation at observer", "value", surface, "units", units.Name)
	slog.Info("equipment height above surface", "value", heightNative, "units", units.Name)
	slog.Info("observer total height", "value", surface+heightNative, "units", units.Name)

	xres, _ := dsm.Resolution()
	if maxDistNative > 0 {
		col, row := dsm.GeoToPixel(ox, oy)
		if lo, hi, ok := dsm.ElevationRange(col, row, int(maxDistNative/xres)); ok {
			slog.Info("elevation range in analysis area", "min", lo, "max", hi, "units", units.Name)
			slog.Info("observer height above lowest point", "value", surface-lo, "units", units.Name)
		}
	}

	tmp, err := viewshed.NewTempRaster()
	if err != nil {
		return nil, wrap(KindExternal, "temp raster", err)
	}
	defer tmp.Release()

	err = p.run(ctx, viewshed.Params{
		Tool:        opt.Tool,
		DSMPath:     dsmPath,
		OutPath:     tmp.Path,
		ObserverX:   ox,
		ObserverY:   oy,
		ObserverZ:   heightNative,
		Band:        1,
		MaxDistance: maxDistNative,
		Curvature:   opt.Curvature,
	})
	if err != nil {
		return nil, wrap(KindExternal, "viewshed engine", err)
	}

	shed, err := p.open.OpenShed(tmp.Path)
	if err != nil {
		return nil, wrap(KindPost, "open viewshed raster", err)
	}
	defer shed.Close()

	data, err := shed.Bytes()
	if err != nil {
		return nil, wrap(KindPost, "read viewshed raster", err)
	}
	w, h := shed.Size()
	m, err := mask.New(data, w, h)
	if err != nil {
		return nil, wrap(KindPost, "build mask", err)
	}
	if strays := m.StrayValues(); len(strays) > 0 {
		slog.Warn("unexpected viewshed raster values", "values", strays)
	}

	sxres, syres := shed.Resolution()
	if maxDistNative > 0 {
		col, row := shed.GeoToPixel(ox, oy)
		m.IntersectCircle(col, row, maxDistNative/sxres)
	}

	visible, analyzed, coverage := m.Stats()
	slog.Info("analysis area",
		"width", float64(w)*sxres, "height", float64(h)*syres, "units", units.Name,
		"grid_w", w, "grid_h", h)
	slog.Info("visible coverage",
		"percent", coverage, "visible_pixels", visible, "analyzed_pixels", analyzed)

	if opt.MaskPNG != "" {
		if err := writeMaskPNG(opt.MaskPNG, m); err != nil {
			return nil, wrap(KindPost, "mask png", err)
		}
	}

	polys, err := shed.Polygonize(m.Bytes())
	if err != nil {
		return nil, wrap(KindPost, "polygonize", err)
	}
	wgsPolys, err := reprojectPolygons(dsm, polys)
	if err != nil {
		return nil, wrap(KindPost, "reproject polygons", err)
	}
	slog.Info("visibility polygons", "count", len(wgsPolys))

	// emit the round-tripped observer, as the legacy scripts did
	bx, by := []float64{ox}, []float64{oy}
	if err := dsm.ToWGS84(bx, by); err != nil {
		return nil, wrap(KindPost, "reproject observer", err)
	}

	fp := features.Params{
		Observer:       latlon.LL{Lon: bx[0], Lat: by[0]},
		TotalElevation: surface + heightNative,
		Units:          units.Name,
		UnitsInferred:  !units.Authoritative,
		Polygons:       wgsPolys,
		WithCentroid:   opt.EmitCentroid,
		RadiusFt:       opt.MaxDistanceFt,
	}
	if opt.EmitRangeCircle {
		cx, cy := features.CirclePoints(ox, oy, maxDistNative, features.CirclePointCount)
		if err := dsm.ToWGS84(cx, cy); err != nil {
			return nil, wrap(KindPost, "reproject range circle", err)
		}
		circle := make(orb.LineString, len(cx))
		for i := range cx {
			circle[i] = orb.Point{cx[i], cy[i]}
		}
		fp.RangeCircle = circle
	}
	return features.Collection(fp), nil
}

func reprojectPolygons(dsm DSM, polys []orb.Polygon) ([]orb.Polygon, error) {
	out := make([]orb.Polygon, 0, len(polys))
	for _, poly := range polys {
		wp := make(orb.Polygon, 0, len(poly))
		for _, ring := range poly {
			xs := make([]float64, len(ring))
			ys := make([]float64, len(ring))
			for i, pt := range ring {
				xs[i], ys[i] = pt[0], pt[1]
			}
			if err := dsm.ToWGS84(xs, ys); err != nil {
				return nil, err
			}
			wr := make(orb.Ring, len(ring))
			for i := range wr {
				wr[i] = orb.Point{xs[i], ys[i]}
			}
			wp = append(wp, wr)
		}
		out = append(out, wp)
	}
	return out, nil
}

func writeMaskPNG(path string, m *mask.Mask) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.EncodePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
