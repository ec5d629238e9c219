package gdal

import (
	"strings"

	"github.com/paulmach/orb"

	"github.com/dsmtools/dsmshed/pipeline"
)

// Opener implements pipeline.Opener on the GDAL backend.
type Opener struct{}

func (Opener) OpenDSM(path string) (pipeline.DSM, error) {
	ds, err := OpenDataset(path)
	if err != nil {
		return nil, err
	}
	wkt := ds.ProjectionWKT()
	if strings.TrimSpace(wkt) == "" {
		ds.Close()
		return nil, pipeline.ErrNoCRS
	}
	srs, err := NewSpatialRef(wkt)
	if err != nil {
		ds.Close()
		return nil, err
	}
	wgs, err := NewSpatialRefEPSG(4326)
	if err != nil {
		srs.Destroy()
		ds.Close()
		return nil, err
	}
	fwd, err := NewTransform(wgs, srs)
	if err != nil {
		wgs.Destroy()
		srs.Destroy()
		ds.Close()
		return nil, err
	}
	inv, err := NewTransform(srs, wgs)
	if err != nil {
		fwd.Destroy()
		wgs.Destroy()
		srs.Destroy()
		ds.Close()
		return nil, err
	}
	return &dsmHandle{Dataset: ds, wkt: wkt, srs: srs, wgs: wgs, fwd: fwd, inv: inv}, nil
}

func (Opener) OpenShed(path string) (pipeline.ShedRaster, error) {
	ds, err := OpenDataset(path)
	if err != nil {
		return nil, err
	}
	return shedHandle{ds}, nil
}

type dsmHandle struct {
	*Dataset
	wkt string
	srs *SpatialRef
	wgs *SpatialRef
	fwd *Transform // WGS84 -> native
	inv *Transform // native -> WGS84
}

func (d *dsmHandle) LinearUnits() (metersPerUnit float64, ok bool) {
	return d.srs.LinearUnits()
}

func (d *dsmHandle) ProjectionText() string {
	return d.wkt
}

func (d *dsmHandle) ToNative(lons, lats []float64) error {
	return d.fwd.Apply(lons, lats)
}

func (d *dsmHandle) ToWGS84(xs, ys []float64) error {
	return d.inv.Apply(xs, ys)
}

func (d *dsmHandle) Close() error {
	d.inv.Destroy()
	d.fwd.Destroy()
	d.wgs.Destroy()
	d.srs.Destroy()
	return d.Dataset.Close()
}

type shedHandle struct {
	*Dataset
}

func (s shedHandle) Bytes() ([]byte, error) {
	return s.ReadBytes()
}

func (s shedHandle) Polygonize(mask []byte) ([]orb.Polygon, error) {
	w, h := s.Size()
	return Polygonize(mask, w, h, s.GeoTransform())
}
