package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/dsmtools/dsmshed/conf"
	"github.com/dsmtools/dsmshed/features"
	"github.com/dsmtools/dsmshed/latlon"
	"github.com/dsmtools/dsmshed/viewshed"
)

// --- fakes ---

type fakeDSM struct {
	sampleFn func(x, y float64) (float64, error)
	mpu      float64
	haveMPU  bool
	wkt      string
	closed   bool
}

func (d *fakeDSM) Bounds() (minX, minY, maxX, maxY float64) { return 0, 0, 100, 100 }
func (d *fakeDSM) Resolution() (xres, yres float64)         { return 1, 1 }
func (d *fakeDSM) GeoToPixel(x, y float64) (col, row int)   { return int(x), int(y) }

func (d *fakeDSM) Sample(x, y float64) (float64, error) {
	if d.sampleFn != nil {
		return d.sampleFn(x, y)
	}
	return 100, nil
}

func (d *fakeDSM) ElevationRange(col, row, radiusPx int) (min, max float64, ok bool) {
	return 90, 200, true
}

func (d *fakeDSM) LinearUnits() (float64, bool)        { return d.mpu, d.haveMPU }
func (d *fakeDSM) ProjectionText() string              { return d.wkt }
func (d *fakeDSM) ToNative(lons, lats []float64) error { return nil } // identity CRS
func (d *fakeDSM) ToWGS84(xs, ys []float64) error      { return nil }
func (d *fakeDSM) Close() error                        { d.closed = true; return nil }

type fakeShed struct {
	w, h           int
	data           []byte
	obsCol, obsRow int
	polys          []orb.Polygon
	polyErr        error
	gotMask        []byte
	closed         bool
}

func (s *fakeShed) Size() (int, int)                   { return s.w, s.h }
func (s *fakeShed) Resolution() (float64, float64)     { return 1, 1 }
func (s *fakeShed) GeoToPixel(x, y float64) (int, int) { return s.obsCol, s.obsRow }
func (s *fakeShed) Bytes() ([]byte, error)             { return s.data, nil }
func (s *fakeShed) Close() error                       { s.closed = true; return nil }

func (s *fakeShed) Polygonize(mask []byte) ([]orb.Polygon, error) {
	s.gotMask = mask
	return s.polys, s.polyErr
}

type fakeOpener struct {
	dsm      *fakeDSM
	shed     *fakeShed
	dsmErr   error
	shedPath string
}

func (o *fakeOpener) OpenDSM(path string) (DSM, error) {
	if o.dsmErr != nil {
		return nil, o.dsmErr
	}
	return o.dsm, nil
}

func (o *fakeOpener) OpenShed(path string) (ShedRaster, error) {
	o.shedPath = path
	return o.shed, nil
}

func allVisible(w, h int) []byte {
	data := make([]byte, w*h)
	for i := range data {
		data[i] = 255
	}
	return data
}

func defaultOptions() conf.Options {
	return conf.Options{Tool: "gdal_viewshed", LogLevel: "info"}
}

var squareRing = orb.Ring{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}

// --- tests ---

func TestExecuteFullVariant(t *testing.T) {
	opener := &fakeOpener{
		dsm: &fakeDSM{mpu: 1, haveMPU: true, wkt: `PROJCS["UTM",UNIT["metre",1]]`},
		shed: &fakeShed{
			w: 5, h: 5, data: allVisible(5, 5),
			obsCol: 2, obsRow: 2,
			polys:  []orb.Polygon{{squareRing}},
		},
	}
	var got viewshed.Params
	run := func(ctx context.Context, p viewshed.Params) error {
		got = p
		return nil
	}

	opt := defaultOptions()
	opt.EquipmentHeightFt = 10
	opt.MaxDistanceFt = 500
	opt.Curvature = 0.75
	opt.EmitRangeCircle = true
	opt.EmitCentroid = true
	opt.MaskPNG = filepath.Join(t.TempDir(), "mask.png")

	fc, err := New(opener, run).Execute(context.Background(), "dsm.tif",
		latlon.LL{Lon: 50, Lat: 50}, opt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// engine invocation: feet converted into native meters
	if got.DSMPath != "dsm.tif" || got.Band != 1 {
		t.Errorf("engine params: %+v", got)
	}
	if got.ObserverX != 50 || got.ObserverY != 50 {
		t.Errorf("observer native=(%v, %v) want=(50, 50)", got.ObserverX, got.ObserverY)
	}
	if math.Abs(got.ObserverZ-3.048) > 1e-9 {
		t.Errorf("observer height=%v want=3.048", got.ObserverZ)
	}
	if math.Abs(got.MaxDistance-152.4) > 1e-9 {
		t.Errorf("max distance=%v want=152.4", got.MaxDistance)
	}
	if got.Curvature != 0.75 {
		t.Errorf("curvature=%v want=0.75", got.Curvature)
	}
	if got.OutPath == "" {
		t.Fatal("engine was not given an output path")
	}
	if _, err := os.Stat(got.OutPath); !os.IsNotExist(err) {
		t.Errorf("temp raster %s not released: %v", got.OutPath, err)
	}
	if opener.shedPath != got.OutPath {
		t.Errorf("read %q, engine wrote %q", opener.shedPath, got.OutPath)
	}

	// observer, one polygon, range circle
	if len(fc.Features) != 3 {
		t.Fatalf("feature count=%d want=3", len(fc.Features))
	}

	obs := fc.Features[0]
	if obs.Properties["type"] != "observer" || obs.Properties["units"] != "meters" {
		t.Errorf("observer properties: %v", obs.Properties)
	}
	if _, present := obs.Properties["units_inferred"]; present {
		t.Error("units_inferred must be absent for a CRS with declared units")
	}
	if elev := obs.Properties["elevation"].(float64); math.Abs(elev-103.048) > 1e-9 {
		t.Errorf("elevation=%v want=103.048", elev)
	}
	pt, ok := obs.Geometry.(orb.Point)
	if !ok || pt[0] != 50 || pt[1] != 50 {
		t.Errorf("observer geometry: %v", obs.Geometry)
	}

	poly := fc.Features[1]
	if poly.Properties["type"] != "viewshed" || poly.Properties["visible"] != true {
		t.Errorf("polygon properties: %v", poly.Properties)
	}
	if lat := poly.Properties["latitude"].(float64); math.Abs(lat-0.8) > 1e-12 {
		t.Errorf("centroid latitude=%v want=0.8", lat)
	}
	if lon := poly.Properties["longitude"].(float64); math.Abs(lon-0.8) > 1e-12 {
		t.Errorf("centroid longitude=%v want=0.8", lon)
	}

	circle := fc.Features[2]
	if circle.Properties["type"] != "analysis_range" {
		t.Errorf("circle properties: %v", circle.Properties)
	}
	if r := circle.Properties["radius"].(float64); r != 500 {
		t.Errorf("radius=%v want=500 (feet, as supplied)", r)
	}
	ls, ok := circle.Geometry.(orb.LineString)
	if !ok || len(ls) != features.CirclePointCount {
		t.Fatalf("circle geometry: %T len=%d", circle.Geometry, len(ls))
	}
	if math.Abs(ls[0][0]-ls[63][0]) > 1e-9 || math.Abs(ls[0][1]-ls[63][1]) > 1e-9 {
		t.Error("circle is not closed")
	}

	if !opener.dsm.closed || !opener.shed.closed {
		t.Error("rasters were not closed")
	}
	if info, err := os.Stat(opt.MaskPNG); err != nil || info.Size() == 0 {
		t.Errorf("mask png missing: %v", err)
	}
}

func TestExecuteCircleRestrictsMask(t *testing.T) {
	opener := &fakeOpener{
		// a feet CRS keeps the supplied distances as-is
		dsm: &fakeDSM{mpu: 0.3048, haveMPU: true, wkt: `PROJCS["ftUS",UNIT["US survey foot",0.3048]]`},
		shed: &fakeShed{
			w: 5, h: 5, data: allVisible(5, 5),
			obsCol: 2, obsRow: 2,
		},
	}
	run := func(ctx context.Context, p viewshed.Params) error { return nil }

	opt := defaultOptions()
	opt.MaxDistanceFt = 1.5

	_, err := New(opener, run).Execute(context.Background(), "dsm.tif",
		latlon.LL{Lon: 50, Lat: 50}, opt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := 0
	for _, b := range opener.shed.gotMask {
		sum += int(b)
	}
	if sum != 9 {
		t.Errorf("pixels inside circle=%d want=9 (3x3 block around the observer)", sum)
	}
	for _, corner := range []int{0, 4, 20, 24} {
		if opener.shed.gotMask[corner] != 0 {
			t.Errorf("corner pixel %d escaped the circle", corner)
		}
	}
}

func TestExecuteMarksGuessedUnits(t *testing.T) {
	opener := &fakeOpener{
		// no linear-unit metadata, so the label comes from the CRS text
		dsm: &fakeDSM{haveMPU: false, wkt: `+proj=lcc +units=us-ft +no_defs`},
		shed: &fakeShed{
			w: 5, h: 5, data: allVisible(5, 5),
			obsCol: 2, obsRow: 2,
			polys:  []orb.Polygon{{squareRing}},
		},
	}
	run := func(ctx context.Context, p viewshed.Params) error { return nil }

	opt := defaultOptions()
	opt.MaxDistanceFt = 500
	opt.EmitRangeCircle = true

	fc, err := New(opener, run).Execute(context.Background(), "dsm.tif",
		latlon.LL{Lon: 50, Lat: 50}, opt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	obs := fc.Features[0]
	if obs.Properties["units"] != "feet" {
		t.Errorf("units=%v want=feet", obs.Properties["units"])
	}
	if got := obs.Properties["units_inferred"]; got != true {
		t.Errorf("observer units_inferred=%v want=true", got)
	}
	circle := fc.Features[len(fc.Features)-1]
	if circle.Properties["type"] != "analysis_range" {
		t.Fatalf("last feature is %v", circle.Properties["type"])
	}
	if got := circle.Properties["units_inferred"]; got != true {
		t.Errorf("range units_inferred=%v want=true", got)
	}
}

func TestExecuteFailures(t *testing.T) {
	okOpener := func() *fakeOpener {
		return &fakeOpener{
			dsm:  &fakeDSM{mpu: 1, haveMPU: true},
			shed: &fakeShed{w: 2, h: 2, data: allVisible(2, 2)},
		}
	}
	okRun := func(ctx context.Context, p viewshed.Params) error { return nil }

	tests := []struct {
		name   string
		opener *fakeOpener
		run    Runner
		obs    latlon.LL
		mut    func(*conf.Options)
		want   Kind
	}{
		{
			name:   "latitude out of range",
			opener: okOpener(), run: okRun,
			obs:  latlon.LL{Lon: 0, Lat: 95},
			want: KindInput,
		},
		{
			name:   "range circle without max distance",
			opener: okOpener(), run: okRun,
			obs: latlon.LL{Lon: 50, Lat: 50},
			mut: func(o *conf.Options) { o.EmitRangeCircle = true },
			want: KindInput,
		},
		{
			name:   "unreadable dsm",
			opener: &fakeOpener{dsmErr: errors.New("not a raster")},
			run:    okRun,
			obs:    latlon.LL{Lon: 50, Lat: 50},
			want:   KindData,
		},
		{
			name:   "observer outside extent",
			opener: okOpener(), run: okRun,
			obs:  latlon.LL{Lon: 150, Lat: 50},
			want: KindData,
		},
		{
			name: "nodata at observer",
			opener: &fakeOpener{
				dsm: &fakeDSM{mpu: 1, haveMPU: true,
					sampleFn: func(x, y float64) (float64, error) { return 0, ErrNoData }},
			},
			run:  okRun,
			obs:  latlon.LL{Lon: 50, Lat: 50},
			want: KindData,
		},
		{
			name:   "engine failure",
			opener: okOpener(),
			run: func(ctx context.Context, p viewshed.Params) error {
				return errors.New("gdal_viewshed: exit status 1")
			},
			obs:  latlon.LL{Lon: 50, Lat: 50},
			want: KindExternal,
		},
		{
			name: "polygonize failure",
			opener: &fakeOpener{
				dsm:  &fakeDSM{mpu: 1, haveMPU: true},
				shed: &fakeShed{w: 2, h: 2, data: allVisible(2, 2), polyErr: errors.New("boom")},
			},
			run:  okRun,
			obs:  latlon.LL{Lon: 50, Lat: 50},
			want: KindPost,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opt := defaultOptions()
			if tc.mut != nil {
				tc.mut(&opt)
			}
			fc, err := New(tc.opener, tc.run).Execute(context.Background(), "dsm.tif", tc.obs, opt)
			if err == nil {
				t.Fatal("expected an error")
			}
			if fc != nil {
				t.Error("no collection should be produced on failure")
			}
			if got := KindOf(err); got != tc.want {
				t.Errorf("kind=%v want=%v (err=%v)", got, tc.want, err)
			}
		})
	}
}

func TestExternalFailureSkipsVectorization(t *testing.T) {
	opener := &fakeOpener{
		dsm:  &fakeDSM{mpu: 1, haveMPU: true},
		shed: &fakeShed{w: 2, h: 2, data: allVisible(2, 2)},
	}
	var outPath string
	run := func(ctx context.Context, p viewshed.Params) error {
		outPath = p.OutPath
		return errors.New("engine crashed")
	}

	_, err := New(opener, run).Execute(context.Background(), "dsm.tif",
		latlon.LL{Lon: 50, Lat: 50}, defaultOptions())
	if KindOf(err) != KindExternal {
		t.Fatalf("kind=%v want=external", KindOf(err))
	}
	if opener.shedPath != "" {
		t.Error("result raster must not be opened after an engine failure")
	}
	if _, statErr := os.Stat(outPath); !os.IsNotExist(statErr) {
		t.Errorf("temp raster %s not released on the failure path", outPath)
	}
}
