// Package gdal is a thin cgo layer over the system GDAL/OGR libraries,
// covering what the pipeline needs: raster metadata and window reads,
// spatial-reference transforms, and mask polygonization. Ray casting,
// raster decoding, and projection math all stay on the native side.
package gdal

/*
#include <stdlib.h>
#include "gdal.h"
#include "ogr_api.h"
#include "cpl_error.h"
#cgo pkg-config: gdal
*/
import "C"

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/dsmtools/dsmshed/pipeline"
)

func init() {
	C.GDALAllRegister()
	C.OGRRegisterAll()
}

func lastError() string {
	return C.GoString(C.CPLGetLastErrorMsg())
}

// Dataset is an open raster.
type Dataset struct {
	h      C.GDALDatasetH
	gt     [6]float64
	w, hpx int
}

func OpenDataset(path string) (*Dataset, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	h := C.GDALOpen(cpath, C.GA_ReadOnly)
	if h == nil {
		return nil, fmt.Errorf("open %s: %s", path, lastError())
	}
	ds := &Dataset{
		h:   h,
		w:   int(C.GDALGetRasterXSize(h)),
		hpx: int(C.GDALGetRasterYSize(h)),
	}
	var gt [6]C.double
	if C.GDALGetGeoTransform(h, &gt[0]) != C.CE_None {
		C.GDALClose(h)
		return nil, fmt.Errorf("open %s: raster has no geotransform", path)
	}
	for i := range ds.gt {
		ds.gt[i] = float64(gt[i])
	}
	return ds, nil
}

func (d *Dataset) Close() error {
	if d.h != nil {
		C.GDALClose(d.h)
		d.h = nil
	}
	return nil
}

func (d *Dataset) Size() (w, h int) {
	return d.w, d.hpx
}

func (d *Dataset) GeoTransform() [6]float64 {
	return d.gt
}

// Resolution returns the pixel size; yres is positive even for the usual
// north-up rasters where the transform's y step is negative.
func (d *Dataset) Resolution() (xres, yres float64) {
	return d.gt[1], math.Abs(d.gt[5])
}

func (d *Dataset) Bounds() (minX, minY, maxX, maxY float64) {
	x0 := d.gt[0]
	x1 := d.gt[0] + float64(d.w)*d.gt[1]
	y0 := d.gt[3]
	y1 := d.gt[3] + float64(d.hpx)*d.gt[5]
	return math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1)
}

func (d *Dataset) GeoToPixel(x, y float64) (col, row int) {
	return int((x - d.gt[0]) / d.gt[1]), int((y - d.gt[3]) / d.gt[5])
}

// ProjectionWKT returns the raster's CRS definition, "" when undefined.
func (d *Dataset) ProjectionWKT() string {
	return C.GoString(C.GDALGetProjectionRef(d.h))
}

func (d *Dataset) noData() (float64, bool) {
	band := C.GDALGetRasterBand(d.h, 1)
	var ok C.int
	v := C.GDALGetRasterNoDataValue(band, &ok)
	return float64(v), ok != 0
}

// Sample reads the band-1 value at the given native coordinate. Points
// outside the raster or on the nodata sentinel are errors, not nulls.
func (d *Dataset) Sample(x, y float64) (float64, error) {
	col, row := d.GeoToPixel(x, y)
	if col < 0 || col >= d.w || row < 0 || row >= d.hpx {
		return 0, pipeline.ErrOutOfBounds
	}
	var v C.double
	band := C.GDALGetRasterBand(d.h, 1)
	err := C.GDALRasterIO(band, C.GF_Read, C.int(col), C.int(row), 1, 1,
		unsafe.Pointer(&v), 1, 1, C.GDT_Float64, 0, 0)
	if err != C.CE_None {
		return 0, fmt.Errorf("sample (%d, %d): %s", col, row, lastError())
	}
	val := float64(v)
	if nd, has := d.noData(); has && (val == nd || (math.IsNaN(val) && math.IsNaN(nd))) {
		return 0, pipeline.ErrNoData
	}
	return val, nil
}

// ElevationRange scans the window of radiusPx around the pixel, clamped to
// the raster, and returns the valid-elevation extremes. Diagnostic only.
func (d *Dataset) ElevationRange(col, row, radiusPx int) (min, max float64, ok bool) {
	x0 := clamp(col-radiusPx, 0, d.w)
	x1 := clamp(col+radiusPx, 0, d.w)
	y0 := clamp(row-radiusPx, 0, d.hpx)
	y1 := clamp(row+radiusPx, 0, d.hpx)
	w, h := x1-x0, y1-y0
	if w <= 0 || h <= 0 {
		return 0, 0, false
	}
	buf := make([]float64, w*h)
	band := C.GDALGetRasterBand(d.h, 1)
	err := C.GDALRasterIO(band, C.GF_Read, C.int(x0), C.int(y0), C.int(w), C.int(h),
		unsafe.Pointer(&buf[0]), C.int(w), C.int(h), C.GDT_Float64, 0, 0)
	if err != C.CE_None {
		return 0, 0, false
	}
	nd, hasND := d.noData()
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range buf {
		if math.IsNaN(v) || (hasND && v == nd) {
			continue
		}
		min = math.Min(min, v)
		max = math.Max(max, v)
		ok = true
	}
	return min, max, ok
}

// ReadBytes reads band 1 as one byte per pixel, row-major.
func (d *Dataset) ReadBytes() ([]byte, error) {
	buf := make([]byte, d.w*d.hpx)
	band := C.GDALGetRasterBand(d.h, 1)
	err := C.GDALRasterIO(band, C.GF_Read, 0, 0, C.int(d.w), C.int(d.hpx),
		unsafe.Pointer(&buf[0]), C.int(d.w), C.int(d.hpx), C.GDT_Byte, 0, 0)
	if err != C.CE_None {
		return nil, fmt.Errorf("read raster: %s", lastError())
	}
	return buf, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
