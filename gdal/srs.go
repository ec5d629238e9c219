package gdal

/*
#include <stdlib.h>
#include "ogr_srs_api.h"
#include "cpl_error.h"
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

// SpatialRef wraps an OSR spatial reference with the axis order forced to
// traditional lon/lat (x/y), whatever the authority definition says.
type SpatialRef struct {
	h C.OGRSpatialReferenceH
}

func NewSpatialRef(def string) (*SpatialRef, error) {
	h := C.OSRNewSpatialReference(nil)
	cdef := C.CString(def)
	defer C.free(unsafe.Pointer(cdef))
	if C.OSRSetFromUserInput(h, cdef) != C.OGRERR_NONE {
		C.OSRDestroySpatialReference(h)
		return nil, fmt.Errorf("parse CRS: %s", lastError())
	}
	C.OSRSetAxisMappingStrategy(h, C.OAMS_TRADITIONAL_GIS_ORDER)
	return &SpatialRef{h: h}, nil
}

func NewSpatialRefEPSG(code int) (*SpatialRef, error) {
	h := C.OSRNewSpatialReference(nil)
	if C.OSRImportFromEPSG(h, C.int(code)) != C.OGRERR_NONE {
		C.OSRDestroySpatialReference(h)
		return nil, fmt.Errorf("EPSG:%d: %s", code, lastError())
	}
	C.OSRSetAxisMappingStrategy(h, C.OAMS_TRADITIONAL_GIS_ORDER)
	return &SpatialRef{h: h}, nil
}

func (s *SpatialRef) Destroy() {
	if s.h != nil {
		C.OSRDestroySpatialReference(s.h)
		s.h = nil
	}
}

func (s *SpatialRef) IsProjected() bool {
	return C.OSRIsProjected(s.h) != 0
}

// LinearUnits returns the meters-per-unit factor of the CRS's linear unit.
// Geographic CRSs have no meaningful linear unit and report ok=false.
func (s *SpatialRef) LinearUnits() (metersPerUnit float64, ok bool) {
	if !s.IsProjected() {
		return 0, false
	}
	var name *C.char
	f := float64(C.OSRGetLinearUnits(s.h, &name))
	return f, f > 0
}

// Transform converts coordinate slices between two reference systems.
type Transform struct {
	h C.OGRCoordinateTransformationH
}

func NewTransform(src, dst *SpatialRef) (*Transform, error) {
	h := C.OCTNewCoordinateTransformation(src.h, dst.h)
	if h == nil {
		return nil, fmt.Errorf("no transform between reference systems: %s", lastError())
	}
	return &Transform{h: h}, nil
}

func (t *Transform) Destroy() {
	if t.h != nil {
		C.OCTDestroyCoordinateTransformation(t.h)
		t.h = nil
	}
}

// Apply transforms the points in place. xs are easting/longitude, ys are
// northing/latitude, in both reference systems.
func (t *Transform) Apply(xs, ys []float64) error {
	if len(xs) != len(ys) {
		return errors.New("coordinate slices differ in length")
	}
	if len(xs) == 0 {
		return nil
	}
	ok := C.OCTTransform(t.h, C.int(len(xs)),
		(*C.double)(unsafe.Pointer(&xs[0])), (*C.double)(unsafe.Pointer(&ys[0])), nil)
	if ok == 0 {
		return errors.New("coordinate transform failed")
	}
	return nil
}
