package gdal

/*
#include <stdlib.h>
#include "gdal.h"
#include "gdal_alg.h"
#include "ogr_api.h"
#include "ogr_srs_api.h"
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/paulmach/orb"
)

// Polygonize extracts polygons covering the connected regions where the
// mask byte is 1. The region tracing is GDAL's, not ours; geometry comes
// back in the geotransform's CRS with rings closed the way OGR closes
// them.
func Polygonize(maskBytes []byte, w, h int, gt [6]float64) ([]orb.Polygon, error) {
	if len(maskBytes) != w*h {
		return nil, fmt.Errorf("mask is %d bytes, want %dx%d", len(maskBytes), w, h)
	}

	cmem := C.CString("MEM")
	defer C.free(unsafe.Pointer(cmem))
	memDrv := C.GDALGetDriverByName(cmem)
	if memDrv == nil {
		return nil, fmt.Errorf("MEM driver unavailable: %s", lastError())
	}
	cempty := C.CString("")
	defer C.free(unsafe.Pointer(cempty))
	mds := C.GDALCreate(memDrv, cempty, C.int(w), C.int(h), 1, C.GDT_Byte, nil)
	if mds == nil {
		return nil, fmt.Errorf("create mask raster: %s", lastError())
	}
	defer C.GDALClose(mds)

	var cgt [6]C.double
	for i, v := range gt {
		cgt[i] = C.double(v)
	}
	C.GDALSetGeoTransform(mds, &cgt[0])

	band := C.GDALGetRasterBand(mds, 1)
	err := C.GDALRasterIO(band, C.GF_Write, 0, 0, C.int(w), C.int(h),
		unsafe.Pointer(&maskBytes[0]), C.int(w), C.int(h), C.GDT_Byte, 0, 0)
	if err != C.CE_None {
		return nil, fmt.Errorf("write mask raster: %s", lastError())
	}

	cogr := C.CString("Memory")
	defer C.free(unsafe.Pointer(cogr))
	ogrDrv := C.OGRGetDriverByName(cogr)
	if ogrDrv == nil {
		return nil, fmt.Errorf("Memory driver unavailable: %s", lastError())
	}
	cname := C.CString("mask")
	defer C.free(unsafe.Pointer(cname))
	ods := C.OGR_Dr_CreateDataSource(ogrDrv, cname, nil)
	if ods == nil {
		return nil, fmt.Errorf("create vector store: %s", lastError())
	}
	defer C.OGR_DS_Destroy(ods)

	clayer := C.CString("viewshed")
	defer C.free(unsafe.Pointer(clayer))
	layer := C.OGR_DS_CreateLayer(ods, clayer, nil, C.wkbPolygon, nil)
	if layer == nil {
		return nil, fmt.Errorf("create vector layer: %s", lastError())
	}
	cfld := C.CString("DN")
	defer C.free(unsafe.Pointer(cfld))
	fld := C.OGR_Fld_Create(cfld, C.OFTInteger)
	C.OGR_L_CreateField(layer, fld, 1)
	C.OGR_Fld_Destroy(fld)

	// the band serves as its own mask, so zero pixels are skipped
	if C.GDALPolygonize(band, band, layer, 0, nil, nil, nil) != C.CE_None {
		return nil, fmt.Errorf("polygonize: %s", lastError())
	}

	var polys []orb.Polygon
	C.OGR_L_ResetReading(layer)
	for {
		feat := C.OGR_L_GetNextFeature(layer)
		if feat == nil {
			break
		}
		if C.OGR_F_GetFieldAsInteger(feat, 0) == 1 {
			polys = append(polys, geomToPolygon(C.OGR_F_GetGeometryRef(feat)))
		}
		C.OGR_F_Destroy(feat)
	}
	return polys, nil
}

func geomToPolygon(g C.OGRGeometryH) orb.Polygon {
	n := int(C.OGR_G_GetGeometryCount(g))
	poly := make(orb.Polygon, 0, n)
	for i := 0; i < n; i++ {
		ring := C.OGR_G_GetGeometryRef(g, C.int(i))
		np := int(C.OGR_G_GetPointCount(ring))
		r := make(orb.Ring, np)
		for j := 0; j < np; j++ {
			r[j] = orb.Point{
				float64(C.OGR_G_GetX(ring, C.int(j))),
				float64(C.OGR_G_GetY(ring, C.int(j))),
			}
		}
		poly = append(poly, r)
	}
	return poly
}
