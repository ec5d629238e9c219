package pipeline

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/dsmtools/dsmshed/viewshed"
)

// DSM is the opened source raster. Transform methods work in place over
// coordinate slices so rings reproject in one call.
type DSM interface {
	Bounds() (minX, minY, maxX, maxY float64)
	Resolution() (xres, yres float64)
	GeoToPixel(x, y float64) (col, row int)
	Sample(x, y float64) (float64, error)
	ElevationRange(col, row, radiusPx int) (min, max float64, ok bool)
	LinearUnits() (metersPerUnit float64, ok bool)
	ProjectionText() string
	ToNative(lons, lats []float64) error
	ToWGS84(xs, ys []float64) error
	Close() error
}

// ShedRaster is the engine's output raster.
type ShedRaster interface {
	Size() (w, h int)
	Resolution() (xres, yres float64)
	GeoToPixel(x, y float64) (col, row int)
	Bytes() ([]byte, error)
	Polygonize(mask []byte) ([]orb.Polygon, error)
	Close() error
}

// Opener hides the raster backend so the pipeline is testable without it.
type Opener interface {
	OpenDSM(path string) (DSM, error)
	OpenShed(path string) (ShedRaster, error)
}

// Runner executes the external viewshed engine.
type Runner func(ctx context.Context, p viewshed.Params) error
