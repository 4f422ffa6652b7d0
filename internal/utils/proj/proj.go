package proj

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/modis/internal/utils/affine"
	"github.com/twpayne/go-geom"
)

const (
	// EarthRadius is the radius of the sphere used by web-mercator
	EarthRadius = 6378137.0
	// OriginShift is half the width of the web-mercator plane
	OriginShift = EarthRadius * math.Pi
)

// CreateLonLatProj create a CoordinateTransform from/to the geographic lon/lat coordinates
func CreateLonLatProj(crs *godal.SpatialRef, inverse bool) (*godal.Transform, error) {
	lonlatCRS, err := CRSFromEPSG(4326)
	if err != nil {
		return nil, fmt.Errorf("CreateLonLatProj.%w", err)
	}

	var tr *godal.Transform
	if inverse {
		tr, err = godal.NewTransform(crs, lonlatCRS)
	} else {
		tr, err = godal.NewTransform(lonlatCRS, crs)
	}
	if err != nil {
		return nil, fmt.Errorf("CreateLonLatProj: %w", err)
	}
	return tr, nil
}

var crsEPSG map[int]*godal.SpatialRef = map[int]*godal.SpatialRef{}
var crsEPSGLock sync.Mutex

// CRSFromEPSG initialize a crs from epsg (only once per epsg)
// DO NOT release the crs (it is kept for further uses)
func CRSFromEPSG(epsg int) (*godal.SpatialRef, error) {
	crsEPSGLock.Lock()
	defer crsEPSGLock.Unlock()

	if crs, ok := crsEPSG[epsg]; ok && crs != nil {
		return crs, nil
	}

	crs, err := godal.NewSpatialRefFromEPSG(epsg)
	if err != nil {
		return nil, fmt.Errorf("CRSFromEPSG: %w", err)
	}
	runtime.SetFinalizer(crs, func(crs *godal.SpatialRef) { crs.Close() })
	crsEPSG[epsg] = crs
	return crs, nil
}

// FlatCoordToXY splits flat into two arrays x, y
func FlatCoordToXY(flat []float64) (x []float64, y []float64) {
	n := len(flat) / 2
	x = make([]float64, n)
	y = make([]float64, n)
	for i, j := 0, 0; i < n; i, j = i+1, j+2 {
		x[i], y[i] = flat[j], flat[j+1]
	}
	return x, y
}

// XYToFlatCoord merge two arrays x, y into one, interleaving coordinates.
func XYToFlatCoord(x []float64, y []float64) []float64 {
	n := len(x)
	flat := make([]float64, 2*n)
	for i, j := 0, 0; i < n; i, j = i+1, j+2 {
		flat[j], flat[j+1] = x[i], y[i]
	}
	return flat
}

// NewPolygonFromExtent returns the polygon corresponding to the extent
func NewPolygonFromExtent(pixToCrs *affine.Affine, width, height int) *geom.Polygon {
	xMin, yMin := pixToCrs.Transform(0, 0)
	xMax, yMax := pixToCrs.Transform(float64(width), float64(height))
	if xMin > xMax {
		xMin, xMax = xMax, xMin
	}
	if yMin > yMax {
		yMin, yMax = yMax, yMin
	}
	bounds := geom.NewBounds(geom.XY)
	bounds.SetCoords([]float64{xMin, yMin}, []float64{xMax, yMax})
	return bounds.Polygon()
}

// NewLonLatPolygonFromExtent returns the extent of a raster in crs as a lon/lat polygon.
// Only the corners are projected: edges of the extent must be parallels and meridians in lon/lat (e.g. web-mercator).
func NewLonLatPolygonFromExtent(pixToCrs *affine.Affine, width, height int, crs *godal.SpatialRef) (*geom.Polygon, error) {
	crsToLonLat, err := CreateLonLatProj(crs, true)
	if err != nil {
		return nil, fmt.Errorf("NewLonLatPolygonFromExtent.%w", err)
	}
	defer crsToLonLat.Close()

	p := NewPolygonFromExtent(pixToCrs, width, height)
	lon, lat := FlatCoordToXY(p.FlatCoords())
	ok := make([]bool, len(lon))
	if err := crsToLonLat.TransformEx(lon, lat, make([]float64, len(lon)), ok); err != nil {
		return nil, fmt.Errorf("NewLonLatPolygonFromExtent: %w", err)
	}
	return geom.NewPolygonFlat(geom.XY, XYToFlatCoord(lon, lat), []int{2 * len(lon)}), nil
}

// TileGridTransform returns the transform from the pixels of the web-mercator tile pyramid at zoom to EPSG:3857.
// Pixel (0, 0) is the north-west corner of the plane.
func TileGridTransform(zoom, tileSize int) *affine.Affine {
	resolution := 2 * OriginShift / float64(int64(tileSize)<<zoom)
	return affine.Translation(-OriginShift, OriginShift).Multiply(affine.Scale(resolution, -resolution))
}
