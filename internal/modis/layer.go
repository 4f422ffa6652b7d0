package modis

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// LayerDescriptor describes a layer advertised by the tile service
type LayerDescriptor struct {
	Identifier    string
	Title         string
	TileMatrixSet string
	// Extent is west, south, east, north in degrees
	Extent   [4]float64
	Encoding Encoding
}

// ExtentPolygon returns the extent of the layer as a polygon
// (vertices ordered from the south-east corner, counter-clockwise).
func (l LayerDescriptor) ExtentPolygon() *geom.Polygon {
	w, s, e, n := l.Extent[0], l.Extent[1], l.Extent[2], l.Extent[3]
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{e, s}, {e, n}, {w, n}, {w, s}, {e, s},
	}})
}

// ExtentWKT returns the extent of the layer as a WKT polygon
func (l LayerDescriptor) ExtentWKT() string {
	s, err := wkt.Marshal(l.ExtentPolygon())
	if err != nil {
		return fmt.Sprintf("BBOX(%v)", l.Extent)
	}
	return s
}

// Intersects returns true if the extent of the layer intersects bbox (boundaries included).
// A bbox crossing the antimeridian (west > east) is split in two.
func (l LayerDescriptor) Intersects(bbox [4]float64) bool {
	extent := geom.NewBounds(geom.XY).Set(l.Extent[0], l.Extent[1], l.Extent[2], l.Extent[3])
	parts := [][4]float64{bbox}
	if bbox[0] > bbox[2] {
		parts = [][4]float64{{bbox[0], bbox[1], 180, bbox[3]}, {-180, bbox[1], bbox[2], bbox[3]}}
	}
	for _, p := range parts {
		if extent.Overlaps(geom.XY, geom.NewBounds(geom.XY).Set(p[0], p[1], p[2], p[3])) {
			return true
		}
	}
	return false
}

// Catalog maps the identifier of a layer to its descriptor
type Catalog map[string]LayerDescriptor

// Validation is the result of Catalog.Validate
type Validation struct {
	Valid bool
	// InvalidNames are the requested names that are not in the catalog
	InvalidNames []string
	// InvalidGeometries are the extents (WKT) of the requested layers that do not intersect the query
	InvalidGeometries []string
	// Layers are the valid layers, in the requested order
	Layers []LayerDescriptor
}

// Validate checks that each requested layer exists and covers bbox.
// Each name ends in exactly one of InvalidNames, InvalidGeometries or Layers.
func (c Catalog) Validate(names []string, bbox [4]float64) Validation {
	v := Validation{}
	for _, name := range names {
		layer, ok := c[name]
		switch {
		case !ok:
			v.InvalidNames = append(v.InvalidNames, name)
		case !layer.Intersects(bbox):
			v.InvalidGeometries = append(v.InvalidGeometries, layer.ExtentWKT())
		default:
			v.Layers = append(v.Layers, layer)
		}
	}
	v.Valid = len(v.InvalidNames) == 0 && len(v.InvalidGeometries) == 0
	return v
}

// Err returns nil if the validation succeeded, an InputParametersError otherwise
func (v Validation) Err() error {
	if v.Valid {
		return nil
	}
	return NewInvalidLayersError(v.InvalidNames, v.InvalidGeometries)
}

// BandCounts maps the identifier of a layer to its number of bands
type BandCounts map[string]int
