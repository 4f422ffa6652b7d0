package modis

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

const (
	DefaultZoomLevel = 9
	DefaultLimit     = 1
)

// TimeSpec is either a single instant (Start == End, IsInterval false) or an interval
type TimeSpec struct {
	Start      time.Time
	End        time.Time
	IsInterval bool
}

// Query describes a request to the fetcher
type Query struct {
	// BBox is west, south, east, north in degrees (bounds of AOI)
	BBox [4]float64
	// AOI is the area of interest, in lon/lat
	AOI    geom.T
	Zoom   int
	Time   *TimeSpec
	Limit  int
	Layers []string
}

type queryJSON struct {
	BBox          []float64       `json:"bbox"`
	Intersects    json.RawMessage `json:"intersects"`
	Contains      json.RawMessage `json:"contains"`
	Time          *string         `json:"time"`
	Limit         *int            `json:"limit"`
	ZoomLevel     *int            `json:"zoom_level"`
	ImageryLayers []string        `json:"imagery_layers"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ParseTime parses an instant. Instants without timezone are considered UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date", s)
}

// ParseTimeSpec parses "<instant>" or "<start>/<end>"
func ParseTimeSpec(s string) (*TimeSpec, error) {
	parts := strings.Split(s, "/")
	switch len(parts) {
	case 1:
		t, err := ParseTime(parts[0])
		if err != nil {
			return nil, err
		}
		return &TimeSpec{Start: t, End: t}, nil
	case 2:
		start, err := ParseTime(parts[0])
		if err != nil {
			return nil, err
		}
		end, err := ParseTime(parts[1])
		if err != nil {
			return nil, err
		}
		if end.Before(start) {
			return nil, fmt.Errorf("interval %q ends before it starts", s)
		}
		return &TimeSpec{Start: start, End: end, IsInterval: true}, nil
	}
	return nil, fmt.Errorf("cannot parse %q as an instant or an interval", s)
}

// ParseQuery decodes and validates a query. Any failure is an InputParametersError.
func ParseQuery(data []byte) (*Query, error) {
	var qj queryJSON
	if err := json.Unmarshal(data, &qj); err != nil {
		return nil, NewInputParametersError("malformed query: %v", err)
	}

	q := Query{Zoom: DefaultZoomLevel, Limit: DefaultLimit, Layers: qj.ImageryLayers}
	if qj.ZoomLevel != nil {
		q.Zoom = *qj.ZoomLevel
	}
	if qj.Limit != nil {
		q.Limit = *qj.Limit
	}
	if q.Limit < 1 {
		return nil, NewInputParametersError("limit must be a positive integer, got %d", q.Limit)
	}
	if len(q.Layers) == 0 {
		return nil, NewInputParametersError("imagery_layers must contain at least one layer")
	}

	if qj.Time != nil && *qj.Time != "" {
		ts, err := ParseTimeSpec(*qj.Time)
		if err != nil {
			return nil, NewInputParametersError("time: %v", err)
		}
		q.Time = ts
	}

	nbAOI := 0
	if qj.BBox != nil {
		nbAOI++
	}
	if len(qj.Intersects) > 0 && string(qj.Intersects) != "null" {
		nbAOI++
	}
	if len(qj.Contains) > 0 && string(qj.Contains) != "null" {
		nbAOI++
	}
	if nbAOI != 1 {
		return nil, NewInputParametersError("exactly one of bbox, intersects or contains must be provided")
	}

	var err error
	switch {
	case qj.BBox != nil:
		if len(qj.BBox) != 4 {
			return nil, NewInputParametersError("bbox must have 4 coordinates, got %d", len(qj.BBox))
		}
		copy(q.BBox[:], qj.BBox)
		q.AOI, err = BBoxGeometry(q.BBox)
	case len(qj.Intersects) > 0 && string(qj.Intersects) != "null":
		q.AOI, err = parseGeometry(qj.Intersects)
	default:
		q.AOI, err = parseGeometry(qj.Contains)
	}
	if err != nil {
		return nil, NewInputParametersError("area of interest: %v", err)
	}
	if qj.BBox == nil {
		b := q.AOI.Bounds()
		q.BBox = [4]float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}
	}
	return &q, nil
}

func parseGeometry(data []byte) (geom.T, error) {
	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	switch g.(type) {
	case *geom.Polygon, *geom.MultiPolygon, *geom.Point, *geom.MultiPoint, *geom.LineString, *geom.MultiLineString:
	default:
		return nil, fmt.Errorf("unsupported geometry type %T", g)
	}
	if len(g.FlatCoords()) == 0 {
		return nil, fmt.Errorf("empty geometry")
	}
	return g, nil
}

// BBoxGeometry returns the polygon of a bbox. A bbox crossing the antimeridian (west > east)
// returns a multipolygon made of its two parts.
func BBoxGeometry(bbox [4]float64) (geom.T, error) {
	for _, v := range bbox {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("bbox %v has non finite coordinates", bbox)
		}
	}
	w, s, e, n := bbox[0], bbox[1], bbox[2], bbox[3]
	if s > n {
		return nil, fmt.Errorf("bbox %v: south is above north", bbox)
	}
	if w <= e {
		return geom.NewBounds(geom.XY).Set(w, s, e, n).Polygon(), nil
	}
	mp := geom.NewMultiPolygon(geom.XY)
	for _, part := range [][4]float64{{w, s, 180, n}, {-180, s, e, n}} {
		if err := mp.Push(geom.NewBounds(geom.XY).Set(part[0], part[1], part[2], part[3]).Polygon()); err != nil {
			return nil, err
		}
	}
	return mp, nil
}
