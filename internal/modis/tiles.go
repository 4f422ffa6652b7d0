package modis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	sfgeom "github.com/peterstace/simplefeatures/geom"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/airbusgeo/modis/internal/utils"
	"github.com/airbusgeo/modis/internal/utils/proj"
)

const (
	// TileMatrixSet is the only tiling scheme supported
	TileMatrixSet = "GoogleMapsCompatible_Level9"
	// MaxZoom is the deepest level of TileMatrixSet
	MaxZoom = 9
	// TileSize is the width and height of a tile in pixels
	TileSize = 256

	// MaxLatitude is the latitude limit of the web-mercator grid
	MaxLatitude = 85.051129
	// OriginShift is half the width of the web-mercator plane
	OriginShift = proj.OriginShift

	llEpsilon = 1e-11
)

// Tile is a cell of the web-mercator tile pyramid
type Tile struct {
	X, Y, Z int
}

func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Bounds returns the lon/lat box of the tile (west, south, east, north)
func (t Tile) Bounds() [4]float64 {
	b := maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Z)).Bound()
	return [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
}

// MercatorBounds returns the EPSG:3857 box of the tile (minx, miny, maxx, maxy)
func (t Tile) MercatorBounds() [4]float64 {
	grid := proj.TileGridTransform(t.Z, TileSize)
	minx, maxy := grid.Transform(float64(t.X*TileSize), float64(t.Y*TileSize))
	maxx, miny := grid.Transform(float64((t.X+1)*TileSize), float64((t.Y+1)*TileSize))
	return [4]float64{minx, miny, maxx, maxy}
}

// ResolveTiles returns the tiles at zoom covering bbox that intersect (and do not only touch) aoi.
// Tiles are sorted by (Y, X).
// bbox and zoom out of the tile grid are rejected with an InputParametersError.
func ResolveTiles(bbox [4]float64, zoom int, aoi geom.T) ([]Tile, error) {
	if zoom < 0 || zoom > MaxZoom {
		return nil, NewInputParametersError("zoom_level must be in [0, %d], got %d", MaxZoom, zoom)
	}
	for _, v := range bbox {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, NewInputParametersError("bbox %v has non finite coordinates", bbox)
		}
	}
	w, s, e, n := bbox[0], bbox[1], bbox[2], bbox[3]
	if s > n {
		return nil, NewInputParametersError("bbox %v: south is above north", bbox)
	}
	if s > MaxLatitude || n < -MaxLatitude {
		return nil, NewInputParametersError("bbox %v is out of the latitude range of the tile grid", bbox)
	}

	parts := [][4]float64{{w, s, e, n}}
	if w > e {
		parts = [][4]float64{{w, s, 180, n}, {-180, s, e, n}}
	}

	var candidates []Tile
	for _, part := range parts {
		if part[0] > 180 || part[2] < -180 {
			continue
		}
		candidates = append(candidates, coveringTiles(truncate(part), zoom)...)
	}
	if len(candidates) == 0 {
		return nil, NewInputParametersError("bbox %v is out of the longitude range of the tile grid", bbox)
	}

	aoig, err := toSimpleFeatures(aoi)
	if err != nil {
		return nil, NewInputParametersError("area of interest: %v", err)
	}

	var tiles []Tile
	seen := map[Tile]struct{}{}
	for _, t := range candidates {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		ok, err := intersectsInterior(t, aoig)
		if err != nil {
			return nil, NewInputParametersError("tile %v: %v", t, err)
		}
		if ok {
			tiles = append(tiles, t)
		}
	}
	if len(tiles) == 0 {
		return nil, NewInputParametersError("no tile at zoom %d intersects the area of interest", zoom)
	}

	sort.Slice(tiles, func(i, j int) bool {
		if tiles[i].Y != tiles[j].Y {
			return tiles[i].Y < tiles[j].Y
		}
		return tiles[i].X < tiles[j].X
	})
	return tiles, nil
}

func truncate(b [4]float64) [4]float64 {
	return [4]float64{
		math.Max(b[0], -180), math.Max(b[1], -MaxLatitude),
		math.Min(b[2], 180), math.Min(b[3], MaxLatitude),
	}
}

func coveringTiles(b [4]float64, zoom int) []Tile {
	z := maptile.Zoom(zoom)
	maxIdx := (1 << zoom) - 1
	ul := maptile.At(orb.Point{b[0], b[3]}, z)
	lr := maptile.At(orb.Point{b[2] - llEpsilon, b[1] + llEpsilon}, z)
	minX, minY := utils.MinI(int(ul.X), maxIdx), utils.MinI(int(ul.Y), maxIdx)
	maxX, maxY := utils.MinI(int(lr.X), maxIdx), utils.MinI(int(lr.Y), maxIdx)

	var tiles []Tile
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			tiles = append(tiles, Tile{X: x, Y: y, Z: zoom})
		}
	}
	return tiles
}

func intersectsInterior(t Tile, aoi sfgeom.Geometry) (bool, error) {
	box, err := boxGeometry(t.Bounds())
	if err != nil {
		return false, err
	}
	if !sfgeom.Intersects(aoi, box) {
		return false, nil
	}
	touches, err := sfgeom.Touches(aoi, box)
	if err != nil {
		return false, err
	}
	return !touches, nil
}

// TilesFootprint returns the union of the lon/lat boxes of the tiles
func TilesFootprint(tiles []Tile) (geom.T, error) {
	if len(tiles) == 0 {
		return nil, fmt.Errorf("footprint of an empty list of tiles")
	}
	boxes := make([]string, len(tiles))
	for i, t := range tiles {
		boxes[i] = boxWKT(t.Bounds())
	}
	collection, err := sfgeom.UnmarshalWKT("GEOMETRYCOLLECTION (" + strings.Join(boxes, ", ") + ")")
	if err != nil {
		return nil, fmt.Errorf("footprint: %w", err)
	}
	union, err := sfgeom.UnaryUnion(collection)
	if err != nil {
		return nil, fmt.Errorf("footprint.union: %w", err)
	}
	footprint, err := wkb.Unmarshal(union.AsBinary())
	if err != nil {
		return nil, fmt.Errorf("footprint: %w", err)
	}
	return footprint, nil
}

func boxWKT(b [4]float64) string {
	w, s, e, n := utils.F64ToS(b[0]), utils.F64ToS(b[1]), utils.F64ToS(b[2]), utils.F64ToS(b[3])
	return fmt.Sprintf("POLYGON ((%s %s, %s %s, %s %s, %s %s, %s %s))", e, s, e, n, w, n, w, s, e, s)
}

func boxGeometry(b [4]float64) (sfgeom.Geometry, error) {
	return sfgeom.UnmarshalWKT(boxWKT(b))
}

func toSimpleFeatures(g geom.T) (sfgeom.Geometry, error) {
	data, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return sfgeom.Geometry{}, err
	}
	return sfgeom.UnmarshalWKB(data)
}
