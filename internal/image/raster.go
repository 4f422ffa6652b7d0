package image

import (
	"fmt"
	"math"

	"github.com/airbusgeo/modis/internal/utils/affine"
)

// NoData is the value of the samples not covered by any tile
const NoData = 0

// Raster is a multi-band 8-bit image georeferenced in EPSG:3857
type Raster struct {
	// Bands[b][y*Width+x] is the sample of band b at (x, y)
	Bands         [][]uint8
	Width, Height int
	Transform     affine.Affine
}

// NewRaster creates a raster filled with NoData
func NewRaster(nbands, width, height int, transform affine.Affine) *Raster {
	r := &Raster{Bands: make([][]uint8, nbands), Width: width, Height: height, Transform: transform}
	for b := range r.Bands {
		r.Bands[b] = make([]uint8, width*height)
	}
	return r
}

// NBands returns the number of bands
func (r *Raster) NBands() int {
	return len(r.Bands)
}

// Bounds returns the extent (minx, miny, maxx, maxy) in EPSG:3857
func (r *Raster) Bounds() [4]float64 {
	return r.Transform.Bounds(r.Width, r.Height)
}

// At returns the sample of band b at (x, y)
func (r *Raster) At(b, x, y int) uint8 {
	return r.Bands[b][y*r.Width+x]
}

// Crop returns the upper-left width x height part of the raster.
// The transform is unchanged.
func (r *Raster) Crop(width, height int) (*Raster, error) {
	if width > r.Width || height > r.Height || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("cannot crop a %dx%d raster to %dx%d", r.Width, r.Height, width, height)
	}
	if width == r.Width && height == r.Height {
		return r, nil
	}
	out := NewRaster(r.NBands(), width, height, r.Transform)
	for b, band := range r.Bands {
		for y := 0; y < height; y++ {
			copy(out.Bands[b][y*width:(y+1)*width], band[y*r.Width:y*r.Width+width])
		}
	}
	return out, nil
}

// LayerMosaic is the merge of the tiles of one layer
type LayerMosaic struct {
	Layer string
	*Raster
}

// sameResolution returns true if the pixel sizes of a and b differ by less than a millionth of a pixel
func sameResolution(a, b affine.Affine) bool {
	return math.Abs(a.Rx()-b.Rx()) <= 1e-6*math.Abs(a.Rx()) && math.Abs(a.Ry()-b.Ry()) <= 1e-6*math.Abs(a.Ry())
}
