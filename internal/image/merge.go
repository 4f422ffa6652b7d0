package image

import (
	"fmt"
	"math"

	"github.com/airbusgeo/modis/internal/modis"
	"github.com/airbusgeo/modis/internal/utils/affine"
)

// Merge pastes the rasters in a grid covering the union of their extents, at the resolution of the first one.
// Where rasters overlap, the first raster of the list having a sample other than NoData wins.
func Merge(rasters []*Raster) (*Raster, error) {
	if len(rasters) == 0 {
		return nil, modis.NewInputParametersError("no raster to merge")
	}
	first := rasters[0]
	rx, ry := first.Transform.Rx(), first.Transform.Ry()
	if rx <= 0 || ry >= 0 || first.Transform[2] != 0 || first.Transform[4] != 0 {
		return nil, fmt.Errorf("merge: only north-up rasters are supported (transform: %v)", first.Transform)
	}

	bounds := first.Bounds()
	for i, r := range rasters[1:] {
		if r.NBands() != first.NBands() {
			return nil, fmt.Errorf("merge: raster %d has %d bands, expected %d", i+1, r.NBands(), first.NBands())
		}
		if !sameResolution(r.Transform, first.Transform) {
			return nil, fmt.Errorf("merge: raster %d has a resolution of (%v, %v), expected (%v, %v)", i+1, r.Transform.Rx(), r.Transform.Ry(), rx, ry)
		}
		b := r.Bounds()
		bounds = [4]float64{math.Min(bounds[0], b[0]), math.Min(bounds[1], b[1]), math.Max(bounds[2], b[2]), math.Max(bounds[3], b[3])}
	}

	width := int(math.Round((bounds[2] - bounds[0]) / rx))
	height := int(math.Round((bounds[3] - bounds[1]) / -ry))
	out := NewRaster(first.NBands(), width, height, *affine.NewAffine(bounds[0], rx, 0, bounds[3], 0, ry))

	for _, r := range rasters {
		ox, oy := r.Transform.Origin()
		offX := int(math.Round((ox - bounds[0]) / rx))
		offY := int(math.Round((oy - bounds[3]) / ry))
		paste(out, r, offX, offY)
	}
	return out, nil
}

// paste writes the samples of src at (offX, offY) in dst, where dst is NoData
func paste(dst, src *Raster, offX, offY int) {
	for b := range src.Bands {
		dband, sband := dst.Bands[b], src.Bands[b]
		for y := 0; y < src.Height; y++ {
			dy := y + offY
			if dy < 0 || dy >= dst.Height {
				continue
			}
			for x := 0; x < src.Width; x++ {
				dx := x + offX
				if dx < 0 || dx >= dst.Width {
					continue
				}
				if v := sband[y*src.Width+x]; v != NoData && dband[dy*dst.Width+dx] == NoData {
					dband[dy*dst.Width+dx] = v
				}
			}
		}
	}
}

// Combine stacks the bands of the mosaics, in order.
// Mosaics are cropped to the greatest common size that is a multiple of the tile size.
// The transform of the first mosaic is the one of the output.
func Combine(mosaics []LayerMosaic) (*Raster, error) {
	if len(mosaics) == 0 {
		return nil, modis.NewInputParametersError("no layer to combine")
	}
	width, height := mosaics[0].Width, mosaics[0].Height
	for _, m := range mosaics[1:] {
		if m.Width < width {
			width = m.Width
		}
		if m.Height < height {
			height = m.Height
		}
	}
	width -= width % modis.TileSize
	height -= height % modis.TileSize
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("combine: mosaics are smaller than a tile")
	}

	out := &Raster{Width: width, Height: height, Transform: mosaics[0].Transform}
	for _, m := range mosaics {
		cropped, err := m.Crop(width, height)
		if err != nil {
			return nil, fmt.Errorf("combine %s: %w", m.Layer, err)
		}
		out.Bands = append(out.Bands, cropped.Bands...)
	}
	return out, nil
}

// LayerBands is the number of bands of a layer
type LayerBands struct {
	Layer string
	Count int
}

// BandProvenance links a band of a combined raster to the band of the layer it comes from
type BandProvenance struct {
	// Band is the index of the band in the combined raster (starting at 1)
	Band int `json:"band"`
	// Layer is the identifier of the layer
	Layer string `json:"layer"`
	// SourceBand is the index of the band in the layer (starting at 1)
	SourceBand int `json:"source_band"`
}

// MakeBandProvenance returns the provenance of the count first bands of the combination of layers
func MakeBandProvenance(layers []LayerBands, count int) ([]BandProvenance, error) {
	var all []BandProvenance
	for _, l := range layers {
		for b := 1; b <= l.Count; b++ {
			all = append(all, BandProvenance{Band: len(all) + 1, Layer: l.Layer, SourceBand: b})
		}
	}
	if count < 0 || count > len(all) {
		return nil, fmt.Errorf("cannot describe %d bands from layers having %d bands", count, len(all))
	}
	return all[:count], nil
}
