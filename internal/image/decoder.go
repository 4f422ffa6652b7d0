package image

import (
	"fmt"
	"os"

	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/modis/internal/modis"
	"github.com/airbusgeo/modis/internal/utils/affine"
)

// ErrLogger turns GDAL errors into go errors and ignores the warnings
var ErrLogger = godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
	if ec <= godal.CE_Warning {
		return nil
	}
	return fmt.Errorf("GDAL %d: %s", code, msg)
})

// TileDecoder decodes the images returned by the tile service
type TileDecoder struct {
	workDir string
}

// NewTileDecoder creates a decoder writing its temporary files in workDir
func NewTileDecoder(workDir string) *TileDecoder {
	return &TileDecoder{workDir: workDir}
}

// Decode decodes a tile image and georeferences it using the bounds of the tile in EPSG:3857.
// The georeferencing that may be embedded in the image is ignored.
func (d *TileDecoder) Decode(data []byte, enc modis.Encoding, tile modis.Tile) (*Raster, error) {
	f, err := os.CreateTemp(d.workDir, fmt.Sprintf("tile_%d_%d_%d_*.%s", tile.Z, tile.X, tile.Y, enc.Extension()))
	if err != nil {
		return nil, fmt.Errorf("decode %v: %w", tile, err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %v: %w", tile, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("decode %v: %w", tile, err)
	}

	ds, err := godal.Open(f.Name(), godal.Drivers(enc.Driver()), ErrLogger)
	if err != nil {
		return nil, fmt.Errorf("decode %v: %w", tile, err)
	}
	defer ds.Close()

	st := ds.Structure()
	if st.NBands == 0 {
		return nil, fmt.Errorf("decode %v: image has no band", tile)
	}
	r := NewRaster(st.NBands, st.SizeX, st.SizeY, *affine.FromBounds(tile.MercatorBounds(), st.SizeX, st.SizeY))
	for i, band := range ds.Bands() {
		if err := band.Read(0, 0, r.Bands[i], st.SizeX, st.SizeY); err != nil {
			return nil, fmt.Errorf("decode %v band %d: %w", tile, i+1, err)
		}
	}
	return r, nil
}
