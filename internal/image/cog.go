package image

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/airbusgeo/cogger"
	"github.com/airbusgeo/godal"
	"github.com/google/tiff"
	"github.com/google/uuid"

	"github.com/airbusgeo/modis/internal/modis"
	"github.com/airbusgeo/modis/internal/utils"
	"github.com/airbusgeo/modis/internal/utils/proj"
)

// Band tags of the output rasters
const (
	TagLayer = "layer"
	TagBand  = "band"
)

const overviewsMinSize = 256

// RasterWriter writes rasters as Cloud Optimized GeoTIFFs
type RasterWriter struct{}

func NewRasterWriter() *RasterWriter {
	return &RasterWriter{}
}

// Write writes r to path as a COG, tagging each band with its provenance.
// The first three bands are interpreted as red, green and blue.
func (w *RasterWriter) Write(r *Raster, provenance []BandProvenance, path string) error {
	if len(provenance) != r.NBands() {
		return fmt.Errorf("write %s: %d bands but %d provenances", path, r.NBands(), len(provenance))
	}
	ds, err := w.toDataset(r, provenance)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer ds.Close()

	options := []string{
		"-co", "TILED=YES",
		"-co", fmt.Sprintf("BLOCKXSIZE=%d", modis.TileSize),
		"-co", fmt.Sprintf("BLOCKYSIZE=%d", modis.TileSize),
		"-co", "COMPRESS=DEFLATE",
		"-co", "PREDICTOR=2",
		"-co", "NUM_THREADS=ALL_CPUS",
	}
	if r.NBands() >= 3 {
		options = append(options, "-co", "PHOTOMETRIC=RGB")
	}

	tmpPath := filepath.Join("/vsimem", fmt.Sprintf("cog_without_overviews_%s.tif", uuid.New().String()))
	tiled, err := ds.Translate(tmpPath, options, ErrLogger)
	if err != nil {
		return fmt.Errorf("write %s: failed to translate: %w", path, err)
	}
	defer godal.VSIUnlink(tmpPath)

	if utils.MaxI(r.Width, r.Height) > overviewsMinSize {
		if err := tiled.BuildOverviews(godal.Resampling(godal.Average), godal.MinSize(overviewsMinSize)); err != nil {
			tiled.Close()
			return fmt.Errorf("write %s: failed to build overviews: %w", path, err)
		}
	}
	if err := tiled.Close(); err != nil {
		return fmt.Errorf("write %s: failed to close tiff file: %w", path, err)
	}

	if err := rewriteTiff(tmpPath, path); err != nil {
		return fmt.Errorf("write %s: failed to rewrite COG file: %w", path, err)
	}
	return nil
}

func (w *RasterWriter) toDataset(r *Raster, provenance []BandProvenance) (*godal.Dataset, error) {
	ds, err := godal.Create(godal.Memory, "", r.NBands(), godal.Byte, r.Width, r.Height)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset: %w", err)
	}
	crs, err := proj.CRSFromEPSG(3857)
	if err != nil {
		ds.Close()
		return nil, err
	}
	if err := ds.SetSpatialRef(crs); err != nil {
		ds.Close()
		return nil, fmt.Errorf("failed to set the spatial ref: %w", err)
	}
	if err := ds.SetGeoTransform([6]float64(r.Transform)); err != nil {
		ds.Close()
		return nil, fmt.Errorf("failed to set the geotransform: %w", err)
	}

	for i, band := range ds.Bands() {
		if err := band.Write(0, 0, r.Bands[i], r.Width, r.Height); err != nil {
			ds.Close()
			return nil, fmt.Errorf("failed to write band %d: %w", i+1, err)
		}
		p := provenance[i]
		if err := band.SetMetadata(TagLayer, p.Layer); err != nil {
			ds.Close()
			return nil, fmt.Errorf("failed to tag band %d: %w", i+1, err)
		}
		if err := band.SetMetadata(TagBand, strconv.Itoa(p.SourceBand)); err != nil {
			ds.Close()
			return nil, fmt.Errorf("failed to tag band %d: %w", i+1, err)
		}
		if err := band.SetColorInterp(colorInterp(i)); err != nil {
			ds.Close()
			return nil, fmt.Errorf("failed to set the color interpretation of band %d: %w", i+1, err)
		}
	}
	return ds, nil
}

func colorInterp(band int) godal.ColorInterp {
	switch band {
	case 0:
		return godal.CIRed
	case 1:
		return godal.CIGreen
	case 2:
		return godal.CIBlue
	}
	return godal.CIUndefined
}

func rewriteTiff(src, dest string) error {
	file, fdesc, err := openDatasetTiffs(src)
	if err != nil {
		return fmt.Errorf("failed to open dataset tiffs: %w", err)
	}
	defer fdesc.Close()

	finalCogFile, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to rewrite cog: %w", err)
	}

	if err := cogger.Rewrite(finalCogFile, file); err != nil {
		finalCogFile.Close()
		os.Remove(dest)
		return err
	}
	return finalCogFile.Close()
}

func openDatasetTiffs(datasetFileName string) (tiff.ReadAtReadSeeker, io.Closer, error) {
	fd, err := godal.VSIOpen(datasetFileName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	return tiff.NewReadAtReadSeeker(fd), fd, nil
}

/*
	OpenCOG opens a cog or returns an error if the file is not a valid COG (see: https://github.com/rouault/cog_validator/blob/master/validate_cloud_optimized_geotiff.py)
	The caller is responsible for closing the dataset
*/
func OpenCOG(path string) (*godal.Dataset, error) {
	ds, err := godal.Open(path, godal.Drivers("GTiff"), ErrLogger)
	if err != nil {
		return nil, err
	}

	band := ds.Bands()[0]
	overviews := band.Overviews()
	st := band.Structure()

	if st.SizeX > 512 || st.SizeY > 512 {
		if (st.BlockSizeX == st.SizeX && st.BlockSizeX > 1024) || (st.BlockSizeY == st.SizeY && st.BlockSizeY > 1024) {
			err = utils.MergeErrors(true, err, fmt.Errorf("file is greater than 1024xHeight or Widthx1024, but is not tiled"))
		}
	}

	ifdOffsets := []int{ifdOffset(band, &err)}
	dataOffsets := []int{blockOffset(band)}
	previous := st
	for i, ovr := range overviews {
		ost := ovr.Structure()
		if ost.SizeX > previous.SizeX || ost.SizeY > previous.SizeY {
			err = utils.MergeErrors(true, err, fmt.Errorf("overview of index %d is larger than the previous level", i))
		}
		if (ost.BlockSizeX == st.SizeX && ost.BlockSizeX > 1024) || (ost.BlockSizeY == st.SizeY && ost.BlockSizeY > 1024) {
			err = utils.MergeErrors(true, err, fmt.Errorf("overview of index %d is not tiled", i))
		}
		previous = ost

		ifdOffsets = append(ifdOffsets, ifdOffset(ovr, &err))
		if ifdOffsets[i+1] < ifdOffsets[i] {
			err = utils.MergeErrors(true, err, fmt.Errorf("the IFD of overview %d (byte %d) should be after the IFD of the previous level (byte %d)", i, ifdOffsets[i+1], ifdOffsets[i]))
		}
		dataOffsets = append(dataOffsets, blockOffset(ovr))
	}

	if last := len(dataOffsets) - 1; dataOffsets[last] > 0 && dataOffsets[last] < ifdOffsets[last] {
		err = utils.MergeErrors(true, err, fmt.Errorf("the first block of the smallest level should be after its IFD"))
	}
	if len(dataOffsets) >= 2 && dataOffsets[0] > 0 && dataOffsets[0] < dataOffsets[1] {
		err = utils.MergeErrors(true, err, fmt.Errorf("the first block of the full resolution should be after the blocks of the overviews"))
	}

	if err != nil {
		ds.Close()
		return nil, fmt.Errorf("%s is not a valid COG: %w", path, err)
	}
	return ds, nil
}

func ifdOffset(band godal.Band, err *error) int {
	offset, e := strconv.Atoi(band.Metadata("IFD_OFFSET", godal.Domain("TIFF")))
	if e != nil {
		*err = utils.MergeErrors(true, *err, fmt.Errorf("IFD_OFFSET: %w", e))
	}
	return offset
}

func blockOffset(band godal.Band) int {
	st := band.Structure()
	for y := 0; y < (st.SizeY+st.BlockSizeY-1)/st.BlockSizeY; y++ {
		for x := 0; x < (st.SizeX+st.BlockSizeX-1)/st.BlockSizeX; x++ {
			if offset := band.Metadata(fmt.Sprintf("BLOCK_OFFSET_%d_%d", x, y), godal.Domain("TIFF")); offset != "" {
				i, err := strconv.Atoi(offset)
				if err != nil {
					return -1
				}
				return i
			}
		}
	}
	return -1
}

// ReadProvenance returns the provenance stored in the tags of the bands of ds
func ReadProvenance(ds *godal.Dataset) []BandProvenance {
	bands := ds.Bands()
	provenance := make([]BandProvenance, len(bands))
	for i, band := range bands {
		provenance[i] = BandProvenance{Band: i + 1, Layer: band.Metadata(TagLayer)}
		provenance[i].SourceBand, _ = strconv.Atoi(band.Metadata(TagBand))
	}
	return provenance
}
