package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/twpayne/go-geom/encoding/wkt"
	"go.uber.org/zap"

	"github.com/airbusgeo/modis/cmd"
	"github.com/airbusgeo/modis/internal/image"
	"github.com/airbusgeo/modis/internal/log"
	"github.com/airbusgeo/modis/internal/utils/affine"
	"github.com/airbusgeo/modis/internal/utils/proj"
)

type report struct {
	Path         string                 `json:"path"`
	Width        int                    `json:"width"`
	Height       int                    `json:"height"`
	Overviews    int                    `json:"overviews"`
	EPSG         string                 `json:"epsg"`
	GeoTransform [6]float64             `json:"geotransform"`
	Footprint    string                 `json:"footprint,omitempty"`
	Bands        []image.BandProvenance `json:"bands"`
}

func main() {
	ctx := context.Background()
	gdalConfig := cmd.GDALConfigFlags()
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] raster...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := cmd.InitGDAL(ctx, gdalConfig); err != nil {
		log.Logger(ctx).Fatal("init gdal", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	failed := false
	for _, path := range flag.Args() {
		r, err := inspect(path)
		if err != nil {
			log.Logger(ctx).Error("inspect", zap.String("path", path), zap.Error(err))
			failed = true
			continue
		}
		if err := enc.Encode(r); err != nil {
			log.Logger(ctx).Fatal("encode", zap.Error(err))
		}
	}
	if failed {
		os.Exit(1)
	}
}

func inspect(path string) (*report, error) {
	ds, err := image.OpenCOG(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	st := ds.Structure()
	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("geotransform: %w", err)
	}
	r := &report{
		Path:         path,
		Width:        st.SizeX,
		Height:       st.SizeY,
		Overviews:    len(ds.Bands()[0].Overviews()),
		GeoTransform: gt,
		Bands:        image.ReadProvenance(ds),
	}
	if sr := ds.SpatialRef(); sr != nil {
		defer sr.Close()
		r.EPSG = sr.AuthorityCode("PROJCS")
		footprint, err := proj.NewLonLatPolygonFromExtent((*affine.Affine)(&gt), st.SizeX, st.SizeY, sr)
		if err != nil {
			return nil, fmt.Errorf("footprint: %w", err)
		}
		if r.Footprint, err = wkt.Marshal(footprint); err != nil {
			return nil, fmt.Errorf("footprint: %w", err)
		}
	}
	return r, nil
}
