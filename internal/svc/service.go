package svc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/airbusgeo/modis/interface/gibs"
	"github.com/airbusgeo/modis/internal/image"
	"github.com/airbusgeo/modis/internal/log"
	"github.com/airbusgeo/modis/internal/modis"
	"github.com/airbusgeo/modis/internal/observability"
)

// DataPathProperty is the property of a feature referencing its raster, relative to the output root
const DataPathProperty = "up42.data_path"

// ImageryService gives access to the layers, tiles and quicklooks of the imagery provider
type ImageryService interface {
	FetchCatalog(ctx context.Context) (modis.Catalog, error)
	FetchTile(ctx context.Context, layer, date string, tile modis.Tile, enc modis.Encoding) ([]byte, error)
	FetchQuicklook(ctx context.Context, layer string, bbox [4]float64, date string, w io.Writer) error
}

// Decoder decodes and georeferences an encoded tile
type Decoder interface {
	Decode(data []byte, enc modis.Encoding, tile modis.Tile) (*image.Raster, error)
}

// Writer persists a raster with the provenance of its bands
type Writer interface {
	Write(r *image.Raster, provenance []image.BandProvenance, path string) error
}

// Config of the Fetcher
type Config struct {
	// OutputRoot is the directory of the rasters
	OutputRoot string
	// QuicklookRoot is the directory of the quicklooks
	QuicklookRoot string
	// Workers is the maximum number of tiles fetched and decoded concurrently (default 4)
	Workers int
	// Now returns the current time (default time.Now)
	Now func() time.Time
}

// Fetcher retrieves the mosaics and quicklooks answering a query
type Fetcher struct {
	imagery ImageryService
	decoder Decoder
	writer  Writer
	metrics *observability.Metrics
	config  Config
}

// New returns a new Fetcher. metrics may be nil.
func New(imagery ImageryService, decoder Decoder, writer Writer, metrics *observability.Metrics, config Config) (*Fetcher, error) {
	if imagery == nil || decoder == nil || writer == nil {
		return nil, fmt.Errorf("invalid arguments: imagery, decoder and writer must be defined")
	}
	if config.OutputRoot == "" || config.QuicklookRoot == "" {
		return nil, fmt.Errorf("invalid arguments: output and quicklook roots must be defined")
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Fetcher{imagery: imagery, decoder: decoder, writer: writer, metrics: metrics, config: config}, nil
}

// Fetch produces one feature per date of the query.
// In dry run, only the quicklooks are retrieved and the features have no data path.
// Errors are modis.FetchError, except for the cancellation of ctx.
func (f *Fetcher) Fetch(ctx context.Context, query *modis.Query, dryRun bool) (*geojson.FeatureCollection, error) {
	ctx = log.With(ctx, "dry_run", dryRun)

	// Resolve input
	tiles, err := modis.ResolveTiles(query.BBox, query.Zoom, query.AOI)
	if err != nil {
		return nil, err
	}
	dates, err := modis.ResolveDates(query.Time, query.Limit, f.config.Now())
	if err != nil {
		return nil, err
	}
	log.Logger(ctx).Sugar().Debugf("%d tile(s) at zoom %d, dates: %v", len(tiles), query.Zoom, dates)

	// Validate layers
	catalog, err := f.imagery.FetchCatalog(ctx)
	if err != nil {
		return nil, connectionError(err, "fetch layers")
	}
	validation := catalog.Validate(query.Layers, query.BBox)
	if err := validation.Err(); err != nil {
		return nil, err
	}
	log.Logger(ctx).Sugar().Debugf("layers %v OK", query.Layers)

	footprint, err := modis.TilesFootprint(tiles)
	if err != nil {
		return nil, modis.NewUnexpectedError(err, "footprint")
	}

	for _, dir := range []string{f.config.OutputRoot, f.config.QuicklookRoot} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, modis.NewUnexpectedError(err, "create directory %s", dir)
		}
	}

	fc := &geojson.FeatureCollection{BBox: geom.NewBounds(geom.XY)}
	for _, date := range dates {
		feature, err := f.fetchDate(ctx, date, tiles, footprint, validation.Layers, dryRun)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, feature)
		fc.BBox.Extend(feature.Geometry)
		f.metrics.IncFeatures()
	}
	return fc, nil
}

func (f *Fetcher) fetchDate(ctx context.Context, date string, tiles []modis.Tile, footprint geom.T, layers []modis.LayerDescriptor, dryRun bool) (*geojson.Feature, error) {
	id := uuid.New().String()
	ctx = log.WithFields(ctx, zap.String("date", date), zap.String("feature_id", id))
	feature := &geojson.Feature{
		ID:         id,
		BBox:       footprint.Bounds(),
		Geometry:   footprint,
		Properties: map[string]interface{}{},
	}
	b := footprint.Bounds()
	bbox := [4]float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}

	var counts modis.BandCounts
	if !dryRun {
		var err error
		if counts, err = f.DetectBandCounts(ctx, tiles, layers, date); err != nil {
			return nil, err
		}
	}

	for _, layer := range layers {
		lctx := log.With(ctx, "layer", layer.Identifier)
		if err := f.writeQuicklook(lctx, layer.Identifier, bbox, date, id); err != nil {
			if !modis.IsError(err, modis.QuicklookError) {
				return nil, err
			}
			f.metrics.IncQuicklookErrors()
			log.Logger(lctx).Warn("quicklook skipped", zap.Error(err))
			continue
		}
		log.Logger(lctx).Debug("quicklook written")
	}

	if !dryRun {
		path, err := f.writeMosaic(ctx, tiles, layers, counts, date, id)
		if err != nil {
			return nil, err
		}
		feature.Properties[DataPathProperty] = path
		log.Logger(ctx).Info("mosaic written", zap.String("path", path))
	}
	return feature, nil
}

// connectionError wraps err in an API connection error, unless it is already a FetchError
// or the cancellation of the context.
func connectionError(err error, desc string, a ...interface{}) error {
	var ferr modis.FetchError
	if errors.As(err, &ferr) || errors.Is(err, context.Canceled) {
		return err
	}
	if gibs.IsConnectionError(err) || gibs.IsStatusError(err) {
		return modis.NewAPIConnectionError(err, desc, a...)
	}
	return modis.NewUnexpectedError(err, desc, a...)
}
