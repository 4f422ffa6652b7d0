package svc

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/airbusgeo/modis/internal/image"
	"github.com/airbusgeo/modis/internal/log"
	"github.com/airbusgeo/modis/internal/modis"
)

// DetectBandCounts decodes the first tile of each layer to get its number of bands
func (f *Fetcher) DetectBandCounts(ctx context.Context, tiles []modis.Tile, layers []modis.LayerDescriptor, date string) (modis.BandCounts, error) {
	if len(tiles) == 0 {
		return nil, modis.NewInputParametersError("no tile to read the band counts from")
	}
	counts := modis.BandCounts{}
	for _, layer := range layers {
		r, err := f.fetchTile(ctx, layer, date, tiles[0])
		if err != nil {
			return nil, err
		}
		counts[layer.Identifier] = r.NBands()
		log.Logger(ctx).Debug("band count", zap.String("layer", layer.Identifier), zap.Int("bands", r.NBands()))
	}
	return counts, nil
}

// writeMosaic merges the tiles of each layer, stacks the layers and writes the result in the output root.
// It returns the path of the raster relative to the output root.
func (f *Fetcher) writeMosaic(ctx context.Context, tiles []modis.Tile, layers []modis.LayerDescriptor, counts modis.BandCounts, date, id string) (string, error) {
	mosaics := make([]image.LayerMosaic, 0, len(layers))
	layerBands := make([]image.LayerBands, 0, len(layers))
	for _, layer := range layers {
		lctx := log.With(ctx, "layer", layer.Identifier)
		r, err := f.fetchLayer(lctx, layer, date, tiles)
		if err != nil {
			return "", err
		}
		if count, ok := counts[layer.Identifier]; ok && count != r.NBands() {
			return "", modis.NewUnexpectedError(nil, "layer %s: %d bands expected, got %d", layer.Identifier, count, r.NBands())
		}
		mosaics = append(mosaics, image.LayerMosaic{Layer: layer.Identifier, Raster: r})
		layerBands = append(layerBands, image.LayerBands{Layer: layer.Identifier, Count: r.NBands()})
		f.metrics.AddTiles(layer.Identifier, len(tiles))
		log.Logger(lctx).Sugar().Debugf("%d tile(s) merged into %dx%d", len(tiles), r.Width, r.Height)
	}

	combined, err := image.Combine(mosaics)
	if err != nil {
		return "", modis.NewUnexpectedError(err, "combine layers")
	}
	provenance, err := image.MakeBandProvenance(layerBands, combined.NBands())
	if err != nil {
		return "", modis.NewUnexpectedError(err, "band provenance")
	}

	name := id + ".tif"
	if err := f.writer.Write(combined, provenance, filepath.Join(f.config.OutputRoot, name)); err != nil {
		return "", modis.NewUnexpectedError(err, "write %s", name)
	}
	return name, nil
}

// fetchLayer fetches and decodes the tiles concurrently, then merges them in the order of the list
func (f *Fetcher) fetchLayer(ctx context.Context, layer modis.LayerDescriptor, date string, tiles []modis.Tile) (*image.Raster, error) {
	rasters := make([]*image.Raster, len(tiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.config.Workers)
	for i, tile := range tiles {
		i, tile := i, tile
		g.Go(func() error {
			r, err := f.fetchTile(gctx, layer, date, tile)
			if err != nil {
				return err
			}
			rasters[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged, err := image.Merge(rasters)
	if err != nil {
		return nil, modis.NewUnexpectedError(err, "merge tiles of %s", layer.Identifier)
	}
	return merged, nil
}

func (f *Fetcher) fetchTile(ctx context.Context, layer modis.LayerDescriptor, date string, tile modis.Tile) (*image.Raster, error) {
	data, err := f.imagery.FetchTile(ctx, layer.Identifier, date, tile, layer.Encoding)
	if err != nil {
		return nil, connectionError(err, "failed to get tile %v of %s", tile, layer.Identifier)
	}
	r, err := f.decoder.Decode(data, layer.Encoding, tile)
	if err != nil {
		return nil, modis.NewUnexpectedError(err, "decode tile %v of %s", tile, layer.Identifier)
	}
	return r, nil
}
