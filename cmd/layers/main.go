package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/airbusgeo/modis/interface/gibs"
	"github.com/airbusgeo/modis/internal/log"
	"github.com/airbusgeo/modis/internal/modis"
)

type layerEntry struct {
	Title         string `json:"title"`
	TileMatrixSet string `json:"tile_matrix_set"`
	Extent        string `json:"extent"`
	Format        string `json:"format"`
}

func main() {
	if err := log.Setup(os.Getenv("LOGFORMAT"), os.Getenv("LOGLEVEL")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(modis.ExitCodeError)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	output := flag.String("output", "available_imagery_layers.json", "file the layers are written to")
	wmtsURL := flag.String("wmts-url", gibs.DefaultWMTSURL, "base url of the tile service")
	timeout := flag.Duration("http-timeout", time.Minute, "timeout of the capabilities request")
	flag.Parse()

	if err := run(ctx, *output, *wmtsURL, *timeout); err != nil {
		log.Logger(ctx).Error("exit on error", zap.Error(err))
		log.Sync()
		os.Exit(modis.ExitCode(err))
	}
}

func run(ctx context.Context, output, wmtsURL string, timeout time.Duration) error {
	client, err := gibs.New(gibs.WithWMTSURL(wmtsURL), gibs.WithHTTPClient(gibs.NewHTTPClient(timeout)))
	if err != nil {
		return err
	}
	catalog, err := client.FetchCatalog(ctx)
	if err != nil {
		return modis.NewAPIConnectionError(err, "fetch layers")
	}

	data, err := json.MarshalIndent(layerEntries(catalog), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return err
	}
	log.Logger(ctx).Sugar().Infof("%d layer(s) written in %s", len(catalog), output)
	return nil
}

func layerEntries(catalog modis.Catalog) map[string]layerEntry {
	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make(map[string]layerEntry, len(catalog))
	for _, id := range ids {
		l := catalog[id]
		entries[id] = layerEntry{
			Title:         l.Title,
			TileMatrixSet: l.TileMatrixSet,
			Extent:        l.ExtentWKT(),
			Format:        l.Encoding.MimeType(),
		}
	}
	return entries
}
