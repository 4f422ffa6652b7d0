package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/airbusgeo/modis/cmd"
	"github.com/airbusgeo/modis/interface/gibs"
	"github.com/airbusgeo/modis/interface/messaging"
	"github.com/airbusgeo/modis/interface/messaging/pubsub"
	"github.com/airbusgeo/modis/interface/storage"
	"github.com/airbusgeo/modis/interface/storage/uri"
	"github.com/airbusgeo/modis/internal/image"
	"github.com/airbusgeo/modis/internal/log"
	"github.com/airbusgeo/modis/internal/modis"
	"github.com/airbusgeo/modis/internal/observability"
	"github.com/airbusgeo/modis/internal/svc"
)

const (
	resultFile    = "data.json"
	reportTimeout = 30 * time.Second
)

func main() {
	if err := log.Setup(os.Getenv("LOGFORMAT"), os.Getenv("LOGLEVEL")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(modis.ExitCodeError)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx)
	stop()
	if err != nil {
		log.Logger(ctx).Error("exit on error", zap.Error(err))
		log.Sync()
		os.Exit(modis.ExitCode(err))
	}
	log.Logger(ctx).Info("exiting")
	log.Sync()
}

func run(ctx context.Context) error {
	config, err := newFetcherAppConfig()
	if err != nil {
		return modis.NewInputParametersError("%v", err)
	}

	runID := uuid.New().String()
	ctx = log.With(ctx, "run_id", runID)

	data, err := config.queryData(ctx)
	if err != nil {
		return err
	}
	query, err := modis.ParseQuery(data)
	if err != nil {
		return err
	}
	if config.Zoom >= 0 {
		query.Zoom = config.Zoom
	}

	if err := cmd.InitGDAL(ctx, config.GDALConfig); err != nil {
		return fmt.Errorf("init gdal: %w", err)
	}

	workDir := filepath.Join(config.WorkDir, runID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	metrics := observability.New()
	client, err := gibs.New(
		gibs.WithHTTPClient(gibs.NewHTTPClient(config.HTTPTimeout)),
		gibs.WithWMTSURL(config.WMTSURL),
		gibs.WithWMSURL(config.WMSURL),
		gibs.MaxTries(config.MaxTries),
		gibs.RetryDelay(config.RetryDelay),
		gibs.WithTileCache(config.TileCache),
		gibs.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("gibs.new: %w", err)
	}

	fetcher, err := svc.New(client, image.NewTileDecoder(workDir), image.NewRasterWriter(), metrics, svc.Config{
		OutputRoot:    config.OutputRoot,
		QuicklookRoot: config.QuicklookRoot,
		Workers:       config.Workers,
	})
	if err != nil {
		return fmt.Errorf("svc.new: %w", err)
	}

	log.Logger(ctx).Sugar().Infof("fetching %v (dry run: %t)", query.Layers, config.DryRun)
	fc, err := fetcher.Fetch(ctx, query, config.DryRun)
	if err == nil {
		err = writeResult(config.OutputRoot, fc)
	}
	if err == nil && config.UploadURI != "" {
		err = upload(ctx, config, fetcher, fc)
	}

	// the outcome is reported even if ctx was canceled
	rctx, cancel := context.WithTimeout(log.CopyContext(ctx, context.Background()), reportTimeout)
	defer cancel()
	if config.PubSubTopic != "" {
		if nerr := notify(rctx, config, fc, err); nerr != nil {
			log.Logger(rctx).Error("notification failed", zap.Error(nerr))
		}
	}
	if config.PushgatewayURL != "" {
		if perr := metrics.Push(rctx, config.PushgatewayURL, "modis-fetcher"); perr != nil {
			log.Logger(rctx).Warn("push metrics failed", zap.Error(perr))
		}
	}
	if err != nil {
		return err
	}
	log.Logger(ctx).Sugar().Infof("%d feature(s) written in %s", len(fc.Features), filepath.Join(config.OutputRoot, resultFile))
	return nil
}

func writeResult(outputRoot string, fc *geojson.FeatureCollection) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return modis.NewUnexpectedError(err, "marshal %s", resultFile)
	}
	if err := os.WriteFile(filepath.Join(outputRoot, resultFile), data, 0644); err != nil {
		return modis.NewUnexpectedError(err, "write %s", resultFile)
	}
	return nil
}

// upload copies data.json and the rasters to the upload uri and the quicklooks to <upload uri>/quicklooks
func upload(ctx context.Context, config *fetcherConfig, fetcher *svc.Fetcher, fc *geojson.FeatureCollection) error {
	u, err := uri.ParseUri(config.UploadURI)
	if err != nil {
		return modis.NewInputParametersError("upload uri: %v", err)
	}
	strategy, err := u.NewStorageStrategy(ctx, config.S3)
	if err != nil {
		return modis.NewUnexpectedError(err, "storage")
	}
	client := storage.NewClient(strategy)
	options := config.storageOptions()

	outputs := []string{filepath.Join(config.OutputRoot, resultFile)}
	var quicklooks []string
	for _, f := range fc.Features {
		if p, ok := f.Properties[svc.DataPathProperty].(string); ok {
			outputs = append(outputs, filepath.Join(config.OutputRoot, p))
		}
		if _, err := os.Stat(fetcher.QuicklookPath(f.ID)); err == nil {
			quicklooks = append(quicklooks, fetcher.QuicklookPath(f.ID))
		}
	}
	if err := client.UploadFiles(ctx, u.String(), outputs, options...); err != nil {
		return modis.NewUnexpectedError(err, "upload outputs")
	}
	if err := client.UploadFiles(ctx, storage.JoinURI(u.String(), "quicklooks"), quicklooks, options...); err != nil {
		return modis.NewUnexpectedError(err, "upload quicklooks")
	}
	log.Logger(ctx).Sugar().Infof("%d output(s) and %d quicklook(s) uploaded to %s", len(outputs), len(quicklooks), u.String())
	return nil
}

func notify(ctx context.Context, config *fetcherConfig, fc *geojson.FeatureCollection, runErr error) error {
	publisher, err := pubsub.NewPublisher(ctx, config.PubSubProject, config.PubSubTopic, pubsub.WithMaxRetries(3))
	if err != nil {
		return err
	}
	defer publisher.Stop()

	n := messaging.Notification{Status: messaging.StatusDone, DryRun: config.DryRun}
	if runErr != nil {
		n.Status = messaging.StatusFailed
		n.Error = runErr.Error()
		n.ExitCode = modis.ExitCode(runErr)
	} else {
		n.Result = filepath.Join(config.OutputRoot, resultFile)
		if config.UploadURI != "" {
			n.Result = storage.JoinURI(config.UploadURI, resultFile)
		}
		for _, f := range fc.Features {
			n.Features = append(n.Features, f.ID)
		}
	}
	return messaging.Notify(ctx, publisher, n)
}
