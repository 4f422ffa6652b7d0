package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/airbusgeo/modis/cmd"
	"github.com/airbusgeo/modis/interface/gibs"
	"github.com/airbusgeo/modis/interface/storage"
	"github.com/airbusgeo/modis/interface/storage/s3"
	"github.com/airbusgeo/modis/interface/storage/uri"
	"github.com/airbusgeo/modis/internal/modis"
)

const (
	envTaskParameters = "UP42_TASK_PARAMETERS"
	envJobMode        = "UP42_JOB_MODE"
	jobModeDryRun     = "DRY_RUN"
)

type fetcherConfig struct {
	Query          string
	OutputRoot     string
	QuicklookRoot  string
	WorkDir        string
	DryRun         bool
	Zoom           int
	Workers        int
	TileCache      int
	HTTPTimeout    time.Duration
	MaxTries       int
	RetryDelay     time.Duration
	WMTSURL        string
	WMSURL         string
	UploadURI      string
	StorageClass   string
	StorageTries   int
	StorageDelay   time.Duration
	PubSubProject  string
	PubSubTopic    string
	PushgatewayURL string
	S3             s3.Config
	GDALConfig     *cmd.GDALConfig
}

func newFetcherAppConfig() (*fetcherConfig, error) {
	c := fetcherConfig{}

	flag.StringVar(&c.Query, "query", "", "path or storage uri (gs://, s3://) of the json query (default: content of $"+envTaskParameters+")")
	flag.StringVar(&c.OutputRoot, "output-root", "/tmp/output", "directory of the rasters and of data.json")
	flag.StringVar(&c.QuicklookRoot, "quicklook-root", "/tmp/quicklooks", "directory of the quicklooks")
	flag.StringVar(&c.WorkDir, "workdir", os.TempDir(), "directory of the temporary files")
	flag.BoolVar(&c.DryRun, "dry-run", false, "only fetch the quicklooks (default: true if $"+envJobMode+" is "+jobModeDryRun+")")
	flag.IntVar(&c.Zoom, "zoom", -1, "zoom level overriding the one of the query")
	flag.IntVar(&c.Workers, "workers", 4, "number of tiles fetched in parallel")
	flag.IntVar(&c.TileCache, "tile-cache", 64, "number of tiles kept in memory (0 to disable)")
	flag.DurationVar(&c.HTTPTimeout, "http-timeout", time.Minute, "timeout of a request to the imagery service")
	flag.IntVar(&c.MaxTries, "max-tries", 1, "number of tries of a request failing with a temporary error")
	flag.DurationVar(&c.RetryDelay, "retry-delay", time.Second, "delay before the first retry (doubled at each retry)")
	flag.StringVar(&c.WMTSURL, "wmts-url", gibs.DefaultWMTSURL, "base url of the tile service")
	flag.StringVar(&c.WMSURL, "wms-url", gibs.DefaultWMSURL, "base url of the quicklook service")
	flag.StringVar(&c.UploadURI, "upload-uri", "", "storage uri (gs://, s3://, local path) the outputs are copied to")
	flag.StringVar(&c.StorageClass, "upload-storage-class", "", "storage class of the uploaded objects (default: the one of the bucket)")
	flag.IntVar(&c.StorageTries, "storage-max-tries", 5, "number of tries of a storage operation failing with a temporary error")
	flag.DurationVar(&c.StorageDelay, "storage-retry-delay", time.Second, "delay before the first retry of a storage operation (doubled at each retry)")
	flag.StringVar(&c.PubSubProject, "pubsub-project", "", "project of the topic notified at the end of the run")
	flag.StringVar(&c.PubSubTopic, "pubsub-topic", "", "topic notified at the end of the run")
	flag.StringVar(&c.PushgatewayURL, "pushgateway-url", "", "url of the prometheus pushgateway receiving the metrics of the run")
	c.GDALConfig = cmd.GDALConfigFlags()

	flag.Parse()

	if strings.EqualFold(os.Getenv(envJobMode), jobModeDryRun) {
		c.DryRun = true
	}
	c.S3 = c.GDALConfig.S3
	if c.OutputRoot == "" || c.QuicklookRoot == "" {
		return nil, fmt.Errorf("failed to initialize --output-root and --quicklook-root application flags")
	}
	if (c.PubSubProject == "") != (c.PubSubTopic == "") {
		return nil, fmt.Errorf("--pubsub-project and --pubsub-topic must be defined together")
	}
	return &c, nil
}

// storageOptions returns the options of the storage operations
func (c *fetcherConfig) storageOptions() []storage.Option {
	options := []storage.Option{
		storage.MaxTries(c.StorageTries),
		storage.OnErrorRetryDelay(c.StorageDelay),
	}
	if c.Workers > 0 {
		options = append(options, storage.Concurrency(c.Workers))
	}
	if c.StorageClass != "" {
		options = append(options, storage.StorageClass(c.StorageClass))
	}
	return options
}

// queryData returns the json of the query, from the file given by --query or from the environment.
// Errors are modis.FetchError.
func (c *fetcherConfig) queryData(ctx context.Context) ([]byte, error) {
	if c.Query != "" {
		u, err := uri.ParseUri(c.Query)
		if err != nil {
			return nil, modis.NewInputParametersError("query uri: %v", err)
		}
		strategy, err := u.NewStorageStrategy(ctx, c.S3)
		if errors.Is(err, uri.BadUriErr) {
			return nil, modis.NewInputParametersError("query uri: %v", err)
		} else if err != nil {
			return nil, modis.NewUnexpectedError(err, "storage of the query")
		}
		data, err := strategy.Download(ctx, u.String(), c.storageOptions()...)
		if err != nil {
			if errors.Is(err, storage.ErrFileNotFound) {
				return nil, modis.NewInputParametersError("query %s not found", c.Query)
			}
			return nil, modis.NewUnexpectedError(err, "read query")
		}
		return data, nil
	}
	if v, ok := os.LookupEnv(envTaskParameters); ok && v != "" {
		return []byte(v), nil
	}
	return nil, modis.NewInputParametersError("no query: use --query or $%s", envTaskParameters)
}
