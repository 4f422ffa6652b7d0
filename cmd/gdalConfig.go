package cmd

import (
	"context"
	"flag"
	"os"

	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/osio"
	osioGcs "github.com/airbusgeo/osio/gcs"
	osioS3 "github.com/airbusgeo/osio/s3"

	"github.com/airbusgeo/modis/interface/storage/s3"
)

// GDALConfig configures GDAL and its access to remote rasters
type GDALConfig struct {
	BlockSize       string
	NumCachedBlocks int
	WithGCS         bool
	WithS3          bool
	S3              s3.Config
}

// GDALConfigFlags registers the GDAL flags on the default flag set
func GDALConfigFlags() *GDALConfig {
	gdalConfig := GDALConfig{}
	flag.StringVar(&gdalConfig.BlockSize, "gdalBlockSize", "1Mb", "gdal blocksize value")
	flag.IntVar(&gdalConfig.NumCachedBlocks, "gdalNumCachedBlocks", 500, "gdal blockcache value")
	flag.BoolVar(&gdalConfig.WithGCS, "with-gcs", false, "configure GDAL to read gs:// rasters (may need authentication)")
	flag.BoolVar(&gdalConfig.WithS3, "with-s3", false, "configure GDAL to read s3:// rasters (may need authentication)")
	S3ConfigFlags(&gdalConfig.S3)
	return &gdalConfig
}

// S3ConfigFlags registers the s3 client flags on the default flag set
func S3ConfigFlags(cfg *s3.Config) {
	flag.StringVar(&cfg.Region, "aws-region", "", "aws region of the s3 storage")
	flag.StringVar(&cfg.Endpoint, "aws-endpoint", "", "custom endpoint of the s3 storage")
	flag.StringVar(&cfg.SharedCredentialsFile, "aws-shared-credentials-file", "", "aws shared credentials file")
}

// InitGDAL registers the GDAL drivers and the remote storage handlers
func InitGDAL(ctx context.Context, gdalConfig *GDALConfig) error {
	os.Setenv("GDAL_DISABLE_READDIR_ON_OPEN", "EMPTY_DIR")

	godal.RegisterAll()

	if gdalConfig.WithGCS {
		handle, err := osioGcs.Handle(ctx)
		if err != nil {
			return err
		}
		gcsa, err := osio.NewAdapter(handle,
			osio.BlockSize(gdalConfig.BlockSize),
			osio.NumCachedBlocks(gdalConfig.NumCachedBlocks))
		if err != nil {
			return err
		}
		if err = godal.RegisterVSIHandler("gs://", gcsa); err != nil {
			return err
		}
	}

	if gdalConfig.WithS3 {
		s3Client, err := s3.NewClient(ctx, gdalConfig.S3)
		if err != nil {
			return err
		}
		handle, err := osioS3.Handle(ctx, osioS3.S3Client(s3Client))
		if err != nil {
			return err
		}
		s3a, err := osio.NewAdapter(handle,
			osio.BlockSize(gdalConfig.BlockSize),
			osio.NumCachedBlocks(gdalConfig.NumCachedBlocks))
		if err != nil {
			return err
		}
		if err = godal.RegisterVSIHandler("s3://", s3a); err != nil {
			return err
		}
	}
	return nil
}
