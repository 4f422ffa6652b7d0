package svc

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/airbusgeo/modis/interface/gibs"
	"github.com/airbusgeo/modis/internal/log"
	"github.com/airbusgeo/modis/internal/modis"
)

// QuicklookPath returns the path of the quicklook of a feature
func (f *Fetcher) QuicklookPath(id string) string {
	return filepath.Join(f.config.QuicklookRoot, id+".jpg")
}

// writeQuicklook streams the quicklook of the layer to the quicklook root.
// The quicklook of a previous layer is only replaced on success.
// Failures of the service other than the connection are returned as QuicklookError,
// failures of the local file as UnexpectedError. No partial file is left.
func (f *Fetcher) writeQuicklook(ctx context.Context, layer string, bbox [4]float64, date, id string) (err error) {
	path := f.QuicklookPath(id) + ".part"
	file, err := os.Create(path)
	if err != nil {
		return modis.NewUnexpectedError(err, "create quicklook")
	}
	defer func() {
		if e := file.Close(); e != nil && err == nil {
			err = modis.NewUnexpectedError(e, "close quicklook")
		}
		if err == nil {
			if e := os.Rename(path, f.QuicklookPath(id)); e != nil {
				err = modis.NewUnexpectedError(e, "rename quicklook")
			}
		}
		if err != nil {
			if e := os.Remove(path); e != nil && !os.IsNotExist(e) {
				log.Logger(ctx).Warn("cannot remove partial quicklook", zap.String("path", path), zap.Error(e))
			}
		}
	}()

	if err := f.imagery.FetchQuicklook(ctx, layer, bbox, date, file); err != nil {
		if gibs.IsWriteError(err) {
			return modis.NewUnexpectedError(err, "write quicklook of %s", layer)
		}
		if gibs.IsConnectionError(err) {
			return connectionError(err, "failed to get quicklook of %s", layer)
		}
		return modis.NewQuicklookError(err, "quicklook of %s for %s", layer, date)
	}
	return nil
}
