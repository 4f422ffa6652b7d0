package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	modisStorage "github.com/airbusgeo/modis/interface/storage"
	"github.com/airbusgeo/modis/internal/utils"
)

type gsStrategy struct {
	gsClient *storage.Client
}

var retriableOAuth2Errors = []string{
	"cannot assign requested address",
	"connection refused",
	"connection reset",
	"timeout",
	"broken pipe",
	"client connection force closed",
	"502 Bad Gateway",
}

var retriableSuffixErrors = []string{
	"http2: client connection lost",
	"http2: client connection force closed via ClientConn.Close",
	"EOF", // Unexpected EOF is a temporary error
}

// gsError marks as temporary the errors of the client that do not carry their temporary status
func gsError(err error) error {
	if err == nil || utils.Temporary(err) {
		return err
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%v: %w", err, modisStorage.ErrFileNotFound)
	}

	if strings.Contains(err.Error(), "oauth2: cannot fetch token:") {
		for _, e := range retriableOAuth2Errors {
			if strings.Contains(err.Error(), e) {
				return utils.MakeTemporary(err)
			}
		}
	}
	for _, e := range retriableSuffixErrors {
		if strings.HasSuffix(err.Error(), e) {
			return utils.MakeTemporary(err)
		}
	}
	return err
}

// NewGsStrategy returns a strategy handling gs:// uris with the default credentials
func NewGsStrategy(ctx context.Context) (modisStorage.Strategy, error) {
	gsClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create gs client: %w", gsError(err))
	}
	return gsStrategy{gsClient: gsClient}, nil
}

func (s gsStrategy) object(uri string) (*storage.ObjectHandle, error) {
	bucket, object, err := Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to parse uri %s: %w", uri, err)
	}
	return s.gsClient.Bucket(bucket).Object(object), nil
}

func (s gsStrategy) Download(ctx context.Context, uri string, options ...modisStorage.Option) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := s.downloadTo(ctx, uri, buf, options...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// downloadTo copies the object to w, resuming from the last byte written on temporary errors
func (s gsStrategy) downloadTo(ctx context.Context, uri string, w io.Writer, options ...modisStorage.Option) error {
	obj, err := s.object(uri)
	if err != nil {
		return err
	}
	var offset int64
	err = modisStorage.Retry(ctx, modisStorage.Apply(options...), func() error {
		r, err := obj.NewRangeReader(ctx, offset, -1)
		if err != nil {
			return fmt.Errorf("newreader: %w", gsError(err))
		}
		defer r.Close()
		n, err := io.Copy(w, r)
		offset += n
		if err != nil {
			return fmt.Errorf("copy: %w", gsError(err))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("download %s: %w", uri, err)
	}
	return nil
}

// UploadFile retries on temporary errors if data implements io.Seeker
func (s gsStrategy) UploadFile(ctx context.Context, uri string, data io.Reader, options ...modisStorage.Option) error {
	obj, err := s.object(uri)
	if err != nil {
		return err
	}
	opts := modisStorage.Apply(options...)
	seeker, canSeek := data.(io.Seeker)
	if !canSeek {
		opts.MaxTries = 1
	}

	try := 0
	err = modisStorage.Retry(ctx, opts, func() error {
		if try++; try > 1 {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("seek: %w", err)
			}
		}
		w := obj.NewWriter(ctx)
		w.StorageClass = opts.StorageClass
		w.ContentType = opts.ContentType
		if _, err := io.Copy(w, data); err != nil {
			w.Close()
			return fmt.Errorf("copy: %w", gsError(err))
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("close: %w", gsError(err))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", uri, err)
	}
	return nil
}
