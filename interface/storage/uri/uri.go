package uri

import (
	"context"
	"fmt"
	pathPkg "path"
	"regexp"
	"strings"

	"github.com/airbusgeo/modis/interface/storage"
	"github.com/airbusgeo/modis/interface/storage/filesystem"
	"github.com/airbusgeo/modis/interface/storage/gcs"
	"github.com/airbusgeo/modis/interface/storage/s3"
	"github.com/airbusgeo/modis/internal/utils"
)

var (
	BadUriErr = fmt.Errorf("badly formatted storage uri")
	uriRegex  = regexp.MustCompile("^(?P<Protocol>[a-zA-Z0-9]+)://(?P<BucketName>[^/]+)(/(?P<Path>(?:.*/)*(?P<FileName>.*)))?$")
)

// ParseUri parses a storage uri (e.g. gs://bucket-name/path/to/file) or a local path
func ParseUri(rawURI string) (DefaultUri, error) {
	if p := strings.TrimPrefix(rawURI, "file://"); !strings.Contains(p, "://") {
		return DefaultUri{path: p, fileName: pathPkg.Base(p)}, nil
	}
	matches, err := utils.FindRegexGroups(uriRegex, rawURI)
	if err != nil {
		return DefaultUri{}, BadUriErr
	}

	u := DefaultUri{
		protocol: strings.ToLower(matches["Protocol"]),
		bucket:   matches["BucketName"],
		path:     matches["Path"],
		fileName: matches["FileName"],
	}
	if u.path == "" {
		return DefaultUri{}, fmt.Errorf("missing path in %s: %w", rawURI, BadUriErr)
	}
	return u, nil
}

// DefaultUri is a parsed storage uri. The protocol and the bucket of a local path are empty.
type DefaultUri struct {
	protocol string
	bucket   string
	path     string
	fileName string
}

func (u DefaultUri) Protocol() string {
	return u.protocol
}

func (u DefaultUri) Bucket() string {
	return u.bucket
}

func (u DefaultUri) Path() string {
	return u.path
}

func (u DefaultUri) FileName() string {
	return u.fileName
}

func (u DefaultUri) String() string {
	if u.protocol == "" {
		return u.path
	}
	return fmt.Sprintf("%s://%s/%s", u.protocol, u.bucket, u.path)
}

// NewStorageStrategy returns the strategy handling the protocol of the uri.
// s3Config is only used for s3:// uris.
func (u DefaultUri) NewStorageStrategy(ctx context.Context, s3Config s3.Config) (storage.Strategy, error) {
	switch u.protocol {
	case "gs":
		return gcs.NewGsStrategy(ctx)
	case "s3":
		return s3.NewS3Strategy(ctx, s3Config)
	case "":
		return filesystem.NewFileSystemStrategy(ctx)
	default:
		return nil, fmt.Errorf("unsupported storage protocol %s: %w", u.protocol, BadUriErr)
	}
}
