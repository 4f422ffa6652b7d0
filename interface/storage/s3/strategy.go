package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	modisStorage "github.com/airbusgeo/modis/interface/storage"
	"github.com/airbusgeo/modis/internal/utils"
)

// Config of the s3 client. Empty values fall back to the default aws configuration.
type Config struct {
	Region                string
	Endpoint              string
	SharedCredentialsFile string
}

// NewClient creates a s3 client. A custom endpoint implies path-style addressing.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.SharedCredentialsFile != "" {
		opts = append(opts, config.WithSharedCredentialsFiles([]string{cfg.SharedCredentialsFile}))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

type s3Strategy struct {
	client *s3.Client
}

// NewS3Strategy returns a strategy handling s3:// uris
func NewS3Strategy(ctx context.Context, cfg Config) (modisStorage.Strategy, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewS3StrategyWithClient(client), nil
}

// NewS3StrategyWithClient returns a strategy using client
func NewS3StrategyWithClient(client *s3.Client) modisStorage.Strategy {
	return s3Strategy{client: client}
}

// Parse splits s3://bucket/path/to/object into bucket and key
func Parse(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", fmt.Errorf("not a s3 uri: %s", uri)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(uri, "s3://"), "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("missing bucket or key: %s", uri)
	}
	return bucket, key, nil
}

func s3Error(err error) error {
	if err == nil {
		return nil
	}
	var ae smithy.APIError
	if errors.As(err, &ae) && (ae.ErrorCode() == "NoSuchBucket" || ae.ErrorCode() == "NoSuchKey" || ae.ErrorCode() == "NotFound") {
		return fmt.Errorf("%v: %w", err, modisStorage.ErrFileNotFound)
	}
	var re *smithyhttp.ResponseError
	if errors.As(err, &re) && (re.HTTPStatusCode() == 429 || re.HTTPStatusCode() >= 500) {
		return utils.MakeTemporary(err)
	}
	return err
}

func (s s3Strategy) Download(ctx context.Context, uri string, options ...modisStorage.Option) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := s.downloadTo(ctx, uri, buf, options...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s s3Strategy) downloadTo(ctx context.Context, uri string, w io.Writer, options ...modisStorage.Option) error {
	bucket, key, err := Parse(uri)
	if err != nil {
		return err
	}
	var offset int64
	err = modisStorage.Retry(ctx, modisStorage.Apply(options...), func() error {
		input := &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}
		if offset > 0 {
			input.Range = aws.String(fmt.Sprintf("bytes=%d-", offset))
		}
		out, err := s.client.GetObject(ctx, input)
		if err != nil {
			return fmt.Errorf("get object: %w", s3Error(err))
		}
		defer out.Body.Close()
		n, err := io.Copy(w, out.Body)
		offset += n
		if err != nil {
			return fmt.Errorf("copy: %w", utils.MakeTemporary(err))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("download %s: %w", uri, err)
	}
	return nil
}

// UploadFile reads data in memory if it cannot be rewound for a retry
func (s s3Strategy) UploadFile(ctx context.Context, uri string, data io.Reader, options ...modisStorage.Option) error {
	bucket, key, err := Parse(uri)
	if err != nil {
		return err
	}
	body, ok := data.(io.ReadSeeker)
	if !ok {
		b, err := io.ReadAll(data)
		if err != nil {
			return fmt.Errorf("upload %s: %w", uri, err)
		}
		body = bytes.NewReader(b)
	}

	opts := modisStorage.Apply(options...)
	err = modisStorage.Retry(ctx, opts, func() error {
		if _, err := body.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("seek: %w", err)
		}
		input := &s3.PutObjectInput{Bucket: aws.String(bucket), Key: aws.String(key), Body: body}
		if opts.ContentType != "" {
			input.ContentType = aws.String(opts.ContentType)
		}
		if opts.StorageClass != "" {
			input.StorageClass = types.StorageClass(opts.StorageClass)
		}
		_, err := s.client.PutObject(ctx, input)
		return s3Error(err)
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", uri, err)
	}
	return nil
}
