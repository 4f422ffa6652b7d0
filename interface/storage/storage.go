package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/airbusgeo/modis/internal/log"
	"github.com/airbusgeo/modis/internal/utils"
)

var (
	ErrFileNotFound = errors.New("file not found")
)

// Strategy gives access to files on a storage (local filesystem, object storage)
type Strategy interface {
	// Download returns the content of the file, ErrFileNotFound if it does not exist
	Download(ctx context.Context, uri string, options ...Option) ([]byte, error)
	// UploadFile copies data to uri, creating or replacing the file
	UploadFile(ctx context.Context, uri string, data io.Reader, options ...Option) error
}

// Client copies the local outputs of a run to a storage
type Client struct {
	strategy Strategy
}

// NewClient returns a client using strategy
func NewClient(strategy Strategy) *Client {
	return &Client{strategy: strategy}
}

// UploadFiles copies the local files to root/<base name of the file>, concurrently.
// The content type of each object is deduced from the extension of the file.
// It returns all the errors merged, with priority to the fatal ones.
func (c *Client) UploadFiles(ctx context.Context, root string, files []string, options ...Option) error {
	opts := Apply(options...)
	workers := utils.MinI(opts.Concurrency, len(files))
	tasks := make(chan string)
	wg := utils.ErrWaitGroup{}

	for i := 0; i < workers; i++ {
		wg.Go(func() error {
			for file := range tasks {
				dst := JoinURI(root, filepath.Base(file))
				if err := c.uploadFile(ctx, file, dst, options...); err != nil {
					wg.AppendError(err)
					continue
				}
				log.Logger(ctx).Sugar().Debugf("%s uploaded to %s", file, dst)
			}
			return nil
		})
	}
	for _, file := range files {
		tasks <- file
	}
	close(tasks)

	return utils.MergeErrors(true, nil, wg.Wait()...)
}

func (c *Client) uploadFile(ctx context.Context, src, dst string, options ...Option) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("upload %s: %w", src, err)
	}
	defer f.Close()

	if ct := mime.TypeByExtension(filepath.Ext(src)); ct != "" {
		options = append(options, ContentType(ct))
	}
	if err := c.strategy.UploadFile(ctx, dst, f, options...); err != nil {
		return fmt.Errorf("upload %s to %s: %w", src, dst, err)
	}
	return nil
}

// JoinURI appends name to a storage uri or a local path
func JoinURI(root, name string) string {
	if strings.Contains(root, "://") {
		return strings.TrimSuffix(root, "/") + "/" + name
	}
	return filepath.Join(root, name)
}

// Retry calls f until it succeeds, fails with a non-temporary error, or MaxTries is reached.
// The delay between two tries doubles each time.
func Retry(ctx context.Context, opts option, f func() error) error {
	d := opts.Delay
	var err error
	for try := 0; try < opts.MaxTries; try++ {
		if try > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
			d *= 2
		}
		if err = f(); err == nil || !utils.Temporary(err) {
			return err
		}
	}
	return fmt.Errorf("failed after %d tries: %w", opts.MaxTries, err)
}

type Option func(o *option)

type option struct {
	MaxTries     int
	Delay        time.Duration
	StorageClass string
	ContentType  string
	Concurrency  int
}

func MaxTries(n int) Option {
	if n <= 0 {
		n = 1
	}
	return func(o *option) {
		o.MaxTries = n
	}
}

func OnErrorRetryDelay(d time.Duration) Option {
	if d < 0 {
		d = 0
	}
	return func(o *option) {
		o.Delay = d
	}
}

func StorageClass(cl string) Option {
	return func(o *option) {
		o.StorageClass = cl
	}
}

func ContentType(ct string) Option {
	return func(o *option) {
		o.ContentType = ct
	}
}

func Concurrency(c int) Option {
	if c <= 0 {
		panic("concurrency must be >= 1")
	}
	return func(o *option) {
		o.Concurrency = c
	}
}

func Apply(opts ...Option) option {
	opt := option{
		MaxTries:    5,
		Delay:       time.Second,
		Concurrency: 4,
	}
	for _, o := range opts {
		o(&opt)
	}
	return opt
}
