package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	modisStorage "github.com/airbusgeo/modis/interface/storage"
)

type fileSystemStrategy struct{}

// NewFileSystemStrategy returns a strategy handling local paths and file:// uris
func NewFileSystemStrategy(ctx context.Context) (modisStorage.Strategy, error) {
	return fileSystemStrategy{}, nil
}

func localPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

func formatError(err error) error {
	var epath *os.PathError
	if errors.As(err, &epath) && os.IsNotExist(epath) {
		return modisStorage.ErrFileNotFound
	}
	return err
}

func (s fileSystemStrategy) Download(ctx context.Context, uri string, options ...modisStorage.Option) ([]byte, error) {
	data, err := os.ReadFile(localPath(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", formatError(err))
	}
	return data, nil
}

func (s fileSystemStrategy) UploadFile(ctx context.Context, uri string, data io.Reader, options ...modisStorage.Option) error {
	path := localPath(uri)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err = io.Copy(f, data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}
