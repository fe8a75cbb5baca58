package storage

import (
	"context"
	"io"
)

const (
	BackendDisk     = "disk"
	BackendS3       = "s3"
	BackendDatabase = "database"
)

// FileStore is one place uploaded documents can live. Open and Remove
// return types.ErrFileNotFound for unknown keys.
type FileStore interface {
	Save(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}
