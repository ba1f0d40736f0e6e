// Package storage archives product images in an S3-compatible bucket.
package storage

import (
	"context"
	"io"
)

// ObjectStorage is a flat key/value blob store.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// GetURL returns where clients can read the object.
	GetURL(key string) string
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
