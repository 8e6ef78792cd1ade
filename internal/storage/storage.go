// Package storage defines the interface for blob storage operations.
// The driver is selected at startup. The MinIO and S3 implementations work
// with any S3-compatible provider; the local driver keeps files on disk.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrKeyExists is returned by Put when an object already exists under the key.
// Drivers never overwrite.
var ErrKeyExists = errors.New("object already exists")

// ErrNotFound is returned when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// BlobStore is the interface for storing and retrieving uploaded images.
type BlobStore interface {
	// Put stores size bytes from reader under key as a publicly readable object.
	// It fails with ErrKeyExists rather than replacing an existing object.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Get streams the object back together with its content type.
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	// Delete removes an object identified by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// PublicURL constructs the browser-accessible URL for a given key.
	PublicURL(key string) string
}
