package storage

import (
	"context"
	"io"
	"time"
)

// Package storage holds the object store abstraction used for uploaded
// portfolio assets (avatars, project screenshots, resume PDFs). Backends
// stream content end to end and never touch local disk.

// PutOptions carries optional parameters for an upload. Size must be the
// exact byte count when known; -1 lets the backend chunk as it sees fit.
type PutOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	URL          string
}

// Storage is an S3-compatible object store client.
type Storage interface {
	// Put uploads an object under the given key from the provided reader.
	Put(ctx context.Context, key string, r io.Reader, opt PutOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL for downloading the object
	// without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
