// Package storage holds the local content directory that backs /uploads and an
// optional S3-compatible mirror for the same bytes.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrInvalidName is returned when a file name would escape the content directory.
var ErrInvalidName = errors.New("invalid file name")

// PutObjectOptions describes a mirrored object. Size is -1 when unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo describes a stored file or mirrored object. Key is the final name.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is an S3-compatible object store. Uploads are mirrored to it when configured.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
}

// ContentStore persists uploaded files under unique names.
type ContentStore interface {
	// Create writes r under name, or under the first free "<stem>_<n><ext>"
	// variant when name is taken. The returned ObjectInfo.Key is the final name.
	Create(ctx context.Context, name string, r io.Reader) (ObjectInfo, error)
	// Rename moves a stored file to a new name. It fails with fs.ErrExist
	// when to is already taken; an existing file is never replaced.
	Rename(ctx context.Context, from, to string) error
	// Remove deletes a stored file. A missing file is not an error.
	Remove(ctx context.Context, name string) error
	// Path returns the filesystem path of a stored name.
	Path(name string) string
}
