package repository

import (
	"context"
	"errors"

	"shotbrain/internal/model"
)

// ErrDuplicateFilename is returned by Append when a backend that enforces unique
// filenames already holds rec.Filename.
var ErrDuplicateFilename = errors.New("filename already recorded")

// UploadRepository is the upload history: an append-only log in insertion order.
type UploadRepository interface {
	// Append adds a record at the end of the history. The in-memory history does no
	// deduplication; durable backends may return ErrDuplicateFilename.
	Append(ctx context.Context, rec *model.UploadRecord) error

	// ListRecent returns at most n records, newest first, and the total history size.
	// n <= 0 yields no items.
	ListRecent(ctx context.Context, n int) (*PageResult[model.UploadRecord], error)
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
