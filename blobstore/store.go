// Package blobstore abstracts the storage backends used for index snapshots.
package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations must return an error that satisfies
// errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("blobstore: blob not found")

// BlobStore reads and writes named blobs. Writes replace the whole blob;
// partial updates are not supported.
type BlobStore interface {
	// Put writes the blob, replacing any existing content under name.
	Put(ctx context.Context, name string, r io.Reader) error

	// Open opens the blob for reading. The caller must close the returned
	// reader.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
