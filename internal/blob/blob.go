// Package blob provides durable, id-addressed storage for audio binaries.
// It defines the Store interface (port) for hexagonal architecture and
// implementations for local disk and S3 storage.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNotFound is returned when a blob id does not exist in the store.
var ErrNotFound = errors.New("blob not found")

// ErrWrite is returned when the underlying transport fails mid-stream
// during a Put. A failed Put must leave no partial blob behind.
var ErrWrite = errors.New("blob write failed")

// Store defines the interface for durable audio blob storage.
// Blobs are opaque binary payloads addressed by a generated id; the
// document registry holds ids only, never bytes.
type Store interface {
	// Put streams data into the store and returns the new blob id.
	// The name parameter is a metadata hint (original filename), not a key.
	// Implementations must not buffer the whole payload in memory.
	Put(ctx context.Context, name string, data io.Reader) (id string, err error)

	// Open returns a reader over the blob's bytes.
	// Returns ErrNotFound if the id is absent.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

// Materialize streams a stored blob into a file at path.
// A partial file is removed if the copy fails.
func Materialize(ctx context.Context, store Store, id, path string) error {
	src, err := store.Open(ctx, id)
	if err != nil {
		return fmt.Errorf("open blob %s: %w", id, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create file %s: %w", path, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return fmt.Errorf("materialize blob %s: %w", id, err)
	}

	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close file %s: %w", path, err)
	}

	return nil
}
