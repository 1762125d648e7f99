package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Compile-time check that LocalStore implements Store.
var _ Store = (*LocalStore)(nil)

// LocalStore implements Store on the local filesystem.
// Each blob lives at <root>/<uuid>. Writes go through a temp file and a
// rename so a blob is never observable half-written.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at root.
// If root is empty, a "blobs" directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "voiceflow", "blobs")
	}

	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}

	return &LocalStore{root: root}, nil
}

// Root returns the blob root directory.
func (s *LocalStore) Root() string {
	return s.root
}

// Put streams data into a new blob and returns its id.
// The data is first written to a temp file in the same directory; the
// temp file is removed on any failure and renamed into place on success.
func (s *LocalStore) Put(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.CreateTemp(s.root, ".put_*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", ErrWrite, err)
	}

	tmpName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("%w: %v (name %s)", ErrWrite, err, name)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("%w: close temp file: %v", ErrWrite, err)
	}

	id := uuid.NewString()
	if err := os.Rename(tmpName, filepath.Join(s.root, id)); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("%w: publish blob: %v", ErrWrite, err)
	}

	return id, nil
}

// Open returns a reader over the blob's bytes.
// Returns ErrNotFound if the id is absent or not a valid blob id.
func (s *LocalStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	// Ids are generated UUIDs; anything with path separators is not ours.
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, ErrNotFound
	}

	f, err := os.Open(filepath.Join(s.root, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open blob %s: %w", id, err)
	}

	return f, nil
}
