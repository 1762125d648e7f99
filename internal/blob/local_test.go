package blob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// errReader fails partway through a read to simulate a broken upload stream.
type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, errors.New("stream interrupted")
}

func TestLocalStore_PutOpenRoundtrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	id, err := store.Put(ctx, "v1.wav", strings.NewReader("RIFF fake wav bytes"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rc, err := store.Open(ctx, id)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "RIFF fake wav bytes", string(data))
}

func TestLocalStore_PutGeneratesDistinctIDs(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	id1, err := store.Put(ctx, "a.wav", strings.NewReader("a"))
	require.NoError(t, err)
	id2, err := store.Put(ctx, "a.wav", strings.NewReader("a"))
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
}

func TestLocalStore_PutFailureLeavesNoPartialBlob(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "broken.wav", errReader{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrite)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed Put must not leave temp or partial files")
}

func TestLocalStore_OpenNotFound(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_OpenRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	secret := filepath.Join(dir, "secret")
	require.NoError(t, os.WriteFile(secret, []byte("private"), 0o600))

	for _, id := range []string{"", "../secret", "..", "a/b", `a\b`} {
		_, err := store.Open(context.Background(), id)
		assert.ErrorIs(t, err, ErrNotFound, "id %q", id)
	}
}

func TestLocalStore_CancelledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Put(ctx, "x.wav", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = store.Open(ctx, "some-id")
	assert.Error(t, err)
}

func TestMaterialize(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	id, err := store.Put(ctx, "v1.wav", strings.NewReader("voice sample"))
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "voice.wav")
	require.NoError(t, Materialize(ctx, store, id, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "voice sample", string(data))
}

func TestMaterialize_UnknownBlob(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "voice.wav")
	err = Materialize(context.Background(), store, "missing", dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no file should be created for a missing blob")
}
