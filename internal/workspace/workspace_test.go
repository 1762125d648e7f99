package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_AllocateCreatesDirs(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	paths, err := mgr.Allocate("output_job1")
	require.NoError(t, err)

	assert.DirExists(t, paths.Dir)
	assert.DirExists(t, paths.OutputDir)
	assert.Equal(t, filepath.Join(paths.Dir, "passage.txt"), paths.PassageFile)
	assert.Equal(t, filepath.Join(paths.Dir, "voice.wav"), paths.VoiceFile)
	assert.True(t, mgr.IsActive("output_job1"))
}

func TestManager_DistinctJobsDistinctDirs(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	a, err := mgr.Allocate("output_a")
	require.NoError(t, err)
	b, err := mgr.Allocate("output_b")
	require.NoError(t, err)

	assert.NotEqual(t, a.Dir, b.Dir)
	assert.NotEqual(t, a.OutputDir, b.OutputDir)
}

func TestManager_ReleaseRemovesScratchKeepsOutput(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	paths, err := mgr.Allocate("output_job1")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(paths.PassageFile, []byte("text"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(paths.OutputDir, "final_output.wav"), []byte("wav"), 0o600))

	require.NoError(t, mgr.Release("output_job1"))

	assert.NoDirExists(t, paths.Dir)
	assert.FileExists(t, filepath.Join(paths.OutputDir, "final_output.wav"))
	assert.False(t, mgr.IsActive("output_job1"))
}

func TestManager_ReleaseIsIdempotent(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	// Never allocated: still fine.
	require.NoError(t, mgr.Release("output_never"))

	_, err = mgr.Allocate("output_job1")
	require.NoError(t, err)
	require.NoError(t, mgr.Release("output_job1"))
	require.NoError(t, mgr.Release("output_job1"))
}

func TestManager_DiscardOutput(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	paths, err := mgr.Allocate("output_job1")
	require.NoError(t, err)

	require.NoError(t, mgr.DiscardOutput("output_job1"))
	assert.NoDirExists(t, paths.OutputDir)
}

func TestManager_RejectsBadJobIDs(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"", "../escape", "a/b", `a\b`} {
		_, err := mgr.Allocate(id)
		assert.ErrorIs(t, err, ErrInvalidJobID, "id %q", id)
		assert.ErrorIs(t, mgr.Release(id), ErrInvalidJobID, "id %q", id)
	}
}

func TestPaths_ParagraphFile(t *testing.T) {
	p := Paths{Dir: "/scratch/output_x"}
	assert.Equal(t, filepath.Join("/scratch/output_x", "para_3.wav"), p.ParagraphFile(3))
}
