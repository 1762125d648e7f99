package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// age backdates a directory's mod time so the reaper sees it as stale.
func age(t *testing.T, dir string, by time.Duration) {
	t.Helper()
	past := time.Now().Add(-by)
	require.NoError(t, os.Chtimes(dir, past, past))
}

func TestReaper_RemovesStaleLeavesFresh(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	stale := filepath.Join(mgr.OutputsRoot(), "output_stale")
	fresh := filepath.Join(mgr.OutputsRoot(), "output_fresh")
	require.NoError(t, os.MkdirAll(stale, 0o750))
	require.NoError(t, os.MkdirAll(fresh, 0o750))
	age(t, stale, 20*time.Minute)

	reaper := NewReaper(mgr, 15*time.Minute, testLogger())
	require.NoError(t, reaper.ReapOnce())

	assert.NoDirExists(t, stale)
	assert.DirExists(t, fresh)
}

func TestReaper_SkipsActiveJobs(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	paths, err := mgr.Allocate("output_live")
	require.NoError(t, err)
	age(t, paths.OutputDir, time.Hour)

	reaper := NewReaper(mgr, 15*time.Minute, testLogger())
	require.NoError(t, reaper.ReapOnce())

	assert.DirExists(t, paths.OutputDir, "active job output must never be reaped")

	// Once released, the stale directory becomes fair game.
	require.NoError(t, mgr.Release("output_live"))
	age(t, paths.OutputDir, time.Hour)
	require.NoError(t, reaper.ReapOnce())
	assert.NoDirExists(t, paths.OutputDir)
}

func TestReaper_IgnoresPlainFiles(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	file := filepath.Join(mgr.OutputsRoot(), "stray.wav")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(file, past, past))

	reaper := NewReaper(mgr, 15*time.Minute, testLogger())
	require.NoError(t, reaper.ReapOnce())

	assert.FileExists(t, file)
}

func TestReaper_EmptyOutputsRoot(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	reaper := NewReaper(mgr, 15*time.Minute, testLogger())
	assert.NoError(t, reaper.ReapOnce())
}
