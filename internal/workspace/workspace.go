// Package workspace manages per-job scratch and output directories under a
// single data root. Each job owns exactly one scratch directory and one
// output directory, both named by the job id, so concurrent jobs never
// share filesystem state.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrInvalidJobID is returned when a job id is empty or could escape the
// workspace root.
var ErrInvalidJobID = errors.New("invalid job id")

// Paths holds the filesystem locations allocated to one job.
type Paths struct {
	// Dir is the job's scratch directory. Removed by Release.
	Dir string
	// PassageFile is the scratch location for the passage text.
	PassageFile string
	// VoiceFile is the scratch location for the materialized voice sample.
	VoiceFile string
	// OutputDir is where the engine writes its artifacts. Survives Release;
	// removed by DiscardOutput on failure or by the reaper once stale.
	OutputDir string
}

// ParagraphFile returns the scratch location for one paragraph's
// synthesized output.
func (p Paths) ParagraphFile(order int) string {
	return filepath.Join(p.Dir, fmt.Sprintf("para_%d.wav", order))
}

// Manager allocates and releases per-job workspace directories.
// It tracks active jobs so the reaper never removes a live job's output.
type Manager struct {
	scratchRoot string
	outputsRoot string

	mu     sync.Mutex
	active map[string]struct{}
}

// NewManager creates a Manager rooted at root, creating the scratch and
// outputs directories if needed.
func NewManager(root string) (*Manager, error) {
	scratchRoot := filepath.Join(root, "scratch")
	outputsRoot := filepath.Join(root, "outputs")

	for _, dir := range []string{scratchRoot, outputsRoot} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create workspace root: %w", err)
		}
	}

	return &Manager{
		scratchRoot: scratchRoot,
		outputsRoot: outputsRoot,
		active:      make(map[string]struct{}),
	}, nil
}

// OutputsRoot returns the directory holding all job output directories.
// The HTTP layer serves it statically under /voice.
func (m *Manager) OutputsRoot() string {
	return m.outputsRoot
}

// Allocate creates the scratch and output directories for jobID and marks
// the job active.
func (m *Manager) Allocate(jobID string) (Paths, error) {
	if err := validateJobID(jobID); err != nil {
		return Paths{}, err
	}

	paths := Paths{
		Dir:         filepath.Join(m.scratchRoot, jobID),
		OutputDir:   filepath.Join(m.outputsRoot, jobID),
		PassageFile: filepath.Join(m.scratchRoot, jobID, "passage.txt"),
		VoiceFile:   filepath.Join(m.scratchRoot, jobID, "voice.wav"),
	}

	if err := os.MkdirAll(paths.Dir, 0o750); err != nil {
		return Paths{}, fmt.Errorf("allocate scratch dir: %w", err)
	}
	if err := os.MkdirAll(paths.OutputDir, 0o750); err != nil {
		_ = os.RemoveAll(paths.Dir)
		return Paths{}, fmt.Errorf("allocate output dir: %w", err)
	}

	m.mu.Lock()
	m.active[jobID] = struct{}{}
	m.mu.Unlock()

	return paths, nil
}

// Release removes the job's scratch directory and marks the job inactive.
// It is idempotent and safe to call even if files were never created.
// The output directory is left in place.
func (m *Manager) Release(jobID string) error {
	if err := validateJobID(jobID); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.active, jobID)
	m.mu.Unlock()

	if err := os.RemoveAll(filepath.Join(m.scratchRoot, jobID)); err != nil {
		return fmt.Errorf("release workspace %s: %w", jobID, err)
	}
	return nil
}

// DiscardOutput removes the job's output directory. Called on failure
// paths so only successful jobs leave a persisted artifact directory.
func (m *Manager) DiscardOutput(jobID string) error {
	if err := validateJobID(jobID); err != nil {
		return err
	}

	if err := os.RemoveAll(filepath.Join(m.outputsRoot, jobID)); err != nil {
		return fmt.Errorf("discard output %s: %w", jobID, err)
	}
	return nil
}

// IsActive reports whether the job currently owns its workspace.
func (m *Manager) IsActive(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[jobID]
	return ok
}

func validateJobID(jobID string) error {
	if jobID == "" || strings.ContainsAny(jobID, `/\`) || strings.Contains(jobID, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidJobID, jobID)
	}
	return nil
}
