package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// Reaper removes stale job output directories past an age threshold.
// It bounds disk growth from crashed or abandoned jobs; it is advisory
// cleanup, not a correctness mechanism. Active jobs are never reaped.
type Reaper struct {
	manager *Manager
	maxAge  time.Duration
	logger  *slog.Logger
}

// NewReaper creates a Reaper over the manager's outputs root.
func NewReaper(manager *Manager, maxAge time.Duration, logger *slog.Logger) *Reaper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{
		manager: manager,
		maxAge:  maxAge,
		logger:  logger,
	}
}

// ReapOnce scans the outputs root and removes every job output directory
// older than the age threshold, skipping directories of active jobs.
// It keeps going past individual failures and returns the first error.
func (r *Reaper) ReapOnce() error {
	entries, err := os.ReadDir(r.manager.OutputsRoot())
	if err != nil {
		return err
	}

	now := time.Now()
	var firstErr error
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if r.manager.IsActive(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		age := now.Sub(info.ModTime())
		if age <= r.maxAge {
			continue
		}

		dir := filepath.Join(r.manager.OutputsRoot(), entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		r.logger.Info("reaped stale output directory",
			slog.String("dir", dir),
			slog.Duration("age", age),
		)
	}
	return firstErr
}

// Schedule registers the reaper on the cron runner at the given interval.
// The caller owns starting and stopping the runner.
func (r *Reaper) Schedule(c *cron.Cron, interval time.Duration) (cron.EntryID, error) {
	return c.AddFunc("@every "+interval.String(), func() {
		if err := r.ReapOnce(); err != nil {
			r.logger.Warn("reaper sweep failed", slog.String("error", err.Error()))
		}
	})
}
