// Package artifacts owns generated report files from creation until
// deletion. Every artifact is deleted eventually by one of two independent
// triggers: a one-shot timer scheduled when the file is served, and a
// periodic sweep that removes anything past a maximum age. The triggers
// race on purpose; whoever gets there first wins, and the loser's delete
// is a no-op.
package artifacts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a requested report no longer exists. An
// already-swept artifact is a normal outcome, not corruption.
var ErrNotFound = errors.New("report not found")

// Manager writes report buffers to uniquely named files in a scratch
// directory and guarantees their eventual, idempotent removal.
type Manager struct {
	dir        string
	retention  time.Duration
	sweepEvery time.Duration
	maxAge     time.Duration
	logger     *zap.Logger
}

// NewManager creates the scratch directory if needed.
func NewManager(dir string, retention, sweepEvery, maxAge time.Duration) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "artifacts: create scratch directory")
	}
	return &Manager{
		dir:        dir,
		retention:  retention,
		sweepEvery: sweepEvery,
		maxAge:     maxAge,
		logger:     zap.L(),
	}, nil
}

// Create writes data under a collision-resistant opaque id and returns the
// id. No deletion is scheduled until the artifact is served; the sweep
// still reclaims it if it is never downloaded.
func (m *Manager) Create(data []byte) (string, error) {
	id := uuid.New().String() + ".pdf"
	if err := os.WriteFile(filepath.Join(m.dir, id), data, 0o644); err != nil {
		return "", eris.Wrap(err, "artifacts: write report")
	}
	return id, nil
}

// Serve returns the artifact bytes and schedules its deferred deletion
// after the retention window. The timer runs in its own goroutine and
// never blocks or extends the caller's response. A missing file returns
// ErrNotFound: the artifact may simply have been swept already.
func (m *Manager) Serve(id string) ([]byte, error) {
	// Ids are opaque filenames; anything path-like cannot exist.
	if id == "" || filepath.Base(id) != id {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(filepath.Join(m.dir, id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "artifacts: read report")
	}

	go m.deleteAfter(id, m.retention)
	return data, nil
}

// deleteAfter fires once after the retention window. It is never
// cancelled; at shutdown leftover files are reclaimed by a later sweep.
func (m *Manager) deleteAfter(id string, d time.Duration) {
	time.Sleep(d)
	if err := m.remove(filepath.Join(m.dir, id)); err != nil {
		m.logger.Warn("deferred report deletion failed",
			zap.String("id", id),
			zap.Error(err))
		return
	}
	m.logger.Debug("report deleted after retention", zap.String("id", id))
}

// Run executes the periodic sweep until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.SweepOnce(); err != nil {
				m.logger.Error("report sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce deletes every artifact older than the maximum age, served or
// not, and returns how many were removed.
func (m *Manager) SweepOnce() (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, eris.Wrap(err, "artifacts: scan scratch directory")
	}

	cutoff := time.Now().Add(-m.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Deleted between ReadDir and Info by the other trigger.
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := m.remove(filepath.Join(m.dir, entry.Name())); err != nil {
			m.logger.Warn("sweep could not delete report",
				zap.String("id", entry.Name()),
				zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		m.logger.Info("report sweep completed", zap.Int("removed", removed))
	}
	return removed, nil
}

// remove deletes a path, treating "already gone" as success so the two
// deletion triggers can race safely without coordination.
func (m *Manager) remove(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
