package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, retention, sweepEvery, maxAge time.Duration) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "reports"), retention, sweepEvery, maxAge)
	require.NoError(t, err)
	return m
}

// backdate makes a stored artifact look older than maxAge.
func backdate(t *testing.T, m *Manager, id string, age time.Duration) {
	t.Helper()
	old := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(filepath.Join(m.dir, id), old, old))
}

func TestCreateAndServe(t *testing.T) {
	m := newTestManager(t, time.Hour, time.Hour, time.Hour)

	id, err := m.Create([]byte("%PDF-fake"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	data, err := m.Serve(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-fake"), data)
}

func TestCreateIDsAreUnique(t *testing.T) {
	m := newTestManager(t, time.Hour, time.Hour, time.Hour)

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		id, err := m.Create([]byte("x"))
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestServeUnknownID(t *testing.T) {
	m := newTestManager(t, time.Hour, time.Hour, time.Hour)

	_, err := m.Serve("nope.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServeRejectsPathLikeIDs(t *testing.T) {
	m := newTestManager(t, time.Hour, time.Hour, time.Hour)

	for _, id := range []string{"", "../secrets", "a/b.pdf"} {
		_, err := m.Serve(id)
		assert.ErrorIs(t, err, ErrNotFound, "id %q", id)
	}
}

func TestDeferredDeletionAfterServe(t *testing.T) {
	m := newTestManager(t, 20*time.Millisecond, time.Hour, time.Hour)

	id, err := m.Create([]byte("x"))
	require.NoError(t, err)

	_, err = m.Serve(id)
	require.NoError(t, err)

	// The deferred timer fires after the retention window; the artifact
	// must stay gone forever afterwards.
	assert.Eventually(t, func() bool {
		_, err := m.Serve(id)
		return err != nil
	}, time.Second, 5*time.Millisecond)

	_, err = m.Serve(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweepDeletesOnlyOldArtifacts(t *testing.T) {
	m := newTestManager(t, time.Hour, time.Hour, time.Hour)

	oldID, err := m.Create([]byte("old"))
	require.NoError(t, err)
	freshID, err := m.Create([]byte("fresh"))
	require.NoError(t, err)
	backdate(t, m, oldID, 2*time.Hour)

	removed, err := m.SweepOnce()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = m.Serve(oldID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Serve(freshID)
	assert.NoError(t, err)
}

func TestSweepDeletesNeverServedArtifacts(t *testing.T) {
	m := newTestManager(t, time.Hour, time.Hour, time.Minute)

	id, err := m.Create([]byte("x"))
	require.NoError(t, err)
	backdate(t, m, id, 2*time.Minute)

	removed, err := m.SweepOnce()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

// Sweep wins the race, then the later-firing deferred timer finds the file
// already gone and exits without error; a later serve stays not-found.
func TestSweepBeatsDeferredTimer(t *testing.T) {
	m := newTestManager(t, 50*time.Millisecond, time.Hour, time.Millisecond)

	id, err := m.Create([]byte("x"))
	require.NoError(t, err)
	backdate(t, m, id, time.Minute)

	// Serve schedules deletion at T+50ms.
	_, err = m.Serve(id)
	require.NoError(t, err)

	// Sweep deletes it first.
	removed, err := m.SweepOnce()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// Let the deferred timer fire against the missing file.
	time.Sleep(100 * time.Millisecond)

	_, err = m.Serve(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveIdempotent(t *testing.T) {
	m := newTestManager(t, time.Hour, time.Hour, time.Hour)

	id, err := m.Create([]byte("x"))
	require.NoError(t, err)
	path := filepath.Join(m.dir, id)

	require.NoError(t, m.remove(path))
	// Second delete of the same path is success, not an error.
	require.NoError(t, m.remove(path))
}

func TestRunSweepsPeriodically(t *testing.T) {
	m := newTestManager(t, time.Hour, 10*time.Millisecond, time.Millisecond)

	id, err := m.Create([]byte("x"))
	require.NoError(t, err)
	backdate(t, m, id, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	assert.Eventually(t, func() bool {
		_, err := m.Serve(id)
		return err != nil
	}, time.Second, 5*time.Millisecond)
}

func TestSweepEmptyDirectory(t *testing.T) {
	m := newTestManager(t, time.Hour, time.Hour, time.Hour)

	removed, err := m.SweepOnce()
	require.NoError(t, err)
	assert.Zero(t, removed)
}
