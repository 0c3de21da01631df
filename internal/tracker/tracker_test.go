package tracker

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTrackIsIdempotent(t *testing.T) {
	trk, err := New(nil, zap.NewNop())
	require.NoError(t, err)

	trk.Track("p1", "a.ts")
	trk.Track("p1", "a.ts")
	trk.Track("p1", "a.ts")
	trk.Track("p1", "b.ts")

	assert.Equal(t, 2, trk.PendingCount("p1"))
	assert.ElementsMatch(t, []string{"a.ts", "b.ts"}, trk.Pending("p1"))
}

func TestProjectsAreIndependent(t *testing.T) {
	trk, err := New(nil, zap.NewNop())
	require.NoError(t, err)

	trk.Track("p1", "a.ts")
	trk.Track("p2", "a.ts")
	trk.Track("p2", "b.ts")

	assert.Equal(t, 1, trk.PendingCount("p1"))
	assert.Equal(t, 2, trk.PendingCount("p2"))

	trk.Clear("p2")
	assert.Equal(t, 1, trk.PendingCount("p1"))
	assert.Equal(t, 0, trk.PendingCount("p2"))
}

func TestClearUnknownProject(t *testing.T) {
	trk, err := New(nil, zap.NewNop())
	require.NoError(t, err)

	trk.Clear("ghost")
	assert.Equal(t, 0, trk.PendingCount("ghost"))
}

func TestPendingSurvivesRestart(t *testing.T) {
	db := setupTestDB(t)

	trk, err := New(db, zap.NewNop())
	require.NoError(t, err)
	trk.Track("p1", "a.ts")
	trk.Track("p1", "src/deep/file.go")
	trk.Track("p2", "b.ts")
	trk.Clear("p2")

	// A second tracker over the same database sees the persisted sets
	restored, err := New(db, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, restored.PendingCount("p1"))
	assert.ElementsMatch(t, []string{"a.ts", "src/deep/file.go"}, restored.Pending("p1"))
	assert.Equal(t, 0, restored.PendingCount("p2"))
}
