package tracker

import (
	"testing"

	shared "keeper/shared/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManagerWatchIsIdempotent(t *testing.T) {
	trk, err := New(nil, zap.NewNop())
	require.NoError(t, err)

	m := NewManager(trk, nil, func(shared.CommitContext) {}, zap.NewNop())
	t.Cleanup(func() { m.Close() })

	p := shared.Project{ID: "p1", RootPath: t.TempDir()}
	require.NoError(t, m.Watch(p))
	require.NoError(t, m.Watch(p))
	assert.Len(t, m.watchers, 1)
}

func TestManagerUnwatch(t *testing.T) {
	trk, err := New(nil, zap.NewNop())
	require.NoError(t, err)

	m := NewManager(trk, nil, func(shared.CommitContext) {}, zap.NewNop())
	t.Cleanup(func() { m.Close() })

	require.NoError(t, m.Watch(shared.Project{ID: "p1", RootPath: t.TempDir()}))
	require.NoError(t, m.Unwatch("p1"))
	assert.Empty(t, m.watchers)

	// Unwatching twice, or an unknown project, is harmless
	require.NoError(t, m.Unwatch("p1"))
	require.NoError(t, m.Unwatch("ghost"))
}

func TestManagerWatchMissingRoot(t *testing.T) {
	trk, err := New(nil, zap.NewNop())
	require.NoError(t, err)

	m := NewManager(trk, nil, func(shared.CommitContext) {}, zap.NewNop())
	err = m.Watch(shared.Project{ID: "p1", RootPath: "/does/not/exist"})
	assert.Error(t, err)
}
