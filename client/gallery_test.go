package client

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGallery_AddNewestFirst(t *testing.T) {
	g := NewGallery(nil, zerolog.Nop())

	require.NoError(t, g.Add(Snapshot{ID: "s1", Timestamp: 100}))
	require.NoError(t, g.Add(Snapshot{ID: "s2", Timestamp: 200}))

	snaps := g.List()
	require.Len(t, snaps, 2)
	assert.Equal(t, "s2", snaps[0].ID)
	assert.Equal(t, "s1", snaps[1].ID)
}

func TestGallery_Remove(t *testing.T) {
	g := NewGallery(nil, zerolog.Nop())
	require.NoError(t, g.Add(Snapshot{ID: "s1"}))
	require.NoError(t, g.Add(Snapshot{ID: "s2"}))

	require.NoError(t, g.Remove("s1"))

	snaps := g.List()
	require.Len(t, snaps, 1)
	assert.Equal(t, "s2", snaps[0].ID)

	// unknown IDs are a no-op
	assert.NoError(t, g.Remove("ghost"))
	assert.Len(t, g.List(), 1)
}

func TestGallery_PersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	local, err := NewLocalStore(dir, zerolog.Nop())
	require.NoError(t, err)

	g := NewGallery(local, zerolog.Nop())
	require.NoError(t, g.Add(Snapshot{ID: "s1", Image: "data:image/jpeg;base64,AA==", Style: "noir"}))
	local.Close()

	local2, err := NewLocalStore(dir, zerolog.Nop())
	require.NoError(t, err)
	defer local2.Close()

	reloaded := NewGallery(local2, zerolog.Nop())
	snaps := reloaded.List()
	require.Len(t, snaps, 1)
	assert.Equal(t, "s1", snaps[0].ID)
	assert.Equal(t, "noir", snaps[0].Style)
}

func TestGallery_RemovePersists(t *testing.T) {
	dir := t.TempDir()
	local, err := NewLocalStore(dir, zerolog.Nop())
	require.NoError(t, err)

	g := NewGallery(local, zerolog.Nop())
	require.NoError(t, g.Add(Snapshot{ID: "s1"}))
	require.NoError(t, g.Add(Snapshot{ID: "s2"}))
	require.NoError(t, g.Remove("s2"))
	local.Close()

	local2, err := NewLocalStore(dir, zerolog.Nop())
	require.NoError(t, err)
	defer local2.Close()

	reloaded := NewGallery(local2, zerolog.Nop())
	require.Len(t, reloaded.List(), 1)
	assert.Equal(t, "s1", reloaded.List()[0].ID)
}

func TestGallery_ListReturnsCopy(t *testing.T) {
	g := NewGallery(nil, zerolog.Nop())
	require.NoError(t, g.Add(Snapshot{ID: "s1"}))

	snaps := g.List()
	snaps[0].ID = "tampered"

	assert.Equal(t, "s1", g.List()[0].ID)
}
