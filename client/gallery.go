package client

import (
	"sync"

	"github.com/rs/zerolog"
)

// Gallery holds saved snapshots, newest first, persisted through the local
// store. Like the session it is device-local only.
type Gallery struct {
	mu    sync.Mutex
	local *LocalStore
	log   zerolog.Logger
	snaps []Snapshot
}

// NewGallery loads the persisted gallery. local may be nil for a
// memory-only gallery.
func NewGallery(local *LocalStore, log zerolog.Logger) *Gallery {
	g := &Gallery{local: local, log: log}
	if local != nil {
		if _, err := local.Load(KeyGallery, &g.snaps); err != nil {
			log.Warn().Err(err).Msg("could not load gallery, starting empty")
			g.snaps = nil
		}
	}
	return g
}

// Add stores a snapshot at the front of the gallery.
func (g *Gallery) Add(snap Snapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snaps = append([]Snapshot{snap}, g.snaps...)
	return g.persist()
}

// Remove deletes a snapshot from memory and storage. Unknown IDs are a
// no-op.
func (g *Gallery) Remove(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.snaps {
		if g.snaps[i].ID == id {
			g.snaps = append(g.snaps[:i], g.snaps[i+1:]...)
			return g.persist()
		}
	}
	return nil
}

// List returns a snapshot of the gallery.
func (g *Gallery) List() []Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Snapshot, len(g.snaps))
	copy(out, g.snaps)
	return out
}

func (g *Gallery) persist() error {
	if g.local == nil {
		return nil
	}
	return g.local.Save(KeyGallery, g.snaps)
}
