//go:build !linux

package mpris

import (
	"github.com/osa030/tracklist/internal/app/playback"
)

// Adapter is a no-op on non-Linux platforms.
type Adapter struct {
	snap *snapshot
}

// New returns a no-op adapter on non-Linux platforms.
func New(_ string, _ Player) (*Adapter, error) {
	return &Adapter{snap: &snapshot{}}, nil
}

// Name returns the sink name.
func (a *Adapter) Name() string {
	return "mpris"
}

// Update records the metadata only.
func (a *Adapter) Update(meta playback.Metadata) {
	a.snap.update(meta)
}

// Clear is a no-op on non-Linux platforms.
func (a *Adapter) Clear() {
	a.snap.clear()
}

// SetPlaybackState is a no-op on non-Linux platforms.
func (a *Adapter) SetPlaybackState(state playback.PlayState) {
	a.snap.setState(state)
}

// Close is a no-op on non-Linux platforms.
func (a *Adapter) Close() error {
	return nil
}
