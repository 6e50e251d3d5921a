// Package mpris exposes the player over the MPRIS2 D-Bus interface so desktop
// media widgets show the current track and can control playback.
package mpris

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/osa030/tracklist/internal/app/playback"
)

const commandTimeout = 10 * time.Second

// Player is the playback control surface driven by MPRIS commands.
type Player interface {
	PlayNextTrack(ctx context.Context) (playback.Transition, error)
	PlayPreviousTrack(ctx context.Context) (playback.Transition, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	TogglePlayPause(ctx context.Context) error
	Stop(ctx context.Context) error
	Seek(ctx context.Context, position time.Duration) error
	SetRepeat(ctx context.Context, on bool) error
	SetShuffle(on bool) error
	Status() playback.Status
}

// snapshot is the last metadata received from the controller.
type snapshot struct {
	mu      sync.RWMutex
	meta    playback.Metadata
	hasMeta bool
	state   playback.PlayState
}

func (s *snapshot) update(meta playback.Metadata) (trackChanged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trackChanged = !s.hasMeta || !s.meta.Track.Equal(meta.Track)
	s.meta = meta
	s.hasMeta = true
	s.state = meta.State
	return trackChanged
}

func (s *snapshot) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta = playback.Metadata{}
	s.hasMeta = false
}

func (s *snapshot) setState(state playback.PlayState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *snapshot) get() (playback.Metadata, bool, playback.PlayState) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta, s.hasMeta, s.state
}

// formatTrackID maps a track to an MPRIS track object path.
func formatTrackID(uri string) string {
	h := fnv.New64a()
	h.Write([]byte(uri))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}
