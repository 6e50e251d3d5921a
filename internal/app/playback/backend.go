package playback

import (
	"context"
	"time"

	"github.com/osa030/tracklist/internal/domain/track"
)

// BackendState is a snapshot of the backend player.
type BackendState struct {
	Playing  bool
	Position time.Duration
	TrackURI string
}

// Backend is the external streaming engine. Implementations should return
// errors marked with ErrInvalidSession for authentication failures.
type Backend interface {
	// Start prepares the backend for playback. It is called before every play
	// and must be cheap once started.
	Start(ctx context.Context, clientID string) error
	Play(ctx context.Context, uri string, offset time.Duration) error
	SetPlaying(ctx context.Context, playing bool) error
	Seek(ctx context.Context, position time.Duration) error
	SetRepeatMode(ctx context.Context, mode RepeatMode) error
	PlaybackState(ctx context.Context) (BackendState, error)
	SessionValid(ctx context.Context) bool
}

// Metadata describes the current track for the now-playing surface.
type Metadata struct {
	Track       track.Track
	Elapsed     time.Duration
	State       PlayState
	Repeat      bool
	Shuffle     bool
	WithArtwork bool // false for the per-tick refresh
}

// NowPlaying is the now-playing info surface. Calls are made while the
// controller serializes operations, so implementations must not block.
type NowPlaying interface {
	Update(meta Metadata)
	Clear()
	SetPlaybackState(state PlayState)
}

// Presenter is the UI presentation surface.
type Presenter interface {
	IsPlayerViewPresented() bool
	ShowPlayerView()
	SetPausePlayButtonState(paused bool)
}

type nopNowPlaying struct{}

func (nopNowPlaying) Update(Metadata)            {}
func (nopNowPlaying) Clear()                     {}
func (nopNowPlaying) SetPlaybackState(PlayState) {}

type nopPresenter struct{}

func (nopPresenter) IsPlayerViewPresented() bool  { return true }
func (nopPresenter) ShowPlayerView()              {}
func (nopPresenter) SetPausePlayButtonState(bool) {}
