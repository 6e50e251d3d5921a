//go:build linux

package mpris

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/events"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/app/playback"
)

// Adapter connects the playback controller to MPRIS over D-Bus.
type Adapter struct {
	server *server.Server
	events *events.EventHandler
	snap   *snapshot
}

// New creates and starts a new MPRIS adapter registered as
// org.mpris.MediaPlayer2.<name>.
func New(name string, player Player) (*Adapter, error) {
	if player == nil {
		return nil, errors.New("player is required")
	}

	snap := &snapshot{}
	a := &Adapter{snap: snap}
	a.server = server.NewServer(name, &rootAdapter{name: name}, &playerAdapter{player: player, snap: snap})
	a.events = events.NewEventHandler(a.server)

	// Start the server in background
	go func() {
		if err := a.server.Listen(); err != nil {
			zlog.Warn().Msgf("mpris: server stopped: %v", err)
		}
	}()

	return a, nil
}

// Name returns the sink name.
func (a *Adapter) Name() string {
	return "mpris"
}

// Update publishes new metadata. Title changes are signalled for a new
// track, seeks for a position jump.
func (a *Adapter) Update(meta playback.Metadata) {
	prev, hadPrev, _ := a.snap.get()
	if a.snap.update(meta) {
		a.signal(a.events.Player.OnTitle())
		return
	}
	if !meta.WithArtwork || !hadPrev {
		return
	}
	// Full refreshes follow pause, resume and seek.
	if jump := meta.Elapsed - prev.Elapsed; jump < 0 || jump > 2*time.Second {
		a.signal(a.events.Player.OnSeek(types.Microseconds(meta.Elapsed.Microseconds())))
	}
	a.signal(a.events.Player.OnOptions())
}

// Clear removes the current track.
func (a *Adapter) Clear() {
	a.snap.clear()
	a.signal(a.events.Player.OnTitle())
}

// SetPlaybackState publishes the playback status.
func (a *Adapter) SetPlaybackState(state playback.PlayState) {
	a.snap.setState(state)
	a.signal(a.events.Player.OnPlayPause())
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	return a.server.Stop()
}

func (a *Adapter) signal(err error) {
	if err != nil {
		zlog.Debug().Msgf("mpris: failed to emit signal: %v", err)
	}
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct {
	name string
}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return r.name, nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"spotify"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and the optional
// loop status and shuffle interfaces.
type playerAdapter struct {
	player Player
	snap   *snapshot
}

func (p *playerAdapter) Next() error {
	ctx, cancel := commandContext()
	defer cancel()
	_, err := p.player.PlayNextTrack(ctx)
	return err
}

func (p *playerAdapter) Previous() error {
	ctx, cancel := commandContext()
	defer cancel()
	_, err := p.player.PlayPreviousTrack(ctx)
	return err
}

func (p *playerAdapter) Pause() error {
	ctx, cancel := commandContext()
	defer cancel()
	return p.player.Pause(ctx)
}

func (p *playerAdapter) PlayPause() error {
	ctx, cancel := commandContext()
	defer cancel()
	return p.player.TogglePlayPause(ctx)
}

func (p *playerAdapter) Stop() error {
	ctx, cancel := commandContext()
	defer cancel()
	return p.player.Stop(ctx)
}

func (p *playerAdapter) Play() error {
	ctx, cancel := commandContext()
	defer cancel()
	return p.player.Resume(ctx)
}

// Seek moves relative to the current position.
func (p *playerAdapter) Seek(offset types.Microseconds) error {
	meta, ok, _ := p.snap.get()
	if !ok {
		return nil
	}
	ctx, cancel := commandContext()
	defer cancel()
	return p.player.Seek(ctx, meta.Elapsed+time.Duration(offset)*time.Microsecond)
}

func (p *playerAdapter) SetPosition(trackID string, position types.Microseconds) error {
	meta, ok, _ := p.snap.get()
	// Stale requests for another track are ignored.
	if !ok || trackID != formatTrackID(meta.Track.PlaybackURI()) {
		return nil
	}
	ctx, cancel := commandContext()
	defer cancel()
	return p.player.Seek(ctx, time.Duration(position)*time.Microsecond)
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	_, ok, state := p.snap.get()
	if !ok {
		return types.PlaybackStatusStopped, nil
	}
	switch state {
	case playback.PlayStatePlaying:
		return types.PlaybackStatusPlaying, nil
	case playback.PlayStatePaused:
		return types.PlaybackStatusPaused, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	meta, ok, _ := p.snap.get()
	if !ok {
		return types.Metadata{}, nil
	}

	t := meta.Track
	return types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(t.PlaybackURI())),
		Length:  types.Microseconds(t.Duration.Microseconds()),
		Title:   t.Name,
		Artist:  t.Artists,
		Album:   t.Album,
		ArtUrl:  t.AlbumArtURL,
	}, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return 1.0, nil // Volume is owned by the Connect device
}

func (p *playerAdapter) SetVolume(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Position() (int64, error) {
	meta, _, _ := p.snap.get()
	return meta.Elapsed.Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	st := p.player.Status()
	return st.Index >= 0 && st.Index < len(st.Tracklist)-1, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return p.player.Status().Index > 0, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return p.player.Status().Track != nil, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	if p.player.Status().Repeat {
		return types.LoopStatusTrack, nil
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
// Playlist looping is not supported and maps to none.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	ctx, cancel := commandContext()
	defer cancel()
	return p.player.SetRepeat(ctx, status == types.LoopStatusTrack)
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	return p.player.Status().Shuffle, nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	return p.player.SetShuffle(shuffle)
}
