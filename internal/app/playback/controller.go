package playback

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/domain/playlist"
	"github.com/osa030/tracklist/internal/domain/track"
)

const (
	defaultTickInterval   = time.Second
	defaultBackendTimeout = 10 * time.Second
	eventBufferSize       = 64
)

// Config holds controller configuration.
type Config struct {
	ClientID       string        // Passed to Backend.Start before every play
	TickInterval   time.Duration // Timer interval used to advance elapsed time
	BackendTimeout time.Duration // Upper bound for a single backend call
	ResyncPosition bool          // Snap elapsed time to the backend position on each tick
}

// Option configures a Controller.
type Option func(*Controller)

// WithNowPlaying sets the now-playing surface.
func WithNowPlaying(np NowPlaying) Option {
	return func(c *Controller) {
		if np != nil {
			c.nowPlaying = np
		}
	}
}

// WithPresenter sets the UI presentation surface.
func WithPresenter(p Presenter) Option {
	return func(c *Controller) {
		if p != nil {
			c.presenter = p
		}
	}
}

// WithRand sets the random source used for shuffling.
func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) {
		if rng != nil {
			c.queue.rng = rng
		}
	}
}

// Transition describes what PlayNextTrack or PlayPreviousTrack did.
type Transition struct {
	Kind StepKind
	From *track.Track // Current track before the call (nil when none)
	To   *track.Track // Track that was played (nil when playback paused instead)
}

// Reason returns the error kind behind a fallback transition:
// ErrTrackNotInQueue for StepRecover and ErrQueueEmpty for StepEmpty.
func (t Transition) Reason() error {
	switch t.Kind {
	case StepRecover:
		return ErrTrackNotInQueue
	case StepEmpty:
		return ErrQueueEmpty
	default:
		return nil
	}
}

// Status is a snapshot of the controller state.
type Status struct {
	PlaylistID   string
	PlaylistName string
	Track        *track.Track
	Index        int // Index of Track in Tracklist, -1 when absent
	Tracklist    []track.Track
	Elapsed      time.Duration
	Repeat       bool
	Shuffle      bool
	PlayState    PlayState
	TimerActive  bool
}

// Controller drives a streaming backend from a local queue.
//
// Operations are serialized by opMu, which plays the role of a single UI
// thread: user actions, timer ticks and their backend calls never interleave.
// mu guards the state itself so snapshots can be read at any time.
type Controller struct {
	opMu sync.Mutex
	mu   sync.RWMutex

	queue     *Queue
	elapsed   time.Duration
	playState PlayState
	ended     bool

	// Timer
	timerCtx    context.Context
	timerCancel context.CancelFunc

	config     Config
	backend    Backend
	nowPlaying NowPlaying
	presenter  Presenter

	// Events
	eventCh chan Event
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a new playback controller.
func NewController(backend Backend, config Config, opts ...Option) *Controller {
	if config.TickInterval <= 0 {
		config.TickInterval = defaultTickInterval
	}
	if config.BackendTimeout <= 0 {
		config.BackendTimeout = defaultBackendTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		queue:      NewQueue(rand.New(rand.NewSource(time.Now().UnixNano()))),
		config:     config,
		backend:    backend,
		nowPlaying: nopNowPlaying{},
		presenter:  nopPresenter{},
		eventCh:    make(chan Event, eventBufferSize),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetPresenter replaces the UI presentation surface.
func (c *Controller) SetPresenter(p Presenter) {
	if p == nil {
		p = nopPresenter{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presenter = p
}

// SetNowPlaying replaces the now-playing surface. Sinks that control the
// controller themselves are attached after construction.
func (c *Controller) SetNowPlaying(np NowPlaying) {
	if np == nil {
		np = nopNowPlaying{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowPlaying = np
}

// Events returns the event channel. Events are dropped when nobody reads.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// SetPlaylist selects a playlist. Selecting a playlist with a different ID
// clears repeat and shuffle; repeat is switched off on the backend as well.
// The current track is kept.
func (c *Controller) SetPlaylist(ctx context.Context, p *playlist.Playlist) error {
	if p == nil {
		return ErrNoPlaylist
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.setPlaylistLocked(ctx, p)
}

func (c *Controller) setPlaylistLocked(ctx context.Context, p *playlist.Playlist) error {
	c.mu.Lock()
	wasRepeat := c.queue.Repeat()
	cleared := c.queue.SetPlaylist(p)
	c.mu.Unlock()

	zlog.Debug().Msgf("playback: playlist selected: id=%s name=%s tracks=%d flags_cleared=%v",
		p.ID, p.Name, len(p.Tracks), cleared)
	c.emit(EventPlaylistChanged)

	if cleared && wasRepeat {
		return c.requestRepeatLocked(ctx, false)
	}
	return nil
}

// PlayPlaylist selects p and plays the track at index (in playlist order).
// With shuffle enabled the tracklist is shuffled again around that track.
func (c *Controller) PlayPlaylist(ctx context.Context, p *playlist.Playlist, index int) error {
	if p == nil {
		return ErrNoPlaylist
	}
	if len(p.Tracks) == 0 {
		return ErrQueueEmpty
	}
	if index < 0 || index >= len(p.Tracks) {
		return errors.Newf("track index %d out of range [0,%d)", index, len(p.Tracks))
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.setPlaylistLocked(ctx, p); err != nil {
		zlog.Warn().Msgf("playback: failed to reset repeat mode: %v", err)
	}

	c.mu.Lock()
	c.queue.SetCurrent(p.Tracks[index])
	if c.queue.Shuffle() {
		c.queue.SetShuffle(true)
	}
	c.mu.Unlock()

	err := c.playCurrentLocked(ctx)
	c.emit(EventNextTrackChanged)
	return err
}

// PlayTrack makes t the current track and plays it from the start.
func (c *Controller) PlayTrack(ctx context.Context, t track.Track) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	c.queue.SetCurrent(t)
	c.mu.Unlock()

	err := c.playCurrentLocked(ctx)
	c.emit(EventNextTrackChanged)
	return err
}

// PlayNextTrack moves to the next track of the tracklist.
// At the last track playback pauses; when the current track is not in the
// tracklist the first track is played instead. An empty tracklist pauses and
// returns ErrQueueEmpty.
func (c *Controller) PlayNextTrack(ctx context.Context) (Transition, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.playNextLocked(ctx)
}

// PlayPreviousTrack moves to the previous track of the tracklist.
// At the first track playback pauses; otherwise it mirrors PlayNextTrack.
func (c *Controller) PlayPreviousTrack(ctx context.Context) (Transition, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.moveLocked(ctx, -1)
}

func (c *Controller) playNextLocked(ctx context.Context) (Transition, error) {
	return c.moveLocked(ctx, +1)
}

func (c *Controller) moveLocked(ctx context.Context, dir int) (Transition, error) {
	c.mu.RLock()
	from, hasFrom := c.queue.Current()
	var step Step
	if dir > 0 {
		step = c.queue.Next()
	} else {
		step = c.queue.Previous()
	}
	c.mu.RUnlock()

	tr := Transition{Kind: step.Kind}
	if hasFrom {
		tr.From = &from
	}

	switch step.Kind {
	case StepAdvance, StepRecover:
		if step.Kind == StepAdvance {
			c.getNowPlaying().Clear()
		} else {
			zlog.Debug().Msgf("playback: %v, falling back to first: track=%s", tr.Reason(), step.Track.Name)
		}
		to := step.Track
		tr.To = &to

		c.mu.Lock()
		c.queue.SetCurrent(to)
		c.mu.Unlock()

		err := c.playCurrentLocked(ctx)
		c.emit(EventNextTrackChanged)
		return tr, err

	case StepBoundary:
		zlog.Debug().Msgf("playback: reached %s of tracklist, pausing", boundaryName(dir))
		err := c.pauseLocked(ctx)
		if dir > 0 {
			c.getPresenter().SetPausePlayButtonState(true)
		}
		return tr, err

	default:
		zlog.Debug().Msg("playback: tracklist empty, pausing")
		err := c.pauseLocked(ctx)
		c.getPresenter().SetPausePlayButtonState(true)
		return tr, errors.CombineErrors(ErrQueueEmpty, err)
	}
}

// Pause stops the timer and asks the backend to pause.
func (c *Controller) Pause(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.pauseLocked(ctx)
}

// Resume restarts the timer, surfaces the player view when needed and asks the
// backend to play.
func (c *Controller) Resume(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.resumeLocked(ctx)
}

// TogglePlayPause pauses when the last known state is playing and resumes
// otherwise. An unknown state is fetched from the backend first.
func (c *Controller) TogglePlayPause(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.RLock()
	state := c.playState
	c.mu.RUnlock()

	if state == PlayStateUnknown {
		bctx, cancel := c.backendContext(ctx)
		bs, err := c.backend.PlaybackState(bctx)
		cancel()
		if err != nil {
			zlog.Error().Msgf("playback: failed to fetch playback state: %v", err)
			return c.classify(ctx, err, "playback state")
		}
		state = playStateOf(bs)
		c.mu.Lock()
		c.playState = state
		c.mu.Unlock()
	}

	if state == PlayStatePlaying {
		return c.pauseLocked(ctx)
	}
	return c.resumeLocked(ctx)
}

// Seek moves the backend to position, clamped to the current track.
// On success the local elapsed time is set to the same position and a
// finished track counts as unfinished again.
func (c *Controller) Seek(ctx context.Context, position time.Duration) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.RLock()
	t, ok := c.queue.Current()
	c.mu.RUnlock()
	if !ok {
		return ErrNoTrack
	}

	position = clampPosition(position, t.Duration)

	bctx, cancel := c.backendContext(ctx)
	defer cancel()
	if err := c.backend.Seek(bctx, position); err != nil {
		zlog.Error().Msgf("playback: failed to seek to %v: %v", position, err)
		return c.classify(ctx, err, "seek")
	}

	c.mu.Lock()
	c.elapsed = position
	c.ended = false
	c.mu.Unlock()

	c.refreshNowPlaying(true)
	c.emit(EventTimeUpdated)
	return nil
}

// SetRepeat sets the repeat flag and requests the matching backend mode.
// The flag is kept even when the backend request fails.
func (c *Controller) SetRepeat(ctx context.Context, on bool) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	c.queue.SetRepeat(on)
	c.mu.Unlock()
	c.emit(EventModeChanged)

	return c.requestRepeatLocked(ctx, on)
}

// SetShuffle enables or disables shuffle without interrupting playback.
func (c *Controller) SetShuffle(on bool) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.queue.Playlist() == nil {
		c.mu.Unlock()
		return ErrNoPlaylist
	}
	c.queue.SetShuffle(on)
	c.mu.Unlock()

	zlog.Debug().Msgf("playback: shuffle=%v", on)
	c.emit(EventModeChanged)
	return nil
}

// Stop pauses playback and forgets the current track.
func (c *Controller) Stop(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	err := c.pauseLocked(ctx)

	c.mu.Lock()
	c.queue.ClearCurrent()
	c.elapsed = 0
	c.ended = false
	c.mu.Unlock()

	c.getNowPlaying().Clear()
	c.emit(EventNextTrackChanged)
	return err
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Status{
		Index:       c.queue.Index(),
		Tracklist:   c.queue.Tracklist(),
		Elapsed:     c.elapsed,
		Repeat:      c.queue.Repeat(),
		Shuffle:     c.queue.Shuffle(),
		PlayState:   c.playState,
		TimerActive: c.timerCancel != nil,
	}
	if p := c.queue.Playlist(); p != nil {
		s.PlaylistID = p.ID
		s.PlaylistName = p.Name
	}
	if t, ok := c.queue.Current(); ok {
		s.Track = &t
	}
	return s
}

// Close stops the timer and closes the event channel.
func (c *Controller) Close() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.deactivateTimerLocked()
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
}

// playCurrentLocked plays the current track from position 0.
// Must be called with opMu held.
func (c *Controller) playCurrentLocked(ctx context.Context) error {
	c.deactivateTimerLocked()

	c.mu.Lock()
	t, ok := c.queue.Current()
	c.elapsed = 0
	c.ended = false
	c.mu.Unlock()
	if !ok {
		return ErrNoTrack
	}

	bctx, cancel := c.backendContext(ctx)
	defer cancel()

	if err := c.backend.Start(bctx, c.config.ClientID); err != nil {
		zlog.Debug().Msgf("playback: backend start failed, attempting play anyway: %v", err)
	}
	valid := c.backend.SessionValid(bctx)
	if !valid {
		zlog.Warn().Msg("playback: backend session is not valid, attempting play anyway")
	}

	zlog.Debug().Msgf("playback: playing track=%s uri=%s duration=%v", t.Name, t.PlaybackURI(), t.Duration)
	if err := c.backend.Play(bctx, t.PlaybackURI(), 0); err != nil {
		zlog.Error().Msgf("playback: failed to play track=%s: %v", t.Name, err)
		return classifyBackendError(err, "play", valid)
	}

	c.activateTimerLocked()
	c.mu.Lock()
	c.playState = PlayStatePlaying
	c.mu.Unlock()

	c.surfacePlayerView()
	c.refreshNowPlaying(true)
	c.getNowPlaying().SetPlaybackState(PlayStatePlaying)
	c.getPresenter().SetPausePlayButtonState(false)
	c.emit(EventStateChanged)
	return nil
}

func (c *Controller) pauseLocked(ctx context.Context) error {
	c.deactivateTimerLocked()

	bctx, cancel := c.backendContext(ctx)
	defer cancel()
	if err := c.backend.SetPlaying(bctx, false); err != nil {
		zlog.Error().Msgf("playback: failed to pause: %v", err)
		c.refreshNowPlaying(true)
		return c.classify(ctx, err, "pause")
	}

	c.mu.Lock()
	c.playState = PlayStatePaused
	c.mu.Unlock()

	c.refreshNowPlaying(true)
	c.getPresenter().SetPausePlayButtonState(true)
	c.getNowPlaying().SetPlaybackState(PlayStatePaused)
	c.emit(EventStateChanged)
	return nil
}

func (c *Controller) resumeLocked(ctx context.Context) error {
	c.mu.RLock()
	_, ok := c.queue.Current()
	ended := c.ended
	c.mu.RUnlock()
	if !ok {
		return ErrNoTrack
	}
	if ended {
		// The track already finished; resuming starts it over.
		return c.playCurrentLocked(ctx)
	}

	c.activateTimerLocked()
	c.surfacePlayerView()

	bctx, cancel := c.backendContext(ctx)
	defer cancel()
	if err := c.backend.SetPlaying(bctx, true); err != nil {
		zlog.Error().Msgf("playback: failed to resume: %v", err)
		c.deactivateTimerLocked()
		c.refreshNowPlaying(true)
		return c.classify(ctx, err, "resume")
	}

	c.mu.Lock()
	c.playState = PlayStatePlaying
	c.mu.Unlock()

	c.refreshNowPlaying(true)
	c.getPresenter().SetPausePlayButtonState(false)
	c.getNowPlaying().SetPlaybackState(PlayStatePlaying)
	c.emit(EventStateChanged)
	return nil
}

func (c *Controller) requestRepeatLocked(ctx context.Context, on bool) error {
	mode := repeatModeFor(on)
	bctx, cancel := c.backendContext(ctx)
	defer cancel()
	if err := c.backend.SetRepeatMode(bctx, mode); err != nil {
		zlog.Error().Msgf("playback: failed to set repeat mode %s: %v", mode, err)
		return c.classify(ctx, err, "repeat")
	}
	zlog.Debug().Msgf("playback: repeat mode set: %s", mode)
	return nil
}

// tick runs one timer step. timerCtx is the context of the timer that fired;
// a tick from a replaced timer is discarded.
func (c *Controller) tick(timerCtx context.Context) {
	fetchCtx, cancel := context.WithTimeout(timerCtx, c.config.TickInterval)
	bs, fetchErr := c.backend.PlaybackState(fetchCtx)
	cancel()

	c.opMu.Lock()
	defer c.opMu.Unlock()

	if timerCtx.Err() != nil {
		return
	}

	var fetched *BackendState
	if fetchErr != nil {
		zlog.Debug().Msgf("playback: failed to fetch playback state on tick: %v", fetchErr)
	} else {
		fetched = &bs
	}

	c.mu.Lock()
	cur, ok := c.queue.Current()
	next, effects := Tick(Session{
		HasTrack:  ok,
		Duration:  cur.Duration,
		Elapsed:   c.elapsed,
		Repeat:    c.queue.Repeat(),
		PlayState: c.playState,
		Ended:     c.ended,
	}, fetched, TickOptions{
		Interval:       c.config.TickInterval,
		ResyncPosition: c.config.ResyncPosition,
	})
	c.elapsed = next.Elapsed
	c.playState = next.PlayState
	c.ended = next.Ended
	c.mu.Unlock()

	for _, effect := range effects {
		switch effect {
		case EffectSyncButton:
			c.getPresenter().SetPausePlayButtonState(next.PlayState != PlayStatePlaying)
		case EffectTimeUpdated:
			c.refreshNowPlaying(false)
			c.emit(EventTimeUpdated)
		case EffectRestartTrack:
			zlog.Debug().Msgf("playback: track ended, repeating: track=%s", cur.Name)
			if err := c.playCurrentLocked(c.ctx); err != nil {
				zlog.Error().Msgf("playback: failed to repeat track: %v", err)
			}
		case EffectAdvance:
			zlog.Debug().Msgf("playback: track ended: track=%s duration=%v", cur.Name, cur.Duration)
			if _, err := c.playNextLocked(c.ctx); err != nil {
				zlog.Error().Msgf("playback: failed to advance after track end: %v", err)
			}
		}
	}
}

// activateTimerLocked starts the tick timer unless one is running.
func (c *Controller) activateTimerLocked() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timerCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.timerCtx = ctx
	c.timerCancel = cancel
	go c.runTimer(ctx)
}

// deactivateTimerLocked stops the tick timer. It does not wait for a tick in
// flight; that tick sees its cancelled context and returns.
func (c *Controller) deactivateTimerLocked() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timerCancel != nil {
		c.timerCancel()
		c.timerCancel = nil
		c.timerCtx = nil
	}
}

func (c *Controller) runTimer(ctx context.Context) {
	ticker := time.NewTicker(c.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Controller) backendContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = c.ctx
	}
	return context.WithTimeout(ctx, c.config.BackendTimeout)
}

func (c *Controller) classify(ctx context.Context, err error, op string) error {
	bctx, cancel := c.backendContext(ctx)
	defer cancel()
	return classifyBackendError(err, op, c.backend.SessionValid(bctx))
}

func (c *Controller) getPresenter() Presenter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.presenter
}

func (c *Controller) getNowPlaying() NowPlaying {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nowPlaying
}

func (c *Controller) surfacePlayerView() {
	p := c.getPresenter()
	if !p.IsPlayerViewPresented() {
		p.ShowPlayerView()
	}
}

func (c *Controller) refreshNowPlaying(withArtwork bool) {
	c.mu.RLock()
	t, ok := c.queue.Current()
	meta := Metadata{
		Track:       t,
		Elapsed:     c.elapsed,
		State:       c.playState,
		Repeat:      c.queue.Repeat(),
		Shuffle:     c.queue.Shuffle(),
		WithArtwork: withArtwork,
	}
	c.mu.RUnlock()

	if ok {
		c.getNowPlaying().Update(meta)
	}
}

// emit sends an event without blocking.
func (c *Controller) emit(t EventType) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return
	}
	e := Event{Type: t, State: c.playState, Elapsed: c.elapsed}
	if cur, ok := c.queue.Current(); ok {
		e.Track = &cur
	}

	select {
	case c.eventCh <- e:
	default:
		// Channel full, drop event
	}
}

func playStateOf(bs BackendState) PlayState {
	if bs.Playing {
		return PlayStatePlaying
	}
	return PlayStatePaused
}

func clampPosition(position, duration time.Duration) time.Duration {
	if position < 0 {
		return 0
	}
	if duration > 0 && position >= duration {
		return duration - time.Millisecond
	}
	if duration <= 0 {
		return 0
	}
	return position
}

func boundaryName(dir int) string {
	if dir > 0 {
		return "end"
	}
	return "start"
}
