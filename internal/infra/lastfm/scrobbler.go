package lastfm

import (
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/track"
)

const (
	minScrobbleLength = 30 * time.Second
	maxScrobbleWait   = 4 * time.Minute
)

// ScrobbleThreshold returns how long a track must play before it is
// scrobbled: half its length or four minutes, whichever comes first.
// Tracks shorter than 30 seconds are never scrobbled.
func ScrobbleThreshold(duration time.Duration) (time.Duration, bool) {
	if duration < minScrobbleLength {
		return 0, false
	}
	threshold := duration / 2
	if threshold > maxScrobbleWait {
		threshold = maxScrobbleWait
	}
	return threshold, true
}

type playing struct {
	track     track.Track
	startedAt time.Time
	elapsed   time.Duration
	played    time.Duration // wall-clock time spent playing
	lastAt    time.Time
	running   bool
	scrobbled bool
}

// advance adds the time played since the last report.
func (p *playing) advance(now time.Time) {
	if p.running {
		p.played += now.Sub(p.lastAt)
	}
	p.lastAt = now
}

// Scrobbler is a now-playing sink that reports to Last.fm.
// Only time actually spent playing counts towards the scrobble threshold, so
// seeking neither skips nor repeats a scrobble.
// It is driven from a single goroutine and is not safe for concurrent use.
type Scrobbler struct {
	api     API
	now     func() time.Time
	current *playing
}

// NewScrobbler creates a new Scrobbler.
func NewScrobbler(api API) *Scrobbler {
	return &Scrobbler{api: api, now: time.Now}
}

// Name returns the sink name.
func (s *Scrobbler) Name() string {
	return "lastfm"
}

// Update sends now-playing for a new track and scrobbles it once it has
// played long enough. A scrobbled track that goes back to the start, as it
// does on repeat, starts a new play.
func (s *Scrobbler) Update(meta playback.Metadata) {
	if s.current == nil || !s.current.track.Equal(meta.Track) || s.restarted(meta) {
		s.start(meta)
		return
	}

	s.current.advance(s.now())
	s.current.elapsed = meta.Elapsed
	s.current.running = meta.State == playback.PlayStatePlaying
	s.maybeScrobble()
}

// Clear ends the current play.
func (s *Scrobbler) Clear() {
	s.current = nil
}

// SetPlaybackState stops or restarts the play clock.
func (s *Scrobbler) SetPlaybackState(state playback.PlayState) {
	if s.current == nil {
		return
	}
	s.current.advance(s.now())
	s.current.running = state == playback.PlayStatePlaying
	s.maybeScrobble()
}

// Close implements the sink interface.
func (s *Scrobbler) Close() error {
	return nil
}

func (s *Scrobbler) restarted(meta playback.Metadata) bool {
	return s.current.scrobbled && meta.Elapsed == 0 && s.current.elapsed > 0 &&
		meta.State == playback.PlayStatePlaying
}

func (s *Scrobbler) start(meta playback.Metadata) {
	now := s.now()
	s.current = &playing{
		track:     meta.Track,
		startedAt: now.Add(-meta.Elapsed),
		elapsed:   meta.Elapsed,
		lastAt:    now,
		running:   meta.State == playback.PlayStatePlaying,
	}

	t := s.scrobbleTrack()
	if err := s.api.UpdateNowPlaying(t); err != nil {
		zlog.Warn().Msgf("lastfm: failed to update now playing: track=%s error=%v", t.Track, err)
	} else {
		zlog.Debug().Msgf("lastfm: now playing: %s - %s", t.Artist, t.Track)
	}
}

func (s *Scrobbler) maybeScrobble() {
	if s.current.scrobbled {
		return
	}
	threshold, ok := ScrobbleThreshold(s.current.track.Duration)
	if !ok || s.current.played < threshold {
		return
	}

	// Marked before sending; a failed scrobble is not retried.
	s.current.scrobbled = true
	t := s.scrobbleTrack()
	if err := s.api.Scrobble(t); err != nil {
		zlog.Warn().Msgf("lastfm: failed to scrobble: track=%s error=%v", t.Track, err)
		return
	}
	zlog.Info().Msgf("lastfm: scrobbled: %s - %s", t.Artist, t.Track)
}

func (s *Scrobbler) scrobbleTrack() ScrobbleTrack {
	artist := ""
	if len(s.current.track.Artists) > 0 {
		artist = s.current.track.Artists[0]
	}
	return ScrobbleTrack{
		Artist:    artist,
		Track:     s.current.track.Name,
		Album:     s.current.track.Album,
		Duration:  s.current.track.Duration,
		Timestamp: s.current.startedAt,
	}
}
