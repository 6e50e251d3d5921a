package nowplaying

import (
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/track"
)

// LogSinkConfig represents the log sink settings.
type LogSinkConfig struct {
	Level string `mapstructure:"level" default:"info" validate:"oneof=debug info"`
	// Progress also logs the per-tick elapsed time updates.
	Progress bool `mapstructure:"progress"`
}

// LogSink writes now-playing changes to the application log.
type LogSink struct {
	level    zerolog.Level
	progress bool
	current  *track.Track
}

// NewLogSink creates a new LogSink.
func NewLogSink(cfg LogSinkConfig) *LogSink {
	level := zerolog.InfoLevel
	if cfg.Level == "debug" {
		level = zerolog.DebugLevel
	}
	return &LogSink{level: level, progress: cfg.Progress}
}

// Name returns the sink name.
func (s *LogSink) Name() string {
	return "log"
}

// Update logs the track when it changes, and progress when enabled.
func (s *LogSink) Update(meta playback.Metadata) {
	if s.current == nil || !s.current.Equal(meta.Track) {
		t := meta.Track
		s.current = &t
		zlog.WithLevel(s.level).Msgf("now playing: %s - %s (%s) [%s]",
			t.ArtistLine(), t.Name, t.Album, t.Duration.Round(time.Second))
		return
	}
	if s.progress && !meta.WithArtwork {
		zlog.Debug().Msgf("now playing: elapsed=%s/%s", meta.Elapsed, meta.Track.Duration)
	}
}

// Clear forgets the current track.
func (s *LogSink) Clear() {
	s.current = nil
}

// SetPlaybackState logs state changes.
func (s *LogSink) SetPlaybackState(state playback.PlayState) {
	zlog.WithLevel(s.level).Msgf("now playing: state=%s", state)
}

// Close implements Sink.
func (s *LogSink) Close() error {
	return nil
}
