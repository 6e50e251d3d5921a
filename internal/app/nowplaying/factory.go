package nowplaying

import (
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/infra/config"
	"github.com/osa030/tracklist/internal/infra/lastfm"
	"github.com/osa030/tracklist/internal/infra/mpris"
)

// MprisSinkConfig represents the MPRIS sink settings.
type MprisSinkConfig struct {
	Name string `mapstructure:"name" default:"tracklist" validate:"required,alphanum"`
}

// LastFmSinkConfig represents the Last.fm sink settings.
type LastFmSinkConfig struct {
	APIKey     string `mapstructure:"api_key" validate:"required"`
	APISecret  string `mapstructure:"api_secret" validate:"required"`
	SessionKey string `mapstructure:"session_key" validate:"required"`
}

// sinkBuilders create sinks by type. Tests replace entries to avoid D-Bus and
// network access.
var sinkBuilders = map[string]func(settings map[string]any, player mpris.Player) (Sink, error){
	"log":    newLogSinkFromSettings,
	"mpris":  newMprisSinkFromSettings,
	"lastfm": newLastFmSinkFromSettings,
}

// NewChainFromConfig creates a sink chain from configuration. player is the
// controller that MPRIS commands are routed to.
func NewChainFromConfig(cfgs []config.SinkConfig, player mpris.Player) (*Chain, error) {
	var sinks []Sink

	for i, scfg := range cfgs {
		zlog.Debug().Msgf("creating now-playing sink: index=%d type=%s", i+1, scfg.Type)

		build, ok := sinkBuilders[scfg.Type]
		if !ok {
			closeSinks(sinks)
			return nil, errors.Newf("unsupported sink type: %s (sink index %d)", scfg.Type, i)
		}
		sink, err := build(scfg.Settings, player)
		if err != nil {
			closeSinks(sinks)
			return nil, errors.Wrapf(err, "failed to create sink (index %d, type %s)", i, scfg.Type)
		}
		sinks = append(sinks, sink)

		zlog.Info().Msgf("registered now-playing sink: index=%d type=%s", i+1, scfg.Type)
	}

	return NewChain(sinks...), nil
}

func newLogSinkFromSettings(settings map[string]any, _ mpris.Player) (Sink, error) {
	var cfg LogSinkConfig
	if err := decodeSettings(settings, &cfg); err != nil {
		return nil, err
	}
	return NewLogSink(cfg), nil
}

func newMprisSinkFromSettings(settings map[string]any, player mpris.Player) (Sink, error) {
	var cfg MprisSinkConfig
	if err := decodeSettings(settings, &cfg); err != nil {
		return nil, err
	}
	return mpris.New(cfg.Name, player)
}

func newLastFmSinkFromSettings(settings map[string]any, _ mpris.Player) (Sink, error) {
	var cfg LastFmSinkConfig
	if err := decodeSettings(settings, &cfg); err != nil {
		return nil, err
	}
	client, err := lastfm.New(lastfm.Config{
		APIKey:     cfg.APIKey,
		APISecret:  cfg.APISecret,
		SessionKey: cfg.SessionKey,
	})
	if err != nil {
		return nil, err
	}
	return lastfm.NewScrobbler(client), nil
}

// decodeSettings decodes sink settings, applies defaults and validates them.
func decodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

func closeSinks(sinks []Sink) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			zlog.Warn().Msgf("nowplaying: failed to close sink %s: %v", s.Name(), err)
		}
	}
}
