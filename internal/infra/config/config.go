// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const appName = "tracklist"

// Config represents the application configuration.
type Config struct {
	Spotify       SpotifyConfig           `yaml:"spotify"`
	Playback      PlaybackConfig          `yaml:"playback"`
	NowPlaying    []SinkConfig            `yaml:"now_playing" validate:"dive"`
	Filters       map[string]FilterConfig `yaml:"filters"`
	Notifications NotificationsConfig     `yaml:"notifications"`
	Server        ServerConfig            `yaml:"server"`
	Log           LogConfig               `yaml:"log"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	RefreshToken string `yaml:"refresh_token" validate:"required"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
	DeviceID     string `yaml:"device_id"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	TickIntervalMs   int  `yaml:"tick_interval_ms" default:"1000" validate:"gte=100,lte=10000"`
	BackendTimeoutMs int  `yaml:"backend_timeout_ms" default:"10000" validate:"gte=500,lte=60000"`
	ResyncPosition   bool `yaml:"resync_position"`
}

// TickInterval returns the tick interval as a duration.
func (p PlaybackConfig) TickInterval() time.Duration {
	return time.Duration(p.TickIntervalMs) * time.Millisecond
}

// BackendTimeout returns the backend timeout as a duration.
func (p PlaybackConfig) BackendTimeout() time.Duration {
	return time.Duration(p.BackendTimeoutMs) * time.Millisecond
}

// SinkConfig represents a single now-playing sink.
type SinkConfig struct {
	Type     string         `yaml:"type" validate:"required,oneof=log mpris lastfm"`
	Settings map[string]any `yaml:"settings"`
}

// FilterConfig represents a tracklist filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// NotificationsConfig represents desktop notification configuration.
type NotificationsConfig struct {
	Desktop   bool  `yaml:"desktop"`
	TimeoutMs int32 `yaml:"timeout_ms" default:"5000" validate:"gte=-1"`
}

// ServerConfig represents remote control server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:"127.0.0.1:8470" validate:"omitempty,hostname_port"`
	Token string      `yaml:"token"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents shell commands run around the server lifetime.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	File  string `yaml:"file"`
}

// DefaultPath returns the config file to use when none is given: an existing
// tracklist/config.yaml in the XDG config directories, or config.yaml in the
// working directory.
func DefaultPath() string {
	if p, err := xdg.SearchConfigFile(appName + "/config.yaml"); err == nil {
		return p
	}
	return "config.yaml"
}

// DefaultLogFile returns the log file used while the terminal UI owns stdout.
func DefaultLogFile() (string, error) {
	p, err := xdg.StateFile(appName + "/" + appName + ".log")
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve log file path")
	}
	return p, nil
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("CONTROL_TOKEN"); v != "" {
		c.Server.Token = v
	}

	lastfmEnv := map[string]string{
		"api_key":     os.Getenv("LASTFM_API_KEY"),
		"api_secret":  os.Getenv("LASTFM_API_SECRET"),
		"session_key": os.Getenv("LASTFM_SESSION_KEY"),
	}
	for i := range c.NowPlaying {
		if c.NowPlaying[i].Type != "lastfm" {
			continue
		}
		for key, v := range lastfmEnv {
			if v == "" {
				continue
			}
			if c.NowPlaying[i].Settings == nil {
				c.NowPlaying[i].Settings = map[string]any{}
			}
			c.NowPlaying[i].Settings[key] = v
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	seen := make(map[string]bool, len(c.NowPlaying))
	for _, s := range c.NowPlaying {
		if seen[s.Type] {
			return errors.Newf("now_playing sink %q is configured more than once", s.Type)
		}
		seen[s.Type] = true
	}

	return nil
}

// ValidateServe checks the settings required by the remote control server.
func (c *Config) ValidateServe() error {
	if c.Server.Token == "" {
		return errors.New("server.token (or CONTROL_TOKEN) is required to serve remote control")
	}
	if len(c.Server.Token) < 16 {
		return errors.New("server.token must be at least 16 characters")
	}
	return nil
}
