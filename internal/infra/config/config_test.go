package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Spotify: SpotifyConfig{
			ClientID:     "test-client-id",
			ClientSecret: "test-client-secret",
			RefreshToken: "test-refresh-token",
			Market:       "JP",
		},
		Playback: PlaybackConfig{
			TickIntervalMs:   1000,
			BackendTimeoutMs: 10000,
		},
		NowPlaying: []SinkConfig{
			{Type: "log"},
			{Type: "lastfm", Settings: map[string]any{"api_key": "k"}},
		},
		Log: LogConfig{Level: "info"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing spotify client id",
			modify:  func(c *Config) { c.Spotify.ClientID = "" },
			wantErr: true,
			errMsg:  "ClientID",
		},
		{
			name:    "missing spotify refresh token",
			modify:  func(c *Config) { c.Spotify.RefreshToken = "" },
			wantErr: true,
			errMsg:  "RefreshToken",
		},
		{
			name:    "invalid market length",
			modify:  func(c *Config) { c.Spotify.Market = "JAPAN" },
			wantErr: true,
			errMsg:  "Market",
		},
		{
			name:    "tick interval too short",
			modify:  func(c *Config) { c.Playback.TickIntervalMs = 50 },
			wantErr: true,
			errMsg:  "TickIntervalMs",
		},
		{
			name:    "tick interval too long",
			modify:  func(c *Config) { c.Playback.TickIntervalMs = 20000 },
			wantErr: true,
			errMsg:  "TickIntervalMs",
		},
		{
			name:    "unknown sink type",
			modify:  func(c *Config) { c.NowPlaying = append(c.NowPlaying, SinkConfig{Type: "discord"}) },
			wantErr: true,
			errMsg:  "Type",
		},
		{
			name:    "duplicate sink",
			modify:  func(c *Config) { c.NowPlaying = append(c.NowPlaying, SinkConfig{Type: "log"}) },
			wantErr: true,
			errMsg:  "more than once",
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Log.Level = "trace" },
			wantErr: true,
			errMsg:  "Level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err, "expected validation to fail")
				assert.Contains(t, err.Error(), tt.errMsg,
					"error message should mention the problematic field")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}

func TestConfig_ValidateServe(t *testing.T) {
	cfg := validConfig()
	assert.Error(t, cfg.ValidateServe())

	cfg.Server.Token = "short"
	assert.Error(t, cfg.ValidateServe())

	cfg.Server.Token = "0123456789abcdef"
	assert.NoError(t, cfg.ValidateServe())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
spotify:
  client_id: id
  client_secret: secret
  refresh_token: refresh
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "JP", cfg.Spotify.Market)
	assert.Equal(t, time.Second, cfg.Playback.TickInterval())
	assert.Equal(t, 10*time.Second, cfg.Playback.BackendTimeout())
	assert.False(t, cfg.Playback.ResyncPosition)
	assert.Equal(t, "127.0.0.1:8470", cfg.Server.Addr)
	assert.Equal(t, int32(5000), cfg.Notifications.TimeoutMs)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.NowPlaying)
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
spotify:
  client_id: id
  client_secret: secret
  refresh_token: refresh
  market: US
  device_id: dev-1
playback:
  tick_interval_ms: 500
  resync_position: true
now_playing:
  - type: mpris
  - type: lastfm
    settings:
      api_key: file-key
filters:
  duration_limit_filter:
    enabled: true
    settings:
      max_minutes: 8
  explicit_filter:
    enabled: false
notifications:
  desktop: true
  timeout_ms: 3000
server:
  addr: ":9000"
  token: file-token
  hooks:
    on_started:
      - notify-send started
log:
  level: debug
  file: /tmp/tracklist.log
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "US", cfg.Spotify.Market)
	assert.Equal(t, "dev-1", cfg.Spotify.DeviceID)
	assert.Equal(t, 500*time.Millisecond, cfg.Playback.TickInterval())
	assert.True(t, cfg.Playback.ResyncPosition)
	require.Len(t, cfg.NowPlaying, 2)
	assert.Equal(t, "mpris", cfg.NowPlaying[0].Type)
	assert.Equal(t, "file-key", cfg.NowPlaying[1].Settings["api_key"])
	require.Len(t, cfg.Filters, 2)
	assert.True(t, cfg.Filters["duration_limit_filter"].Enabled)
	assert.Equal(t, 8, cfg.Filters["duration_limit_filter"].Settings["max_minutes"])
	assert.False(t, cfg.Filters["explicit_filter"].Enabled)
	assert.True(t, cfg.Notifications.Desktop)
	assert.Equal(t, int32(3000), cfg.Notifications.TimeoutMs)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"notify-send started"}, cfg.Server.Hooks.OnStarted)
	assert.Empty(t, cfg.Server.Hooks.OnStopped)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")
	t.Setenv("SPOTIFY_REFRESH_TOKEN", "env-refresh")
	t.Setenv("CONTROL_TOKEN", "env-control-token")
	t.Setenv("LASTFM_API_KEY", "env-key")
	t.Setenv("LASTFM_SESSION_KEY", "env-session")

	path := writeConfig(t, `
spotify:
  client_id: file-id
now_playing:
  - type: lastfm
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-id", cfg.Spotify.ClientID)
	assert.Equal(t, "env-secret", cfg.Spotify.ClientSecret)
	assert.Equal(t, "env-refresh", cfg.Spotify.RefreshToken)
	assert.Equal(t, "env-control-token", cfg.Server.Token)
	assert.Equal(t, "env-key", cfg.NowPlaying[0].Settings["api_key"])
	assert.Equal(t, "env-session", cfg.NowPlaying[0].Settings["session_key"])
	_, hasSecret := cfg.NowPlaying[0].Settings["api_secret"]
	assert.False(t, hasSecret)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "spotify: [not, a, map]"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "playback:\n  tick_interval_ms: 1\n"))
	assert.Error(t, err)
}
