// Package lastfm provides Last.fm now-playing updates and scrobbling.
package lastfm

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shkh/lastfm-go/lastfm"
)

// Config represents Last.fm client configuration.
type Config struct {
	APIKey     string
	APISecret  string
	SessionKey string // Obtained once through the desktop auth flow
}

// ScrobbleTrack contains track metadata for scrobbling.
type ScrobbleTrack struct {
	Artist    string
	Track     string
	Album     string
	Duration  time.Duration
	Timestamp time.Time // When playback started
}

// API is the subset of the Last.fm API used by the scrobbler.
type API interface {
	UpdateNowPlaying(t ScrobbleTrack) error
	Scrobble(t ScrobbleTrack) error
}

// Client is a Last.fm API client.
type Client struct {
	api *lastfm.Api
}

var _ API = (*Client)(nil)

// New creates a new Last.fm client with an authenticated session.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("last.fm API key and secret are required")
	}
	if cfg.SessionKey == "" {
		return nil, errors.New("last.fm session key is required")
	}

	api := lastfm.New(cfg.APIKey, cfg.APISecret)
	api.SetSession(cfg.SessionKey)
	return &Client{api: api}, nil
}

// UpdateNowPlaying sends a "now playing" notification to Last.fm.
func (c *Client) UpdateNowPlaying(t ScrobbleTrack) error {
	if _, err := c.api.Track.UpdateNowPlaying(params(t, false)); err != nil {
		return errors.Wrap(err, "update now playing")
	}
	return nil
}

// Scrobble submits a track play to Last.fm.
func (c *Client) Scrobble(t ScrobbleTrack) error {
	if _, err := c.api.Track.Scrobble(params(t, true)); err != nil {
		return errors.Wrap(err, "scrobble")
	}
	return nil
}

func params(t ScrobbleTrack, withTimestamp bool) lastfm.P {
	p := lastfm.P{
		"artist": t.Artist,
		"track":  t.Track,
	}
	if withTimestamp {
		p["timestamp"] = t.Timestamp.Unix()
	}
	if t.Album != "" {
		p["album"] = t.Album
	}
	if t.Duration > 0 {
		p["duration"] = int(t.Duration.Seconds())
	}
	return p
}
