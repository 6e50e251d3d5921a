package spotify

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"

	"github.com/osa030/tracklist/internal/app/playback"
)

var _ playback.Backend = (*Client)(nil)

// Start makes sure a Connect device is ready to receive playback.
// With a configured device ID playback is transferred there once; otherwise
// an active device is required, falling back to the first available one.
func (c *Client) Start(ctx context.Context, clientID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	devices, err := c.client.PlayerDevices(ctx)
	if err != nil {
		return errors.Wrap(mapError(err), "failed to list devices")
	}
	if len(devices) == 0 {
		return errors.Mark(errors.New("no Spotify Connect device available"), playback.ErrBackendUnreachable)
	}

	target := c.deviceID
	if target == "" {
		for _, d := range devices {
			if d.Active {
				c.started = true
				zlog.Debug().Msgf("spotify: using active device: name=%s client=%s", d.Name, clientID)
				return nil
			}
		}
		target = string(devices[0].ID)
	}

	for _, d := range devices {
		if string(d.ID) == target && d.Active {
			c.started = true
			return nil
		}
	}

	if err := c.client.TransferPlayback(ctx, spotify.ID(target), false); err != nil {
		return errors.Wrap(mapError(err), "failed to transfer playback")
	}
	c.deviceID = target
	c.started = true
	zlog.Info().Msgf("spotify: playback transferred to device %s", target)
	return nil
}

// Device is a Spotify Connect device.
type Device struct {
	ID     string
	Name   string
	Type   string
	Active bool
}

// Devices lists the Connect devices available to the account.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var devices []spotify.PlayerDevice
	err := c.retry(ctx, func() error {
		d, err := c.client.PlayerDevices(ctx)
		if err != nil {
			return err
		}
		devices = d
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(mapError(err), "failed to list devices")
	}

	result := make([]Device, len(devices))
	for i, d := range devices {
		result[i] = Device{ID: string(d.ID), Name: d.Name, Type: d.Type, Active: d.Active}
	}
	return result, nil
}

// Play starts uri on the device, then seeks to offset when it is positive.
func (c *Client) Play(ctx context.Context, uri string, offset time.Duration) error {
	opts := c.playOptions()
	opts.URIs = []spotify.URI{spotify.URI(uri)}

	err := c.retry(ctx, func() error {
		return c.client.PlayOpt(ctx, opts)
	})
	if err != nil {
		return errors.Wrapf(mapError(err), "failed to play %s", uri)
	}

	if offset > 0 {
		return c.Seek(ctx, offset)
	}
	return nil
}

// SetPlaying resumes or pauses the device.
func (c *Client) SetPlaying(ctx context.Context, playing bool) error {
	var err error
	if playing {
		err = c.client.PlayOpt(ctx, c.playOptions())
	} else {
		err = c.client.PauseOpt(ctx, c.playOptions())
	}
	if err != nil {
		return errors.Wrapf(mapError(err), "failed to set playing=%v", playing)
	}
	return nil
}

// Seek moves the playback position of the current item.
func (c *Client) Seek(ctx context.Context, position time.Duration) error {
	if err := c.client.SeekOpt(ctx, int(position/time.Millisecond), c.playOptions()); err != nil {
		return errors.Wrap(mapError(err), "failed to seek")
	}
	return nil
}

// SetRepeatMode sets the repeat mode of the device ("track" or "off").
func (c *Client) SetRepeatMode(ctx context.Context, mode playback.RepeatMode) error {
	if err := c.client.RepeatOpt(ctx, mode.String(), c.playOptions()); err != nil {
		return errors.Wrapf(mapError(err), "failed to set repeat mode %s", mode)
	}
	return nil
}

// PlaybackState fetches the current player state.
func (c *Client) PlaybackState(ctx context.Context) (playback.BackendState, error) {
	state, err := c.client.PlayerState(ctx)
	if err != nil {
		return playback.BackendState{}, errors.Wrap(mapError(err), "failed to get player state")
	}

	bs := playback.BackendState{
		Playing:  state.Playing,
		Position: time.Duration(state.Progress) * time.Millisecond,
	}
	if state.Item != nil {
		bs.TrackURI = string(state.Item.URI)
	}
	return bs, nil
}

// SessionValid reports whether a valid access token can be obtained.
// The token source refreshes an expired token as needed.
func (c *Client) SessionValid(ctx context.Context) bool {
	tok, err := c.client.Token()
	if err != nil {
		zlog.Debug().Msgf("spotify: token unavailable: %v", err)
		return false
	}
	return tok.Valid()
}

func (c *Client) playOptions() *spotify.PlayOptions {
	opts := &spotify.PlayOptions{}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deviceID != "" {
		id := spotify.ID(c.deviceID)
		opts.DeviceID = &id
	}
	return opts
}

// mapError marks Spotify failures with playback error kinds.
// 401 responses mean the session is no longer valid; server errors, rate
// limiting and network failures mean the backend cannot be reached.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusUnauthorized:
			return errors.Mark(err, playback.ErrInvalidSession)
		case apiErr.Status == http.StatusTooManyRequests, apiErr.Status >= http.StatusInternalServerError:
			return errors.Mark(err, playback.ErrBackendUnreachable)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Mark(err, playback.ErrBackendUnreachable)
	}
	return err
}
