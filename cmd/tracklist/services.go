package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	zlog "github.com/rs/zerolog/log"

	apiconnect "github.com/osa030/tracklist/internal/api/connect"
	"github.com/osa030/tracklist/internal/app/filter"
	"github.com/osa030/tracklist/internal/app/notification"
	"github.com/osa030/tracklist/internal/app/nowplaying"
	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/playlist"
	"github.com/osa030/tracklist/internal/domain/track"
	"github.com/osa030/tracklist/internal/infra/config"
	"github.com/osa030/tracklist/internal/infra/notify"
	"github.com/osa030/tracklist/internal/infra/spotify"
)

// services holds the components shared by the play and serve commands.
type services struct {
	cfg           *config.Config
	spotify       *spotify.Client
	ctrl          *playback.Controller
	chain         *nowplaying.Chain
	filters       *filter.Chain
	notifications *notification.Manager

	done      chan struct{}
	serverErr chan error
	cancel    context.CancelFunc
}

func newSpotifyClient(ctx context.Context, cfg *config.Config) (*spotify.Client, error) {
	client, err := spotify.New(ctx, spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RefreshToken: cfg.Spotify.RefreshToken,
		Market:       cfg.Spotify.Market,
		DeviceID:     cfg.Spotify.DeviceID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify client: %w", err)
	}
	return client, nil
}

func newServices(ctx context.Context, cfg *config.Config) (*services, error) {
	filters, err := filter.NewChainFromConfig(cfg.Filters)
	if err != nil {
		return nil, fmt.Errorf("invalid filter config: %w", err)
	}

	spotifyClient, err := newSpotifyClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ctrl := playback.NewController(spotifyClient, playback.Config{
		ClientID:       cfg.Spotify.ClientID,
		TickInterval:   cfg.Playback.TickInterval(),
		BackendTimeout: cfg.Playback.BackendTimeout(),
		ResyncPosition: cfg.Playback.ResyncPosition,
	})

	chain, err := nowplaying.NewChainFromConfig(cfg.NowPlaying, ctrl)
	if err != nil {
		ctrl.Close()
		return nil, fmt.Errorf("failed to create now playing sinks: %w", err)
	}
	ctrl.SetNowPlaying(chain)
	zlog.Info().Msgf("now playing sinks: %v", chain.Sinks())

	pumpCtx, cancel := context.WithCancel(context.Background())
	notifications := notification.NewManager()
	go notifications.Pump(pumpCtx, ctrl.Events())

	if cfg.Notifications.Desktop {
		notifier, err := notify.New()
		if err != nil {
			zlog.Warn().Msgf("desktop notifications disabled: %v", err)
		} else {
			announcer := notify.NewTrackAnnouncer(notifier, cfg.Notifications.TimeoutMs)
			notifications.Subscribe(announcer, playback.EventNextTrackChanged)
		}
	}

	return &services{
		cfg:           cfg,
		spotify:       spotifyClient,
		ctrl:          ctrl,
		chain:         chain,
		filters:       filters,
		notifications: notifications,
		done:          make(chan struct{}),
		serverErr:     make(chan error, 1),
		cancel:        cancel,
	}, nil
}

// GetPlaylist loads a playlist and applies the configured filters.
func (r *services) GetPlaylist(ctx context.Context, playlistURL string) (*playlist.Playlist, error) {
	pl, err := r.spotify.GetPlaylist(ctx, playlistURL)
	if err != nil {
		return nil, err
	}
	filtered, _ := r.filters.Apply(ctx, pl)
	return filtered, nil
}

// GetTrack resolves a single track. Filters do not apply.
func (r *services) GetTrack(ctx context.Context, trackID string) (*track.Track, error) {
	return r.spotify.GetTrack(ctx, trackID)
}

// serve starts the remote control server. The returned function shuts it
// down and ends open Watch streams.
func (r *services) serve() (func(), error) {
	if err := r.cfg.ValidateServe(); err != nil {
		return nil, err
	}

	service := apiconnect.NewControlService(r.ctrl, r, r.notifications, r.done)
	server := apiconnect.NewServer(r.cfg.Server.Addr, r.cfg.Server.Token, service)

	go func() {
		zlog.Info().Msgf("Starting control server: addr=%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.serverErr <- err
		}
	}()

	stopped := false
	return func() {
		if stopped {
			return
		}
		stopped = true
		close(r.done)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Msgf("Failed to shutdown server: %v", err)
		}
	}, nil
}

// Close stops playback timers and releases every sink.
func (r *services) Close() {
	r.ctrl.Close()
	r.cancel()
	r.notifications.Close()
	if err := r.chain.Close(); err != nil {
		zlog.Warn().Msgf("failed to close now playing sinks: %v", err)
	}
}
