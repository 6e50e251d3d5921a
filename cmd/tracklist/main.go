// Package main provides the tracklist player entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/infra/config"
	"github.com/osa030/tracklist/internal/infra/logger"
	"github.com/osa030/tracklist/internal/ui/player"
)

var (
	app        = kingpin.New("tracklist", "Spotify Connect playlist player")
	configPath = app.Flag("config", "Path to config file").Default(config.DefaultPath()).String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file").String()

	// play command
	playCmd     = app.Command("play", "Play a playlist in the terminal player").Default()
	playURL     = playCmd.Arg("playlist", "Spotify playlist URL, URI or ID").Required().String()
	playIndex   = playCmd.Flag("index", "Track to start from (1-based, playlist order)").Default("1").Int()
	playShuffle = playCmd.Flag("shuffle", "Start with shuffle enabled").Bool()
	playRepeat  = playCmd.Flag("repeat", "Start with single-track repeat enabled").Bool()
	playServe   = playCmd.Flag("serve", "Also serve the remote control API").Bool()
	keepPlaying = playCmd.Flag("keep-playing", "Do not pause playback on exit").Bool()

	// serve command
	serveCmd   = app.Command("serve", "Run headless with the remote control API")
	serveURL   = serveCmd.Arg("playlist", "Spotify playlist URL to start (optional)").String()
	serveIndex = serveCmd.Flag("index", "Track to start from (1-based, playlist order)").Default("1").Int()

	// devices command
	devicesCmd = app.Command("devices", "List Spotify Connect devices and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	// The terminal player owns stdout, so it logs to a file.
	closer, err := logger.Init(loggerConfig(cfg, command == playCmd.FullCommand()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	switch command {
	case playCmd.FullCommand():
		err = runPlay(cfg)
	case serveCmd.FullCommand():
		err = runServe(cfg)
	case devicesCmd.FullCommand():
		err = runDevices(cfg)
	}
	if err != nil {
		zlog.Error().Msgf("tracklist: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		closer.Close()
		os.Exit(1)
	}
}

func loggerConfig(cfg *config.Config, tui bool) logger.Config {
	lc := logger.Config{Output: "stdout", Level: cfg.Log.Level, File: cfg.Log.File}
	if *verbose {
		lc.Level = "debug"
	}
	if *logfile != "" {
		lc.File = *logfile
	}
	if lc.File != "" {
		lc.Output = "file"
	} else if tui {
		lc.Output = "file"
		if p, err := config.DefaultLogFile(); err == nil {
			lc.File = p
		} else {
			lc.Output = "stderr"
		}
	}
	return lc
}

// runPlay runs the terminal player. Using a separate function ensures defer
// statements are executed even when returning with an error.
func runPlay(cfg *config.Config) error {
	ctx := context.Background()

	rt, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	pl, err := rt.GetPlaylist(ctx, *playURL)
	if err != nil {
		return fmt.Errorf("failed to load playlist: %w", err)
	}
	if len(pl.Tracks) == 0 {
		return fmt.Errorf("playlist %s has no playable tracks", pl.Name)
	}
	index := *playIndex - 1
	if index < 0 || index >= len(pl.Tracks) {
		return fmt.Errorf("--index must be between 1 and %d", len(pl.Tracks))
	}
	zlog.Info().Msgf("loaded playlist: name=%s tracks=%d", pl.Name, len(pl.Tracks))

	// Modes are set on the selected playlist so starting it keeps them.
	if err := rt.ctrl.SetPlaylist(ctx, pl); err != nil {
		zlog.Warn().Msgf("failed to select playlist: %v", err)
	}
	if *playShuffle {
		if err := rt.ctrl.SetShuffle(true); err != nil {
			return err
		}
	}
	if *playRepeat {
		if err := rt.ctrl.SetRepeat(ctx, true); err != nil {
			zlog.Warn().Msgf("failed to enable repeat: %v", err)
		}
	}

	if *playServe {
		stop, err := rt.serve()
		if err != nil {
			return err
		}
		defer stop()
	}

	presenter := player.NewPresenter()
	defer presenter.Close()
	rt.ctrl.SetPresenter(presenter)
	rt.notifications.Subscribe(presenter)

	program := tea.NewProgram(player.New(rt.ctrl, presenter, pl, index), tea.WithAltScreen())
	presenter.Attach(program)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("terminal player failed: %w", err)
	}

	if !*keepPlaying {
		pauseCtx, cancel := context.WithTimeout(context.Background(), cfg.Playback.BackendTimeout())
		defer cancel()
		if err := rt.ctrl.Pause(pauseCtx); err != nil {
			zlog.Warn().Msgf("failed to pause on exit: %v", err)
		}
	}
	return nil
}

// runServe runs headless until a shutdown signal arrives.
func runServe(cfg *config.Config) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	ctx := context.Background()
	rt, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	stop, err := rt.serve()
	if err != nil {
		return err
	}

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	if *serveURL != "" {
		pl, err := rt.GetPlaylist(ctx, *serveURL)
		if err != nil {
			stop()
			return fmt.Errorf("failed to load playlist: %w", err)
		}
		if err := rt.ctrl.PlayPlaylist(ctx, pl, *serveIndex-1); err != nil {
			zlog.Error().Msgf("failed to start playlist: %v", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-rt.serverErr:
		stop()
		return fmt.Errorf("server error: %w", err)
	}

	stop()
	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")
	return nil
}

func runDevices(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := newSpotifyClient(ctx, cfg)
	if err != nil {
		return err
	}
	devices, err := client.Devices(ctx)
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("No Spotify Connect devices found. Open Spotify on a device and try again.")
		return nil
	}
	fmt.Println("Spotify Connect devices:")
	for _, d := range devices {
		active := ""
		if d.Active {
			active = " (active)"
		}
		fmt.Printf("  %-40s %-12s %s%s\n", d.ID, d.Type, d.Name, active)
	}
	return nil
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
