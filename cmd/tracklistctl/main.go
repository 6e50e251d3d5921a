// Package main provides the remote control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"google.golang.org/protobuf/types/known/structpb"

	apiconnect "github.com/osa030/tracklist/internal/api/connect"
)

var (
	app    = kingpin.New("tracklistctl", "tracklist remote control client")
	server = app.Flag("server", "Server address").Default("http://127.0.0.1:8470").String()
	token  = app.Flag("token", "Control token (or set CONTROL_TOKEN env)").Envar("CONTROL_TOKEN").String()

	// status command
	statusCmd = app.Command("status", "Show the playback status")

	// play command
	playCmd      = app.Command("play", "Play a playlist")
	playPlaylist = playCmd.Arg("playlist", "Spotify playlist URL, URI or ID").Required().String()
	playIndex    = playCmd.Flag("index", "Track to start from (1-based, playlist order)").Default("1").Int()

	// play-track command
	playTrackCmd = app.Command("play-track", "Play a single track")
	playTrackURL = playTrackCmd.Arg("track", "Spotify track URL, URI or ID").Required().String()

	pauseCmd  = app.Command("pause", "Pause playback")
	resumeCmd = app.Command("resume", "Resume playback")
	toggleCmd = app.Command("toggle", "Toggle between play and pause")
	stopCmd   = app.Command("stop", "Stop playback")
	nextCmd   = app.Command("next", "Skip to the next track")
	prevCmd   = app.Command("prev", "Go back to the previous track").Alias("previous")

	// seek command
	seekCmd      = app.Command("seek", "Seek within the current track")
	seekPosition = seekCmd.Arg("position", "Position (e.g. 1m30s, 90s)").Required().Duration()

	// repeat command
	repeatCmd   = app.Command("repeat", "Switch single-track repeat")
	repeatValue = repeatCmd.Arg("mode", "on or off").Required().Enum("on", "off")

	// shuffle command
	shuffleCmd   = app.Command("shuffle", "Switch shuffle")
	shuffleValue = shuffleCmd.Arg("mode", "on or off").Required().Enum("on", "off")

	// watch command
	watchCmd   = app.Command("watch", "Stream playback events")
	watchTicks = watchCmd.Flag("ticks", "Also print elapsed time updates").Bool()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *token == "" {
		fmt.Println("Error: control token is required (use --token or CONTROL_TOKEN env)")
		os.Exit(1)
	}

	client := apiconnect.NewClient(http.DefaultClient, *server, *token)

	if command == watchCmd.FullCommand() {
		watch(client)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		st         *structpb.Struct
		transition string
		err        error
	)
	switch command {
	case statusCmd.FullCommand():
		st, err = client.Status(ctx)
	case playCmd.FullCommand():
		st, err = client.PlayPlaylist(ctx, *playPlaylist, *playIndex-1)
	case playTrackCmd.FullCommand():
		st, err = client.PlayTrack(ctx, *playTrackURL)
	case pauseCmd.FullCommand():
		st, err = client.Pause(ctx)
	case resumeCmd.FullCommand():
		st, err = client.Resume(ctx)
	case toggleCmd.FullCommand():
		st, err = client.Toggle(ctx)
	case stopCmd.FullCommand():
		st, err = client.Stop(ctx)
	case nextCmd.FullCommand():
		st, transition, err = client.Next(ctx)
	case prevCmd.FullCommand():
		st, transition, err = client.Previous(ctx)
	case seekCmd.FullCommand():
		st, err = client.Seek(ctx, *seekPosition)
	case repeatCmd.FullCommand():
		st, err = client.SetRepeat(ctx, *repeatValue == "on")
	case shuffleCmd.FullCommand():
		st, err = client.SetShuffle(ctx, *shuffleValue == "on")
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if transition != "" && transition != "advance" {
		fmt.Printf("Transition: %s\n", transition)
	}
	printStatus(st.AsMap())
}

func watch(client *apiconnect.Client) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Println("Watching playback events (Ctrl+C to stop)...")
	err := client.Watch(ctx, func(msg *structpb.Struct) error {
		printEvent(msg.AsMap())
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) && connect.CodeOf(err) != connect.CodeCanceled {
		fmt.Printf("Stream error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Stream closed")
}

func printError(err error) {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		fmt.Printf("Error (%s): %s\n", connectErr.Code(), connectErr.Message())
		return
	}
	fmt.Printf("Error: %v\n", err)
}

func printStatus(s map[string]any) {
	fmt.Println("\n=== PLAYBACK STATUS ===")
	if name, _ := s["playlist_name"].(string); name != "" {
		fmt.Printf("Playlist: %s\n", name)
		fmt.Printf("Position: %d / %d\n", asInt(s["index"])+1, asInt(s["tracklist_length"]))
	} else {
		fmt.Println("Playlist: (none)")
	}
	fmt.Printf("State: %s\n", s["state"])
	fmt.Printf("Repeat: %s\n", onOff(s["repeat"]))
	fmt.Printf("Shuffle: %s\n", onOff(s["shuffle"]))

	if tr, ok := s["track"].(map[string]any); ok {
		fmt.Println("\nCurrent Track:")
		printTrack(tr)
		fmt.Printf("  Elapsed: %s / %s\n", formatMs(s["elapsed_ms"]), formatMs(tr["duration_ms"]))
	} else {
		fmt.Println("\nNo current track")
	}
	fmt.Println()
}

func printEvent(m map[string]any) {
	if m["type"] == apiconnect.TypeInitialState {
		fmt.Printf("[#%d] %s\n", asInt(m["sequence_no"]), apiconnect.TypeInitialState)
		if st, ok := m["status"].(map[string]any); ok {
			printStatus(st)
		}
		return
	}
	if m["type"] == "time_updated" && !*watchTicks {
		return
	}

	fmt.Printf("[#%d] %s %s state=%s elapsed=%s\n",
		asInt(m["sequence_no"]), m["time"], m["type"], m["state"], formatMs(m["elapsed_ms"]))
	if tr, ok := m["track"].(map[string]any); ok && m["type"] == "next_track_changed" {
		printTrack(tr)
	}
}

func printTrack(tr map[string]any) {
	fmt.Printf("  Name: %s\n", tr["name"])
	if artists, ok := tr["artists"].([]any); ok {
		names := make([]string, 0, len(artists))
		for _, a := range artists {
			names = append(names, fmt.Sprint(a))
		}
		fmt.Printf("  Artists: %s\n", strings.Join(names, ", "))
	}
	fmt.Printf("  Album: %s\n", tr["album"])
	fmt.Printf("  URL: %s\n", tr["url"])
}

// Numbers arrive as float64 after AsMap.
func asInt(v any) int {
	f, _ := v.(float64)
	return int(f)
}

func formatMs(v any) string {
	d := time.Duration(asInt(v)) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func onOff(v any) string {
	if b, _ := v.(bool); b {
		return "on"
	}
	return "off"
}
