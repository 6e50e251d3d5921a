package playback

import (
	"time"

	"github.com/osa030/tracklist/internal/domain/track"
)

// EventType represents a playback event type.
type EventType int

const (
	EventTimeUpdated      EventType = iota // Elapsed time advanced by one tick
	EventNextTrackChanged                  // Queue moved to another track
	EventStateChanged                      // Playback paused or resumed
	EventModeChanged                       // Repeat or shuffle toggled
	EventPlaylistChanged                   // A playlist was selected
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTimeUpdated:
		return "time_updated"
	case EventNextTrackChanged:
		return "next_track_changed"
	case EventStateChanged:
		return "state_changed"
	case EventModeChanged:
		return "mode_changed"
	case EventPlaylistChanged:
		return "playlist_changed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type    EventType
	Track   *track.Track  // Current track (nil when none)
	State   PlayState     // Last known play state
	Elapsed time.Duration // Elapsed time of the current track
}
