// Package playback provides the playback queue controller: shuffle/repeat queue
// state, elapsed-time tracking and track transitions over a streaming backend.
package playback

// PlayState represents the last known backend play state.
type PlayState int

const (
	PlayStateUnknown PlayState = iota // Not fetched yet
	PlayStatePlaying                  // Backend reports playing
	PlayStatePaused                   // Backend reports paused
)

// String returns the string representation of the state.
func (s PlayState) String() string {
	switch s {
	case PlayStateUnknown:
		return "unknown"
	case PlayStatePlaying:
		return "playing"
	case PlayStatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// RepeatMode is the repeat mode requested from the backend.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota // No repeat
	RepeatOne                   // Repeat the current track
)

// String returns the backend name of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOne:
		return "track"
	default:
		return "off"
	}
}

// repeatModeFor maps the repeat flag to a backend mode.
func repeatModeFor(repeat bool) RepeatMode {
	if repeat {
		return RepeatOne
	}
	return RepeatOff
}
