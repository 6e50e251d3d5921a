package playback

import "time"

// Session is the part of the controller state a tick reads and writes.
type Session struct {
	HasTrack  bool
	Duration  time.Duration // Duration of the current track
	Elapsed   time.Duration // Always in [0, Duration) while a track plays
	Repeat    bool
	PlayState PlayState
	Ended     bool // End-of-track already fired for the current track
}

// Effect is a side effect requested by Tick.
type Effect int

const (
	EffectSyncButton   Effect = iota // Backend state fetched; sync the pause/play button
	EffectTimeUpdated                // Emit time-updated and refresh now-playing
	EffectRestartTrack               // Repeat: play the current track again from 0
	EffectAdvance                    // Go to the next track
)

// String returns the string representation of the effect.
func (e Effect) String() string {
	switch e {
	case EffectSyncButton:
		return "sync_button"
	case EffectTimeUpdated:
		return "time_updated"
	case EffectRestartTrack:
		return "restart_track"
	case EffectAdvance:
		return "advance"
	default:
		return "unknown"
	}
}

// TickOptions configures Tick.
type TickOptions struct {
	Interval time.Duration
	// ResyncPosition replaces the local elapsed estimate with the position
	// reported by the backend before advancing.
	ResyncPosition bool
}

// Tick computes one timer step. fetched is nil when the backend state could
// not be fetched. It is a pure function of its inputs.
func Tick(s Session, fetched *BackendState, opts TickOptions) (Session, []Effect) {
	var effects []Effect

	if fetched != nil {
		if fetched.Playing {
			s.PlayState = PlayStatePlaying
		} else {
			s.PlayState = PlayStatePaused
		}
		effects = append(effects, EffectSyncButton)

		if opts.ResyncPosition && s.HasTrack && !s.Ended &&
			fetched.Position >= 0 && fetched.Position < s.Duration {
			s.Elapsed = fetched.Position
		}
	}

	if !s.HasTrack || s.Ended {
		return s, effects
	}

	if s.Elapsed+opts.Interval < s.Duration {
		s.Elapsed += opts.Interval
		return s, append(effects, EffectTimeUpdated)
	}

	s.Ended = true
	if s.Repeat {
		return s, append(effects, EffectRestartTrack)
	}
	return s, append(effects, EffectAdvance)
}
