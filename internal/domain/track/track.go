// Package track provides the Track domain entity.
package track

import (
	"strings"
	"time"
)

// Track represents a playable track.
// Contains only information retrieved from the streaming backend.
type Track struct {
	ID          string        // Backend track ID
	URI         string        // Backend URI used to start playback (e.g. spotify:track:ID)
	Name        string        // Track name
	Artists     []string      // Artist names
	Album       string        // Album name
	AlbumArtURL string        // Album art URL
	Duration    time.Duration // Track duration
	URL         string        // Web URL
	Explicit    bool          // Explicit content flag
	Markets     []string      // Available markets
	IsPlayable  *bool         // Playable in the specified market (nil if market not specified)
}

// Equal reports whether two tracks refer to the same backend item.
// Tracks are compared by ID, falling back to URI when either ID is empty.
func (t Track) Equal(other Track) bool {
	if t.ID != "" && other.ID != "" {
		return t.ID == other.ID
	}
	return t.URI != "" && t.URI == other.URI
}

// PlaybackURI returns the URI handed to the backend.
func (t Track) PlaybackURI() string {
	if t.URI != "" {
		return t.URI
	}
	return "spotify:track:" + t.ID
}

// ArtistLine joins artist names for display.
func (t Track) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// IsAvailableInMarket checks if the track is available in the specified market.
func (t *Track) IsAvailableInMarket(market string) bool {
	// If IsPlayable is set, it takes precedence (Track Relinking support)
	if t.IsPlayable != nil {
		return *t.IsPlayable
	}

	for _, m := range t.Markets {
		if m == market {
			return true
		}
	}
	return false
}

// IndexOf returns the index of the first track equal to t, or -1.
func IndexOf(tracks []Track, t Track) int {
	for i := range tracks {
		if tracks[i].Equal(t) {
			return i
		}
	}
	return -1
}
