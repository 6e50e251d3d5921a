// Package playlist provides the Playlist domain entity.
package playlist

import (
	"time"

	"github.com/osa030/tracklist/internal/domain/track"
)

// Playlist represents a backend playlist.
type Playlist struct {
	ID          string        // Backend playlist ID
	Name        string        // Playlist name
	Description string        // Playlist description
	URL         string        // Web URL
	Tracks      []track.Track // Tracks in the playlist
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// TotalDuration returns the total duration of all tracks.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range p.Tracks {
		total += t.Duration
	}
	return total
}

// SameAs reports whether both playlists carry the same backend ID.
// A nil receiver or argument is never the same.
func (p *Playlist) SameAs(other *Playlist) bool {
	if p == nil || other == nil {
		return false
	}
	return p.ID == other.ID
}

// PlayableIn returns a copy of the playlist keeping only tracks playable in market.
// An empty market keeps every track.
func (p *Playlist) PlayableIn(market string) *Playlist {
	out := *p
	if market == "" {
		out.Tracks = append([]track.Track(nil), p.Tracks...)
		return &out
	}
	out.Tracks = make([]track.Track, 0, len(p.Tracks))
	for i := range p.Tracks {
		if p.Tracks[i].IsAvailableInMarket(market) {
			out.Tracks = append(out.Tracks, p.Tracks[i])
		}
	}
	return &out
}
