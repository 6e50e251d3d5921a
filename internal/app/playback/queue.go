package playback

import (
	"math/rand"

	"github.com/osa030/tracklist/internal/domain/playlist"
	"github.com/osa030/tracklist/internal/domain/track"
)

// StepKind describes the outcome of moving through the tracklist.
type StepKind int

const (
	StepAdvance  StepKind = iota // Moved to the neighbouring track
	StepRecover                  // Current track was not in the tracklist; fell back to the first
	StepBoundary                 // Already at the first/last track
	StepEmpty                    // Current track missing and tracklist empty
)

// String returns the string representation of the step kind.
func (k StepKind) String() string {
	switch k {
	case StepAdvance:
		return "advance"
	case StepRecover:
		return "recover"
	case StepBoundary:
		return "boundary"
	case StepEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Step is the result of Queue.Next or Queue.Previous.
// Track is set for StepAdvance and StepRecover.
type Step struct {
	Kind  StepKind
	Track track.Track
}

// Queue holds the playlist, the derived tracklist and the current track
// together with the repeat and shuffle flags. It is not safe for concurrent use.
type Queue struct {
	playlist  *playlist.Playlist
	tracklist []track.Track
	current   *track.Track
	repeat    bool
	shuffle   bool
	rng       *rand.Rand
}

// NewQueue creates an empty queue using rng for shuffling.
func NewQueue(rng *rand.Rand) *Queue {
	return &Queue{
		tracklist: make([]track.Track, 0),
		rng:       rng,
	}
}

// SetPlaylist replaces the playlist. A playlist with a different ID clears the
// repeat and shuffle flags; the same ID keeps them. The tracklist is derived
// again from the new playlist, shuffled when shuffle remains enabled.
// It reports whether the flags were cleared.
func (q *Queue) SetPlaylist(p *playlist.Playlist) bool {
	cleared := false
	if q.playlist != nil && !q.playlist.SameAs(p) {
		cleared = q.repeat || q.shuffle
		q.repeat = false
		q.shuffle = false
	}
	q.playlist = p
	q.derive()
	return cleared
}

// Playlist returns the current playlist, or nil.
func (q *Queue) Playlist() *playlist.Playlist {
	return q.playlist
}

// SetShuffle enables or disables shuffle and derives the tracklist again.
// Playback is not affected: the current track stays current.
func (q *Queue) SetShuffle(on bool) {
	q.shuffle = on
	q.derive()
}

// Shuffle reports whether shuffle is enabled.
func (q *Queue) Shuffle() bool {
	return q.shuffle
}

// SetRepeat sets the repeat flag.
func (q *Queue) SetRepeat(on bool) {
	q.repeat = on
}

// Repeat reports whether repeat is enabled.
func (q *Queue) Repeat() bool {
	return q.repeat
}

// SetCurrent sets the current track.
func (q *Queue) SetCurrent(t track.Track) {
	q.current = &t
}

// ClearCurrent drops the current track.
func (q *Queue) ClearCurrent() {
	q.current = nil
}

// Current returns the current track.
func (q *Queue) Current() (track.Track, bool) {
	if q.current == nil {
		return track.Track{}, false
	}
	return *q.current, true
}

// Index returns the position of the current track in the tracklist, or -1.
func (q *Queue) Index() int {
	if q.current == nil {
		return -1
	}
	return track.IndexOf(q.tracklist, *q.current)
}

// Tracklist returns a copy of the effective play order.
func (q *Queue) Tracklist() []track.Track {
	out := make([]track.Track, len(q.tracklist))
	copy(out, q.tracklist)
	return out
}

// Next selects the track after the current one without changing the queue.
func (q *Queue) Next() Step {
	return q.step(+1)
}

// Previous selects the track before the current one without changing the queue.
func (q *Queue) Previous() Step {
	return q.step(-1)
}

func (q *Queue) step(dir int) Step {
	idx := q.Index()
	if idx < 0 {
		if len(q.tracklist) == 0 {
			return Step{Kind: StepEmpty}
		}
		return Step{Kind: StepRecover, Track: q.tracklist[0]}
	}

	target := idx + dir
	if target < 0 || target >= len(q.tracklist) {
		return Step{Kind: StepBoundary}
	}
	return Step{Kind: StepAdvance, Track: q.tracklist[target]}
}

// derive rebuilds the tracklist from the playlist and the shuffle flag.
func (q *Queue) derive() {
	if q.playlist == nil {
		q.tracklist = make([]track.Track, 0)
		return
	}
	if !q.shuffle {
		q.tracklist = make([]track.Track, len(q.playlist.Tracks))
		copy(q.tracklist, q.playlist.Tracks)
		return
	}
	q.tracklist = shuffled(q.playlist.Tracks, q.current, q.rng)
}

// shuffled returns a random permutation of tracks. When current is one of the
// tracks, that occurrence is moved to the front.
func shuffled(tracks []track.Track, current *track.Track, rng *rand.Rand) []track.Track {
	rest := make([]track.Track, 0, len(tracks))
	var head *track.Track
	for i := range tracks {
		if head == nil && current != nil && tracks[i].Equal(*current) {
			t := tracks[i]
			head = &t
			continue
		}
		rest = append(rest, tracks[i])
	}

	rng.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})

	if head == nil {
		return rest
	}
	return append([]track.Track{*head}, rest...)
}
