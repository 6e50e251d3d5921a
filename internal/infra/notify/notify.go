// Package notify provides desktop notifications via D-Bus.
package notify

import (
	"strings"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/app/notification"
	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/track"
)

// Urgency represents notification priority levels per freedesktop spec.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Notification contains data for a desktop notification.
type Notification struct {
	Title      string  // Summary text (required)
	Body       string  // Body text (optional)
	Icon       string  // Path, URL or icon name (optional)
	Timeout    int32   // ms, -1 = server default, 0 = never expire
	ReplacesID uint32  // 0 = new notification, >0 = replace existing
	Urgency    Urgency // Low, Normal, Critical
}

// Notifier sends desktop notifications.
type Notifier interface {
	// Notify sends a notification and returns its ID.
	// Returns 0 and nil error if notifications are unavailable.
	Notify(n Notification) (uint32, error)
	// Close closes a notification by ID.
	Close(id uint32) error
}

// TrackAnnouncer shows a notification whenever the queue moves to another
// track. It replaces its previous notification so only one is visible.
// It implements notification.Stream.
type TrackAnnouncer struct {
	notifier Notifier
	timeout  int32

	mu     sync.Mutex
	lastID uint32
	lastTr string
}

var _ notification.Stream = (*TrackAnnouncer)(nil)

// NewTrackAnnouncer creates a TrackAnnouncer. timeoutMs is passed to the
// notification server as is.
func NewTrackAnnouncer(notifier Notifier, timeoutMs int32) *TrackAnnouncer {
	return &TrackAnnouncer{notifier: notifier, timeout: timeoutMs}
}

// Send implements notification.Stream.
func (a *TrackAnnouncer) Send(n *notification.Notification) error {
	if n.Event.Type != playback.EventNextTrackChanged {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if n.Event.Track == nil {
		if a.lastID != 0 {
			if err := a.notifier.Close(a.lastID); err != nil {
				zlog.Debug().Msgf("notify: failed to close notification: %v", err)
			}
		}
		a.lastID = 0
		a.lastTr = ""
		return nil
	}

	// The same track starting over (repeat) is not announced again.
	if n.Event.Track.ID == a.lastTr {
		return nil
	}

	id, err := a.notifier.Notify(trackNotification(*n.Event.Track, a.lastID, a.timeout))
	if err != nil {
		return err
	}
	a.lastID = id
	a.lastTr = n.Event.Track.ID
	return nil
}

func trackNotification(t track.Track, replaces uint32, timeout int32) Notification {
	body := t.ArtistLine()
	if t.Album != "" {
		if body != "" {
			body += "\n"
		}
		body += t.Album
	}
	return Notification{
		Title:      strings.TrimSpace(t.Name),
		Body:       body,
		Icon:       t.AlbumArtURL,
		Timeout:    timeout,
		ReplacesID: replaces,
		Urgency:    UrgencyLow,
	}
}
