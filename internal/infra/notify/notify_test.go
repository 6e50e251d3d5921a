package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tracklist/internal/app/notification"
	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/track"
)

type mockNotifier struct {
	sent   []Notification
	closed []uint32
	nextID uint32
	err    error
}

func (m *mockNotifier) Notify(n Notification) (uint32, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.sent = append(m.sent, n)
	m.nextID++
	return m.nextID, nil
}

func (m *mockNotifier) Close(id uint32) error {
	m.closed = append(m.closed, id)
	return nil
}

func trackEvent(tr *track.Track) *notification.Notification {
	return &notification.Notification{Event: playback.Event{Type: playback.EventNextTrackChanged, Track: tr}}
}

func TestTrackAnnouncer(t *testing.T) {
	n := &mockNotifier{}
	a := NewTrackAnnouncer(n, 5000)

	first := &track.Track{ID: "a", Name: "First", Artists: []string{"Band", "Guest"}, Album: "Album", AlbumArtURL: "https://i.scdn.co/a"}
	second := &track.Track{ID: "b", Name: "Second", Duration: time.Minute}

	require.NoError(t, a.Send(trackEvent(first)))
	require.Len(t, n.sent, 1)
	assert.Equal(t, Notification{
		Title:   "First",
		Body:    "Band, Guest\nAlbum",
		Icon:    "https://i.scdn.co/a",
		Timeout: 5000,
		Urgency: UrgencyLow,
	}, n.sent[0])

	// Repeat of the same track is not announced
	require.NoError(t, a.Send(trackEvent(first)))
	assert.Len(t, n.sent, 1)

	require.NoError(t, a.Send(trackEvent(second)))
	require.Len(t, n.sent, 2)
	assert.Equal(t, uint32(1), n.sent[1].ReplacesID)
	assert.Empty(t, n.sent[1].Body)

	// Stop closes the notification
	require.NoError(t, a.Send(trackEvent(nil)))
	assert.Equal(t, []uint32{2}, n.closed)
}

func TestTrackAnnouncer_IgnoresOtherEvents(t *testing.T) {
	n := &mockNotifier{}
	a := NewTrackAnnouncer(n, -1)

	err := a.Send(&notification.Notification{Event: playback.Event{
		Type:  playback.EventTimeUpdated,
		Track: &track.Track{ID: "a", Name: "A"},
	}})
	require.NoError(t, err)
	assert.Empty(t, n.sent)
}

func TestTrackAnnouncer_NotifyError(t *testing.T) {
	n := &mockNotifier{err: errors.New("no notification daemon")}
	a := NewTrackAnnouncer(n, -1)

	err := a.Send(trackEvent(&track.Track{ID: "a", Name: "A"}))
	assert.Error(t, err)

	// Failed announcement is retried for the same track
	n.err = nil
	require.NoError(t, a.Send(trackEvent(&track.Track{ID: "a", Name: "A"})))
	assert.Len(t, n.sent, 1)
}
