package player

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tracklist/internal/app/notification"
	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/playlist"
	"github.com/osa030/tracklist/internal/domain/track"
)

// stripANSI removes ANSI escape codes from a string for easier testing.
func stripANSI(s string) string {
	re := regexp.MustCompile(`\x1b\[[0-9;]*m`)
	return re.ReplaceAllString(s, "")
}

// Mock controller for testing
type mockController struct {
	status     playback.Status
	calls      []string
	transition playback.Transition
	err        error
	seekedTo   time.Duration
	played     []string
}

func (m *mockController) PlayPlaylist(_ context.Context, p *playlist.Playlist, index int) error {
	m.calls = append(m.calls, "play_playlist")
	m.played = append(m.played, p.Tracks[index].ID)
	return m.err
}

func (m *mockController) PlayTrack(_ context.Context, t track.Track) error {
	m.calls = append(m.calls, "play_track")
	m.played = append(m.played, t.ID)
	return m.err
}

func (m *mockController) PlayNextTrack(context.Context) (playback.Transition, error) {
	m.calls = append(m.calls, "next")
	return m.transition, m.err
}

func (m *mockController) PlayPreviousTrack(context.Context) (playback.Transition, error) {
	m.calls = append(m.calls, "previous")
	return m.transition, m.err
}

func (m *mockController) TogglePlayPause(context.Context) error {
	m.calls = append(m.calls, "toggle")
	return m.err
}

func (m *mockController) Seek(_ context.Context, position time.Duration) error {
	m.calls = append(m.calls, "seek")
	m.seekedTo = position
	return m.err
}

func (m *mockController) SetRepeat(_ context.Context, on bool) error {
	m.calls = append(m.calls, "repeat")
	m.status.Repeat = on
	return m.err
}

func (m *mockController) SetShuffle(on bool) error {
	m.calls = append(m.calls, "shuffle")
	m.status.Shuffle = on
	return m.err
}

func (m *mockController) Status() playback.Status {
	return m.status
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
	got  chan struct{}
}

func newRecordingSender() *recordingSender {
	return &recordingSender{got: make(chan struct{}, 16)}
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *recordingSender) wait(t *testing.T) tea.Msg {
	t.Helper()
	select {
	case <-r.got:
	case <-time.After(time.Second):
		t.Fatal("no message sent")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.msgs[len(r.msgs)-1]
}

func testTracklist() []track.Track {
	return []track.Track{
		{ID: "a", Name: "First Song", Artists: []string{"Band"}, Album: "Album", Duration: 3*time.Minute + 5*time.Second},
		{ID: "b", Name: "Second Song", Artists: []string{"Band"}, Album: "Album", Duration: 4 * time.Minute},
		{ID: "c", Name: "Third Song", Artists: []string{"Other"}, Album: "Single", Duration: 2 * time.Minute},
	}
}

func playingStatus() playback.Status {
	tracks := testTracklist()
	return playback.Status{
		PlaylistID:   "pl",
		PlaylistName: "Road Trip",
		Track:        &tracks[1],
		Index:        1,
		Tracklist:    tracks,
		Elapsed:      time.Minute,
		PlayState:    playback.PlayStatePlaying,
	}
}

func newTestModel(ctrl *mockController) Model {
	m := New(ctrl, NewPresenter(), nil, 0)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model)
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs the resulting command like the program would.
func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	updated, cmd := m.Update(key(k))
	m = updated.(Model)
	if cmd != nil {
		updated, _ = m.Update(cmd())
		m = updated.(Model)
	}
	return m
}

func TestModel_Init(t *testing.T) {
	ctrl := &mockController{}
	assert.Nil(t, New(ctrl, NewPresenter(), nil, 0).Init())

	pl := &playlist.Playlist{ID: "pl", Tracks: testTracklist()}
	cmd := New(ctrl, NewPresenter(), pl, 2).Init()
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []string{"c"}, ctrl.played)
}

func TestModel_ControlKeys(t *testing.T) {
	tests := []struct {
		key  string
		call string
	}{
		{key: " ", call: "toggle"},
		{key: "n", call: "next"},
		{key: "p", call: "previous"},
		{key: "r", call: "repeat"},
		{key: "s", call: "shuffle"},
		{key: "left", call: "seek"},
	}

	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			ctrl := &mockController{status: playingStatus()}
			press(t, newTestModel(ctrl), tt.key)
			assert.Equal(t, []string{tt.call}, ctrl.calls)
		})
	}
}

func TestModel_ToggleModes(t *testing.T) {
	ctrl := &mockController{status: playingStatus()}
	m := newTestModel(ctrl)

	m = press(t, m, "r")
	assert.True(t, m.status.Repeat)
	m = press(t, m, "r")
	assert.False(t, m.status.Repeat)

	m = press(t, m, "s")
	assert.True(t, m.status.Shuffle)
}

func TestModel_Seek(t *testing.T) {
	ctrl := &mockController{status: playingStatus()}
	m := newTestModel(ctrl)

	press(t, m, "right")
	assert.Equal(t, time.Minute+seekStep, ctrl.seekedTo)

	ctrl.status.Elapsed = 3 * time.Second
	m = press(t, m, "right") // refreshes status
	press(t, m, "left")
	assert.Zero(t, ctrl.seekedTo, "seek target is clamped at zero")
}

func TestModel_SeekWithoutTrack(t *testing.T) {
	ctrl := &mockController{}
	press(t, newTestModel(ctrl), "right")
	assert.Empty(t, ctrl.calls)
}

func TestModel_BoundaryNotice(t *testing.T) {
	ctrl := &mockController{status: playingStatus(), transition: playback.Transition{Kind: playback.StepBoundary}}
	m := press(t, newTestModel(ctrl), "n")

	assert.Equal(t, "already at the last track", m.notice)
	assert.Contains(t, stripANSI(m.View()), "already at the last track")
}

func TestModel_ErrorShown(t *testing.T) {
	ctrl := &mockController{status: playingStatus(), err: errors.New("backend unreachable")}
	m := press(t, newTestModel(ctrl), " ")

	assert.Contains(t, stripANSI(m.View()), "backend unreachable")

	ctrl.err = nil
	m = press(t, m, " ")
	assert.NotContains(t, stripANSI(m.View()), "backend unreachable")
}

func TestModel_TracklistSelection(t *testing.T) {
	ctrl := &mockController{status: playingStatus()}
	m := newTestModel(ctrl)
	m, _ = updateModel(m, eventMsg{event: playback.Event{Type: playback.EventNextTrackChanged}})
	assert.Equal(t, 1, m.cursor)

	m = press(t, m, "down")
	m = press(t, m, "down") // stays on the last row
	assert.Equal(t, 2, m.cursor)

	press(t, m, "enter")
	assert.Equal(t, []string{"c"}, ctrl.played)
}

func TestModel_ViewSwitching(t *testing.T) {
	ctrl := &mockController{status: playingStatus()}
	presenter := NewPresenter()
	m := New(ctrl, presenter, nil, 0)

	assert.Equal(t, ViewTracklist, m.view)
	assert.False(t, presenter.IsPlayerViewPresented())

	m, _ = updateModel(m, showPlayerMsg{})
	assert.Equal(t, ViewPlayer, m.view)

	m = press(t, m, "tab")
	assert.Equal(t, ViewTracklist, m.view)
	assert.False(t, presenter.IsPlayerViewPresented())

	m = press(t, m, "tab")
	assert.Equal(t, ViewPlayer, m.view)
	assert.True(t, presenter.IsPlayerViewPresented())
}

func TestModel_PlayerView(t *testing.T) {
	ctrl := &mockController{status: playingStatus()}
	m := newTestModel(ctrl)
	m, _ = updateModel(m, showPlayerMsg{})
	m, _ = updateModel(m, buttonMsg{paused: false})

	out := stripANSI(m.View())
	assert.Contains(t, out, "Second Song")
	assert.Contains(t, out, "Band")
	assert.Contains(t, out, "▶  1:00")
	assert.Contains(t, out, "4:00")
	assert.Contains(t, out, "repeat: off")
	assert.Contains(t, out, "Road Trip · 2/3")

	m, _ = updateModel(m, buttonMsg{paused: true})
	assert.Contains(t, stripANSI(m.View()), "⏸  1:00")
}

func TestModel_TracklistView(t *testing.T) {
	ctrl := &mockController{status: playingStatus()}
	out := stripANSI(newTestModel(ctrl).View())

	assert.Contains(t, out, "Road Trip")
	assert.Contains(t, out, "First Song - Band")
	assert.Contains(t, out, "3:05")
	assert.Contains(t, out, "Third Song - Other")
}

func TestModel_Quit(t *testing.T) {
	_, cmd := newTestModel(&mockController{}).Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func updateModel(m Model, msg tea.Msg) (Model, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func TestPresenter(t *testing.T) {
	p := NewPresenter()

	// Without a program messages are dropped
	p.ShowPlayerView()
	p.SetPausePlayButtonState(true)
	require.NoError(t, p.Send(&notification.Notification{}))

	sender := newRecordingSender()
	p.Attach(sender)

	p.SetPausePlayButtonState(true)
	assert.Equal(t, buttonMsg{paused: true}, sender.wait(t))

	p.ShowPlayerView()
	assert.Equal(t, showPlayerMsg{}, sender.wait(t))
	assert.True(t, p.IsPlayerViewPresented())

	require.NoError(t, p.Send(&notification.Notification{Event: playback.Event{Type: playback.EventModeChanged}}))
	assert.Equal(t, eventMsg{event: playback.Event{Type: playback.EventModeChanged}}, sender.wait(t))
}

func TestPresenter_ControlMessagesKeepOrder(t *testing.T) {
	for i := 0; i < 50; i++ {
		p := NewPresenter()
		sender := newRecordingSender()
		p.Attach(sender)

		p.SetPausePlayButtonState(false)
		p.SetPausePlayButtonState(true)
		assert.Equal(t, buttonMsg{paused: false}, sender.wait(t))
		assert.Equal(t, buttonMsg{paused: true}, sender.wait(t))
		p.Close()
	}
}

func TestPresenter_CloseDropsLaterMessages(t *testing.T) {
	p := NewPresenter()
	sender := newRecordingSender()
	p.Attach(sender)

	p.ShowPlayerView()
	p.Close()
	p.Close()
	p.SetPausePlayButtonState(true)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Equal(t, []tea.Msg{showPlayerMsg{}}, sender.msgs)
}

func TestTransitionNotice(t *testing.T) {
	assert.Equal(t, "", transitionNotice(playback.Transition{Kind: playback.StepAdvance}, "last"))
	assert.Equal(t, "already at the first track", transitionNotice(playback.Transition{Kind: playback.StepBoundary}, "first"))
	assert.Equal(t, "track not found in queue, starting over", transitionNotice(playback.Transition{Kind: playback.StepRecover}, "last"))
}

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		name     string
		position time.Duration
		duration time.Duration
		width    int
		playing  bool
		want     string
	}{
		{name: "half", position: time.Minute, duration: 2 * time.Minute, width: 23, playing: true, want: "▶  1:00  ▓▓▓▓░░░░  2:00"},
		{name: "paused start", position: 0, duration: 2 * time.Minute, width: 23, playing: false, want: "⏸  0:00  ░░░░░░░░  2:00"},
		{name: "unknown duration", position: time.Minute, duration: 0, width: 23, playing: true, want: "▶  1:00  ░░░░░░░░  0:00"},
		{name: "past the end", position: 3 * time.Minute, duration: 2 * time.Minute, width: 23, playing: true, want: "▶  3:00  ▓▓▓▓▓▓▓▓  2:00"},
		{name: "too narrow", position: time.Minute, duration: 2 * time.Minute, width: 10, playing: true, want: "▶  1:00 / 2:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderProgressBar(tt.position, tt.duration, tt.width, tt.playing))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00", formatDuration(0))
	assert.Equal(t, "0:00", formatDuration(-time.Second))
	assert.Equal(t, "3:05", formatDuration(3*time.Minute+5*time.Second))
	assert.Equal(t, "61:01", formatDuration(61*time.Minute+time.Second))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "long…", truncate("long title", 5))
	assert.Empty(t, truncate("anything", 0))
}
