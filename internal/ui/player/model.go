// Package player implements the terminal UI: a tracklist view and a player
// view with progress, driven by the playback controller.
package player

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/playlist"
	"github.com/osa030/tracklist/internal/domain/track"
)

const (
	seekStep       = 10 * time.Second
	commandTimeout = 15 * time.Second
)

// Controller is the playback surface used by the UI.
type Controller interface {
	PlayPlaylist(ctx context.Context, p *playlist.Playlist, index int) error
	PlayTrack(ctx context.Context, t track.Track) error
	PlayNextTrack(ctx context.Context) (playback.Transition, error)
	PlayPreviousTrack(ctx context.Context) (playback.Transition, error)
	TogglePlayPause(ctx context.Context) error
	Seek(ctx context.Context, position time.Duration) error
	SetRepeat(ctx context.Context, on bool) error
	SetShuffle(on bool) error
	Status() playback.Status
}

// View identifies the screen shown.
type View int

const (
	ViewTracklist View = iota
	ViewPlayer
)

// Messages
type (
	showPlayerMsg struct{}
	buttonMsg     struct{ paused bool }
	eventMsg      struct{ event playback.Event }
	resultMsg     struct {
		err    error
		notice string
	}
)

// Model is the bubbletea model.
type Model struct {
	ctrl      Controller
	presenter *Presenter
	playlist  *playlist.Playlist
	start     int

	status playback.Status
	paused bool
	view   View
	cursor int
	width  int
	height int
	notice string
	err    error
}

// New creates a model that starts pl at index start. pl may be nil when
// playback is started elsewhere.
func New(ctrl Controller, presenter *Presenter, pl *playlist.Playlist, start int) Model {
	return Model{
		ctrl:      ctrl,
		presenter: presenter,
		playlist:  pl,
		start:     start,
		status:    ctrl.Status(),
		paused:    true,
		width:     80,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.playlist == nil {
		return nil
	}
	pl, start := m.playlist, m.start
	return m.run(func(ctx context.Context) (string, error) {
		return "", m.ctrl.PlayPlaylist(ctx, pl, start)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case showPlayerMsg:
		m.view = ViewPlayer
		return m, nil

	case buttonMsg:
		m.paused = msg.paused
		return m, nil

	case eventMsg:
		m.status = m.ctrl.Status()
		if msg.event.Type == playback.EventNextTrackChanged || msg.event.Type == playback.EventPlaylistChanged {
			m.cursor = max(m.status.Index, 0)
		}
		return m, nil

	case resultMsg:
		m.err = msg.err
		m.notice = msg.notice
		m.status = m.ctrl.Status()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.setView(1 - m.view)
		return m, nil
	case " ":
		return m, m.run(func(ctx context.Context) (string, error) {
			return "", m.ctrl.TogglePlayPause(ctx)
		})
	case "n":
		return m, m.run(func(ctx context.Context) (string, error) {
			tr, err := m.ctrl.PlayNextTrack(ctx)
			return transitionNotice(tr, "last"), err
		})
	case "p":
		return m, m.run(func(ctx context.Context) (string, error) {
			tr, err := m.ctrl.PlayPreviousTrack(ctx)
			return transitionNotice(tr, "first"), err
		})
	case "r":
		on := !m.status.Repeat
		return m, m.run(func(ctx context.Context) (string, error) {
			return "", m.ctrl.SetRepeat(ctx, on)
		})
	case "s":
		on := !m.status.Shuffle
		return m, m.run(func(context.Context) (string, error) {
			return "", m.ctrl.SetShuffle(on)
		})
	case "left", "h":
		return m, m.seek(-seekStep)
	case "right", "l":
		return m, m.seek(seekStep)
	}

	if m.view == ViewTracklist {
		return m.handleTracklistKey(msg)
	}
	return m, nil
}

func (m Model) handleTracklistKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.status.Tracklist)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor >= len(m.status.Tracklist) {
			return m, nil
		}
		t := m.status.Tracklist[m.cursor]
		return m, m.run(func(ctx context.Context) (string, error) {
			return "", m.ctrl.PlayTrack(ctx, t)
		})
	}
	return m, nil
}

func (m *Model) setView(v View) {
	m.view = v
	m.presenter.setPresented(v == ViewPlayer)
}

func (m Model) seek(delta time.Duration) tea.Cmd {
	if m.status.Track == nil {
		return nil
	}
	target := max(m.status.Elapsed+delta, 0)
	return m.run(func(ctx context.Context) (string, error) {
		return "", m.ctrl.Seek(ctx, target)
	})
}

// run executes fn off the UI goroutine; the controller may call back into the
// presenter while it runs.
func (m Model) run(fn func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		notice, err := fn(ctx)
		return resultMsg{err: err, notice: notice}
	}
}

func transitionNotice(tr playback.Transition, edge string) string {
	switch tr.Kind {
	case playback.StepBoundary:
		return "already at the " + edge + " track"
	case playback.StepRecover:
		return tr.Reason().Error() + ", starting over"
	}
	return ""
}
