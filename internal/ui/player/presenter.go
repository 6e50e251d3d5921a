package player

import (
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/app/notification"
	"github.com/osa030/tracklist/internal/app/playback"
)

const controlQueueSize = 32

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Presenter bridges the playback controller to the terminal UI.
// The controller calls it while serializing operations, and the program may
// be waiting on the controller at the same time, so control messages are
// queued and delivered in order by a single goroutine.
type Presenter struct {
	mu        sync.RWMutex
	program   Sender
	closed    bool
	presented atomic.Bool

	controls chan tea.Msg
	done     chan struct{}
}

var (
	_ playback.Presenter  = (*Presenter)(nil)
	_ notification.Stream = (*Presenter)(nil)
)

// NewPresenter creates a presenter and starts its delivery goroutine.
// Messages are dropped until Attach is called.
func NewPresenter() *Presenter {
	p := &Presenter{
		controls: make(chan tea.Msg, controlQueueSize),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// Attach sets the program that receives UI messages.
func (p *Presenter) Attach(program Sender) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.program = program
}

// Close delivers queued control messages and stops the delivery goroutine.
func (p *Presenter) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.controls)
	p.mu.Unlock()

	<-p.done
}

// IsPlayerViewPresented implements playback.Presenter.
func (p *Presenter) IsPlayerViewPresented() bool {
	return p.presented.Load()
}

// ShowPlayerView implements playback.Presenter.
func (p *Presenter) ShowPlayerView() {
	p.presented.Store(true)
	p.enqueue(showPlayerMsg{})
}

// SetPausePlayButtonState implements playback.Presenter.
func (p *Presenter) SetPausePlayButtonState(paused bool) {
	p.enqueue(buttonMsg{paused: paused})
}

// Send implements notification.Stream. Events are delivered in order; the
// notification manager bounds how long this may block.
func (p *Presenter) Send(n *notification.Notification) error {
	if prog := p.getProgram(); prog != nil {
		prog.Send(eventMsg{event: n.Event})
	}
	return nil
}

func (p *Presenter) setPresented(v bool) {
	p.presented.Store(v)
}

func (p *Presenter) getProgram() Sender {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.program
}

func (p *Presenter) enqueue(msg tea.Msg) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || p.program == nil {
		return
	}
	select {
	case p.controls <- msg:
	default:
		zlog.Debug().Msg("player: control queue full, dropping message")
	}
}

func (p *Presenter) run() {
	defer close(p.done)

	for msg := range p.controls {
		if prog := p.getProgram(); prog != nil {
			prog.Send(msg)
		}
	}
}
