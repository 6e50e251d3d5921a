// Package nowplaying fans now-playing updates from the playback controller out
// to configured sinks (log, MPRIS, Last.fm).
package nowplaying

import (
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/app/playback"
)

const queueSize = 64

// Sink is the interface for now-playing sinks.
// Calls are made from a single goroutine owned by the Chain, so a sink may
// block on I/O without stalling playback.
type Sink interface {
	Update(meta playback.Metadata)
	Clear()
	SetPlaybackState(state playback.PlayState)

	// Name returns the sink name (used in config).
	Name() string
	Close() error
}

type opKind int

const (
	opUpdate opKind = iota
	opClear
	opState
)

type op struct {
	kind  opKind
	meta  playback.Metadata
	state playback.PlayState
}

// Chain delivers updates to every sink in order. It implements
// playback.NowPlaying: calls only enqueue and never block; when the queue is
// full the update is dropped.
type Chain struct {
	sinks []Sink

	mu     sync.RWMutex
	closed bool
	ops    chan op
	done   chan struct{}
}

var _ playback.NowPlaying = (*Chain)(nil)

// NewChain creates a chain and starts its delivery goroutine.
func NewChain(sinks ...Sink) *Chain {
	c := &Chain{
		sinks: sinks,
		ops:   make(chan op, queueSize),
		done:  make(chan struct{}),
	}
	go c.run()
	return c
}

// Sinks returns the sink names in delivery order.
func (c *Chain) Sinks() []string {
	names := make([]string, len(c.sinks))
	for i, s := range c.sinks {
		names[i] = s.Name()
	}
	return names
}

// Update implements playback.NowPlaying.
func (c *Chain) Update(meta playback.Metadata) {
	c.enqueue(op{kind: opUpdate, meta: meta})
}

// Clear implements playback.NowPlaying.
func (c *Chain) Clear() {
	c.enqueue(op{kind: opClear})
}

// SetPlaybackState implements playback.NowPlaying.
func (c *Chain) SetPlaybackState(state playback.PlayState) {
	c.enqueue(op{kind: opState, state: state})
}

// Close delivers queued updates, then closes every sink.
func (c *Chain) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.ops)
	c.mu.Unlock()

	<-c.done

	var errs error
	for _, s := range c.sinks {
		if err := s.Close(); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "failed to close sink %s", s.Name()))
		}
	}
	return errs
}

func (c *Chain) enqueue(o op) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return
	}
	select {
	case c.ops <- o:
	default:
		zlog.Debug().Msg("nowplaying: queue full, dropping update")
	}
}

func (c *Chain) run() {
	defer close(c.done)

	for o := range c.ops {
		for _, s := range c.sinks {
			deliver(s, o)
		}
	}
}

// deliver calls one sink and keeps a panicking sink from taking the chain down.
func deliver(s Sink, o op) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("nowplaying: sink %s panicked: %v", s.Name(), r)
		}
	}()

	switch o.kind {
	case opUpdate:
		s.Update(o.meta)
	case opClear:
		s.Clear()
	case opState:
		s.SetPlaybackState(o.state)
	}
}
