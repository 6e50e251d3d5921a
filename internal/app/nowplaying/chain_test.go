package nowplaying

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/track"
)

// Mock sink for testing
type mockSink struct {
	name     string
	mu       sync.Mutex
	calls    []string
	closeErr error
	panics   bool
	block    chan struct{}
}

func (m *mockSink) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockSink) Update(meta playback.Metadata) {
	if m.block != nil {
		<-m.block
	}
	if m.panics {
		panic("sink failure")
	}
	m.record("update:" + meta.Track.ID)
}

func (m *mockSink) Clear() {
	m.record("clear")
}

func (m *mockSink) SetPlaybackState(state playback.PlayState) {
	m.record("state:" + state.String())
}

func (m *mockSink) Name() string {
	return m.name
}

func (m *mockSink) Close() error {
	m.record("close")
	return m.closeErr
}

func (m *mockSink) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func TestChain_DeliversInOrder(t *testing.T) {
	a := &mockSink{name: "a"}
	b := &mockSink{name: "b"}
	c := NewChain(a, b)

	assert.Equal(t, []string{"a", "b"}, c.Sinks())

	c.Update(playback.Metadata{Track: track.Track{ID: "x"}})
	c.SetPlaybackState(playback.PlayStatePaused)
	c.Clear()
	require.NoError(t, c.Close())

	want := []string{"update:x", "state:" + playback.PlayStatePaused.String(), "clear", "close"}
	assert.Equal(t, want, a.recorded())
	assert.Equal(t, want, b.recorded())
}

func TestChain_PanickingSinkIsIsolated(t *testing.T) {
	bad := &mockSink{name: "bad", panics: true}
	good := &mockSink{name: "good"}
	c := NewChain(bad, good)

	c.Update(playback.Metadata{Track: track.Track{ID: "x"}})
	c.Update(playback.Metadata{Track: track.Track{ID: "y"}})
	require.NoError(t, c.Close())

	assert.Equal(t, []string{"update:x", "update:y", "close"}, good.recorded())
}

func TestChain_DoesNotBlockCaller(t *testing.T) {
	slow := &mockSink{name: "slow", block: make(chan struct{})}
	c := NewChain(slow)

	done := make(chan struct{})
	go func() {
		for i := 0; i < queueSize*2; i++ {
			c.Update(playback.Metadata{Track: track.Track{ID: "x"}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Update blocked on a slow sink")
	}

	close(slow.block)
	require.NoError(t, c.Close())
	// One update was in flight and the queue held the rest; the overflow was dropped.
	assert.LessOrEqual(t, len(slow.recorded()), queueSize+2)
}

func TestChain_CloseCombinesErrors(t *testing.T) {
	a := &mockSink{name: "a", closeErr: errors.New("a failed")}
	b := &mockSink{name: "b", closeErr: errors.New("b failed")}
	c := NewChain(a, b)

	err := c.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to close sink a")

	// Second close is a no-op, and updates after close are ignored
	assert.NoError(t, c.Close())
	c.Update(playback.Metadata{})
	assert.Equal(t, []string{"close"}, a.recorded())
}
