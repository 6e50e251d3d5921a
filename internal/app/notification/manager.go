// Package notification broadcasts playback events to subscribers (RPC watch
// streams, desktop notifications, the terminal UI).
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/app/playback"
)

const defaultSendTimeout = 500 * time.Millisecond

// Notification is a sequenced playback event.
type Notification struct {
	SequenceNo uint64
	Event      playback.Event
	Time       time.Time
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// StreamFunc adapts a function to Stream.
type StreamFunc func(*Notification) error

// Send implements Stream.
func (f StreamFunc) Send(n *Notification) error {
	return f(n)
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
	filter map[playback.EventType]bool // nil accepts every event
}

func (s *subscription) accepts(t playback.EventType) bool {
	return s.filter == nil || s.filter[t]
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	sendTimeout   time.Duration
	now           func() time.Time
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   defaultSendTimeout,
		now:           time.Now,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
// When types are given, only those event types are delivered.
func (m *Manager) Subscribe(stream Stream, types ...playback.EventType) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub := &subscription{
		id:     uuid.New().String(),
		stream: stream,
	}
	if len(types) > 0 {
		sub.filter = make(map[playback.EventType]bool, len(types))
		for _, t := range types {
			sub.filter[t] = true
		}
	}
	m.subscriptions[sub.id] = sub
	return sub.id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Broadcast sequences an event and sends it to all subscribers.
// Each stream send runs in a goroutine with a timeout so a slow subscriber
// cannot hold up the others.
func (m *Manager) Broadcast(event playback.Event) *Notification {
	m.sequenceNoMu.Lock()
	m.sequenceNo++
	n := &Notification{SequenceNo: m.sequenceNo, Event: event, Time: m.now()}
	m.sequenceNoMu.Unlock()

	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		if sub.accepts(event.Type) {
			subs = append(subs, sub)
		}
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(n)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("notification: send to %s failed: %v", s.id, err)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("notification: send to %s timed out", s.id)
			}
		}(sub)
	}

	wg.Wait()
	return n
}

// Pump broadcasts events until the channel is closed or ctx is done.
func (m *Manager) Pump(ctx context.Context, events <-chan playback.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			m.Broadcast(e)
		}
	}
}

// LastSequenceNo returns the sequence number of the last broadcast.
func (m *Manager) LastSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	return m.sequenceNo
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
