package playback

import (
	"github.com/cockroachdb/errors"
)

// Error kinds returned by the controller. Backend failures are marked with
// ErrBackendUnreachable or ErrInvalidSession so callers can use errors.Is.
var (
	ErrBackendUnreachable = errors.New("backend unreachable")
	ErrInvalidSession     = errors.New("backend session invalid")
	ErrTrackNotInQueue    = errors.New("track not found in queue")
	ErrQueueEmpty         = errors.New("queue is empty")
	ErrNoTrack            = errors.New("no track selected")
	ErrNoPlaylist         = errors.New("no playlist selected")
)

// classifyBackendError wraps a backend failure and marks it with its kind.
// Errors already carrying a kind keep it; anything else is treated as
// unreachable, except when the session was known to be invalid.
func classifyBackendError(err error, op string, sessionValid bool) error {
	if err == nil {
		return nil
	}
	wrapped := errors.Wrapf(err, "backend %s failed", op)
	switch {
	case errors.Is(err, ErrInvalidSession):
		return wrapped
	case errors.Is(err, ErrBackendUnreachable):
		return wrapped
	case !sessionValid:
		return errors.Mark(wrapped, ErrInvalidSession)
	default:
		return errors.Mark(wrapped, ErrBackendUnreachable)
	}
}
