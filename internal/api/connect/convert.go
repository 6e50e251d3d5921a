package connect

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/tracklist/internal/app/notification"
	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/track"
)

// TypeInitialState is the type of the first Watch message.
const TypeInitialState = "initial_state"

func trackFields(t *track.Track) map[string]any {
	artists := make([]any, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a
	}
	return map[string]any{
		"id":          t.ID,
		"uri":         t.PlaybackURI(),
		"name":        t.Name,
		"artists":     artists,
		"album":       t.Album,
		"duration_ms": t.Duration.Milliseconds(),
		"url":         t.URL,
	}
}

func statusFields(st playback.Status) map[string]any {
	fields := map[string]any{
		"playlist_id":      st.PlaylistID,
		"playlist_name":    st.PlaylistName,
		"index":            st.Index,
		"tracklist_length": len(st.Tracklist),
		"elapsed_ms":       st.Elapsed.Milliseconds(),
		"repeat":           st.Repeat,
		"shuffle":          st.Shuffle,
		"state":            st.PlayState.String(),
		"timer_active":     st.TimerActive,
	}
	if st.Track != nil {
		fields["track"] = trackFields(st.Track)
	}
	return fields
}

// statusToStruct converts a controller snapshot to its wire form.
func statusToStruct(st playback.Status) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(statusFields(st))
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode status")
	}
	return s, nil
}

// notificationToStruct converts a broadcast event to its wire form.
func notificationToStruct(n *notification.Notification) (*structpb.Struct, error) {
	fields := map[string]any{
		"sequence_no": n.SequenceNo,
		"type":        n.Event.Type.String(),
		"time":        n.Time.Format(time.RFC3339),
		"state":       n.Event.State.String(),
		"elapsed_ms":  n.Event.Elapsed.Milliseconds(),
	}
	if n.Event.Track != nil {
		fields["track"] = trackFields(n.Event.Track)
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode notification")
	}
	return s, nil
}

// initialStateToStruct builds the first Watch message.
func initialStateToStruct(seq uint64, st playback.Status) (*structpb.Struct, error) {
	fields := map[string]any{
		"sequence_no": seq,
		"type":        TypeInitialState,
		"status":      statusFields(st),
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode initial state")
	}
	return s, nil
}

// toConnectError maps controller errors to RPC codes.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}
	switch {
	case errors.Is(err, playback.ErrNoTrack),
		errors.Is(err, playback.ErrNoPlaylist),
		errors.Is(err, playback.ErrQueueEmpty):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, playback.ErrInvalidSession):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, playback.ErrBackendUnreachable):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, errInvalidArgument):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
