package connect

import (
	"context"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/osa030/tracklist/internal/app/notification"
	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/playlist"
	"github.com/osa030/tracklist/internal/domain/track"
)

var errInvalidArgument = errors.New("invalid argument")

// Controller is the playback surface exposed over RPC.
type Controller interface {
	PlayPlaylist(ctx context.Context, p *playlist.Playlist, index int) error
	PlayTrack(ctx context.Context, t track.Track) error
	PlayNextTrack(ctx context.Context) (playback.Transition, error)
	PlayPreviousTrack(ctx context.Context) (playback.Transition, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	TogglePlayPause(ctx context.Context) error
	Stop(ctx context.Context) error
	Seek(ctx context.Context, position time.Duration) error
	SetRepeat(ctx context.Context, on bool) error
	SetShuffle(on bool) error
	Status() playback.Status
}

// Catalog resolves playlist and track URLs.
type Catalog interface {
	GetPlaylist(ctx context.Context, playlistURL string) (*playlist.Playlist, error)
	GetTrack(ctx context.Context, trackID string) (*track.Track, error)
}

// ControlService implements the remote control RPC.
type ControlService struct {
	ctrl          Controller
	catalog       Catalog
	notifications *notification.Manager
	done          <-chan struct{}
}

// NewControlService creates a new ControlService. Watch streams end when
// done is closed.
func NewControlService(ctrl Controller, catalog Catalog, notifications *notification.Manager, done <-chan struct{}) *ControlService {
	return &ControlService{
		ctrl:          ctrl,
		catalog:       catalog,
		notifications: notifications,
		done:          done,
	}
}

// Handler returns the path prefix and handler serving every procedure.
func (s *ControlService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(StatusProcedure, connect.NewUnaryHandler(StatusProcedure, s.Status, opts...))
	mux.Handle(PlayProcedure, connect.NewUnaryHandler(PlayProcedure, s.Play, opts...))
	mux.Handle(PauseProcedure, connect.NewUnaryHandler(PauseProcedure, s.simple(s.ctrl.Pause), opts...))
	mux.Handle(ResumeProcedure, connect.NewUnaryHandler(ResumeProcedure, s.simple(s.ctrl.Resume), opts...))
	mux.Handle(ToggleProcedure, connect.NewUnaryHandler(ToggleProcedure, s.simple(s.ctrl.TogglePlayPause), opts...))
	mux.Handle(StopProcedure, connect.NewUnaryHandler(StopProcedure, s.simple(s.ctrl.Stop), opts...))
	mux.Handle(NextProcedure, connect.NewUnaryHandler(NextProcedure, s.move(s.ctrl.PlayNextTrack), opts...))
	mux.Handle(PreviousProcedure, connect.NewUnaryHandler(PreviousProcedure, s.move(s.ctrl.PlayPreviousTrack), opts...))
	mux.Handle(SeekProcedure, connect.NewUnaryHandler(SeekProcedure, s.Seek, opts...))
	mux.Handle(SetRepeatProcedure, connect.NewUnaryHandler(SetRepeatProcedure, s.SetRepeat, opts...))
	mux.Handle(SetShuffleProcedure, connect.NewUnaryHandler(SetShuffleProcedure, s.SetShuffle, opts...))
	mux.Handle(WatchProcedure, connect.NewServerStreamHandler(WatchProcedure, s.Watch, opts...))
	return "/" + ServiceName + "/", mux
}

// Status returns the current controller status.
func (s *ControlService) Status(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	return s.statusResponse(nil)
}

// Play loads a playlist (or a single track) and starts playback.
func (s *ControlService) Play(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	fields := req.Msg.GetFields()

	if trackURL := fields["track"].GetStringValue(); trackURL != "" {
		t, err := s.catalog.GetTrack(ctx, trackURL)
		if err != nil {
			return nil, toConnectError(err)
		}
		zlog.Info().Msgf("connect: play track: id=%s", t.ID)
		return s.statusResponse(s.ctrl.PlayTrack(ctx, *t))
	}

	playlistURL := fields["playlist"].GetStringValue()
	if playlistURL == "" {
		return nil, toConnectError(errors.Mark(errors.New("playlist or track is required"), errInvalidArgument))
	}
	index := int(fields["index"].GetNumberValue())

	pl, err := s.catalog.GetPlaylist(ctx, playlistURL)
	if err != nil {
		return nil, toConnectError(err)
	}
	zlog.Info().Msgf("connect: play playlist: id=%s index=%d", pl.ID, index)
	return s.statusResponse(s.ctrl.PlayPlaylist(ctx, pl, index))
}

// Seek moves the playback position of the current track.
func (s *ControlService) Seek(
	ctx context.Context,
	req *connect.Request[durationpb.Duration],
) (*connect.Response[structpb.Struct], error) {
	if err := req.Msg.CheckValid(); err != nil {
		return nil, toConnectError(errors.Mark(err, errInvalidArgument))
	}
	return s.statusResponse(s.ctrl.Seek(ctx, req.Msg.AsDuration()))
}

// SetRepeat switches single-track repeat.
func (s *ControlService) SetRepeat(
	ctx context.Context,
	req *connect.Request[wrapperspb.BoolValue],
) (*connect.Response[structpb.Struct], error) {
	return s.statusResponse(s.ctrl.SetRepeat(ctx, req.Msg.GetValue()))
}

// SetShuffle switches shuffle.
func (s *ControlService) SetShuffle(
	ctx context.Context,
	req *connect.Request[wrapperspb.BoolValue],
) (*connect.Response[structpb.Struct], error) {
	return s.statusResponse(s.ctrl.SetShuffle(req.Msg.GetValue()))
}

// Watch streams the initial state followed by every playback event.
// The subscription is taken before the snapshot, so events broadcast in
// between are held back and sent right after the initial state.
func (s *ControlService) Watch(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
	stream *connect.ServerStream[structpb.Struct],
) error {
	adapter := newStreamAdapter(stream.Send)
	subscriptionID := s.notifications.Subscribe(adapter)
	defer func() {
		s.notifications.Unsubscribe(subscriptionID)
		adapter.close()
	}()

	seq := s.notifications.LastSequenceNo()
	initial, err := initialStateToStruct(seq, s.ctrl.Status())
	if err != nil {
		return toConnectError(err)
	}
	if err := adapter.start(initial, seq); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

func (s *ControlService) simple(fn func(context.Context) error) func(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	return func(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
		return s.statusResponse(fn(ctx))
	}
}

func (s *ControlService) move(fn func(context.Context) (playback.Transition, error)) func(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	return func(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
		tr, err := fn(ctx)
		if err != nil {
			return nil, toConnectError(err)
		}
		resp, err := s.statusResponse(nil)
		if err != nil {
			return nil, err
		}
		resp.Header().Set(TransitionHeader, tr.Kind.String())
		return resp, nil
	}
}

// statusResponse returns the status, or opErr mapped to an RPC error.
func (s *ControlService) statusResponse(opErr error) (*connect.Response[structpb.Struct], error) {
	if opErr != nil {
		return nil, toConnectError(opErr)
	}
	st, err := statusToStruct(s.ctrl.Status())
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(st), nil
}

// TransitionHeader carries the outcome of Next and Previous.
const TransitionHeader = "X-Transition"

// maxPendingEvents bounds the events held back while the initial state is
// being prepared.
const maxPendingEvents = 64

// streamAdapter adapts connect.ServerStream to notification.Stream.
// Events arriving before start are held back. A send that outlived its
// broadcast timeout may overlap the next one, so sends are serialized, and
// dropped once the handler has returned.
type streamAdapter struct {
	mu      sync.Mutex
	send    func(*structpb.Struct) error
	started bool
	closed  bool
	pending []*notification.Notification
}

func newStreamAdapter(send func(*structpb.Struct) error) *streamAdapter {
	return &streamAdapter{send: send}
}

func (a *streamAdapter) Send(n *notification.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	if !a.started {
		if len(a.pending) >= maxPendingEvents {
			zlog.Debug().Msgf("connect: watch backlog full, dropping event: seq=%d", n.SequenceNo)
			return nil
		}
		a.pending = append(a.pending, n)
		return nil
	}
	return a.sendLocked(n)
}

// start sends the initial state, then the held-back events newer than seq.
func (a *streamAdapter) start(initial *structpb.Struct, seq uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.send(initial); err != nil {
		return err
	}
	for _, n := range a.pending {
		if n.SequenceNo <= seq {
			continue
		}
		if err := a.sendLocked(n); err != nil {
			return err
		}
	}
	a.pending = nil
	a.started = true
	return nil
}

func (a *streamAdapter) sendLocked(n *notification.Notification) error {
	msg, err := notificationToStruct(n)
	if err != nil {
		return err
	}
	return a.send(msg)
}

func (a *streamAdapter) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.pending = nil
}
