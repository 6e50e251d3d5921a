package connect

import (
	"context"
	"strings"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type (
	emptyClient = connect.Client[emptypb.Empty, structpb.Struct]
	boolClient  = connect.Client[wrapperspb.BoolValue, structpb.Struct]
)

// Client is a remote control client for ControlService.
type Client struct {
	status     *emptyClient
	play       *connect.Client[structpb.Struct, structpb.Struct]
	pause      *emptyClient
	resume     *emptyClient
	toggle     *emptyClient
	stop       *emptyClient
	next       *emptyClient
	previous   *emptyClient
	seek       *connect.Client[durationpb.Duration, structpb.Struct]
	setRepeat  *boolClient
	setShuffle *boolClient
	watch      *emptyClient
}

// NewClient creates a client for the server at baseURL that authenticates
// with token.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithInterceptors(&tokenClientInterceptor{token: token})}, opts...)

	empty := func(procedure string) *emptyClient {
		return connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+procedure, opts...)
	}
	boolean := func(procedure string) *boolClient {
		return connect.NewClient[wrapperspb.BoolValue, structpb.Struct](httpClient, baseURL+procedure, opts...)
	}

	return &Client{
		status:     empty(StatusProcedure),
		play:       connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+PlayProcedure, opts...),
		pause:      empty(PauseProcedure),
		resume:     empty(ResumeProcedure),
		toggle:     empty(ToggleProcedure),
		stop:       empty(StopProcedure),
		next:       empty(NextProcedure),
		previous:   empty(PreviousProcedure),
		seek:       connect.NewClient[durationpb.Duration, structpb.Struct](httpClient, baseURL+SeekProcedure, opts...),
		setRepeat:  boolean(SetRepeatProcedure),
		setShuffle: boolean(SetShuffleProcedure),
		watch:      empty(WatchProcedure),
	}
}

func callEmpty(ctx context.Context, c *emptyClient) (*structpb.Struct, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Status returns the current status.
func (c *Client) Status(ctx context.Context) (*structpb.Struct, error) {
	return callEmpty(ctx, c.status)
}

// PlayPlaylist plays the playlist at playlistURL from index.
func (c *Client) PlayPlaylist(ctx context.Context, playlistURL string, index int) (*structpb.Struct, error) {
	msg, err := structpb.NewStruct(map[string]any{"playlist": playlistURL, "index": index})
	if err != nil {
		return nil, err
	}
	resp, err := c.play.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// PlayTrack plays a single track.
func (c *Client) PlayTrack(ctx context.Context, trackURL string) (*structpb.Struct, error) {
	msg, err := structpb.NewStruct(map[string]any{"track": trackURL})
	if err != nil {
		return nil, err
	}
	resp, err := c.play.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) (*structpb.Struct, error) {
	return callEmpty(ctx, c.pause)
}

// Resume resumes playback.
func (c *Client) Resume(ctx context.Context) (*structpb.Struct, error) {
	return callEmpty(ctx, c.resume)
}

// Toggle toggles between playing and paused.
func (c *Client) Toggle(ctx context.Context) (*structpb.Struct, error) {
	return callEmpty(ctx, c.toggle)
}

// Stop stops playback.
func (c *Client) Stop(ctx context.Context) (*structpb.Struct, error) {
	return callEmpty(ctx, c.stop)
}

// Next moves to the next track and returns the transition kind.
func (c *Client) Next(ctx context.Context) (*structpb.Struct, string, error) {
	return c.move(ctx, c.next)
}

// Previous moves to the previous track and returns the transition kind.
func (c *Client) Previous(ctx context.Context) (*structpb.Struct, string, error) {
	return c.move(ctx, c.previous)
}

func (c *Client) move(ctx context.Context, mc *emptyClient) (*structpb.Struct, string, error) {
	resp, err := mc.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, "", err
	}
	return resp.Msg, resp.Header().Get(TransitionHeader), nil
}

// Seek moves to position in the current track.
func (c *Client) Seek(ctx context.Context, position time.Duration) (*structpb.Struct, error) {
	resp, err := c.seek.CallUnary(ctx, connect.NewRequest(durationpb.New(position)))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// SetRepeat switches single-track repeat.
func (c *Client) SetRepeat(ctx context.Context, on bool) (*structpb.Struct, error) {
	resp, err := c.setRepeat.CallUnary(ctx, connect.NewRequest(wrapperspb.Bool(on)))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// SetShuffle switches shuffle.
func (c *Client) SetShuffle(ctx context.Context, on bool) (*structpb.Struct, error) {
	resp, err := c.setShuffle.CallUnary(ctx, connect.NewRequest(wrapperspb.Bool(on)))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Watch calls fn for every message until ctx is done, the server ends the
// stream, or fn returns an error.
func (c *Client) Watch(ctx context.Context, fn func(*structpb.Struct) error) error {
	stream, err := c.watch.CallServerStream(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		if err := fn(stream.Msg()); err != nil {
			return err
		}
	}
	return stream.Err()
}
