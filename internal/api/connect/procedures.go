package connect

// ServiceName is the fully-qualified name of the control service.
const ServiceName = "tracklist.v1.ControlService"

// Procedure paths. Messages are protobuf well-known types:
// Seek takes a Duration, SetRepeat and SetShuffle a BoolValue, Play a Struct
// with either "playlist" and "index" or "track"; the rest take Empty. Every
// procedure replies with the status as a Struct, Watch as a stream of them.
const (
	StatusProcedure     = "/" + ServiceName + "/Status"
	PlayProcedure       = "/" + ServiceName + "/Play"
	PauseProcedure      = "/" + ServiceName + "/Pause"
	ResumeProcedure     = "/" + ServiceName + "/Resume"
	ToggleProcedure     = "/" + ServiceName + "/Toggle"
	StopProcedure       = "/" + ServiceName + "/Stop"
	NextProcedure       = "/" + ServiceName + "/Next"
	PreviousProcedure   = "/" + ServiceName + "/Previous"
	SeekProcedure       = "/" + ServiceName + "/Seek"
	SetRepeatProcedure  = "/" + ServiceName + "/SetRepeat"
	SetShuffleProcedure = "/" + ServiceName + "/SetShuffle"
	WatchProcedure      = "/" + ServiceName + "/Watch"
)
