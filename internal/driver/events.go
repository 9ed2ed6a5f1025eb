package driver

import "time"

// Status captures the progress of one method.
type Status string

const (
	// StatusQueued indicates the method is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusWorking indicates the method is being rewritten.
	StatusWorking Status = "working"
	// StatusDone indicates the method was rewritten.
	StatusDone Status = "done"
	// StatusUnchanged indicates the method had nothing to convert.
	StatusUnchanged Status = "unchanged"
	// StatusError indicates the method was left as is after a failure.
	StatusError Status = "error"
)

// Event reports progress for a method (or for the whole module when Method is empty).
type Event struct {
	Method  string
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}
