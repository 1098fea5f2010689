package stream

import (
	"sync"
	"time"

	"github.com/nerrad567/macrodeck-core/internal/macro"
)

// Mode selects how a frame's inputs combine with the running state.
type Mode string

const (
	// ModeAccumulate merges each frame's inputs into the running state;
	// channels absent from a frame keep their previous value. This is
	// the default: partial frames do not cause spurious resets.
	ModeAccumulate Mode = "accumulate"

	// ModeReplace transmits each frame's vector as-is; the consumer
	// treats absent channels as neutral.
	ModeReplace Mode = "replace"
)

// Logger matches the logging interface used across the service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Session is the stream side of one playback run.
//
// Lifecycle: Start, zero or more Frame calls, Close. Close always
// sends end followed by a reset event carrying the all-neutral vector,
// and is idempotent — callers defer it so the reset fires exactly once
// on every termination path, completed or cancelled.
//
// Send failures are logged and swallowed. Timing correctness outranks
// delivery of any individual event.
type Session struct {
	sink   Sink
	name   string
	mode   Mode
	logger Logger

	state     macro.InputVector
	frames    int
	totalMS   int
	closeOnce sync.Once
}

// NewSession creates a session for one run of the named macro.
func NewSession(sink Sink, name string, mode Mode, logger Logger) *Session {
	if mode != ModeReplace {
		mode = ModeAccumulate
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Session{
		sink:   sink,
		name:   name,
		mode:   mode,
		logger: logger,
		state:  macro.InputVector{},
	}
}

// Start emits the run-opening event.
func (s *Session) Start() {
	s.send(Event{Type: EventStart, Name: s.name, Timestamp: time.Now().UTC()})
}

// Frame combines inputs with the running state per the session mode
// and emits the resulting vector with its hold duration.
func (s *Session) Frame(durationMS int, inputs macro.InputVector) {
	var out macro.InputVector
	switch s.mode {
	case ModeReplace:
		out = inputs.Normalize()
	default:
		s.state = s.state.Merge(inputs.Normalize())
		out = s.state.Clone()
	}

	s.frames++
	s.totalMS += durationMS

	s.send(Event{
		Type:      EventFrame,
		Name:      s.name,
		DtMS:      durationMS,
		Inputs:    out,
		Timestamp: time.Now().UTC(),
	})
}

// Stats reports the frame count and summed hold duration so far. Like
// Frame, it belongs to the goroutine driving the session.
func (s *Session) Stats() (frames, totalMS int) {
	return s.frames, s.totalMS
}

// Close emits end then the terminal reset. Safe to call more than
// once; only the first call sends.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		now := time.Now().UTC()
		s.send(Event{Type: EventEnd, Name: s.name, Timestamp: now})
		s.send(Event{Type: EventReset, Name: s.name, Inputs: macro.Neutral(), Timestamp: time.Now().UTC()})
	})
}

func (s *Session) send(ev Event) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Send(ev); err != nil {
		// Fire-and-forget: a dropped event never interrupts playback.
		s.logger.Warn("stream send failed", "type", ev.Type, "error", err)
	}
}
