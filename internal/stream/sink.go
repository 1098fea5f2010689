package stream

// Sink delivers stream events to a consumer. Implementations must not
// block beyond a socket write; the playback worker calls Send on its
// timing-critical path.
//
// Send errors are advisory. Callers log and continue: transport
// failure never interrupts playback timing.
type Sink interface {
	Send(ev Event) error
	Close() error
}

// FanoutSink duplicates every event to each wrapped sink. The first
// send error is returned after all sinks have been attempted.
type FanoutSink struct {
	sinks []Sink
}

// NewFanoutSink wraps the given sinks. Nil entries are dropped.
func NewFanoutSink(sinks ...Sink) *FanoutSink {
	f := &FanoutSink{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Send delivers the event to every sink.
func (f *FanoutSink) Send(ev Event) error {
	var firstErr error
	for _, s := range f.sinks {
		if err := s.Send(ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every sink.
func (f *FanoutSink) Close() error {
	var firstErr error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
