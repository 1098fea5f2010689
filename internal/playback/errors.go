package playback

import "errors"

var (
	// ErrAlreadyRunning is returned when Run is called while a run is
	// active. The new request is rejected, never queued or merged; the
	// active run is unaffected.
	ErrAlreadyRunning = errors.New("playback: already running")

	// ErrNilMacro is returned when Run is handed a nil macro.
	ErrNilMacro = errors.New("playback: nil macro")
)
