package input

import (
	"context"
	"time"
)

// Snapshot is an immutable view of observed input at one instant.
//
// Pressed holds normalised key names (lowercase, symbolic where one
// exists: "space", "f6", "a"). StickX/StickY are stick deflection in
// [-1, 1]; keyboard sources synthesise them from arrow keys. Negative
// Y is up, matching the controller convention.
type Snapshot struct {
	Pressed   map[string]struct{}
	StickX    float64
	StickY    float64
	Timestamp time.Time
}

// IsPressed reports whether the named key is held.
func (s Snapshot) IsPressed(key string) bool {
	_, ok := s.Pressed[key]
	return ok
}

// NeutralSnapshot returns a snapshot with nothing pressed and the
// stick centred.
func NeutralSnapshot() Snapshot {
	return Snapshot{
		Pressed:   map[string]struct{}{},
		Timestamp: time.Now(),
	}
}

// Source observes live input. Implementations must be safe for
// concurrent use: Snapshot is called from the playback engine's poll
// loop while the source updates state from its own goroutine.
type Source interface {
	// Start begins observation. Returns an error if the underlying
	// hook cannot be installed.
	Start(ctx context.Context) error

	// Stop ends observation and releases the hook. Safe to call more
	// than once; Snapshot reports neutral afterwards.
	Stop()

	// Snapshot returns the current observed state. Never blocks.
	Snapshot() Snapshot
}
