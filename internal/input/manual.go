package input

import (
	"context"
	"sync"
	"time"
)

// ManualSource is a Source whose state is set programmatically.
// Used by tests and by headless deployments with no hookable input.
type ManualSource struct {
	mu        sync.RWMutex
	pressed   map[string]struct{}
	stickX    float64
	stickY    float64
	running   bool
	onKeyDown func(name string)
}

// NewManualSource creates a manual source with neutral state.
func NewManualSource() *ManualSource {
	return &ManualSource{pressed: make(map[string]struct{})}
}

// Start marks the source active.
func (s *ManualSource) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	return nil
}

// Stop marks the source inactive and clears state.
func (s *ManualSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.pressed = make(map[string]struct{})
	s.stickX, s.stickY = 0, 0
}

// Snapshot returns the current programmed state, or neutral when the
// source is stopped.
func (s *ManualSource) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Pressed:   make(map[string]struct{}, len(s.pressed)),
		Timestamp: time.Now(),
	}
	if !s.running {
		return snap
	}
	for k := range s.pressed {
		snap.Pressed[k] = struct{}{}
	}
	snap.StickX = s.stickX
	snap.StickY = s.stickY
	return snap
}

// OnKeyDown installs a handler invoked from Press, mirroring the
// keyboard source's contract.
func (s *ManualSource) OnKeyDown(handler func(name string)) {
	s.mu.Lock()
	s.onKeyDown = handler
	s.mu.Unlock()
}

// Press marks a key as held and fires the key-down handler.
func (s *ManualSource) Press(key string) {
	s.mu.Lock()
	s.pressed[key] = struct{}{}
	h := s.onKeyDown
	s.mu.Unlock()
	if h != nil {
		h(key)
	}
}

// Release removes a key from the held set.
func (s *ManualSource) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pressed, key)
}

// SetStick sets the stick deflection. Values are used as given;
// callers clamp if they care.
func (s *ManualSource) SetStick(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stickX, s.stickY = x, y
}

// Clear releases all keys and centres the stick without stopping.
func (s *ManualSource) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pressed = make(map[string]struct{})
	s.stickX, s.stickY = 0, 0
}
