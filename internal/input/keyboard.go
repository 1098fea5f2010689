package input

import (
	"context"
	"strings"
	"sync"
	"time"

	hook "github.com/robotn/gohook"
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

// KeyboardSource observes the global keyboard via a gohook event
// channel and maintains a pressed-key set. Arrow keys additionally
// drive a virtual stick at full deflection so directional
// expectations can be satisfied from a keyboard.
type KeyboardSource struct {
	logger Logger

	mu      sync.RWMutex
	pressed map[string]struct{}
	running bool

	handlerMu sync.RWMutex
	onKeyDown func(name string)

	stopOnce sync.Once
	done     chan struct{}
}

// NewKeyboardSource creates a keyboard source. Call Start to install
// the hook.
func NewKeyboardSource(logger Logger) *KeyboardSource {
	if logger == nil {
		logger = noopLogger{}
	}
	return &KeyboardSource{
		logger:  logger,
		pressed: make(map[string]struct{}),
		done:    make(chan struct{}),
	}
}

// Start installs the global hook and begins consuming key events.
// The hook is torn down when ctx is cancelled or Stop is called.
func (s *KeyboardSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	evChan := hook.Start()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	go func() {
		defer close(s.done)
		for ev := range evChan {
			switch ev.Kind {
			case hook.KeyDown:
				if name, ok := eventKeyName(ev); ok {
					s.setPressed(name, true)
					s.fireKeyDown(name)
				}
			case hook.KeyHold:
				if name, ok := eventKeyName(ev); ok {
					s.setPressed(name, true)
				}
			case hook.KeyUp:
				if name, ok := eventKeyName(ev); ok {
					s.setPressed(name, false)
				}
			}
		}
		// Channel closed: hook torn down (Stop, or hook failure).
		// Degrade to neutral rather than freezing the last state.
		s.mu.Lock()
		s.running = false
		s.pressed = make(map[string]struct{})
		s.mu.Unlock()
		s.logger.Debug("keyboard source drained")
	}()

	s.logger.Info("keyboard source started")
	return nil
}

// Stop releases the global hook. Safe to call more than once.
func (s *KeyboardSource) Stop() {
	s.stopOnce.Do(func() {
		hook.End()
		<-s.done
		s.logger.Info("keyboard source stopped")
	})
}

// Snapshot returns a copy of the current pressed set plus the virtual
// stick derived from held arrow keys. Never blocks on the hook.
func (s *KeyboardSource) Snapshot() Snapshot {
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
	snap.StickX, snap.StickY = virtualStick(s.pressed)
	return snap
}

// OnKeyDown installs a handler invoked for every key-down event, after
// the pressed set is updated. The hook supports a single global
// consumer, so anything else that wants key events (hotkey triggers)
// subscribes here instead of installing its own hook. The handler runs
// on the event goroutine; keep it fast.
func (s *KeyboardSource) OnKeyDown(handler func(name string)) {
	s.handlerMu.Lock()
	s.onKeyDown = handler
	s.handlerMu.Unlock()
}

func (s *KeyboardSource) fireKeyDown(name string) {
	s.handlerMu.RLock()
	h := s.onKeyDown
	s.handlerMu.RUnlock()
	if h != nil {
		h(name)
	}
}

func (s *KeyboardSource) setPressed(name string, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if down {
		s.pressed[name] = struct{}{}
	} else {
		delete(s.pressed, name)
	}
}

// virtualStick maps held arrow keys onto stick axes. Negative Y is up.
// Opposing keys cancel.
func virtualStick(pressed map[string]struct{}) (x, y float64) {
	if _, ok := pressed["left"]; ok {
		x -= 1
	}
	if _, ok := pressed["right"]; ok {
		x += 1
	}
	if _, ok := pressed["up"]; ok {
		y -= 1
	}
	if _, ok := pressed["down"]; ok {
		y += 1
	}
	return x, y
}

// rawcodeNames covers keys gohook reports with an empty or control
// keychar. Values use the same vocabulary as macro key resolution.
var rawcodeNames = map[string]string{
	" ": "space", "space": "space",
	"enter": "enter", "return": "enter",
	"tab":    "tab",
	"esc":    "esc", "escape": "esc",
	"shift":  "shift", "lshift": "shift", "rshift": "shift",
	"ctrl":   "ctrl", "lctrl": "ctrl", "rctrl": "ctrl",
	"alt":    "alt", "lalt": "alt", "ralt": "alt",
	"cmd":    "cmd", "lcmd": "cmd", "rcmd": "cmd", "super": "cmd",
	"up":     "up", "down": "down", "left": "left", "right": "right",
	"backspace": "backspace", "delete": "delete",
}

// eventKeyName turns a hook key event into a normalised key name.
// Printable characters name themselves; everything else goes through
// the library's rawcode mapping and the alias table.
func eventKeyName(ev hook.Event) (string, bool) {
	if ev.Keychar != 0 && ev.Keychar != hook.CharUndefined {
		r := ev.Keychar
		if r == ' ' {
			return "space", true
		}
		if r >= 33 && r < 127 {
			return strings.ToLower(string(r)), true
		}
	}

	s := strings.ToLower(strings.TrimSpace(hook.RawcodetoKeychar(ev.Rawcode)))
	if s == "" {
		return "", false
	}
	if name, ok := rawcodeNames[s]; ok {
		return name, true
	}
	// f-keys and single characters come through verbatim
	return s, true
}
