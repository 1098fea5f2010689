// Package emulation drives the local keyboard for MacroDeck Core.
//
// The Keyboard type satisfies the playback engine's KeySink: resolved
// key identities are toggled down and up through robotgo. The boundary
// is treated as infallible — an emulation error is logged and playback
// carries on, matching the engine's skip-and-continue stance.
package emulation

import (
	"github.com/go-vgo/robotgo"

	"github.com/nerrad567/macrodeck-core/internal/macro"
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

// Keyboard emulates key events on the local machine.
type Keyboard struct {
	logger Logger
}

// NewKeyboard creates a key sink backed by the OS-level emulator.
func NewKeyboard(logger Logger) *Keyboard {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Keyboard{logger: logger}
}

// Press holds the key down.
func (k *Keyboard) Press(key macro.Key) {
	k.toggle(key, "down")
}

// Release lets the key up.
func (k *Keyboard) Release(key macro.Key) {
	k.toggle(key, "up")
}

func (k *Keyboard) toggle(key macro.Key, direction string) {
	if key.Code == "" {
		return
	}
	if err := robotgo.KeyToggle(key.Code, direction); err != nil {
		k.logger.Warn("key toggle failed",
			"key", key.Code,
			"direction", direction,
			"literal", key.Literal,
			"error", err,
		)
	}
}
