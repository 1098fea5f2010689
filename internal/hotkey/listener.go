// Package hotkey binds global key presses to macro runs.
//
// The Listener subscribes to the shared input source's key-down feed
// (there is exactly one global keyboard hook in the process) and, when
// a pressed key matches an enabled macro's trigger, asks the playback
// engine to run it. Presses arriving while a run is active are
// ignored — the engine's single-flight rejection would refuse them
// anyway, this just avoids the noise.
package hotkey

import (
	"strings"

	"github.com/nerrad567/macrodeck-core/internal/macro"
)

// Runner is the slice of the playback engine the listener needs.
type Runner interface {
	Run(m *macro.Macro, trigger string) (string, error)
	IsRunning() bool
}

// Triggers resolves a key name to a bound macro. Implemented by the
// macro registry's cache-only trigger lookup.
type Triggers interface {
	GetByTrigger(trigger string) (*macro.Macro, bool)
}

// KeyFeed delivers key-down events. Implemented by the input sources.
type KeyFeed interface {
	OnKeyDown(handler func(name string))
}

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

// Listener maps trigger keys to macro runs.
type Listener struct {
	triggers Triggers
	runner   Runner
	logger   Logger
}

// NewListener creates a hotkey listener.
func NewListener(triggers Triggers, runner Runner, logger Logger) *Listener {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Listener{triggers: triggers, runner: runner, logger: logger}
}

// Attach subscribes the listener to the key feed.
func (l *Listener) Attach(feed KeyFeed) {
	feed.OnKeyDown(l.HandleKey)
}

// HandleKey processes one key-down event. Exported so tests can drive
// it without a real hook.
func (l *Listener) HandleKey(name string) {
	m, ok := l.Resolve(name)
	if !ok {
		return
	}
	if l.runner.IsRunning() {
		l.logger.Debug("hotkey ignored, run active", "key", name, "macro", m.ID)
		return
	}

	execID, err := l.runner.Run(m, "hotkey")
	if err != nil {
		// Lost the race with another trigger; the active run wins.
		l.logger.Debug("hotkey run rejected", "key", name, "macro", m.ID, "error", err)
		return
	}
	l.logger.Info("hotkey run started", "key", name, "macro", m.ID, "execution", execID)
}

// Resolve returns the macro bound to a key name, if any. Pure lookup,
// no side effects.
func (l *Listener) Resolve(name string) (*macro.Macro, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	return l.triggers.GetByTrigger(name)
}
