package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/macrodeck-core/internal/input"
	"github.com/nerrad567/macrodeck-core/internal/macro"
	"github.com/nerrad567/macrodeck-core/internal/stream"
)

// KeySink emulates key presses on the local machine.
// Assumed infallible at this boundary; an implementation that can fail
// should log internally and carry on.
type KeySink interface {
	Press(key macro.Key)
	Release(key macro.Key)
}

// Logger defines the logging interface used by the Engine.
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

// Notifier receives human-readable progress messages. Invoked from the
// run worker's goroutine; consumers re-marshal onto their own context.
type Notifier func(message string)

// FrameObserver receives stream throughput for a finished run: how many
// frame events were emitted and their summed hold duration. Called once
// per run that streamed at least one frame, after the session closes.
type FrameObserver func(macroID string, frames, durationMS int)

// Config holds the engine's timing parameters. The zero value gets
// sensible defaults from withDefaults.
type Config struct {
	// PollInterval is the snapshot poll cadence for expect steps.
	PollInterval time.Duration

	// Tolerance is how long an expect step waits for its predicate.
	Tolerance time.Duration

	// WaitSlice bounds cancellation latency inside wait steps: long
	// waits are broken into slices no larger than this.
	WaitSlice time.Duration

	// StreamMode selects frame accumulation behaviour.
	StreamMode stream.Mode
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Millisecond
	}
	if c.Tolerance <= 0 {
		c.Tolerance = 350 * time.Millisecond
	}
	if c.WaitSlice <= 0 {
		c.WaitSlice = 25 * time.Millisecond
	}
	if c.StreamMode == "" {
		c.StreamMode = stream.ModeAccumulate
	}
	return c
}

// Engine executes macros: one dedicated worker per run, at most one
// run active at a time. A second Run while one is active is rejected
// synchronously, never queued.
//
// Cancellation is cooperative. Stop sets a signal the worker observes
// at suspension points only — wait slices, expect poll iterations, and
// frame delays. No step effect is interrupted mid-effect.
//
// Thread Safety: all public methods are safe for concurrent use.
type Engine struct {
	cfg    Config
	source input.Source     // may be nil: expect steps see neutral
	keys   KeySink          // may be nil: key steps are skipped
	sink   stream.Sink      // may be nil: frame steps are skipped
	repo   macro.Repository // may be nil: no execution records
	logger Logger

	notifyMu sync.Mutex
	notify   Notifier
	onFrames FrameObserver

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	execID  string
}

// NewEngine creates a playback engine. Any of source, keys, sink and
// repo may be nil; the matching step kinds degrade rather than fail.
func NewEngine(cfg Config, source input.Source, keys KeySink, sink stream.Sink, repo macro.Repository, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		cfg:    cfg.withDefaults(),
		source: source,
		keys:   keys,
		sink:   sink,
		repo:   repo,
		logger: logger,
	}
}

// SetNotifier installs the status observer. Pass nil to remove it.
func (e *Engine) SetNotifier(n Notifier) {
	e.notifyMu.Lock()
	e.notify = n
	e.notifyMu.Unlock()
}

// SetFrameObserver installs the stream throughput observer. Pass nil to
// remove it.
func (e *Engine) SetFrameObserver(o FrameObserver) {
	e.notifyMu.Lock()
	e.onFrames = o
	e.notifyMu.Unlock()
}

// IsRunning reports whether a run is active.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// CurrentExecution returns the active run's execution ID, or "".
func (e *Engine) CurrentExecution() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return ""
	}
	return e.execID
}

// Stop requests cancellation of the active run. Non-blocking: the
// worker observes the signal at its next suspension point. A no-op
// when nothing is running.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run starts a macro on a dedicated worker and returns immediately.
//
// Returns the execution ID for tracking, or ErrAlreadyRunning if a run
// is active (the active run is unaffected), ErrNilMacro, or
// macro.ErrMacroDisabled.
//
// The step list is snapshotted at entry; mutating the macro afterwards
// does not affect the run. trigger records how the run started
// (manual, hotkey, api).
func (e *Engine) Run(m *macro.Macro, trigger string) (string, error) {
	if m == nil {
		return "", ErrNilMacro
	}
	if !m.Enabled {
		return "", macro.ErrMacroDisabled
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		e.emit(fmt.Sprintf("run rejected: %s already has an active run", m.Name))
		return "", ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := m.DeepCopy()
	exec := &macro.Execution{
		ID:          macro.GenerateID(),
		MacroID:     run.ID,
		TriggeredAt: time.Now().UTC(),
		Trigger:     trigger,
		Status:      macro.StatusPending,
		StepsTotal:  len(run.Steps),
	}

	e.running = true
	e.cancel = cancel
	e.execID = exec.ID
	e.mu.Unlock()

	e.recordExecution(ctx, exec, true)

	go e.work(ctx, cancel, run, exec)

	return exec.ID, nil
}

// work is the run worker. It owns exec for the duration of the run and
// guarantees exactly one terminal status on every exit path.
func (e *Engine) work(ctx context.Context, cancel context.CancelFunc, m *macro.Macro, exec *macro.Execution) {
	defer cancel()

	var session *stream.Session
	defer func() {
		if session != nil {
			// The terminal reset fires here on every exit path.
			session.Close()
			e.reportFrames(m.ID, session)
		}

		cancelled := ctx.Err() != nil
		now := time.Now().UTC()
		exec.CompletedAt = &now
		if exec.StartedAt != nil {
			d := int(now.Sub(*exec.StartedAt).Milliseconds())
			exec.DurationMS = &d
		}
		if cancelled {
			exec.Status = macro.StatusCancelled
		} else {
			exec.Status = macro.StatusCompleted
		}
		e.recordExecution(context.Background(), exec, false)

		e.mu.Lock()
		e.running = false
		e.cancel = nil
		e.execID = ""
		e.mu.Unlock()

		if cancelled {
			e.emit(fmt.Sprintf("run cancelled: %s", m.Name))
		} else {
			e.emit(fmt.Sprintf("run completed: %s (%d/%d steps)", m.Name, exec.StepsCompleted, exec.StepsTotal))
		}
		e.logger.Info("run finished",
			"macro", m.ID,
			"execution", exec.ID,
			"status", exec.Status,
			"completed", exec.StepsCompleted,
			"skipped", exec.StepsSkipped,
		)
	}()

	started := time.Now().UTC()
	exec.StartedAt = &started
	exec.Status = macro.StatusRunning
	e.emit(fmt.Sprintf("run started: %s", m.Name))

	for i := range m.Steps {
		if ctx.Err() != nil {
			return
		}

		step := &m.Steps[i]
		if err := macro.ValidateStep(step); err != nil {
			// Malformed steps skip, never abort the run.
			exec.StepsSkipped++
			e.emit(fmt.Sprintf("step %d/%d skipped: %v", i+1, exec.StepsTotal, err))
			e.logger.Warn("skipping malformed step", "macro", m.ID, "step", i, "error", err)
			continue
		}

		switch step.Kind {
		case macro.StepWait:
			e.emit(fmt.Sprintf("step %d/%d: wait %.2fs", i+1, exec.StepsTotal, step.Seconds))
			if !e.sleep(ctx, time.Duration(step.Seconds*float64(time.Second))) {
				return
			}
			exec.StepsCompleted++

		case macro.StepKey:
			if e.keys == nil {
				exec.StepsSkipped++
				e.emit(fmt.Sprintf("step %d/%d skipped: no key output available", i+1, exec.StepsTotal))
				continue
			}
			key := macro.ResolveKey(step.Key)
			e.emit(fmt.Sprintf("step %d/%d: %s %s", i+1, exec.StepsTotal, step.Action, key.Code))
			if step.Action == macro.KeyPress {
				e.keys.Press(key)
			} else {
				e.keys.Release(key)
			}
			exec.StepsCompleted++

		case macro.StepExpect:
			label := step.Label
			if label == "" {
				label = step.Expect
			}
			e.emit(fmt.Sprintf("step %d/%d: expecting %s", i+1, exec.StepsTotal, label))
			matched, cancelled := e.awaitExpect(ctx, step.Expect)
			if cancelled {
				return
			}
			if matched {
				exec.Matched++
				e.emit(fmt.Sprintf("expect %s: matched", label))
			} else {
				exec.Unmatched++
				e.emit(fmt.Sprintf("expect %s: not detected", label))
			}
			// Advisory: the run continues either way.
			exec.StepsCompleted++

		case macro.StepFrame:
			if e.sink == nil {
				exec.StepsSkipped++
				e.emit(fmt.Sprintf("step %d/%d skipped: no stream target configured", i+1, exec.StepsTotal))
				continue
			}
			if session == nil {
				session = stream.NewSession(e.sink, m.Name, e.cfg.StreamMode, e.logger)
				session.Start()
			}
			session.Frame(step.DurationMS, step.Inputs)
			exec.StepsCompleted++
			if !e.sleep(ctx, time.Duration(step.DurationMS)*time.Millisecond) {
				return
			}
		}
	}
}

// sleep suspends for d, waking early on cancellation. Long sleeps are
// broken into WaitSlice pieces so stop latency stays bounded. Reports
// whether the full duration elapsed.
func (e *Engine) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		slice := remaining
		if slice > e.cfg.WaitSlice {
			slice = e.cfg.WaitSlice
		}
		timer := time.NewTimer(slice)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

// awaitExpect polls the input snapshot until the expectation matches,
// the tolerance window lapses, or the run is cancelled.
func (e *Engine) awaitExpect(ctx context.Context, expected string) (matched, cancelled bool) {
	deadline := time.Now().Add(e.cfg.Tolerance)
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if Match(expected, e.snapshot()) {
			return true, false
		}
		if time.Now().After(deadline) {
			return false, false
		}
		select {
		case <-ctx.Done():
			return false, true
		case <-ticker.C:
		}
	}
}

// snapshot reads the input source, degrading to neutral without one.
func (e *Engine) snapshot() input.Snapshot {
	if e.source == nil {
		return input.NeutralSnapshot()
	}
	return e.source.Snapshot()
}

// reportFrames hands the closed session's throughput to the observer.
func (e *Engine) reportFrames(macroID string, session *stream.Session) {
	e.notifyMu.Lock()
	o := e.onFrames
	e.notifyMu.Unlock()
	if o == nil {
		return
	}
	frames, totalMS := session.Stats()
	o(macroID, frames, totalMS)
}

func (e *Engine) emit(message string) {
	e.notifyMu.Lock()
	n := e.notify
	e.notifyMu.Unlock()
	if n != nil {
		n(message)
	}
	e.logger.Debug("status", "message", message)
}

// recordExecution persists the execution record, best effort. A nil
// repository or a storage error never affects the run.
func (e *Engine) recordExecution(ctx context.Context, exec *macro.Execution, create bool) {
	if e.repo == nil {
		return
	}
	var err error
	if create {
		err = e.repo.CreateExecution(ctx, exec)
	} else {
		err = e.repo.UpdateExecution(ctx, exec)
	}
	if err != nil {
		e.logger.Warn("recording execution failed", "execution", exec.ID, "error", err)
	}
}
