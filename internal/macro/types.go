package macro

import "time"

// StepKind discriminates the step tagged union.
type StepKind string

const (
	// StepWait suspends playback for Seconds.
	StepWait StepKind = "wait"

	// StepKey presses or releases a keyboard key.
	StepKey StepKind = "key"

	// StepExpect polls the live input snapshot for an expected input.
	// Expect steps are advisory: playback continues whether or not the
	// expected input is observed within the tolerance window.
	StepExpect StepKind = "expect"

	// StepFrame transmits a timed input vector to a remote consumer.
	StepFrame StepKind = "frame"
)

// KeyDirection is the direction of a key step.
type KeyDirection string

const (
	KeyPress   KeyDirection = "press"
	KeyRelease KeyDirection = "release"
)

// Step is one unit of a macro. Exactly one group of fields is meaningful
// depending on Kind; the flat shape keeps the JSON representation
// compatible with the persisted macros.json format.
type Step struct {
	Kind StepKind `json:"type"`

	// Key steps
	Key    string       `json:"key,omitempty"`
	Action KeyDirection `json:"action,omitempty"`

	// Wait steps
	Seconds float64 `json:"seconds,omitempty"`

	// Expect steps
	Label  string `json:"label,omitempty"`
	Expect string `json:"expect,omitempty"`

	// Frame steps
	DurationMS int         `json:"dt_ms,omitempty"`
	Inputs     InputVector `json:"inputs,omitempty"`
}

// MacroType labels how a macro is meant to be composed.
type MacroType string

const (
	TypeSingleStage MacroType = "single-stage"
	TypeMultiStage  MacroType = "multi-stage"
)

// Macro is an ordered, named collection of steps.
//
// The playback engine snapshots Steps at run start; mutating a macro
// while a run is active does not affect that run.
type Macro struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`

	// Metadata
	Description *string   `json:"description,omitempty"`
	Type        MacroType `json:"type,omitempty"`

	// Trigger is an optional global hotkey (e.g. "f6") that starts this
	// macro when no other run is active.
	Trigger *string `json:"trigger,omitempty"`

	Enabled bool `json:"enabled"`

	// Steps to execute (ordered)
	Steps []Step `json:"steps"`

	// Sort order for list display
	SortOrder int `json:"sort_order"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExecutionStatus represents the state of a macro run.
//
// A started run reaches exactly one terminal status: completed or
// cancelled. Skipped malformed steps and unmatched expectations never
// fail a run.
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusCancelled ExecutionStatus = "cancelled"
)

// Execution is the audit record of a single macro run.
type Execution struct {
	ID      string `json:"id"`
	MacroID string `json:"macro_id"`

	TriggeredAt time.Time  `json:"triggered_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Trigger is how the run was started: manual, hotkey, or api.
	Trigger string `json:"trigger"`

	Status ExecutionStatus `json:"status"`

	StepsTotal     int `json:"steps_total"`
	StepsCompleted int `json:"steps_completed"`
	StepsSkipped   int `json:"steps_skipped"`

	// Expect step outcomes. Advisory only; they never affect Status.
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`

	DurationMS *int `json:"duration_ms,omitempty"`
}

// DeepCopy creates a complete independent copy of the Macro.
// Slice and map fields are cloned so modifications to the copy do not
// affect the original. Essential for cache isolation in the Registry.
func (m *Macro) DeepCopy() *Macro {
	if m == nil {
		return nil
	}

	cpy := *m
	cpy.Description = cloneStringPtr(m.Description)
	cpy.Trigger = cloneStringPtr(m.Trigger)

	if m.Steps != nil {
		cpy.Steps = make([]Step, len(m.Steps))
		for i, step := range m.Steps {
			cpy.Steps[i] = step
			if step.Inputs != nil {
				cpy.Steps[i].Inputs = step.Inputs.Clone()
			}
		}
	}

	return &cpy
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
