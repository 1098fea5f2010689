package macro

import "errors"

// Domain errors for the macro package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, macro.ErrMacroNotFound) {
//	    // handle not found case
//	}
var (
	// ErrMacroNotFound is returned when a macro ID or slug does not exist.
	ErrMacroNotFound = errors.New("macro: not found")

	// ErrMacroExists is returned when creating a macro with an ID or slug
	// that already exists.
	ErrMacroExists = errors.New("macro: already exists")

	// ErrMacroDisabled is returned when attempting to run a disabled macro.
	ErrMacroDisabled = errors.New("macro: disabled")

	// ErrInvalidMacro is returned when macro validation fails.
	ErrInvalidMacro = errors.New("macro: invalid")

	// ErrInvalidName is returned when a macro name is empty or too long.
	ErrInvalidName = errors.New("macro: invalid name")

	// ErrInvalidSlug is returned when a slug format is invalid.
	ErrInvalidSlug = errors.New("macro: invalid slug")

	// ErrInvalidStep is returned when a step is malformed: unknown kind
	// or missing a required field. The playback engine treats this as
	// "skip and continue", never as a run failure.
	ErrInvalidStep = errors.New("macro: invalid step")

	// ErrExecutionNotFound is returned when an execution ID does not exist.
	ErrExecutionNotFound = errors.New("macro: execution not found")
)
