package macro

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validation limits.
const (
	maxNameLength = 100
	maxSlugLength = 50
)

// ValidateMacro checks a macro for structural errors.
//
// Step-level problems are reported here for editors and the API; the
// playback engine deliberately does NOT require a valid macro — it
// skips malformed steps at run time so a stored macro with one bad step
// still plays the rest.
func ValidateMacro(m *Macro) error {
	if m == nil {
		return ErrInvalidMacro
	}

	name := strings.TrimSpace(m.Name)
	if name == "" || len(name) > maxNameLength {
		return ErrInvalidName
	}

	if m.Slug != "" && !isValidSlug(m.Slug) {
		return ErrInvalidSlug
	}

	for i := range m.Steps {
		if err := ValidateStep(&m.Steps[i]); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}

	return nil
}

// ValidateStep checks a single step against its kind's requirements.
//
// Returns ErrInvalidStep (wrapped with detail) for unknown kinds or
// missing required fields.
func ValidateStep(s *Step) error {
	if s == nil {
		return ErrInvalidStep
	}

	switch s.Kind {
	case StepWait:
		if s.Seconds < 0 {
			return fmt.Errorf("%w: wait seconds must be >= 0, got %v", ErrInvalidStep, s.Seconds)
		}
		return nil

	case StepKey:
		if strings.TrimSpace(s.Key) == "" {
			return fmt.Errorf("%w: key step requires a key name", ErrInvalidStep)
		}
		if s.Action != KeyPress && s.Action != KeyRelease {
			return fmt.Errorf("%w: key action must be press or release, got %q", ErrInvalidStep, s.Action)
		}
		return nil

	case StepExpect:
		if strings.TrimSpace(s.Expect) == "" {
			return fmt.Errorf("%w: expect step requires an expected input label", ErrInvalidStep)
		}
		return nil

	case StepFrame:
		if s.DurationMS < MinFrameDurationMS {
			return fmt.Errorf("%w: frame duration must be >= %d ms, got %d", ErrInvalidStep, MinFrameDurationMS, s.DurationMS)
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown step kind %q", ErrInvalidStep, s.Kind)
	}
}

// isValidSlug checks slug format: lowercase alphanumeric with hyphens.
func isValidSlug(slug string) bool {
	if slug == "" || len(slug) > maxSlugLength {
		return false
	}
	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return false
	}
	for _, r := range slug {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}

// GenerateSlug creates a URL-safe slug from a macro name.
func GenerateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")

	var result strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	slug = result.String()

	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
		slug = strings.TrimRight(slug, "-")
	}

	return slug
}

// GenerateID creates a new unique identifier for macros and executions.
func GenerateID() string {
	return uuid.New().String()
}

// NewMacro returns the default seed macro: a short pause followed by a
// space tap. Matches what the original editor created for new entries.
func NewMacro(name string) *Macro {
	return &Macro{
		ID:      GenerateID(),
		Name:    name,
		Slug:    GenerateSlug(name),
		Type:    TypeSingleStage,
		Enabled: true,
		Steps: []Step{
			{Kind: StepWait, Seconds: 0.2},
			{Kind: StepKey, Key: "space", Action: KeyPress},
			{Kind: StepKey, Key: "space", Action: KeyRelease},
		},
	}
}
