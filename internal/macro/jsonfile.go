package macro

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// fileMacro is the on-disk JSON shape for import/export. It is a
// superset of the two historical layouts this tool has used:
//
//   - key macros:   {"name", "hotkey", "steps": [{"type","key","action","seconds"}]}
//   - frame macros: {"name", "type", "description", "trigger", "enabled",
//     "frames": [{"dt_ms", "inputs"}]}
//
// Imports accept either layout; exports always write the unified shape.
type fileMacro struct {
	Name        string      `json:"name"`
	Type        string      `json:"type,omitempty"`
	Description string      `json:"description,omitempty"`
	Trigger     *string     `json:"trigger,omitempty"`
	Hotkey      *string     `json:"hotkey,omitempty"`
	Enabled     *bool       `json:"enabled,omitempty"`
	Steps       []Step      `json:"steps,omitempty"`
	Frames      []fileFrame `json:"frames,omitempty"`
}

type fileFrame struct {
	DtMS   int         `json:"dt_ms"`
	Inputs InputVector `json:"inputs"`
}

// ImportFile reads macros from a JSON file. Both historical layouts are
// accepted; frame lists are converted into frame steps. A missing file
// is not an error and yields an empty slice.
func ImportFile(path string) ([]Macro, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading macro file: %w", err)
	}
	return ImportJSON(data)
}

// ImportJSON parses a macro list from raw JSON.
func ImportJSON(data []byte) ([]Macro, error) {
	var items []fileMacro
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing macro file: %w", err)
	}

	macros := make([]Macro, 0, len(items))
	for i, item := range items {
		m, err := item.toMacro()
		if err != nil {
			return nil, fmt.Errorf("macro %d (%q): %w", i, item.Name, err)
		}
		m.SortOrder = i
		macros = append(macros, *m)
	}
	return macros, nil
}

// ExportFile writes macros to a JSON file in the unified layout.
func ExportFile(path string, macros []Macro) error {
	data, err := ExportJSON(macros)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing macro file: %w", err)
	}
	return nil
}

// ExportJSON serialises macros to the unified JSON layout.
func ExportJSON(macros []Macro) ([]byte, error) {
	items := make([]fileMacro, 0, len(macros))
	for i := range macros {
		m := &macros[i]
		enabled := m.Enabled
		item := fileMacro{
			Name:    m.Name,
			Type:    string(m.Type),
			Trigger: cloneStringPtr(m.Trigger),
			Enabled: &enabled,
			Steps:   append([]Step(nil), m.Steps...),
		}
		if m.Description != nil {
			item.Description = *m.Description
		}
		items = append(items, item)
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling macros: %w", err)
	}
	return data, nil
}

func (f *fileMacro) toMacro() (*Macro, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		name = "Macro"
	}

	m := &Macro{
		ID:      GenerateID(),
		Name:    name,
		Slug:    GenerateSlug(name),
		Enabled: true,
	}
	if f.Description != "" {
		desc := f.Description
		m.Description = &desc
	}
	if f.Enabled != nil {
		m.Enabled = *f.Enabled
	}

	// The key-macro layout stored its trigger under "hotkey".
	switch {
	case f.Trigger != nil && *f.Trigger != "":
		m.Trigger = cloneStringPtr(f.Trigger)
	case f.Hotkey != nil && *f.Hotkey != "":
		m.Trigger = cloneStringPtr(f.Hotkey)
	}

	m.Type = normaliseType(f.Type)

	switch {
	case len(f.Frames) > 0:
		m.Steps = make([]Step, 0, len(f.Frames))
		for _, fr := range f.Frames {
			dt := fr.DtMS
			if dt < MinFrameDurationMS {
				dt = DefaultFrameDurationMS
			}
			inputs := fr.Inputs
			if inputs == nil {
				inputs = InputVector{}
			}
			m.Steps = append(m.Steps, Step{
				Kind:       StepFrame,
				DurationMS: dt,
				Inputs:     inputs.Normalize(),
			})
		}
	case len(f.Steps) > 0:
		m.Steps = append([]Step(nil), f.Steps...)
	default:
		m.Steps = []Step{}
	}

	if err := ValidateMacro(m); err != nil {
		return nil, err
	}
	return m, nil
}

// normaliseType maps the historical "Single-Stage"/"Multi-Stage" labels
// onto the canonical lowercase values, defaulting to single-stage.
func normaliseType(s string) MacroType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(TypeMultiStage):
		return TypeMultiStage
	case string(TypeSingleStage), "":
		return TypeSingleStage
	default:
		return TypeSingleStage
	}
}
