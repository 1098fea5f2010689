package macro

import (
	"path/filepath"
	"testing"
)

func TestImportJSON_KeyMacroLayout(t *testing.T) {
	data := []byte(`[
		{
			"name": "Quick Jump",
			"hotkey": "f6",
			"steps": [
				{"type": "wait", "seconds": 0.2},
				{"type": "key", "key": "space", "action": "press"},
				{"type": "key", "key": "space", "action": "release"}
			]
		}
	]`)

	macros, err := ImportJSON(data)
	if err != nil {
		t.Fatalf("ImportJSON() = %v", err)
	}
	if len(macros) != 1 {
		t.Fatalf("len = %d, want 1", len(macros))
	}

	m := macros[0]
	if m.Name != "Quick Jump" {
		t.Errorf("Name = %q", m.Name)
	}
	if m.Trigger == nil || *m.Trigger != "f6" {
		t.Errorf("Trigger = %v, want f6 (mapped from hotkey)", m.Trigger)
	}
	if !m.Enabled {
		t.Error("macros without an enabled field default to enabled")
	}
	if m.Type != TypeSingleStage {
		t.Errorf("Type = %q, want single-stage default", m.Type)
	}
	if len(m.Steps) != 3 {
		t.Fatalf("len(Steps) = %d, want 3", len(m.Steps))
	}
	if m.Steps[0].Kind != StepWait || m.Steps[0].Seconds != 0.2 {
		t.Errorf("step 0 = %+v", m.Steps[0])
	}
	if m.Steps[1].Kind != StepKey || m.Steps[1].Key != "space" || m.Steps[1].Action != KeyPress {
		t.Errorf("step 1 = %+v", m.Steps[1])
	}
}

func TestImportJSON_FrameMacroLayout(t *testing.T) {
	data := []byte(`[
		{
			"name": "Speed Flip",
			"type": "Multi-Stage",
			"description": "diagonal flip with boost",
			"trigger": "f7",
			"enabled": false,
			"frames": [
				{"dt_ms": 80, "inputs": {"throttle": 1.0, "boost": true}},
				{"dt_ms": 40, "inputs": {"pitch": -1.0, "jump": true}},
				{"dt_ms": 0, "inputs": {}}
			]
		}
	]`)

	macros, err := ImportJSON(data)
	if err != nil {
		t.Fatalf("ImportJSON() = %v", err)
	}
	if len(macros) != 1 {
		t.Fatalf("len = %d, want 1", len(macros))
	}

	m := macros[0]
	if m.Type != TypeMultiStage {
		t.Errorf("Type = %q, want multi-stage (normalised from Multi-Stage)", m.Type)
	}
	if m.Description == nil || *m.Description != "diagonal flip with boost" {
		t.Errorf("Description = %v", m.Description)
	}
	if m.Enabled {
		t.Error("enabled: false should round-trip")
	}
	if len(m.Steps) != 3 {
		t.Fatalf("len(Steps) = %d, want 3", len(m.Steps))
	}
	for i, s := range m.Steps {
		if s.Kind != StepFrame {
			t.Errorf("step %d kind = %q, want frame", i, s.Kind)
		}
	}
	if m.Steps[0].DurationMS != 80 || m.Steps[1].DurationMS != 40 {
		t.Errorf("durations = %d, %d", m.Steps[0].DurationMS, m.Steps[1].DurationMS)
	}
	// dt_ms below the minimum falls back to the default
	if m.Steps[2].DurationMS != DefaultFrameDurationMS {
		t.Errorf("step 2 duration = %d, want default %d", m.Steps[2].DurationMS, DefaultFrameDurationMS)
	}
	if x, ok := m.Steps[0].Inputs.Axis("throttle"); !ok || x != 1.0 {
		t.Errorf("frame 0 throttle = %v, %v", x, ok)
	}
}

func TestImportJSON_ClampsAxes(t *testing.T) {
	data := []byte(`[
		{"name": "Hot", "frames": [{"dt_ms": 80, "inputs": {"steer": 2.5}}]}
	]`)

	macros, err := ImportJSON(data)
	if err != nil {
		t.Fatalf("ImportJSON() = %v", err)
	}
	if x, _ := macros[0].Steps[0].Inputs.Axis("steer"); x != 1.0 {
		t.Errorf("steer = %v, want clamped to 1", x)
	}
}

func TestImportJSON_Malformed(t *testing.T) {
	if _, err := ImportJSON([]byte(`{"not": "a list"}`)); err == nil {
		t.Error("non-list payload should fail")
	}

	// A structurally valid list with an invalid step surfaces the macro name
	data := []byte(`[{"name": "Bad", "steps": [{"type": "key", "action": "press"}]}]`)
	if _, err := ImportJSON(data); err == nil {
		t.Error("invalid step should fail import")
	}
}

func TestImportFile_Missing(t *testing.T) {
	macros, err := ImportFile(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if macros != nil {
		t.Errorf("macros = %v, want nil", macros)
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	trigger := "f8"
	desc := "round trip"
	src := []Macro{
		{
			ID:          GenerateID(),
			Name:        "Round Trip",
			Slug:        "round-trip",
			Type:        TypeMultiStage,
			Description: &desc,
			Trigger:     &trigger,
			Enabled:     true,
			Steps: []Step{
				{Kind: StepWait, Seconds: 0.1},
				{Kind: StepKey, Key: "f1", Action: KeyPress},
				{Kind: StepKey, Key: "f1", Action: KeyRelease},
				{Kind: StepExpect, Expect: "jump", Label: "waiting on jump"},
				{Kind: StepFrame, DurationMS: 80, Inputs: InputVector{"throttle": 1.0}},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "macros.json")
	if err := ExportFile(path, src); err != nil {
		t.Fatalf("ExportFile() = %v", err)
	}

	got, err := ImportFile(path)
	if err != nil {
		t.Fatalf("ImportFile() = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}

	m := got[0]
	if m.Name != "Round Trip" || m.Type != TypeMultiStage {
		t.Errorf("identity round-trip = %+v", m)
	}
	if m.Trigger == nil || *m.Trigger != "f8" {
		t.Errorf("Trigger = %v", m.Trigger)
	}
	if len(m.Steps) != len(src[0].Steps) {
		t.Fatalf("len(Steps) = %d, want %d", len(m.Steps), len(src[0].Steps))
	}
	for i := range m.Steps {
		if m.Steps[i].Kind != src[0].Steps[i].Kind {
			t.Errorf("step %d kind = %q, want %q", i, m.Steps[i].Kind, src[0].Steps[i].Kind)
		}
	}
	if m.Steps[3].Label != "waiting on jump" {
		t.Errorf("expect label = %q", m.Steps[3].Label)
	}
}
