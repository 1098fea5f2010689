package macro

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the macros schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}

	// Create the macros tables (matches migration)
	schema := `
		CREATE TABLE macros (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			description TEXT,
			type TEXT,
			trigger_key TEXT,
			enabled INTEGER NOT NULL DEFAULT 1,
			steps TEXT NOT NULL DEFAULT '[]',
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE macro_executions (
			id TEXT PRIMARY KEY,
			macro_id TEXT NOT NULL,
			triggered_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			started_at TEXT,
			completed_at TEXT,
			trigger_type TEXT NOT NULL DEFAULT 'manual',
			status TEXT NOT NULL DEFAULT 'pending',
			steps_total INTEGER NOT NULL DEFAULT 0,
			steps_completed INTEGER NOT NULL DEFAULT 0,
			steps_skipped INTEGER NOT NULL DEFAULT 0,
			matched INTEGER NOT NULL DEFAULT 0,
			unmatched INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER,
			FOREIGN KEY (macro_id) REFERENCES macros(id) ON DELETE CASCADE
		) STRICT;`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testMacro creates a test macro with the given ID and name.
func testMacro(id, name string) *Macro {
	return &Macro{
		ID:      id,
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

func TestSQLiteRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	m := testMacro("macro-1", "Quick Jump")
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create() = %v", err)
	}

	got, err := repo.GetByID(ctx, "macro-1")
	if err != nil {
		t.Fatalf("GetByID() = %v", err)
	}
	if got.Name != "Quick Jump" {
		t.Errorf("Name = %q, want %q", got.Name, "Quick Jump")
	}
	if got.Slug != "quick-jump" {
		t.Errorf("Slug = %q, want %q", got.Slug, "quick-jump")
	}
	if len(got.Steps) != 3 {
		t.Errorf("len(Steps) = %d, want 3", len(got.Steps))
	}
	if got.Steps[1].Key != "space" || got.Steps[1].Action != KeyPress {
		t.Errorf("step 1 round-trip = %+v", got.Steps[1])
	}
	if !got.Enabled {
		t.Error("Enabled should round-trip as true")
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps should be populated on create")
	}
}

func TestSQLiteRepository_Create_DuplicateSlug(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, testMacro("macro-1", "Same Name")); err != nil {
		t.Fatalf("first Create() = %v", err)
	}

	err := repo.Create(ctx, testMacro("macro-2", "Same Name"))
	if !errors.Is(err, ErrMacroExists) {
		t.Errorf("duplicate Create() = %v, want ErrMacroExists", err)
	}
}

func TestSQLiteRepository_GetByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)

	_, err := repo.GetByID(context.Background(), "nope")
	if !errors.Is(err, ErrMacroNotFound) {
		t.Errorf("GetByID() = %v, want ErrMacroNotFound", err)
	}
}

func TestSQLiteRepository_GetBySlug(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, testMacro("macro-1", "Wave Dash")); err != nil {
		t.Fatalf("Create() = %v", err)
	}

	got, err := repo.GetBySlug(ctx, "wave-dash")
	if err != nil {
		t.Fatalf("GetBySlug() = %v", err)
	}
	if got.ID != "macro-1" {
		t.Errorf("ID = %q, want macro-1", got.ID)
	}

	if _, err := repo.GetBySlug(ctx, "missing"); !errors.Is(err, ErrMacroNotFound) {
		t.Errorf("GetBySlug(missing) = %v, want ErrMacroNotFound", err)
	}
}

func TestSQLiteRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	m := testMacro("macro-1", "Before")
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create() = %v", err)
	}

	trigger := "f6"
	m.Name = "After"
	m.Trigger = &trigger
	m.Enabled = false
	m.Steps = []Step{{Kind: StepFrame, DurationMS: 80, Inputs: InputVector{"throttle": 1.0}}}

	if err := repo.Update(ctx, m); err != nil {
		t.Fatalf("Update() = %v", err)
	}

	got, err := repo.GetByID(ctx, "macro-1")
	if err != nil {
		t.Fatalf("GetByID() = %v", err)
	}
	if got.Name != "After" {
		t.Errorf("Name = %q, want After", got.Name)
	}
	if got.Trigger == nil || *got.Trigger != "f6" {
		t.Errorf("Trigger = %v, want f6", got.Trigger)
	}
	if got.Enabled {
		t.Error("Enabled should round-trip as false")
	}
	if len(got.Steps) != 1 || got.Steps[0].Kind != StepFrame {
		t.Errorf("Steps round-trip = %+v", got.Steps)
	}
	if x, ok := got.Steps[0].Inputs.Axis("throttle"); !ok || x != 1.0 {
		t.Errorf("frame inputs round-trip = %+v", got.Steps[0].Inputs)
	}
}

func TestSQLiteRepository_Update_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)

	err := repo.Update(context.Background(), testMacro("ghost", "Ghost"))
	if !errors.Is(err, ErrMacroNotFound) {
		t.Errorf("Update() = %v, want ErrMacroNotFound", err)
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, testMacro("macro-1", "Doomed")); err != nil {
		t.Fatalf("Create() = %v", err)
	}
	if err := repo.Delete(ctx, "macro-1"); err != nil {
		t.Fatalf("Delete() = %v", err)
	}
	if _, err := repo.GetByID(ctx, "macro-1"); !errors.Is(err, ErrMacroNotFound) {
		t.Errorf("GetByID after delete = %v, want ErrMacroNotFound", err)
	}
	if err := repo.Delete(ctx, "macro-1"); !errors.Is(err, ErrMacroNotFound) {
		t.Errorf("second Delete() = %v, want ErrMacroNotFound", err)
	}
}

func TestSQLiteRepository_List_Ordering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	a := testMacro("macro-a", "Zeta")
	a.SortOrder = 0
	b := testMacro("macro-b", "Alpha")
	b.SortOrder = 1
	c := testMacro("macro-c", "Middle")
	c.SortOrder = 0
	c.Enabled = false

	for _, m := range []*Macro{a, b, c} {
		if err := repo.Create(ctx, m); err != nil {
			t.Fatalf("Create(%s) = %v", m.ID, err)
		}
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(List()) = %d, want 3", len(list))
	}
	// sort_order first, then name: Middle(0) < Zeta(0) < Alpha(1)
	if list[0].Name != "Middle" || list[1].Name != "Zeta" || list[2].Name != "Alpha" {
		t.Errorf("order = [%s %s %s]", list[0].Name, list[1].Name, list[2].Name)
	}

	enabled, err := repo.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("ListEnabled() = %v", err)
	}
	if len(enabled) != 2 {
		t.Errorf("len(ListEnabled()) = %d, want 2", len(enabled))
	}
	for _, m := range enabled {
		if !m.Enabled {
			t.Errorf("ListEnabled returned disabled macro %s", m.ID)
		}
	}
}

// ─── Executions ─────────────────────────────────────────────────────────────

func TestSQLiteRepository_ExecutionLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, testMacro("macro-1", "Runner")); err != nil {
		t.Fatalf("Create() = %v", err)
	}

	exec := &Execution{
		ID:          GenerateID(),
		MacroID:     "macro-1",
		TriggeredAt: time.Now().UTC(),
		Trigger:     "hotkey",
		Status:      StatusPending,
		StepsTotal:  3,
	}
	if err := repo.CreateExecution(ctx, exec); err != nil {
		t.Fatalf("CreateExecution() = %v", err)
	}

	started := time.Now().UTC()
	completed := started.Add(450 * time.Millisecond)
	duration := 450
	exec.StartedAt = &started
	exec.CompletedAt = &completed
	exec.Status = StatusCompleted
	exec.StepsCompleted = 2
	exec.StepsSkipped = 1
	exec.Matched = 1
	exec.DurationMS = &duration

	if err := repo.UpdateExecution(ctx, exec); err != nil {
		t.Fatalf("UpdateExecution() = %v", err)
	}

	got, err := repo.GetExecution(ctx, exec.ID)
	if err != nil {
		t.Fatalf("GetExecution() = %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	if got.StepsCompleted != 2 || got.StepsSkipped != 1 || got.Matched != 1 {
		t.Errorf("counters round-trip = %+v", got)
	}
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Error("started/completed timestamps should round-trip")
	}
	if got.DurationMS == nil || *got.DurationMS != 450 {
		t.Errorf("DurationMS = %v, want 450", got.DurationMS)
	}
}

func TestSQLiteRepository_ListExecutions_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, testMacro("macro-1", "Runner")); err != nil {
		t.Fatalf("Create() = %v", err)
	}

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		exec := &Execution{
			ID:          GenerateID(),
			MacroID:     "macro-1",
			TriggeredAt: base.Add(time.Duration(i) * time.Minute),
			Trigger:     "manual",
			Status:      StatusCompleted,
		}
		if err := repo.CreateExecution(ctx, exec); err != nil {
			t.Fatalf("CreateExecution(%d) = %v", i, err)
		}
	}

	list, err := repo.ListExecutions(ctx, "macro-1", 2)
	if err != nil {
		t.Fatalf("ListExecutions() = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2 (limit)", len(list))
	}
	if !list[0].TriggeredAt.After(list[1].TriggeredAt) {
		t.Errorf("executions not newest first: %v then %v", list[0].TriggeredAt, list[1].TriggeredAt)
	}
}

func TestSQLiteRepository_UpdateExecution_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)

	exec := &Execution{ID: "ghost", MacroID: "m", TriggeredAt: time.Now(), Trigger: "manual", Status: StatusPending}
	if err := repo.UpdateExecution(context.Background(), exec); !errors.Is(err, ErrExecutionNotFound) {
		t.Errorf("UpdateExecution() = %v, want ErrExecutionNotFound", err)
	}
}
