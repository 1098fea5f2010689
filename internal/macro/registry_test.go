package macro

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// mockRepository is an in-memory Repository for registry tests.
type mockRepository struct {
	mu     sync.Mutex
	macros map[string]*Macro
	// listCalls counts repository hits so tests can assert cache use
	listCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{macros: make(map[string]*Macro)}
}

func (r *mockRepository) GetByID(_ context.Context, id string) (*Macro, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.macros[id]
	if !ok {
		return nil, ErrMacroNotFound
	}
	return m.DeepCopy(), nil
}

func (r *mockRepository) GetBySlug(_ context.Context, slug string) (*Macro, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.macros {
		if m.Slug == slug {
			return m.DeepCopy(), nil
		}
	}
	return nil, ErrMacroNotFound
}

func (r *mockRepository) List(_ context.Context) ([]Macro, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	out := make([]Macro, 0, len(r.macros))
	for _, m := range r.macros {
		out = append(out, *m.DeepCopy())
	}
	return out, nil
}

func (r *mockRepository) ListEnabled(ctx context.Context) ([]Macro, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Macro
	for _, m := range all {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *mockRepository) Create(_ context.Context, m *Macro) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.macros[m.ID]; ok {
		return ErrMacroExists
	}
	r.macros[m.ID] = m.DeepCopy()
	return nil
}

func (r *mockRepository) Update(_ context.Context, m *Macro) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.macros[m.ID]; !ok {
		return ErrMacroNotFound
	}
	r.macros[m.ID] = m.DeepCopy()
	return nil
}

func (r *mockRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.macros[id]; !ok {
		return ErrMacroNotFound
	}
	delete(r.macros, id)
	return nil
}

func (r *mockRepository) CreateExecution(context.Context, *Execution) error  { return nil }
func (r *mockRepository) UpdateExecution(context.Context, *Execution) error { return nil }
func (r *mockRepository) GetExecution(context.Context, string) (*Execution, error) {
	return nil, ErrExecutionNotFound
}
func (r *mockRepository) ListExecutions(context.Context, string, int) ([]Execution, error) {
	return nil, nil
}

func seedRegistry(t *testing.T, macros ...*Macro) (*Registry, *mockRepository) {
	t.Helper()
	repo := newMockRepository()
	for _, m := range macros {
		if err := repo.Create(context.Background(), m); err != nil {
			t.Fatalf("seeding %s: %v", m.ID, err)
		}
	}
	reg := NewRegistry(repo)
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() = %v", err)
	}
	return reg, repo
}

func TestRegistry_GetMacro_CacheIsolation(t *testing.T) {
	m := NewMacro("Isolated")
	m.ID = "macro-1"
	reg, _ := seedRegistry(t, m)

	got, err := reg.GetMacro(context.Background(), "macro-1")
	if err != nil {
		t.Fatalf("GetMacro() = %v", err)
	}

	// Mutating the returned copy must not leak into the cache
	got.Name = "Mutated"
	got.Steps[0].Seconds = 99

	again, err := reg.GetMacro(context.Background(), "macro-1")
	if err != nil {
		t.Fatalf("second GetMacro() = %v", err)
	}
	if again.Name != "Isolated" || again.Steps[0].Seconds != 0.2 {
		t.Errorf("cache was mutated through a returned copy: %+v", again)
	}
}

func TestRegistry_GetMacro_NotFound(t *testing.T) {
	reg, _ := seedRegistry(t)
	if _, err := reg.GetMacro(context.Background(), "ghost"); !errors.Is(err, ErrMacroNotFound) {
		t.Errorf("GetMacro() = %v, want ErrMacroNotFound", err)
	}
}

func TestRegistry_GetMacroBySlug(t *testing.T) {
	m := NewMacro("Sluggish")
	m.ID = "macro-1"
	reg, _ := seedRegistry(t, m)

	got, err := reg.GetMacroBySlug(context.Background(), "sluggish")
	if err != nil {
		t.Fatalf("GetMacroBySlug() = %v", err)
	}
	if got.ID != "macro-1" {
		t.Errorf("ID = %q, want macro-1", got.ID)
	}
}

func TestRegistry_GetByTrigger(t *testing.T) {
	f6 := "F6"
	a := NewMacro("Bound")
	a.ID = "macro-a"
	a.Trigger = &f6

	f7 := "f7"
	b := NewMacro("Disabled")
	b.ID = "macro-b"
	b.Trigger = &f7
	b.Enabled = false

	c := NewMacro("Unbound")
	c.ID = "macro-c"

	reg, _ := seedRegistry(t, a, b, c)

	// Case-insensitive match on an enabled macro
	got, ok := reg.GetByTrigger("f6")
	if !ok {
		t.Fatal("GetByTrigger(f6) found nothing")
	}
	if got.ID != "macro-a" {
		t.Errorf("ID = %q, want macro-a", got.ID)
	}

	// Disabled macros never match
	if _, ok := reg.GetByTrigger("f7"); ok {
		t.Error("GetByTrigger matched a disabled macro")
	}

	// Unknown and empty triggers
	if _, ok := reg.GetByTrigger("f12"); ok {
		t.Error("GetByTrigger matched an unbound trigger")
	}
	if _, ok := reg.GetByTrigger(""); ok {
		t.Error("GetByTrigger matched the empty trigger")
	}
}

func TestRegistry_ListMacros_UsesCache(t *testing.T) {
	m := NewMacro("Cached")
	m.ID = "macro-1"
	reg, repo := seedRegistry(t, m)

	before := repo.listCalls
	list, err := reg.ListMacros(context.Background())
	if err != nil {
		t.Fatalf("ListMacros() = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}
	if repo.listCalls != before {
		t.Error("ListMacros hit the repository despite a warm cache")
	}
}

func TestRegistry_CreateMacro_FillsDefaults(t *testing.T) {
	reg, repo := seedRegistry(t)

	m := &Macro{Name: "Fresh Macro", Enabled: true}
	if err := reg.CreateMacro(context.Background(), m); err != nil {
		t.Fatalf("CreateMacro() = %v", err)
	}
	if m.ID == "" {
		t.Error("CreateMacro should assign an ID")
	}
	if m.Slug != "fresh-macro" {
		t.Errorf("Slug = %q, want fresh-macro", m.Slug)
	}
	if m.Type != TypeSingleStage {
		t.Errorf("Type = %q, want single-stage default", m.Type)
	}

	if _, err := repo.GetByID(context.Background(), m.ID); err != nil {
		t.Errorf("macro not persisted: %v", err)
	}
	if _, err := reg.GetMacro(context.Background(), m.ID); err != nil {
		t.Errorf("macro not cached: %v", err)
	}
}

func TestRegistry_CreateMacro_Invalid(t *testing.T) {
	reg, _ := seedRegistry(t)

	err := reg.CreateMacro(context.Background(), &Macro{Name: ""})
	if !errors.Is(err, ErrInvalidName) {
		t.Errorf("CreateMacro() = %v, want ErrInvalidName", err)
	}
}

func TestRegistry_UpdateMacro_RefreshesCache(t *testing.T) {
	m := NewMacro("Before")
	m.ID = "macro-1"
	reg, _ := seedRegistry(t, m)

	updated := m.DeepCopy()
	updated.Name = "After"
	if err := reg.UpdateMacro(context.Background(), updated); err != nil {
		t.Fatalf("UpdateMacro() = %v", err)
	}

	got, err := reg.GetMacro(context.Background(), "macro-1")
	if err != nil {
		t.Fatalf("GetMacro() = %v", err)
	}
	if got.Name != "After" {
		t.Errorf("cache not refreshed: Name = %q", got.Name)
	}
}

func TestRegistry_DeleteMacro_EvictsCache(t *testing.T) {
	m := NewMacro("Doomed")
	m.ID = "macro-1"
	reg, _ := seedRegistry(t, m)

	if err := reg.DeleteMacro(context.Background(), "macro-1"); err != nil {
		t.Fatalf("DeleteMacro() = %v", err)
	}
	if _, err := reg.GetMacro(context.Background(), "macro-1"); !errors.Is(err, ErrMacroNotFound) {
		t.Errorf("GetMacro after delete = %v, want ErrMacroNotFound", err)
	}
	if _, ok := reg.GetByTrigger("f6"); ok {
		t.Error("deleted macro still reachable by trigger")
	}
}
