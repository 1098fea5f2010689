package macro

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides macro management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups,
// which matters for the hotkey path: trigger resolution runs on every
// keyboard event and must not touch the database.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Macro // Cached macros by ID
	cacheMu sync.RWMutex      // Protects cache
	logger  Logger
}

// NewRegistry creates a new macro registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Macro),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all macros from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	macros, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading macros: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	// Clear and rebuild cache with deep copies
	r.cache = make(map[string]*Macro, len(macros))
	for i := range macros {
		m := macros[i]
		r.cache[m.ID] = m.DeepCopy()
	}

	r.logger.Info("macro cache refreshed", "count", len(macros))
	return nil
}

// GetMacro retrieves a macro by ID.
// Returns ErrMacroNotFound if the macro does not exist.
// The returned macro is a deep copy; callers can safely modify it.
func (r *Registry) GetMacro(ctx context.Context, id string) (*Macro, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		// Return a deep copy to prevent external mutation of cache
		return cached.DeepCopy(), nil
	}

	// Fall back to repository (might be a new macro not yet cached)
	m, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[m.ID] = m.DeepCopy()
	r.cacheMu.Unlock()

	return m, nil
}

// GetMacroBySlug retrieves a macro by its slug.
// Returns ErrMacroNotFound if no macro has the given slug.
func (r *Registry) GetMacroBySlug(ctx context.Context, slug string) (*Macro, error) {
	r.cacheMu.RLock()
	for _, m := range r.cache {
		if m.Slug == slug {
			copied := m.DeepCopy()
			r.cacheMu.RUnlock()
			return copied, nil
		}
	}
	r.cacheMu.RUnlock()

	m, err := r.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[m.ID] = m.DeepCopy()
	r.cacheMu.Unlock()

	return m, nil
}

// GetByTrigger retrieves the enabled macro bound to the given trigger key,
// if any. Trigger comparison is case-insensitive. This is a cache-only
// lookup so the hotkey listener can call it per keystroke.
func (r *Registry) GetByTrigger(trigger string) (*Macro, bool) {
	trigger = strings.ToLower(strings.TrimSpace(trigger))
	if trigger == "" {
		return nil, false
	}

	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	for _, m := range r.cache {
		if !m.Enabled || m.Trigger == nil {
			continue
		}
		if strings.ToLower(*m.Trigger) == trigger {
			return m.DeepCopy(), true
		}
	}
	return nil, false
}

// ListMacros retrieves all macros sorted by sort order then name.
// The returned macros are deep copies; callers can safely modify them.
func (r *Registry) ListMacros(ctx context.Context) ([]Macro, error) {
	r.cacheMu.RLock()
	if len(r.cache) > 0 {
		macros := make([]Macro, 0, len(r.cache))
		for _, m := range r.cache {
			macros = append(macros, *m.DeepCopy())
		}
		r.cacheMu.RUnlock()
		sortMacros(macros)
		return macros, nil
	}
	r.cacheMu.RUnlock()

	// Cache empty, load from repository
	macros, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	sortMacros(macros)
	return macros, nil
}

// CreateMacro validates and persists a new macro, then caches it.
func (r *Registry) CreateMacro(ctx context.Context, m *Macro) error {
	if m.ID == "" {
		m.ID = GenerateID()
	}
	if m.Slug == "" {
		m.Slug = GenerateSlug(m.Name)
	}
	if m.Type == "" {
		m.Type = TypeSingleStage
	}

	if err := ValidateMacro(m); err != nil {
		return err
	}

	if err := r.repo.Create(ctx, m); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[m.ID] = m.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("macro created", "id", m.ID, "name", m.Name, "slug", m.Slug)
	return nil
}

// UpdateMacro validates and persists changes to an existing macro.
func (r *Registry) UpdateMacro(ctx context.Context, m *Macro) error {
	if err := ValidateMacro(m); err != nil {
		return err
	}

	if err := r.repo.Update(ctx, m); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[m.ID] = m.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("macro updated", "id", m.ID, "name", m.Name)
	return nil
}

// DeleteMacro removes a macro from the repository and the cache.
func (r *Registry) DeleteMacro(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("macro deleted", "id", id)
	return nil
}

func sortMacros(macros []Macro) {
	sort.Slice(macros, func(i, j int) bool {
		if macros[i].SortOrder != macros[j].SortOrder {
			return macros[i].SortOrder < macros[j].SortOrder
		}
		return macros[i].Name < macros[j].Name
	})
}
