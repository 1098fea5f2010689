// Package macro provides the macro domain model for MacroDeck Core.
//
// A macro is a named, ordered sequence of steps. Two families of step
// exist and may be mixed freely within one macro:
//
//   - keyboard steps: timed waits, key presses and releases, and
//     advisory expectations checked against live input
//   - frame steps: per-tick controller input vectors (axes in [-1, 1]
//     plus boolean buttons) streamed to a remote consumer
//
// # Key Types
//
//   - Step: Tagged union of wait / key / expect / frame steps
//   - Macro: Named step sequence with slug, trigger and metadata
//   - Execution: Audit record of a single macro run
//   - InputVector: Sparse controller state delta for frame steps
//   - Key: Resolved key identity (symbolic code or literal character)
//   - Registry: Thread-safe in-memory cache wrapping Repository
//   - Repository: Persistence interface with a SQLite implementation
//
// # Key Resolution
//
// ResolveKey is total: every name resolves to either a symbolic key
// (including aliases such as "escape" for esc and "control" for ctrl,
// and "f"+digits function keys) or a literal character, never an error.
//
// # Thread Safety
//
// Registry is safe for concurrent use from multiple goroutines. Macro
// values handed out by the Registry are deep copies; callers may mutate
// them without affecting the cache.
//
// # Usage
//
//	repo := macro.NewSQLiteRepository(db)
//	registry := macro.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	m, err := registry.GetMacroBySlug(ctx, "quick-jump")
package macro
