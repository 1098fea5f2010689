package macro

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for macro persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Macro CRUD
	GetByID(ctx context.Context, id string) (*Macro, error)
	GetBySlug(ctx context.Context, slug string) (*Macro, error)
	List(ctx context.Context) ([]Macro, error)
	ListEnabled(ctx context.Context) ([]Macro, error)
	Create(ctx context.Context, m *Macro) error
	Update(ctx context.Context, m *Macro) error
	Delete(ctx context.Context, id string) error

	// Execution logging
	CreateExecution(ctx context.Context, exec *Execution) error
	UpdateExecution(ctx context.Context, exec *Execution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	ListExecutions(ctx context.Context, macroID string, limit int) ([]Execution, error)
}

// macroColumns is the SELECT column list for macro queries.
const macroColumns = `id, name, slug, description, type, trigger_key, enabled,
			steps, sort_order, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a macro by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Macro, error) {
	query := `SELECT ` + macroColumns + ` FROM macros WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	m, err := scanMacroRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMacroNotFound
		}
		return nil, fmt.Errorf("querying macro by id: %w", err)
	}
	return m, nil
}

// GetBySlug retrieves a macro by its slug.
func (r *SQLiteRepository) GetBySlug(ctx context.Context, slug string) (*Macro, error) {
	query := `SELECT ` + macroColumns + ` FROM macros WHERE slug = ?`

	row := r.db.QueryRowContext(ctx, query, slug)
	m, err := scanMacroRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMacroNotFound
		}
		return nil, fmt.Errorf("querying macro by slug: %w", err)
	}
	return m, nil
}

// List retrieves all macros ordered by sort_order then name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Macro, error) {
	query := `SELECT ` + macroColumns + ` FROM macros ORDER BY sort_order, name`
	return r.queryMacros(ctx, query)
}

// ListEnabled retrieves all enabled macros ordered by sort_order then name.
func (r *SQLiteRepository) ListEnabled(ctx context.Context) ([]Macro, error) {
	query := `SELECT ` + macroColumns + ` FROM macros WHERE enabled = 1 ORDER BY sort_order, name`
	return r.queryMacros(ctx, query)
}

// Create inserts a new macro.
func (r *SQLiteRepository) Create(ctx context.Context, m *Macro) error {
	stepsJSON, err := json.Marshal(m.Steps)
	if err != nil {
		return fmt.Errorf("marshalling steps: %w", err)
	}

	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	query := `
		INSERT INTO macros (
			id, name, slug, description, type, trigger_key, enabled,
			steps, sort_order, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		m.ID,
		m.Name,
		m.Slug,
		nullableString(m.Description),
		nullableType(m.Type),
		nullableString(m.Trigger),
		boolToInt(m.Enabled),
		string(stepsJSON),
		m.SortOrder,
		m.CreatedAt.Format(time.RFC3339),
		m.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrMacroExists
		}
		return fmt.Errorf("inserting macro: %w", err)
	}
	return nil
}

// Update modifies an existing macro.
func (r *SQLiteRepository) Update(ctx context.Context, m *Macro) error {
	stepsJSON, err := json.Marshal(m.Steps)
	if err != nil {
		return fmt.Errorf("marshalling steps: %w", err)
	}

	m.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE macros SET
			name = ?, slug = ?, description = ?, type = ?, trigger_key = ?,
			enabled = ?, steps = ?, sort_order = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		m.Name,
		m.Slug,
		nullableString(m.Description),
		nullableType(m.Type),
		nullableString(m.Trigger),
		boolToInt(m.Enabled),
		string(stepsJSON),
		m.SortOrder,
		m.UpdatedAt.Format(time.RFC3339),
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("updating macro: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMacroNotFound
	}
	return nil
}

// Delete removes a macro by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM macros WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting macro: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMacroNotFound
	}
	return nil
}

// CreateExecution inserts a new execution record.
func (r *SQLiteRepository) CreateExecution(ctx context.Context, exec *Execution) error {
	query := `
		INSERT INTO macro_executions (
			id, macro_id, triggered_at, started_at, completed_at,
			trigger_type, status, steps_total, steps_completed, steps_skipped,
			matched, unmatched, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		exec.ID,
		exec.MacroID,
		exec.TriggeredAt.Format(time.RFC3339),
		nullableTime(exec.StartedAt),
		nullableTime(exec.CompletedAt),
		exec.Trigger,
		string(exec.Status),
		exec.StepsTotal,
		exec.StepsCompleted,
		exec.StepsSkipped,
		exec.Matched,
		exec.Unmatched,
		exec.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

// UpdateExecution updates an existing execution record.
func (r *SQLiteRepository) UpdateExecution(ctx context.Context, exec *Execution) error {
	query := `
		UPDATE macro_executions SET
			started_at = ?, completed_at = ?, status = ?,
			steps_total = ?, steps_completed = ?, steps_skipped = ?,
			matched = ?, unmatched = ?, duration_ms = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		nullableTime(exec.StartedAt),
		nullableTime(exec.CompletedAt),
		string(exec.Status),
		exec.StepsTotal,
		exec.StepsCompleted,
		exec.StepsSkipped,
		exec.Matched,
		exec.Unmatched,
		exec.DurationMS,
		exec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating execution: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrExecutionNotFound
	}
	return nil
}

// GetExecution retrieves an execution by ID.
func (r *SQLiteRepository) GetExecution(ctx context.Context, id string) (*Execution, error) {
	query := `
		SELECT id, macro_id, triggered_at, started_at, completed_at,
			trigger_type, status, steps_total, steps_completed, steps_skipped,
			matched, unmatched, duration_ms
		FROM macro_executions
		WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	exec, err := scanExecutionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("querying execution: %w", err)
	}
	return exec, nil
}

// ListExecutions retrieves recent executions for a macro, newest first.
func (r *SQLiteRepository) ListExecutions(ctx context.Context, macroID string, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	query := `
		SELECT id, macro_id, triggered_at, started_at, completed_at,
			trigger_type, status, steps_total, steps_completed, steps_skipped,
			matched, unmatched, duration_ms
		FROM macro_executions
		WHERE macro_id = ?
		ORDER BY triggered_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, macroID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var executions []Execution
	for rows.Next() {
		exec, scanErr := scanExecutionRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning execution: %w", scanErr)
		}
		executions = append(executions, *exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return executions, nil
}

// queryMacros executes a query and returns a slice of macros.
func (r *SQLiteRepository) queryMacros(ctx context.Context, query string, args ...any) ([]Macro, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying macros: %w", err)
	}
	defer rows.Close()

	var macros []Macro
	for rows.Next() {
		m, scanErr := scanMacroRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning macro: %w", scanErr)
		}
		macros = append(macros, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating macros: %w", err)
	}
	return macros, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMacroRow(scanner rowScanner) (*Macro, error) {
	var m Macro
	var description, macroType, trigger sql.NullString
	var stepsJSON string
	var enabled int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&m.ID,
		&m.Name,
		&m.Slug,
		&description,
		&macroType,
		&trigger,
		&enabled,
		&stepsJSON,
		&m.SortOrder,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		m.Description = &description.String
	}
	if macroType.Valid {
		m.Type = MacroType(macroType.String)
	}
	if trigger.Valid {
		m.Trigger = &trigger.String
	}
	m.Enabled = enabled != 0

	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		m.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		m.UpdatedAt = t
	}

	if stepsJSON != "" && stepsJSON != "[]" {
		if jsonErr := json.Unmarshal([]byte(stepsJSON), &m.Steps); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling steps: %w", jsonErr)
		}
	}
	if m.Steps == nil {
		m.Steps = []Step{}
	}

	return &m, nil
}

func scanExecutionRow(scanner rowScanner) (*Execution, error) {
	var e Execution
	var triggeredAt string
	var startedAt, completedAt sql.NullString
	var durationMS sql.NullInt64
	var status string

	err := scanner.Scan(
		&e.ID,
		&e.MacroID,
		&triggeredAt,
		&startedAt,
		&completedAt,
		&e.Trigger,
		&status,
		&e.StepsTotal,
		&e.StepsCompleted,
		&e.StepsSkipped,
		&e.Matched,
		&e.Unmatched,
		&durationMS,
	)
	if err != nil {
		return nil, err
	}

	e.Status = ExecutionStatus(status)
	if t, parseErr := time.Parse(time.RFC3339, triggeredAt); parseErr == nil {
		e.TriggeredAt = t
	}
	if startedAt.Valid {
		if t, parseErr := time.Parse(time.RFC3339, startedAt.String); parseErr == nil {
			e.StartedAt = &t
		}
	}
	if completedAt.Valid {
		if t, parseErr := time.Parse(time.RFC3339, completedAt.String); parseErr == nil {
			e.CompletedAt = &t
		}
	}
	if durationMS.Valid {
		d := int(durationMS.Int64)
		e.DurationMS = &d
	}

	return &e, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableType(t MacroType) sql.NullString {
	if t == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: string(t), Valid: true}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks whether err is a SQLite unique
// constraint violation without depending on driver error types.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
