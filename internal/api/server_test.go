package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/macrodeck-core/internal/infrastructure/config"
	"github.com/nerrad567/macrodeck-core/internal/infrastructure/logging"
	"github.com/nerrad567/macrodeck-core/internal/macro"
)

// testServer creates a Server with a real macro registry backed by in-memory SQLite.
func testServer(t *testing.T) (*Server, *macro.Registry, *mockEngine) {
	t.Helper()

	db := setupTestDB(t)
	repo := macro.NewSQLiteRepository(db)
	registry := macro.NewRegistry(repo)
	if err := registry.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache: %v", err)
	}

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	engine := &mockEngine{}

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:   log,
		Registry: registry,
		Repo:     repo,
		Engine:   engine,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub for tests
	srv.hub = NewHub(srv.wsCfg, log)
	go srv.hub.Run(context.Background())

	return srv, registry, engine
}

// setupTestDB creates an in-memory SQLite database with the macros schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

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

	if _, execErr := db.Exec(schema); execErr != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", execErr)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// mockEngine implements Runner for handler tests.
type mockEngine struct {
	mu       sync.Mutex
	running  bool
	execID   string
	runErr   error
	runCalls []string // macro IDs passed to Run
	stopped  int
}

func (m *mockEngine) Run(mac *macro.Macro, trigger string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runCalls = append(m.runCalls, mac.ID)
	if m.runErr != nil {
		return "", m.runErr
	}
	m.running = true
	m.execID = "exec-test-1"
	return m.execID, nil
}

func (m *mockEngine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped++
	m.running = false
}

func (m *mockEngine) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *mockEngine) CurrentExecution() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return ""
	}
	return m.execID
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

// ─── Lifecycle Tests ───────────────────────────────────────────────

func TestNew_MissingLogger(t *testing.T) {
	_, err := New(Deps{Registry: &macro.Registry{}})
	if err == nil {
		t.Error("New() should fail without logger")
	}
}

func TestNew_MissingRegistry(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	_, err := New(Deps{Logger: log})
	if err == nil {
		t.Error("New() should fail without registry")
	}
}

func TestClose_NotStarted(t *testing.T) {
	srv, _, _ := testServer(t)
	if err := srv.Close(); err != nil {
		t.Errorf("Close() before Start() error = %v", err)
	}
}

func TestHealthCheck_NotStarted(t *testing.T) {
	srv, _, _ := testServer(t)
	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() should fail before Start()")
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestIDHeader(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("response missing X-Request-ID header")
	}
}

func TestRequestIDPropagated(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-supplied-id" {
		t.Errorf("X-Request-ID = %q, want client-supplied-id", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/macros", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}
