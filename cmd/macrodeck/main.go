// MacroDeck Core - Macro Playback Engine
//
// This is the main entry point for the MacroDeck Core service. It wires
// together the macro registry, the playback engine, input observation,
// key emulation, the frame stream, the HTTP/WebSocket API, and the
// optional MQTT and telemetry planes, then waits for a shutdown signal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/nerrad567/macrodeck-core/migrations"

	"github.com/nerrad567/macrodeck-core/internal/api"
	"github.com/nerrad567/macrodeck-core/internal/emulation"
	"github.com/nerrad567/macrodeck-core/internal/hotkey"
	"github.com/nerrad567/macrodeck-core/internal/infrastructure/config"
	"github.com/nerrad567/macrodeck-core/internal/infrastructure/database"
	"github.com/nerrad567/macrodeck-core/internal/infrastructure/logging"
	"github.com/nerrad567/macrodeck-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/macrodeck-core/internal/infrastructure/telemetry"
	"github.com/nerrad567/macrodeck-core/internal/input"
	"github.com/nerrad567/macrodeck-core/internal/macro"
	"github.com/nerrad567/macrodeck-core/internal/playback"
	"github.com/nerrad567/macrodeck-core/internal/stream"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting MacroDeck Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise macro registry
	repo := macro.NewSQLiteRepository(db.DB)
	registry := macro.NewRegistry(repo)
	registry.SetLogger(log)

	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading macro registry: %w", refreshErr)
	}

	// One-shot legacy JSON import: only into an empty database, so a
	// restart never duplicates macros.
	if cfg.Import.Path != "" {
		if importErr := importLegacyMacros(ctx, cfg.Import.Path, registry, log); importErr != nil {
			return fmt.Errorf("importing macros: %w", importErr)
		}
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to telemetry (optional). A nil client no-ops all writes,
	// so downstream code never needs an enabled check.
	var teleClient *telemetry.Client
	if cfg.Telemetry.Enabled {
		teleClient, err = telemetry.Connect(cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("connecting to telemetry: %w", err)
		}
		defer func() {
			log.Info("closing telemetry connection")
			if closeErr := teleClient.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		log.Info("telemetry connected",
			"url", cfg.Telemetry.URL,
			"org", cfg.Telemetry.Org,
			"bucket", cfg.Telemetry.Bucket,
		)

		teleClient.SetOnError(func(err error) {
			log.Error("telemetry write error", "error", err)
		})
	} else {
		log.Info("telemetry disabled")
	}

	// Start input observation
	var source input.Source
	var keyFeed hotkey.KeyFeed
	switch cfg.Input.Source {
	case "keyboard":
		kb := input.NewKeyboardSource(log)
		if startErr := kb.Start(ctx); startErr != nil {
			return fmt.Errorf("starting keyboard source: %w", startErr)
		}
		defer func() {
			log.Info("stopping keyboard source")
			kb.Stop()
		}()
		source = kb
		keyFeed = kb
		log.Info("keyboard source started")
	default:
		// Expect steps see a neutral snapshot without observation.
		log.Info("running without input observation", "source", cfg.Input.Source)
	}

	// Assemble the frame stream sink
	sink, sinkAddr, closeSink, err := buildStreamSink(cfg, mqttClient)
	if err != nil {
		return fmt.Errorf("opening stream sink: %w", err)
	}
	if closeSink != nil {
		defer closeSink()
	}
	if sink != nil {
		log.Info("stream sink ready",
			"target", sinkAddr,
			"mode", cfg.Stream.Mode,
			"mirror_mqtt", cfg.Stream.MirrorMQTT && mqttClient != nil,
		)
	} else {
		log.Info("stream disabled, frame steps will skip")
	}

	// The run recorder persists execution records and fans the terminal
	// status out to MQTT and telemetry.
	recorder := &runRecorder{
		Repository: repo,
		registry:   registry,
		events:     mqttClient,
		tele:       teleClient,
		qos:        byte(cfg.MQTT.QoS),
		log:        log,
	}

	// Create the playback engine
	keys := emulation.NewKeyboard(log)
	engine := playback.NewEngine(playback.Config{
		PollInterval: cfg.PollInterval(),
		Tolerance:    cfg.Tolerance(),
		WaitSlice:    cfg.WaitSlice(),
		StreamMode:   stream.Mode(cfg.Stream.Mode),
	}, source, keys, sink, recorder, log)

	// Start the API server
	srv, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Registry: registry,
		Repo:     repo,
		Engine:   engine,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := srv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Relay engine progress to WebSocket subscribers
	hub := srv.Hub()
	engine.SetNotifier(func(message string) {
		hub.Broadcast(api.ChannelPlayback, map[string]any{
			"running":      engine.IsRunning(),
			"execution_id": engine.CurrentExecution(),
			"message":      message,
		})
	})

	// Record stream throughput per run
	if teleClient != nil {
		engine.SetFrameObserver(func(macroID string, frames, durationMS int) {
			teleClient.WriteFrameMetric(macroID, frames, durationMS)
		})
	}

	// Bind global hotkeys to the live key feed
	if cfg.Hotkeys.Enabled && keyFeed != nil {
		listener := hotkey.NewListener(registry, engine, log)
		listener.Attach(keyFeed)
		log.Info("hotkey listener attached")
	} else if cfg.Hotkeys.Enabled {
		log.Warn("hotkeys enabled but no key feed available", "source", cfg.Input.Source)
	}

	// Subscribe to MQTT run/stop commands
	if mqttClient != nil {
		if subErr := subscribeCommands(ctx, mqttClient, registry, engine, byte(cfg.MQTT.QoS), log); subErr != nil {
			return fmt.Errorf("subscribing to commands: %w", subErr)
		}
		log.Info("MQTT command subscription active", "topic", mqtt.Topics{}.AllMacroCommands())
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, teleClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: API server, stream
	// sink, keyboard source, telemetry, MQTT, database.

	log.Info("MacroDeck Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses MACRODECK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MACRODECK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// importLegacyMacros loads macros from a legacy JSON file into an empty
// registry. A populated database or a missing file is a silent no-op.
func importLegacyMacros(ctx context.Context, path string, registry *macro.Registry, log *logging.Logger) error {
	existing, err := registry.ListMacros(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Debug("skipping import, database already holds macros", "count", len(existing))
		return nil
	}

	macros, err := macro.ImportFile(path)
	if err != nil {
		return err
	}
	if len(macros) == 0 {
		return nil
	}

	for i := range macros {
		if createErr := registry.CreateMacro(ctx, &macros[i]); createErr != nil {
			return fmt.Errorf("importing %q: %w", macros[i].Name, createErr)
		}
	}
	log.Info("imported legacy macros", "path", path, "count", len(macros))
	return nil
}

// buildStreamSink assembles the frame sink from configuration: a UDP
// sink when streaming is enabled, optionally fanned out to an MQTT
// mirror. Returns a nil sink when streaming is off; the string is the
// dialled UDP target.
func buildStreamSink(cfg *config.Config, mqttClient *mqtt.Client) (stream.Sink, string, func(), error) {
	if !cfg.Stream.Enabled {
		return nil, "", nil, nil
	}

	udp, err := stream.NewUDPSink(cfg.Stream.Target)
	if err != nil {
		return nil, "", nil, err
	}
	closer := func() { _ = udp.Close() }

	if cfg.Stream.MirrorMQTT && mqttClient != nil {
		mirror := stream.NewMQTTSink(mqttClient, mqtt.Topics{}.Stream())
		return stream.NewFanoutSink(udp, mirror), udp.Addr(), closer, nil
	}
	return udp, udp.Addr(), closer, nil
}

// subscribeCommands wires broker-side run/stop commands into the engine.
//
// Topics:
//   - macrodeck/command/{id}/run  - start a macro by ID or slug
//   - macrodeck/command/{id}/stop - stop if that macro is running
//   - macrodeck/command/stop      - stop whatever is running
func subscribeCommands(ctx context.Context, client *mqtt.Client, registry *macro.Registry, engine *playback.Engine, qos byte, log *logging.Logger) error {
	return client.Subscribe(mqtt.Topics{}.AllMacroCommands(), qos, func(topic string, payload []byte) error {
		rest := strings.TrimPrefix(topic, mqtt.TopicPrefix+"/command/")
		if rest == "stop" {
			engine.Stop()
			return nil
		}

		parts := strings.Split(rest, "/")
		if len(parts) != 2 {
			log.Warn("ignoring malformed command topic", "topic", topic)
			return nil
		}
		ref, action := parts[0], parts[1]

		m, err := registry.GetMacro(ctx, ref)
		if err != nil {
			m, err = registry.GetMacroBySlug(ctx, ref)
		}
		if err != nil {
			log.Warn("command for unknown macro", "ref", ref, "error", err)
			return nil
		}

		switch action {
		case "run":
			if _, runErr := engine.Run(m, "mqtt"); runErr != nil {
				log.Warn("MQTT run rejected", "macro", m.ID, "error", runErr)
			}
		case "stop":
			engine.Stop()
		default:
			log.Warn("ignoring unknown command", "topic", topic, "action", action)
		}
		return nil
	})
}

// healthCheck verifies all infrastructure connections are healthy.
// MQTT and telemetry are optional; nil clients are skipped.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, teleClient *telemetry.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if teleClient != nil {
		if err := teleClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}

// runRecorder decorates the macro repository so that every execution
// record the engine persists also reaches the event planes: a lifecycle
// event on MQTT and, on terminal status, a run metric in telemetry.
type runRecorder struct {
	macro.Repository

	registry *macro.Registry
	events   *mqtt.Client // nil when MQTT is disabled
	tele     *telemetry.Client
	qos      byte
	log      *logging.Logger
}

// CreateExecution persists the record then announces the run start.
func (r *runRecorder) CreateExecution(ctx context.Context, exec *macro.Execution) error {
	err := r.Repository.CreateExecution(ctx, exec)
	r.publishEvent(exec, "started")
	return err
}

// UpdateExecution persists the record and, when the run has reached a
// terminal status, emits the lifecycle event and telemetry point.
func (r *runRecorder) UpdateExecution(ctx context.Context, exec *macro.Execution) error {
	err := r.Repository.UpdateExecution(ctx, exec)

	switch exec.Status {
	case macro.StatusCompleted, macro.StatusCancelled:
		r.publishEvent(exec, string(exec.Status))
		r.writeMetric(ctx, exec)
	}
	return err
}

func (r *runRecorder) publishEvent(exec *macro.Execution, event string) {
	if r.events == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"macro_id":     exec.MacroID,
		"execution_id": exec.ID,
		"trigger":      exec.Trigger,
		"status":       exec.Status,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	topic := mqtt.Topics{}.MacroEvent(exec.MacroID, event)
	if pubErr := r.events.Publish(topic, payload, r.qos, false); pubErr != nil {
		r.log.Warn("failed to publish macro event", "topic", topic, "error", pubErr)
	}
}

func (r *runRecorder) writeMetric(ctx context.Context, exec *macro.Execution) {
	metric := telemetry.RunMetric{
		MacroID:        exec.MacroID,
		TriggerType:    exec.Trigger,
		Status:         string(exec.Status),
		StepsCompleted: exec.StepsCompleted,
		StepsSkipped:   exec.StepsSkipped,
		Matched:        exec.Matched,
		Unmatched:      exec.Unmatched,
	}
	if exec.DurationMS != nil {
		metric.DurationMS = *exec.DurationMS
	}
	if m, err := r.registry.GetMacro(ctx, exec.MacroID); err == nil {
		metric.MacroSlug = m.Slug
	}
	r.tele.WriteRunMetric(metric)
}
