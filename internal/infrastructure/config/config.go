package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for MacroDeck Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Stream    StreamConfig    `yaml:"stream"`
	Input     InputConfig     `yaml:"input"`
	Hotkeys   HotkeyConfig    `yaml:"hotkeys"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
	Import    ImportConfig    `yaml:"import"`
}

// ServiceConfig contains instance identification.
type ServiceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// PlaybackConfig contains playback engine timing settings.
// Durations are in milliseconds.
type PlaybackConfig struct {
	// PollIntervalMS is the snapshot poll cadence for expect steps.
	PollIntervalMS int `yaml:"poll_interval_ms"`

	// ToleranceMS is how long an expect step waits for its input.
	ToleranceMS int `yaml:"tolerance_ms"`

	// WaitSliceMS bounds cancellation latency inside long waits.
	WaitSliceMS int `yaml:"wait_slice_ms"`
}

// StreamConfig contains frame streaming settings.
type StreamConfig struct {
	// Enabled turns the UDP stream on. Without it, frame steps skip.
	Enabled bool `yaml:"enabled"`

	// Target is the consumer's host:port for JSON datagrams.
	Target string `yaml:"target"`

	// Mode is "accumulate" (default) or "replace".
	Mode string `yaml:"mode"`

	// MirrorMQTT additionally publishes stream events on the broker.
	MirrorMQTT bool `yaml:"mirror_mqtt"`
}

// InputConfig contains live input observation settings.
type InputConfig struct {
	// Source is "keyboard" for the global hook, or "none" to run
	// without observation (expect steps see neutral).
	Source string `yaml:"source"`
}

// HotkeyConfig contains global trigger settings.
type HotkeyConfig struct {
	Enabled bool `yaml:"enabled"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// TelemetryConfig contains InfluxDB run-metrics settings.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ImportConfig controls one-shot JSON import on startup.
type ImportConfig struct {
	// Path is a legacy macros.json to import when the database holds
	// no macros. Empty disables the import.
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MACRODECK_SECTION_KEY
// For example: MACRODECK_DATABASE_PATH, MACRODECK_STREAM_TARGET
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			ID:   "macrodeck-001",
			Name: "MacroDeck",
		},
		Database: DatabaseConfig{
			Path:        "./data/macrodeck.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Playback: PlaybackConfig{
			PollIntervalMS: 10,
			ToleranceMS:    350,
			WaitSliceMS:    25,
		},
		Stream: StreamConfig{
			Enabled: false,
			Target:  "127.0.0.1:20777",
			Mode:    "accumulate",
		},
		Input: InputConfig{
			Source: "keyboard",
		},
		Hotkeys: HotkeyConfig{
			Enabled: true,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "macrodeck-core",
			},
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MACRODECK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MACRODECK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("MACRODECK_STREAM_TARGET"); v != "" {
		cfg.Stream.Target = v
		cfg.Stream.Enabled = true
	}

	if v := os.Getenv("MACRODECK_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("MACRODECK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MACRODECK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MACRODECK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("MACRODECK_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}

	if v := os.Getenv("MACRODECK_IMPORT_PATH"); v != "" {
		cfg.Import.Path = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Service.ID == "" {
		errs = append(errs, "service.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Playback.PollIntervalMS < 1 {
		errs = append(errs, "playback.poll_interval_ms must be >= 1")
	}
	if c.Playback.ToleranceMS < 1 {
		errs = append(errs, "playback.tolerance_ms must be >= 1")
	}

	if c.Stream.Enabled && c.Stream.Target == "" {
		errs = append(errs, "stream.target is required when stream.enabled")
	}
	switch c.Stream.Mode {
	case "", "accumulate", "replace":
	default:
		errs = append(errs, "stream.mode must be accumulate or replace")
	}

	switch c.Input.Source {
	case "", "keyboard", "none":
	default:
		errs = append(errs, "input.source must be keyboard or none")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.URL == "" {
			errs = append(errs, "telemetry.url is required when telemetry.enabled")
		}
		if c.Telemetry.Token == "" {
			errs = append(errs, "telemetry.token is required when telemetry.enabled (set MACRODECK_TELEMETRY_TOKEN)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// PollInterval returns the expect poll cadence as a Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Playback.PollIntervalMS) * time.Millisecond
}

// Tolerance returns the expect tolerance window as a Duration.
func (c *Config) Tolerance() time.Duration {
	return time.Duration(c.Playback.ToleranceMS) * time.Millisecond
}

// WaitSlice returns the wait cancellation granularity as a Duration.
func (c *Config) WaitSlice() time.Duration {
	return time.Duration(c.Playback.WaitSliceMS) * time.Millisecond
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
