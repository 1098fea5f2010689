// Package telemetry provides InfluxDB connectivity for MacroDeck Core.
//
// It wraps the official influxdb-client-go v2 library with MacroDeck-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Macro run outcomes (status, duration, step counts)
//   - Expect-step match rates
//   - Stream frame throughput
//
// # Usage
//
//	cfg := config.TelemetryConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "macrodeck",
//	    Bucket:  "metrics",
//	}
//
//	client, err := telemetry.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Record a completed run
//	client.WriteRunMetric(telemetry.RunMetric{
//	    MacroID:    "a1b2c3",
//	    Status:     "completed",
//	    DurationMS: 842,
//	})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly. Write helpers are
// nil-safe so callers can skip the nil check when telemetry is disabled.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead without blocking the playback path.
package telemetry
