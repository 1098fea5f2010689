package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RunMetric describes a completed macro run for the macro_runs measurement.
type RunMetric struct {
	MacroID        string
	MacroSlug      string
	TriggerType    string
	Status         string
	DurationMS     int
	StepsCompleted int
	StepsSkipped   int
	Matched        int
	Unmatched      int
}

// WriteRunMetric records a completed macro run.
//
// This is the primary method for tracking playback outcomes over time.
// The write is non-blocking; data is batched and sent asynchronously.
// Safe to call on a nil or disconnected client (no-op).
//
// Example:
//
//	client.WriteRunMetric(telemetry.RunMetric{
//	    MacroID:     exec.MacroID,
//	    TriggerType: "hotkey",
//	    Status:      "completed",
//	    DurationMS:  842,
//	})
func (c *Client) WriteRunMetric(m RunMetric) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"macro_runs",
		map[string]string{
			"macro_id": m.MacroID,
			"slug":     m.MacroSlug,
			"trigger":  m.TriggerType,
			"status":   m.Status,
		},
		map[string]interface{}{
			"duration_ms":     m.DurationMS,
			"steps_completed": m.StepsCompleted,
			"steps_skipped":   m.StepsSkipped,
			"matched":         m.Matched,
			"unmatched":       m.Unmatched,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteFrameMetric records stream frame throughput for a macro run.
//
// Used for monitoring the UDP/MQTT mirror feed. One point per run,
// written when the stream session closes.
//
// Parameters:
//   - macroID: Macro identifier
//   - frames: Number of frame events emitted
//   - durationMS: Total streaming duration in milliseconds
func (c *Client) WriteFrameMetric(macroID string, frames int, durationMS int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"stream_frames",
		map[string]string{
			"macro_id": macroID,
		},
		map[string]interface{}{
			"frames":      frames,
			"duration_ms": durationMS,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "deck-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., backfilled data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
