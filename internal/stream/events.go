package stream

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/macrodeck-core/internal/macro"
)

// EventType discriminates stream events.
type EventType string

const (
	// EventStart opens a run, before the first frame.
	EventStart EventType = "start"

	// EventFrame carries one input vector plus its hold duration.
	EventFrame EventType = "frame"

	// EventEnd closes a run's frame sequence.
	EventEnd EventType = "end"

	// EventReset is the terminal all-neutral vector. Always the last
	// event of a run, on every termination path.
	EventReset EventType = "reset"
)

// Event is one stream record. Encoded as a single JSON object per
// datagram; the consumer needs no framing beyond the datagram itself.
type Event struct {
	Type      EventType         `json:"type"`
	Name      string            `json:"name,omitempty"`
	DtMS      int               `json:"dt_ms,omitempty"`
	Inputs    macro.InputVector `json:"inputs,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Encode serialises the event to its wire form.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
