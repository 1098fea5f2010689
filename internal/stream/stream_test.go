package stream

import (
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/macrodeck-core/internal/macro"
)

// captureSink records every event it receives.
type captureSink struct {
	mu     sync.Mutex
	events []Event
	err    error // returned from Send when set
	closed bool
}

func (c *captureSink) Send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return c.err
}

func (c *captureSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *captureSink) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestSession_EventOrdering(t *testing.T) {
	sink := &captureSink{}
	s := NewSession(sink, "speed-flip", ModeAccumulate, nil)

	s.Start()
	s.Frame(80, macro.InputVector{"jump": true})
	s.Frame(40, macro.InputVector{"jump": false})
	s.Close()

	got := sink.Events()
	want := []EventType{EventStart, EventFrame, EventFrame, EventEnd, EventReset}
	if len(got) != len(want) {
		t.Fatalf("got %d events %v, want %d", len(got), eventTypes(got), len(want))
	}
	for i, ty := range want {
		if got[i].Type != ty {
			t.Errorf("event %d type = %q, want %q", i, got[i].Type, ty)
		}
	}
	if got[1].DtMS != 80 || got[2].DtMS != 40 {
		t.Errorf("frame durations = %d, %d", got[1].DtMS, got[2].DtMS)
	}
}

func TestSession_ResetIsNeutralAndLast(t *testing.T) {
	sink := &captureSink{}
	s := NewSession(sink, "m", ModeAccumulate, nil)

	s.Start()
	s.Frame(80, macro.InputVector{"throttle": 1.0, "boost": true})
	s.Close()

	events := sink.Events()
	last := events[len(events)-1]
	if last.Type != EventReset {
		t.Fatalf("last event = %q, want reset", last.Type)
	}
	for _, a := range macro.Axes {
		if x, ok := last.Inputs.Axis(a); !ok || x != 0 {
			t.Errorf("reset axis %q = %v (%v), want 0", a, x, ok)
		}
	}
	for _, b := range macro.Buttons {
		if pressed, ok := last.Inputs.Button(b); !ok || pressed {
			t.Errorf("reset button %q = %v (%v), want false", b, pressed, ok)
		}
	}
}

func TestSession_CloseIdempotent(t *testing.T) {
	sink := &captureSink{}
	s := NewSession(sink, "m", ModeAccumulate, nil)

	s.Start()
	s.Close()
	s.Close()
	s.Close()

	resets := 0
	for _, ev := range sink.Events() {
		if ev.Type == EventReset {
			resets++
		}
	}
	if resets != 1 {
		t.Errorf("reset sent %d times, want exactly 1", resets)
	}
}

func TestSession_StatsCountFramesAndDuration(t *testing.T) {
	sink := &captureSink{}
	s := NewSession(sink, "m", ModeAccumulate, nil)

	if frames, totalMS := s.Stats(); frames != 0 || totalMS != 0 {
		t.Errorf("fresh session stats = %d frames, %dms, want zeros", frames, totalMS)
	}

	s.Start()
	s.Frame(80, macro.InputVector{"jump": true})
	s.Frame(40, macro.InputVector{"jump": false})
	s.Close()

	frames, totalMS := s.Stats()
	if frames != 2 {
		t.Errorf("frames = %d, want 2", frames)
	}
	if totalMS != 120 {
		t.Errorf("total duration = %dms, want 120", totalMS)
	}
}

func TestSession_AccumulateMode(t *testing.T) {
	sink := &captureSink{}
	s := NewSession(sink, "m", ModeAccumulate, nil)

	s.Start()
	s.Frame(80, macro.InputVector{"throttle": 1.0, "boost": true})
	s.Frame(40, macro.InputVector{"steer": -0.5})
	s.Close()

	second := sink.Events()[2]
	// Channels absent from the second frame keep their accumulated value
	if x, _ := second.Inputs.Axis("throttle"); x != 1.0 {
		t.Errorf("throttle = %v, want 1.0 carried forward", x)
	}
	if pressed, _ := second.Inputs.Button("boost"); !pressed {
		t.Error("boost should carry forward in accumulate mode")
	}
	if x, _ := second.Inputs.Axis("steer"); x != -0.5 {
		t.Errorf("steer = %v, want -0.5", x)
	}
}

func TestSession_ReplaceMode(t *testing.T) {
	sink := &captureSink{}
	s := NewSession(sink, "m", ModeReplace, nil)

	s.Start()
	s.Frame(80, macro.InputVector{"throttle": 1.0})
	s.Frame(40, macro.InputVector{"steer": -0.5})
	s.Close()

	second := sink.Events()[2]
	if _, ok := second.Inputs.Axis("throttle"); ok {
		t.Error("replace mode should not carry throttle into the second frame")
	}
	if x, _ := second.Inputs.Axis("steer"); x != -0.5 {
		t.Errorf("steer = %v, want -0.5", x)
	}
}

func TestSession_ClampsAxes(t *testing.T) {
	sink := &captureSink{}
	s := NewSession(sink, "m", ModeAccumulate, nil)

	s.Start()
	s.Frame(80, macro.InputVector{"pitch": -9.0})
	s.Close()

	frame := sink.Events()[1]
	if x, _ := frame.Inputs.Axis("pitch"); x != -1.0 {
		t.Errorf("pitch = %v, want clamped to -1", x)
	}
}

func TestSession_SendFailureSwallowed(t *testing.T) {
	sink := &captureSink{err: errors.New("network unreachable")}
	s := NewSession(sink, "m", ModeAccumulate, nil)

	// None of these may panic or halt; failures are advisory.
	s.Start()
	s.Frame(80, macro.InputVector{"jump": true})
	s.Close()

	if len(sink.Events()) != 4 {
		t.Errorf("all sends should still be attempted, got %d", len(sink.Events()))
	}
}

func TestSession_NilSink(t *testing.T) {
	s := NewSession(nil, "m", ModeAccumulate, nil)
	s.Start()
	s.Frame(80, macro.InputVector{"jump": true})
	s.Close()
	// Reaching here without panic is the assertion.
}

func TestEvent_EncodeWireShape(t *testing.T) {
	ev := Event{
		Type:   EventFrame,
		Name:   "speed-flip",
		DtMS:   80,
		Inputs: macro.InputVector{"jump": true},
	}

	data, err := ev.Encode()
	if err != nil {
		t.Fatalf("Encode() = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("wire form is not valid JSON: %v", err)
	}
	if decoded["type"] != "frame" {
		t.Errorf("type = %v", decoded["type"])
	}
	if decoded["dt_ms"] != float64(80) {
		t.Errorf("dt_ms = %v", decoded["dt_ms"])
	}
	inputs, ok := decoded["inputs"].(map[string]any)
	if !ok || inputs["jump"] != true {
		t.Errorf("inputs = %v", decoded["inputs"])
	}
}

func TestUDPSink_SendAndAddr(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket() = %v", err)
	}
	defer pc.Close()

	target := pc.LocalAddr().String()
	sink, err := NewUDPSink(target)
	if err != nil {
		t.Fatalf("NewUDPSink() = %v", err)
	}
	defer sink.Close()

	if sink.Addr() != target {
		t.Errorf("Addr() = %q, want %q", sink.Addr(), target)
	}

	if err := sink.Send(Event{Type: EventStart, Name: "m"}); err != nil {
		t.Fatalf("Send() = %v", err)
	}

	buf := make([]byte, 2048)
	pc.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // Test deadline
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom() = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf[:n], &decoded); err != nil {
		t.Fatalf("datagram is not JSON: %v", err)
	}
	if decoded["type"] != string(EventStart) {
		t.Errorf("datagram type = %v, want %q", decoded["type"], EventStart)
	}
}

func TestFanoutSink(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{err: errors.New("b failed")}
	f := NewFanoutSink(a, nil, b)

	err := f.Send(Event{Type: EventStart})
	if err == nil {
		t.Error("Send should surface the first sink error")
	}
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Error("all sinks should receive the event despite one failing")
	}

	if err := f.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("Close should reach every sink")
	}
}
