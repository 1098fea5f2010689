// Package stream transmits per-frame input vectors to a remote
// consumer for MacroDeck Core.
//
// Delivery is fire-and-forget: events are one JSON object per datagram
// with no acknowledgement, no retry, and no response read. A dropped
// frame is preferable to a late one; the consumer is assumed to be a
// real-time input bridge.
//
// A Session wraps one playback run. It emits a start event, then frame
// events as playback advances, and on Close always emits end followed
// by a reset event carrying the all-neutral input vector. Close is
// idempotent, so the reset fires exactly once no matter how the run
// terminated. The consumer is never left holding a stale input.
//
// Sinks:
//
//   - UDPSink: datagrams to a fixed host/port (the normal transport)
//   - MQTTSink: mirrors events onto the broker for observers
//   - FanoutSink: duplicates events across several sinks
package stream
