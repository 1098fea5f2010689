// Package input provides live input observation for MacroDeck Core.
//
// A Source samples whatever the user is physically doing — keys held,
// stick deflection — into immutable Snapshot values. The playback
// engine polls Snapshots to resolve advisory expect steps; it never
// blocks on a Source.
//
// Two sources ship:
//
//   - KeyboardSource: global keyboard hook. Keys map to the pressed
//     set; arrow keys double as a virtual stick so keyboard-only
//     setups can satisfy directional expectations.
//   - ManualSource: programmatic state, for tests and headless use.
//
// Sources degrade to neutral: before Start, after Stop, or when the
// hook fails, Snapshot() reports nothing pressed and a centred stick.
// Observation must never wedge playback.
package input
