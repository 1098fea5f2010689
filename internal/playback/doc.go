// Package playback executes macros in real time for MacroDeck Core.
//
// The Engine runs one macro at a time on a dedicated worker goroutine.
// A second Run while one is active is rejected synchronously — runs
// are never queued or merged. Stop is cooperative: the worker observes
// the signal at suspension points (wait slices, expect polls, frame
// delays) and never interrupts a step's effect mid-flight.
//
// Step dispatch:
//
//   - wait: interruptible sleep against a wall-clock deadline
//   - key: total key-name resolution, then KeySink press/release
//   - expect: poll the input snapshot within a tolerance window;
//     advisory — the run continues whether or not the input appears
//   - frame: stream the accumulated input vector, then hold for the
//     frame's duration; the stream session guarantees a terminal
//     all-neutral reset on every exit path
//
// No condition here is fatal: malformed steps skip, missing
// collaborators degrade, transport failures are swallowed. A started
// run always reaches exactly one terminal status, completed or
// cancelled, and its execution record is persisted best effort.
package playback
