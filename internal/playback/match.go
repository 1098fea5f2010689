package playback

import (
	"strings"

	"github.com/nerrad567/macrodeck-core/internal/input"
)

// Stick-direction thresholds. Negative Y is up. Diagonal needs both
// axes deflected, at a slightly lower bar than a pure direction so
// angled inputs register.
const (
	stickThreshold    = 0.6
	diagonalThreshold = 0.55
)

// Match reports whether a snapshot satisfies a symbolic expectation.
//
// A label present verbatim in the pressed set matches first. Otherwise
// the stick-direction labels are evaluated against the axes. Any other
// label never matches. Pure function, no side effects.
func Match(expected string, snap input.Snapshot) bool {
	label := strings.ToLower(strings.TrimSpace(expected))
	if label == "" {
		return false
	}

	if snap.IsPressed(label) {
		return true
	}

	switch label {
	case "stick up", "up":
		return snap.StickY < -stickThreshold
	case "stick down", "down":
		return snap.StickY > stickThreshold
	case "diagonal":
		return abs(snap.StickX) > diagonalThreshold && abs(snap.StickY) > diagonalThreshold
	default:
		return false
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
