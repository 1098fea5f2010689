package macro

import "strings"

// Key is a resolved, platform-neutral key identifier.
//
// Resolution is total: any input string resolves to a Key. Names that
// fall through the symbolic table and the function-key pattern are
// passed through verbatim with Literal set, so a typo like "spacebar"
// becomes a literal key rather than an error. Surprising, but it keeps
// key steps infallible.
type Key struct {
	// Code is the identifier handed to the output sink, e.g. "space",
	// "f6", or "a".
	Code string

	// Literal marks codes that did not match a symbolic name and are
	// sent through as-is.
	Literal bool
}

// symbolicKeys maps normalised symbolic names to key codes. Aliases
// (escape/esc, control/ctrl, command/cmd/win) collapse to one code.
var symbolicKeys = map[string]string{
	"space":     "space",
	"enter":     "enter",
	"tab":       "tab",
	"esc":       "esc",
	"escape":    "esc",
	"shift":     "shift",
	"ctrl":      "ctrl",
	"control":   "ctrl",
	"alt":       "alt",
	"cmd":       "cmd",
	"command":   "cmd",
	"win":       "cmd",
	"up":        "up",
	"down":      "down",
	"left":      "left",
	"right":     "right",
	"backspace": "backspace",
	"delete":    "delete",
}

// ResolveKey normalises a user-entered key name to a Key.
//
// The algorithm is deterministic and has no error path:
//  1. lowercase and trim surrounding whitespace
//  2. look up the symbolic name table
//  3. "f" followed only by digits resolves to that function key
//  4. anything else passes through as a literal identifier
func ResolveKey(name string) Key {
	k := strings.ToLower(strings.TrimSpace(name))

	if code, ok := symbolicKeys[k]; ok {
		return Key{Code: code}
	}

	if isFunctionKey(k) {
		return Key{Code: k}
	}

	return Key{Code: k, Literal: true}
}

// isFunctionKey reports whether s is "f" followed by one or more digits.
func isFunctionKey(s string) bool {
	if len(s) < 2 || s[0] != 'f' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
