package mqtt

import "fmt"

// Topic prefixes for the MacroDeck MQTT namespace.
//
// All topics use the flat scheme: macrodeck/{category}/{id}
const (
	// TopicPrefix is the base for all MacroDeck topics.
	TopicPrefix = "macrodeck"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "macrodeck/system"
)

// Topics provides builders for MacroDeck MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	eventTopic := topics.MacroEvent("gear-shift-combo", "started")
//	// Returns: "macrodeck/macro/gear-shift-combo/started"
type Topics struct{}

// =============================================================================
// Macro Topics
// =============================================================================

// MacroEvent returns the topic for macro lifecycle events.
// Event is one of "started", "completed", "cancelled" or "failed".
//
// Example: macrodeck/macro/gear-shift-combo/started
func (Topics) MacroEvent(macroID, event string) string {
	return fmt.Sprintf("%s/macro/%s/%s", TopicPrefix, macroID, event)
}

// MacroCommand returns the topic for commands addressed to a macro.
// Command is one of "run" or "stop".
//
// Example: macrodeck/command/gear-shift-combo/run
func (Topics) MacroCommand(macroID, command string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, macroID, command)
}

// Stream returns the topic carrying mirrored input frame events.
//
// Example: macrodeck/stream
func (Topics) Stream() string {
	return fmt.Sprintf("%s/stream", TopicPrefix)
}

// PlaybackStop returns the global stop topic. Any message published here
// cancels the active run regardless of which macro owns it.
//
// Example: macrodeck/command/stop
func (Topics) PlaybackStop() string {
	return fmt.Sprintf("%s/command/stop", TopicPrefix)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the service status topic.
//
// Example: macrodeck/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: macrodeck/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllMacroEvents returns a pattern matching all macro lifecycle events.
//
// Pattern: macrodeck/macro/+/+
func (Topics) AllMacroEvents() string {
	return fmt.Sprintf("%s/macro/+/+", TopicPrefix)
}

// AllMacroCommands returns a pattern matching all macro commands.
//
// Pattern: macrodeck/command/#
func (Topics) AllMacroCommands() string {
	return fmt.Sprintf("%s/command/#", TopicPrefix)
}

// AllTopics returns a pattern matching all MacroDeck topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: macrodeck/#
func (Topics) AllTopics() string {
	return "macrodeck/#"
}
