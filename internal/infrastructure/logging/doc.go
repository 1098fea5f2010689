// Package logging wraps log/slog with MacroDeck's conventions: a
// configurable level and format (json for machines, text for people),
// and service/version fields stamped onto every entry.
//
// Configured from the logging block of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Typical use:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("engine ready", "macros", registry.Count())
//	engineLog := logger.With("component", "playback")
//
// Never log secrets or broker credentials; log key prefixes or lengths
// instead when a value must be traced.
package logging
