package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/macrodeck-core/internal/infrastructure/config"
)

// Logger wraps slog.Logger with the service's default fields and
// config-driven level, format, and destination. Safe for concurrent
// use, like the slog handler underneath.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of config.yaml. Format
// is "json" (default) or "text"; output is "stdout" (default) or
// "stderr". Every record carries service and version attributes.
func New(cfg config.LoggingConfig, version string) *Logger {
	var out io.Writer = os.Stdout
	if strings.ToLower(cfg.Output) == "stderr" {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "macrodeck"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// parseLevel maps debug/info/warn/error strings to slog levels,
// defaulting to info on anything unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying extra default attributes:
//
//	engineLog := logger.With("component", "playback")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the bootstrap logger used before configuration loads:
// info-level JSON on stdout.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
