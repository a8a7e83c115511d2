// Package logging configures the zerolog logger shared by the catalog
// server, the terminal client and the library packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"

	// LevelDisabled silences all output. The terminal client uses it when
	// no log file is configured, since stderr belongs to the UI.
	LevelDisabled LogLevel = "disabled"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// Service is attached to every entry as "service" when set.
	Service string
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// FromEnv builds a configuration from LOG_LEVEL and LOG_PRETTY, falling
// back to DefaultConfig for unset or unparsable values.
func FromEnv(service string) Config {
	cfg := DefaultConfig()
	cfg.Service = service

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if _, err := ParseLevel(v); err == nil {
			cfg.Level = LogLevel(strings.ToLower(v))
		}
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		if pretty, err := strconv.ParseBool(v); err == nil {
			cfg.Pretty = pretty
		}
	}

	return cfg
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	level, err := ParseLevel(string(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger

	return logger
}

// ParseLevel converts a level name to a zerolog.Level. "warning" is
// accepted for warn; the empty string means info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled", "off":
		return zerolog.Disabled, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger creates a child of the global logger tagged with a component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// ForSession tags a logger with a session id.
func ForSession(logger zerolog.Logger, id string) zerolog.Logger {
	return logger.With().Str("session_id", id).Logger()
}

// Log Level Guidelines:
//
// Debug: cache hit/miss and conditional requests, quota transitions,
// prefetch batches.
//
// Info: page loads, bulk walks requested and completed, session
// lifecycle, server startup and shutdown.
//
// Warn: retries, throttling, stale cache entries served, quotas dropped
// before being satisfied, prefetch failures.
//
// Error: failed page fetches after retries, rate limit blocks, Redis
// unavailability.
//
// Context Fields:
//   - component: package or subsystem emitting the entry
//   - session_id: server session the entry belongs to
//   - page, total_pages, records: page metadata
//   - remaining, resume_page: bulk quota state
//   - endpoint, status, error_class: upstream request details
//   - etag, ttl, age: cache entry details
