// Package logging configures zerolog for the Twitter client and hands out
// per-component loggers.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	LevelDebug    LogLevel = "debug"
	LevelInfo     LogLevel = "info"
	LevelWarn     LogLevel = "warn"
	LevelError    LogLevel = "error"
	LevelDisabled LogLevel = "disabled"
)

// Component names used by the library's loggers.
const (
	ComponentClient    = "twitter-client"
	ComponentTransport = "twitter-transport"
	ComponentPager     = "twitter-pager"
	ComponentRateLimit = "twitter-ratelimit"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger. Component loggers capture the
// global logger when they are created, so call Setup before creating clients.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(toZerolog(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.TimeOnly}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// ParseLevel validates a level name, accepting "warning" for warn.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "disabled", "off", "none":
		return LevelDisabled, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// toZerolog maps a level to zerolog, falling back to info.
func toZerolog(level LogLevel) zerolog.Level {
	parsed, err := ParseLevel(string(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	switch parsed {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelDisabled:
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a logger tagged with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Level guidelines:
//
// Debug: per-request detail
//   - request dispatch (resource, method, family, url)
//   - cache hits, page boundaries, quota updates
//
// Info: lifecycle events of applications built on the client
//
// Warn: the call went through but something is off
//   - unknown endpoints, non-2xx REST status
//   - exhausted rate limit windows
//   - cache or quota store failures (the call proceeds without them)
//
// Error: the call failed
//   - transport errors and timeouts
//
// Context fields:
//   - component: emitting package (see Component constants)
//   - resource: endpoint resource, e.g. "statuses/user_timeline"
//   - method, family, url: request dispatch
//   - status, error_class: response classification
//   - page, items, since_id, max_id: pager progress
//   - remaining, reset_in: rate limit quota
