package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Environment variables read by this package
const (
	EnvLogLevel = "BOOTDESC_LOG_LEVEL"
	EnvJSONLog  = "BOOTDESC_JSON_LOG"
	EnvLogPath  = "BOOTDESC_LOG_PATH"
)

// DefaultLevel is used when neither the command line nor the environment
// sets a level.
const DefaultLevel = "warn"

// Prefix starts every non-JSON log line.
const Prefix = "🥾 "

// NewLogger creates a new hclog logger with standard settings. A level of
// the form "json" or "json:<level>" selects JSON output, as does
// BOOTDESC_JSON_LOG=1.
func NewLogger(name string, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}

	level, jsonFormat := splitFormat(level)
	if os.Getenv(EnvJSONLog) == "1" {
		jsonFormat = true
	}

	// Add prefix for non-JSON output
	if !jsonFormat {
		output = NewPrefixWriter(Prefix, output)
	}

	opts := &hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: jsonFormat,
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z", // UTC ISO format
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	}

	return hclog.New(opts)
}

// splitFormat strips a "json" or "json:" prefix from level. "json" alone
// means info.
func splitFormat(level string) (string, bool) {
	if !strings.HasPrefix(level, "json") {
		return level, false
	}
	if _, l, ok := strings.Cut(level, ":"); ok && l != "" {
		return l, true
	}
	return "info", true
}

// GetLogLevel returns the configured log level from environment
func GetLogLevel() string {
	level := os.Getenv(EnvLogLevel)
	if level == "" {
		level = DefaultLevel
	}
	return level
}

// Settings is a resolved logging configuration.
type Settings struct {
	Level  string
	JSON   bool
	Source string // where Level came from, for diagnostics
}

// Resolve picks the log level from the command line, then the environment,
// then DefaultLevel.
func Resolve(cliLevel string) Settings {
	var s Settings
	switch {
	case cliLevel != "":
		s.Level, s.Source = cliLevel, "CLI --log-level"
	case os.Getenv(EnvLogLevel) != "":
		s.Level, s.Source = GetLogLevel(), EnvLogLevel
	default:
		s.Level, s.Source = GetLogLevel(), "default"
	}

	s.Level, s.JSON = splitFormat(s.Level)
	if os.Getenv(EnvJSONLog) == "1" {
		s.JSON = true
	}
	return s
}

// Logger creates a logger with these settings.
func (s Settings) Logger(name string, output io.Writer) hclog.Logger {
	level := s.Level
	if s.JSON {
		level = "json:" + level
	}
	return NewLogger(name, level, output)
}

// Output returns the log destination: the file named by BOOTDESC_LOG_PATH if
// it can be opened for appending, stderr otherwise. The returned func closes
// the file, if any.
func Output() (io.Writer, func()) {
	if logPath := os.Getenv(EnvLogPath); logPath != "" {
		if file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			return file, func() { _ = file.Close() }
		}
	}
	return os.Stderr, func() {}
}
