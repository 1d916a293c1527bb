// Package logging configures zerolog for hierasock binaries and libraries.
package logging

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvLogLevel overrides the configured level when set.
const EnvLogLevel = "HIERASOCK_LOG_LEVEL"

// Config selects the logger output.
type Config struct {
	Level   string `toml:"level" json:"level"`
	NoColor bool   `toml:"no_color" json:"no_color"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{Level: "info"}
}

// New builds a console logger tagged with app and installs it as the global
// zerolog logger.
func New(app string, cfg Config) zerolog.Logger {
	return NewWithWriter(os.Stderr, app, cfg)
}

// NewWithWriter is New with an explicit output.
func NewWithWriter(out io.Writer, app string, cfg Config) zerolog.Logger {
	if raw := os.Getenv(EnvLogLevel); raw != "" {
		cfg.Level = raw
	}
	level, ok := ParseLevel(cfg.Level)
	if !ok {
		level = zerolog.InfoLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    cfg.NoColor,
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

// StdLogger adapts logger for APIs that take a *log.Logger, such as
// zmq4.WithLogger. Lines are written at debug level.
func StdLogger(logger zerolog.Logger) *stdlog.Logger {
	return stdlog.New(stdWriter{logger: logger}, "", 0)
}

type stdWriter struct {
	logger zerolog.Logger
}

func (w stdWriter) Write(p []byte) (int, error) {
	w.logger.Debug().Msg(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
