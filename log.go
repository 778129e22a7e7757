package rtms

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// LogFormat selects how log records are rendered.
type LogFormat string

const (
	LogFormatProgressive LogFormat = "progressive" // human-readable console output
	LogFormatJSON        LogFormat = "json"
)

// LogConfig configures the package logger.
type LogConfig struct {
	Level   string // error, warn, info, debug, trace
	Format  LogFormat
	Enabled bool
	Output  io.Writer // defaults to os.Stderr
}

var logPtr atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.InfoLevel).
		With().Timestamp().Str("module", "rtms").Logger()
	logPtr.Store(&l)
}

// logger returns the current package logger.
func logger() *zerolog.Logger { return logPtr.Load() }

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	logPtr.Store(&l)
}

// ConfigureLogger rebuilds the package logger from cfg.
func ConfigureLogger(cfg LogConfig) {
	if !cfg.Enabled {
		SetLogger(zerolog.Nop())
		return
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format != LogFormatJSON {
		out = zerolog.ConsoleWriter{Out: out}
	}
	l := zerolog.New(out).
		Level(ParseLogLevel(cfg.Level)).
		With().Timestamp().Str("module", "rtms").Logger()
	SetLogger(l)
}

// ParseLogLevel maps the SDK's level names onto zerolog levels. Unknown
// names fall back to debug.
func ParseLogLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return zerolog.ErrorLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "info":
		return zerolog.InfoLevel
	case "trace":
		return zerolog.TraceLevel
	default:
		return zerolog.DebugLevel
	}
}
