package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log targets understood by New. Any other value is treated as a file path.
const (
	TargetStdout = "STDOUT"
	TargetStderr = "STDERR"
	TargetSyslog = "SYSLOG"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ParseLevel parses a log level string
func ParseLevel(levelStr string) zerolog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New builds the process logger for the given level and target. The returned
// closer releases the file or syslog connection behind the logger.
func New(level, target string) (zerolog.Logger, io.Closer, error) {
	writer, closer, err := openTarget(target)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}
	return NewWithWriter(writer, ParseLevel(level)), closer, nil
}

// NewWithWriter builds a logger on an arbitrary writer.
func NewWithWriter(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func openTarget(target string) (io.Writer, io.Closer, error) {
	switch strings.ToUpper(target) {
	case "", TargetStdout:
		return os.Stdout, nopCloser{}, nil
	case TargetStderr:
		return os.Stderr, nopCloser{}, nil
	case TargetSyslog:
		return openSyslog()
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, f, nil
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// LogAttempt logs the outcome of a single probe attempt.
func LogAttempt(l zerolog.Logger, targetName string, success bool, rtt time.Duration, err error) {
	if success {
		l.Debug().Str("target", targetName).Int64("rtt_ms", rtt.Milliseconds()).Msg("probe succeeded")
		return
	}
	l.Debug().Str("target", targetName).Int64("rtt_ms", rtt.Milliseconds()).Err(err).Msg("probe failed")
}

// LogConfigLoad logs a config load event
func LogConfigLoad(l zerolog.Logger, path string, err error) {
	if err != nil {
		l.Error().Str("path", path).Err(err).Msg("config load failed")
		return
	}
	l.Info().Str("path", path).Msg("config loaded")
}
