// Package logging provides structured logging for shelfctl.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with console output tuned for a CLI: logs go to
// stdout so stderr stays free for progress bars.
type Logger struct {
	zlog zerolog.Logger
}

// New creates a console logger writing to stdout.
func New() *Logger {
	return NewWithWriter(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	})
}

// NewWithWriter creates a logger writing to w. Useful in tests.
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{
		zlog: zerolog.New(w).With().Timestamp().Logger(),
	}
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debugf logs a debug message with printf-style formatting. Only shown when
// verbose mode is enabled.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zlog.Debug().Msgf(format, args...)
}

// Infof logs an info message with printf-style formatting.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.zlog.Info().Msgf(format, args...)
}

// Errorf logs an error message with printf-style formatting.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.zlog.Error().Msgf(format, args...)
}

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}
