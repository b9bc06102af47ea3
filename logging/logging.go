// Package logging provides structured logging using zerolog.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the shared logger instance. It writes to stderr so log output
// never mixes with streamed assistant text on stdout.
var Logger zerolog.Logger

// Init configures the shared logger. Trace mode enables debug-level output
// with a human-readable console format.
func Init(out io.Writer, trace bool) {
	if out == nil {
		out = os.Stderr
	}
	level := zerolog.WarnLevel
	var w io.Writer = out
	if trace {
		level = zerolog.DebugLevel
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Debug starts a new debug level log message.
func Debug() *zerolog.Event { return Logger.Debug() }

// Warn starts a new warn level log message.
func Warn() *zerolog.Event { return Logger.Warn() }

// Error starts a new error level log message.
func Error() *zerolog.Event { return Logger.Error() }

func init() {
	Init(os.Stderr, false)
}
