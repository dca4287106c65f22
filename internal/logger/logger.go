// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	Setup(os.Stderr, "info")
}

// Setup points the global logger at out with a console writer and sets the
// level. Unknown levels fall back to info.
func Setup(out io.Writer, level string) {
	setup(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}, level)
}

// SetupPlain is Setup without colour codes, for sinks that are not a
// terminal of their own (the full-screen console's log pane).
func SetupPlain(out io.Writer, level string) {
	setup(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}, level)
}

func setup(output zerolog.ConsoleWriter, level string) {
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(ParseLevel(level))
}

func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// With returns a child logger tagged with a component name.
func With(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
