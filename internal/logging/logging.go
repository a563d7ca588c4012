// Package logging wires zerolog for the whole application. Handlers, the
// store, the hub and the client SDK all take a zerolog.Logger so tests can
// pass a silenced one.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/unsaidapp/unsaid/internal/config"
)

// New builds the root logger from config. Pretty mode uses the console
// writer; otherwise JSON lines go to stderr.
func New(conf *config.LoggerConfig) zerolog.Logger {
	level := parseLevel(conf.Level)

	var out io.Writer = os.Stderr
	if conf.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
