// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupWriter configures the global logger to write to w. Unknown levels
// fall back to info. With pretty set, output is human readable console
// text.
func SetupWriter(w io.Writer, level string, pretty bool) {
	zerolog.SetGlobalLevel(ParseLevel(level))

	out := w
	if pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		log.Logger = log.Logger.With().Caller().Logger()
	}
	log.Debug().Str("level", zerolog.GlobalLevel().String()).Msg("logger initialized")
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// LevelForVerbosity maps a -v count to a level name.
func LevelForVerbosity(verbosity int) string {
	switch verbosity {
	case 0:
		return "warn"
	case 1:
		return "info"
	case 2:
		return "debug"
	default:
		return "trace"
	}
}

// Component returns a logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
