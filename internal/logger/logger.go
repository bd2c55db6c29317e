// Package logger configures the process-wide structured logger.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log is the root logger. Packages derive component loggers from it rather
// than importing zerolog's global.
var Log = zerolog.New(os.Stdout).With().Timestamp().Str("service", "agentmint").Logger()

// Initialize applies the configured level and output format. Pretty output is
// for development terminals; production emits JSON.
func Initialize(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if pretty {
		Log = Log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	Log.Info().Str("level", lvl.String()).Bool("pretty", pretty).Msg("logger initialized")
}

// Security returns a sub-logger for authentication and token events.
func Security() *zerolog.Logger {
	l := Log.With().Str("component", "security").Logger()
	return &l
}

// Database returns a sub-logger for audit store events.
func Database() *zerolog.Logger {
	l := Log.With().Str("component", "database").Logger()
	return &l
}
