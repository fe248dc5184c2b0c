package config

import (
	"os"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	// Initialize zerolog with console writer for human-readable output
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: false,
	}).With().Timestamp().Logger()
}

// ConfigureLogger parses level and applies it globally. An invalid level
// falls back to info and is reported.
func ConfigureLogger(level string) {
	parsed := zerolog.InfoLevel
	if level != "" {
		if l, err := zerolog.ParseLevel(level); err == nil {
			parsed = l
		} else {
			logger.Warn().Str("invalid_level", level).Msg("Invalid log level, using default 'info'")
		}
	}

	zerolog.SetGlobalLevel(parsed)
	logger = logger.Level(parsed)
	logger.Debug().Str("level", parsed.String()).Msg("Logging configured")
}

func GetLogger() zerolog.Logger {
	return logger
}
